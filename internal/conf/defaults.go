// conf/defaults.go default values for settings
package conf

import "github.com/spf13/viper"

// setDefaults registers the default value for every setting.
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("analysis.chunkduration", 30.0)
	v.SetDefault("analysis.overlap", 5.0)

	v.SetDefault("analysis.detectors.silence", true)
	v.SetDefault("analysis.detectors.onset", true)
	v.SetDefault("analysis.detectors.key", true)
	v.SetDefault("analysis.detectors.tempo", true)

	v.SetDefault("analysis.silence.thresholddb", -40.0)
	v.SetDefault("analysis.silence.minduration", 0.5)

	v.SetDefault("analysis.onset.epsilon", 0.05)
	v.SetDefault("analysis.onset.minsegment", 0.1)
	v.SetDefault("analysis.onset.peakdelta", 2.0)
	v.SetDefault("analysis.onset.minseparation", 0.05)
	v.SetDefault("analysis.onset.highpasshz", 0.0)

	v.SetDefault("analysis.tempo.window", 4.0)
	v.SetDefault("analysis.tempo.hop", 1.0)
	v.SetDefault("analysis.tempo.minbpm", 60.0)
	v.SetDefault("analysis.tempo.maxbpm", 200.0)
	v.SetDefault("analysis.tempo.minconfidence", 0.1)

	v.SetDefault("analysis.mergeoverlapfraction", 0.5)

	v.SetDefault("export.type", "wav")
	v.SetDefault("export.bitrate", "192k")
	v.SetDefault("export.ffmpegpath", "")

	v.SetDefault("cache.dir", "cache")
	v.SetDefault("cache.maxbytes", 64*1024*1024)

	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.port", "8080")
	v.SetDefault("webserver.uploads", "uploads")

	v.SetDefault("output.path", "exports")

	v.SetDefault("datastore.path", "guitarchops.db")
}

// Default returns settings populated with defaults only, without touching the
// filesystem or environment. Used by tests and as a fallback.
func Default() *Settings {
	v := viper.New()
	setDefaults(v)
	s := &Settings{}
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(s)
	return s
}
