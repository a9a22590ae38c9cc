// Package datastore persists uploaded files and their aggregated segment
// results in SQLite via GORM. This is the only state besides the feature
// cache that survives a restart.
package datastore

import "time"

// AudioFile represents one ingested audio file.
type AudioFile struct {
	ID          string `gorm:"primaryKey"`
	Path        string
	Fingerprint string `gorm:"index:idx_audio_files_fingerprint"`
	SampleRate  int
	Channels    int
	Duration    float64 // seconds
	CreatedAt   time.Time
}

// AnalysisRun marks that a file has a completed analysis and which detectors
// it ran. It is what distinguishes "analyzed, nothing found" from "never
// analyzed" once the task registry has expired.
type AnalysisRun struct {
	FileID    string `gorm:"primaryKey"`
	Detectors string // comma-joined detector types of the run
	CreatedAt time.Time
}

// SegmentRecord is one aggregated segment of one analysis run, keyed by the
// file it belongs to. Re-analyzing a file replaces its records wholesale.
type SegmentRecord struct {
	ID         uint   `gorm:"primaryKey"`
	FileID     string `gorm:"index:idx_segment_records_file;not null"`
	SegmentID  string // stable {type}_{ordinal} identifier within the file
	Type       string `gorm:"index:idx_segment_records_type"`
	Start      float64
	End        float64
	Duration   float64
	Key        string
	Tempo      float64
	Confidence float64
	CreatedAt  time.Time
}
