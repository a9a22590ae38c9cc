// Package aggregate stitches chunk-local candidate events into the final
// per-type segment lists: absolute-time translation, overlap deduplication,
// same-value coalescing, inter-onset span construction and stable IDs.
package aggregate

import (
	"fmt"
	"math"
	"sort"

	"github.com/bakerbass/GuitarChops/internal/conf"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

// Aggregator accumulates candidate events for one analysis run and merges
// them into globally time-ordered, non-overlapping segments per type.
type Aggregator struct {
	step                 float64 // seconds between consecutive chunk starts
	mergeOverlapFraction float64
	onsetEpsilon         float64
	onsetMinSegment      float64
	fileDuration         float64

	events []segment.CandidateEvent
}

// New creates an aggregator for a file of the given duration in seconds,
// analyzed with the configured window parameters.
func New(settings *conf.AnalysisSettings, fileDuration float64) *Aggregator {
	return &Aggregator{
		step:                 settings.ChunkDuration - settings.Overlap,
		mergeOverlapFraction: settings.MergeOverlapFraction,
		onsetEpsilon:         settings.Onset.Epsilon,
		onsetMinSegment:      settings.Onset.MinSegment,
		fileDuration:         fileDuration,
	}
}

// Add accumulates candidate events. Arrival order does not matter; Finalize
// sorts before merging.
func (a *Aggregator) Add(events ...segment.CandidateEvent) {
	a.events = append(a.events, events...)
}

// Finalize merges everything accumulated so far and returns the segment set.
// An empty event stream yields an empty (non-nil) set.
func (a *Aggregator) Finalize() segment.Set {
	byType := make(map[segment.DetectorType][]absEvent)
	for _, ev := range a.events {
		byType[ev.Type] = append(byType[ev.Type], a.translate(ev))
	}

	set := make(segment.Set)
	for detType, events := range byType {
		set[detType] = a.aggregateType(detType, events)
	}
	return set
}

// absEvent is a candidate event translated to absolute file time.
type absEvent struct {
	start, end float64
	chunkIndex int
	key        string
	bpm        float64
	confidence float64
}

// translate converts chunk-local offsets to absolute file seconds, clamping
// to the file's duration.
func (a *Aggregator) translate(ev segment.CandidateEvent) absEvent {
	base := float64(ev.ChunkIndex) * a.step
	start := base + ev.Start
	end := base + ev.End
	if end > a.fileDuration {
		end = a.fileDuration
	}
	if start > end {
		start = end
	}
	return absEvent{
		start:      start,
		end:        end,
		chunkIndex: ev.ChunkIndex,
		key:        ev.Key,
		bpm:        ev.BPM,
		confidence: ev.Confidence,
	}
}

// aggregateType runs the full merge pipeline for one detector type.
func (a *Aggregator) aggregateType(detType segment.DetectorType, events []absEvent) []segment.Segment {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].start != events[j].start {
			return events[i].start < events[j].start
		}
		return events[i].chunkIndex < events[j].chunkIndex
	})

	if detType == segment.DetectorOnset {
		events = a.dedupeOnsets(events)
		events = a.onsetSpans(events)
	} else {
		events = a.dedupeSpans(events)
	}

	if detType == segment.DetectorKey || detType == segment.DetectorTempo {
		events = coalesceValues(detType, events)
	}

	return a.buildSegments(detType, events)
}

// dedupeSpans merges consecutive events whose spans overlap by more than the
// configured fraction of the shorter span. The merged event keeps the higher
// confidence (and that event's value) and the union of the spans.
func (a *Aggregator) dedupeSpans(events []absEvent) []absEvent {
	var out []absEvent
	for _, ev := range events {
		if len(out) > 0 {
			prev := &out[len(out)-1]
			overlap := math.Min(prev.end, ev.end) - math.Max(prev.start, ev.start)
			shorter := math.Min(prev.end-prev.start, ev.end-ev.start)
			if overlap > 0 && (shorter <= 0 || overlap > a.mergeOverlapFraction*shorter) {
				if ev.confidence > prev.confidence {
					prev.confidence = ev.confidence
					prev.key = ev.key
					prev.bpm = ev.bpm
				}
				prev.start = math.Min(prev.start, ev.start)
				prev.end = math.Max(prev.end, ev.end)
				continue
			}
		}
		out = append(out, ev)
	}
	return out
}

// dedupeOnsets folds instant events that fall within epsilon of each other,
// keeping the higher confidence.
func (a *Aggregator) dedupeOnsets(events []absEvent) []absEvent {
	var out []absEvent
	for _, ev := range events {
		if len(out) > 0 {
			prev := &out[len(out)-1]
			if ev.start-prev.start <= a.onsetEpsilon {
				if ev.confidence > prev.confidence {
					prev.confidence = ev.confidence
				}
				continue
			}
		}
		out = append(out, ev)
	}
	return out
}

// onsetSpans converts deduplicated onset instants into inter-onset spans:
// each onset runs until the next one, the last until the end of the file.
// Spans shorter than the configured minimum are dropped.
func (a *Aggregator) onsetSpans(events []absEvent) []absEvent {
	var out []absEvent
	for i, ev := range events {
		end := a.fileDuration
		if i+1 < len(events) {
			end = events[i+1].start
		}
		if end-ev.start < a.onsetMinSegment {
			continue
		}
		ev.end = end
		out = append(out, ev)
	}
	return out
}

// coalesceValues merges consecutive key/tempo events that agree on their value
// and touch or overlap. Confidence of the merged region is the maximum of its
// members, so a long stable region is not penalized.
func coalesceValues(detType segment.DetectorType, events []absEvent) []absEvent {
	var out []absEvent
	for _, ev := range events {
		if len(out) > 0 {
			prev := &out[len(out)-1]
			if ev.start <= prev.end && sameValue(detType, *prev, ev) {
				if ev.confidence > prev.confidence {
					prev.confidence = ev.confidence
				}
				if ev.end > prev.end {
					prev.end = ev.end
				}
				continue
			}
		}
		out = append(out, ev)
	}
	return out
}

func sameValue(detType segment.DetectorType, a, b absEvent) bool {
	if detType == segment.DetectorKey {
		return a.key == b.key
	}
	return math.Round(a.bpm) == math.Round(b.bpm)
}

// buildSegments assigns {type}_{ordinal} IDs and defensively enforces the
// non-overlap invariant: a residual overlap truncates the later segment's
// start, and a segment truncated to nothing is dropped.
func (a *Aggregator) buildSegments(detType segment.DetectorType, events []absEvent) []segment.Segment {
	segs := make([]segment.Segment, 0, len(events))
	prevEnd := math.Inf(-1)
	for _, ev := range events {
		start, end := ev.start, ev.end
		if start < prevEnd {
			start = prevEnd
		}
		if end-start <= 0 {
			continue
		}
		prevEnd = end

		seg := segment.Segment{
			ID:         fmt.Sprintf("%s_%d", detType, len(segs)+1),
			Type:       detType,
			Start:      start,
			End:        end,
			Duration:   end - start,
			Confidence: ev.confidence,
		}
		switch detType {
		case segment.DetectorKey:
			seg.Key = ev.key
		case segment.DetectorTempo:
			seg.Tempo = math.Round(ev.bpm)
		}
		segs = append(segs, seg)
	}
	return segs
}
