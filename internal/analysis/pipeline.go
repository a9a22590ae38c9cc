package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bakerbass/GuitarChops/internal/analysis/aggregate"
	"github.com/bakerbass/GuitarChops/internal/analysis/cache"
	"github.com/bakerbass/GuitarChops/internal/analysis/detectors"
	"github.com/bakerbass/GuitarChops/internal/audio/file"
	"github.com/bakerbass/GuitarChops/internal/conf"
	"github.com/bakerbass/GuitarChops/internal/datastore"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

// decodeAhead bounds how many chunks sit decoded between the reader goroutine
// and detection, so decode of chunk N+1 overlaps detection of chunk N.
const decodeAhead = 2

// Analyzer runs the segmentation pipeline: chunked decode, concurrent
// cache-backed detection, aggregation and persistence.
type Analyzer struct {
	Settings *conf.Settings
	Manager  file.Manager
	Cache    *cache.FeatureCache
	Store    datastore.Interface // nil disables persistence (CLI one-shot mode)
}

// NewAnalyzer wires the pipeline's collaborators.
func NewAnalyzer(settings *conf.Settings, manager file.Manager, featureCache *cache.FeatureCache, store datastore.Interface) *Analyzer {
	return &Analyzer{
		Settings: settings,
		Manager:  manager,
		Cache:    featureCache,
		Store:    store,
	}
}

// Run executes the task to its terminal state and returns its outcome. The
// task ends completed or failed; cancellation surfaces as a failure with the
// cancel reason.
func (a *Analyzer) Run(ctx context.Context, task *Task) error {
	if err := task.Start(); err != nil {
		return err
	}

	set, err := a.analyze(ctx, task)
	if err != nil {
		// An interrupt surfaces from the decode loop as context.Canceled;
		// report it as a cancellation, not a generic failure.
		if errors.Is(err, context.Canceled) && !errors.Is(err, ErrAnalysisCanceled) {
			err = fmt.Errorf("%w: %v", ErrAnalysisCanceled, context.Canceled)
		}
		task.Fail(err)
		return err
	}

	// Persist before exposing: a completed task must never point at
	// unsaved results.
	if a.Store != nil && task.FileID != "" {
		if err := a.Store.SaveResults(task.FileID, set); err != nil {
			err = fmt.Errorf("failed to persist results: %w", err)
			task.Fail(err)
			return err
		}
	}

	task.Complete(set)
	return nil
}

// analyze streams the file through the detector set and aggregates the
// candidate events.
func (a *Analyzer) analyze(ctx context.Context, task *Task) (segment.Set, error) {
	settings := &a.Settings.Analysis

	info, err := a.Manager.GetFileInfo(task.FilePath)
	if err != nil {
		return nil, fmt.Errorf("error getting audio info: %w", err)
	}

	totalChunks := a.Manager.CountChunks(&info, settings.ChunkDuration, settings.Overlap)
	dets := detectors.ForTypes(settings, task.Detectors)
	agg := aggregate.New(settings, info.Duration.Seconds())

	decodeCtx, cancelDecode := context.WithCancel(ctx)
	defer cancelDecode()

	chunkChan := make(chan file.Chunk, decodeAhead)
	decodeErr := make(chan error, 1)

	go func() {
		defer close(chunkChan)
		decodeErr <- a.Manager.ProcessAudioFile(decodeCtx, task.FilePath, settings.ChunkDuration, settings.Overlap, func(chunk file.Chunk) error {
			select {
			case chunkChan <- chunk:
				return nil
			case <-decodeCtx.Done():
				return decodeCtx.Err()
			}
		})
	}()

	chunksDone := 0
	for chunk := range chunkChan {
		// Cancellation is honored at chunk boundaries only; in-flight
		// detector work for the current chunk finishes first.
		if canceled, reason := task.Canceled(); canceled {
			cancelDecode()
			if reason == "" {
				return nil, ErrAnalysisCanceled
			}
			return nil, fmt.Errorf("%w: %s", ErrAnalysisCanceled, reason)
		}

		events, err := a.detectChunk(ctx, task.Fingerprint, dets, chunk)
		if err != nil {
			cancelDecode()
			return nil, err
		}
		agg.Add(events...)

		chunksDone++
		if totalChunks > 0 {
			task.SetProgress(chunksDone * 100 / totalChunks)
		}
	}

	if err := <-decodeErr; err != nil {
		if canceled, reason := task.Canceled(); canceled {
			if reason == "" {
				return nil, ErrAnalysisCanceled
			}
			return nil, fmt.Errorf("%w: %s", ErrAnalysisCanceled, reason)
		}
		return nil, err
	}

	set := agg.Finalize()
	// A requested detector that found nothing still owns an entry, so the
	// result distinguishes "no events" from "not requested".
	for _, t := range task.Detectors {
		if _, ok := set[t]; !ok {
			set[t] = []segment.Segment{}
		}
	}
	return set, nil
}

// detectChunk fans the chunk out to every detector concurrently, routing each
// through the feature cache.
func (a *Analyzer) detectChunk(ctx context.Context, fp segment.Fingerprint, dets []detectors.Detector, chunk file.Chunk) ([]segment.CandidateEvent, error) {
	var (
		mu     sync.Mutex
		events []segment.CandidateEvent
	)

	g, _ := errgroup.WithContext(ctx)
	for _, det := range dets {
		g.Go(func() error {
			key := cache.Key{Fingerprint: fp, ChunkIndex: chunk.Index, Detector: det.Type()}
			found, err := a.Cache.GetOrCompute(key, func() ([]segment.CandidateEvent, error) {
				return det.Detect(chunk)
			})
			if err != nil {
				return &detectors.DetectorError{Detector: det.Type(), ChunkIndex: chunk.Index, Err: err}
			}
			mu.Lock()
			events = append(events, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return events, nil
}
