package datastore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bakerbass/GuitarChops/internal/segment"
)

// ErrFileNotFound is returned when a file id has no stored record.
var ErrFileNotFound = errors.New("file not found in datastore")

// ErrNoResults is returned when a known file has never had an analysis
// persisted. A completed analysis that found nothing is not an error.
var ErrNoResults = errors.New("no analysis results for file")

// Interface defines the persistence operations the pipeline and API consume.
type Interface interface {
	Open() error
	Close() error

	SaveFile(f *AudioFile) error
	GetFile(id string) (*AudioFile, error)
	GetFileByFingerprint(fp segment.Fingerprint) (*AudioFile, error)
	ListFiles() ([]AudioFile, error)

	SaveResults(fileID string, set segment.Set) error
	GetResults(fileID string) (segment.Set, error)
}

// SQLiteStore implements Interface backed by a SQLite database file.
type SQLiteStore struct {
	DB    *gorm.DB
	Path  string
	Debug bool
}

// NewSQLiteStore creates a store for the given database path.
func NewSQLiteStore(path string, debug bool) *SQLiteStore {
	return &SQLiteStore{Path: path, Debug: debug}
}

// Open connects to the database and migrates the schema.
func (store *SQLiteStore) Open() error {
	if err := os.MkdirAll(filepath.Dir(store.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	logLevel := gormlogger.Silent
	if store.Debug {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(sqlite.Open(store.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.AutoMigrate(&AudioFile{}, &AnalysisRun{}, &SegmentRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	store.DB = db
	return nil
}

// Close releases the underlying connection pool.
func (store *SQLiteStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveFile upserts a file record.
func (store *SQLiteStore) SaveFile(f *AudioFile) error {
	if store.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	return store.DB.Save(f).Error
}

// GetFile returns the file record with the given id.
func (store *SQLiteStore) GetFile(id string) (*AudioFile, error) {
	var f AudioFile
	err := store.DB.First(&f, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFileByFingerprint returns the most recently added file with the given
// content fingerprint.
func (store *SQLiteStore) GetFileByFingerprint(fp segment.Fingerprint) (*AudioFile, error) {
	var f AudioFile
	err := store.DB.Order("created_at DESC").First(&f, "fingerprint = ?", string(fp)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFiles returns every stored file, newest first.
func (store *SQLiteStore) ListFiles() ([]AudioFile, error) {
	var files []AudioFile
	if err := store.DB.Order("created_at DESC").Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// SaveResults replaces the file's segment records with the given set in a
// single transaction, so a re-analysis never leaves a mixed result visible.
func (store *SQLiteStore) SaveResults(fileID string, set segment.Set) error {
	if store.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	return store.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", fileID).Delete(&SegmentRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", fileID).Delete(&AnalysisRun{}).Error; err != nil {
			return err
		}
		run := AnalysisRun{FileID: fileID, Detectors: joinDetectors(set)}
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		for _, detType := range segment.AllDetectorTypes {
			for _, seg := range set[detType] {
				record := SegmentRecord{
					FileID:     fileID,
					SegmentID:  seg.ID,
					Type:       string(seg.Type),
					Start:      seg.Start,
					End:        seg.End,
					Duration:   seg.Duration,
					Key:        seg.Key,
					Tempo:      seg.Tempo,
					Confidence: seg.Confidence,
				}
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// GetResults loads the file's segment set. An unknown file id yields
// ErrFileNotFound; a known file without a persisted analysis yields
// ErrNoResults. A completed run that found nothing yields a set with an
// empty entry per requested detector.
func (store *SQLiteStore) GetResults(fileID string) (segment.Set, error) {
	if _, err := store.GetFile(fileID); err != nil {
		return nil, err
	}

	var run AnalysisRun
	if err := store.DB.First(&run, "file_id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoResults, fileID)
		}
		return nil, err
	}

	var records []SegmentRecord
	if err := store.DB.Where("file_id = ?", fileID).Order("start").Find(&records).Error; err != nil {
		return nil, err
	}

	set := make(segment.Set)
	for _, detType := range splitDetectors(run.Detectors) {
		set[detType] = []segment.Segment{}
	}
	for _, r := range records {
		seg := segment.Segment{
			ID:         r.SegmentID,
			Type:       segment.DetectorType(r.Type),
			Start:      r.Start,
			End:        r.End,
			Duration:   r.Duration,
			Key:        r.Key,
			Tempo:      r.Tempo,
			Confidence: r.Confidence,
		}
		set[seg.Type] = append(set[seg.Type], seg)
	}
	return set, nil
}

// joinDetectors serializes the detector types present in a set, in stable
// order. An entry with zero segments still counts as a ran detector.
func joinDetectors(set segment.Set) string {
	var names []string
	for _, detType := range segment.AllDetectorTypes {
		if _, ok := set[detType]; ok {
			names = append(names, string(detType))
		}
	}
	return strings.Join(names, ",")
}

func splitDetectors(joined string) []segment.DetectorType {
	var types []segment.DetectorType
	for _, name := range strings.Split(joined, ",") {
		if detType := segment.DetectorType(name); detType.Valid() {
			types = append(types, detType)
		}
	}
	return types
}
