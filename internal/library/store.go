package library

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"

	"rhythm/internal/fileutil"
	"rhythm/internal/logging"
	"rhythm/internal/services"
)

// Store persists the main track store and rebuilds the criteria projection.
type Store struct {
	mainPath     string
	criteriaPath string
	mainLock     *flock.Flock
	criteriaLock *flock.Flock
	logger       *slog.Logger
	now          func() time.Time
}

// Option customizes the store.
type Option func(*Store)

// WithClock overrides the timestamp source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore constructs a store over the two JSON files.
func NewStore(mainPath, criteriaPath string, logger *slog.Logger, opts ...Option) *Store {
	store := &Store{
		mainPath:     mainPath,
		criteriaPath: criteriaPath,
		mainLock:     flock.New(mainPath + ".lock"),
		criteriaLock: flock.New(criteriaPath + ".lock"),
		logger:       logging.NewComponentLogger(logger, "library"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Load reads a point-in-time snapshot of the main store. A missing file is an
// empty store.
func (s *Store) Load() (MainStore, error) {
	store := MainStore{Tracks: map[string]Record{}}
	data, err := os.ReadFile(s.mainPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}
		return store, services.Wrap(services.ErrStoreIO, "library", "load", "read main store", err)
	}
	if err := json.Unmarshal(data, &store); err != nil {
		return store, services.Wrap(services.ErrStoreIO, "library", "load", "parse main store", err)
	}
	if store.Tracks == nil {
		store.Tracks = map[string]Record{}
	}
	return store, nil
}

// Upsert merges the record into the main store under an exclusive lock and
// rewrites the file atomically.
func (s *Store) Upsert(rec Record) error {
	if rec.Key == "" {
		return services.Wrap(services.ErrValidation, "library", "upsert", "record key required", nil)
	}

	if err := s.mainLock.Lock(); err != nil {
		return services.Wrap(services.ErrStoreIO, "library", "upsert", "acquire store lock", err)
	}
	defer func() { _ = s.mainLock.Unlock() }()

	store, err := s.Load()
	if err != nil {
		return err
	}

	now := s.now().UTC().Format(time.RFC3339)
	existing, found := store.Tracks[rec.Key]
	var merged Record
	if found {
		merged = mergeRecords(existing, rec)
		merged.CreatedAt = existing.CreatedAt
		if merged.CreatedAt == "" {
			merged.CreatedAt = now
		}
	} else {
		merged = rec
		merged.CreatedAt = now
	}
	merged.UpdatedAt = now
	store.Tracks[rec.Key] = merged

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrStoreIO, "library", "upsert", "encode main store", err)
	}
	if err := fileutil.WriteFileAtomic(s.mainPath, data, 0o644); err != nil {
		return services.Wrap(services.ErrStoreIO, "library", "upsert", "write main store", err)
	}

	s.logger.Debug("track upserted",
		logging.String(logging.FieldTrackKey, rec.Key),
		logging.Int("track_count", len(store.Tracks)),
	)
	return nil
}

// RebuildCriteria sweeps the main store and rewrites the criteria projection.
// The rebuild is a pure function of the store: identical inputs produce
// byte-identical output.
func (s *Store) RebuildCriteria() (CriteriaStore, error) {
	if err := s.criteriaLock.Lock(); err != nil {
		return CriteriaStore{}, services.Wrap(services.ErrStoreIO, "library", "rebuild", "acquire criteria lock", err)
	}
	defer func() { _ = s.criteriaLock.Unlock() }()

	store, err := s.Load()
	if err != nil {
		return CriteriaStore{}, err
	}

	criteria := buildCriteria(store)
	data, err := json.MarshalIndent(criteria, "", "  ")
	if err != nil {
		return CriteriaStore{}, services.Wrap(services.ErrStoreIO, "library", "rebuild", "encode criteria store", err)
	}
	if err := fileutil.WriteFileAtomic(s.criteriaPath, data, 0o644); err != nil {
		return CriteriaStore{}, services.Wrap(services.ErrStoreIO, "library", "rebuild", "write criteria store", err)
	}

	s.logger.Debug("criteria rebuilt", logging.Int("track_count", len(store.Tracks)))
	return criteria, nil
}

// LoadCriteria reads the criteria projection. A missing file is empty.
func (s *Store) LoadCriteria() (CriteriaStore, error) {
	var criteria CriteriaStore
	data, err := os.ReadFile(s.criteriaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return criteria, nil
		}
		return criteria, services.Wrap(services.ErrStoreIO, "library", "load", "read criteria store", err)
	}
	if err := json.Unmarshal(data, &criteria); err != nil {
		return criteria, services.Wrap(services.ErrStoreIO, "library", "load", "parse criteria store", err)
	}
	return criteria, nil
}

// mergeRecords applies the upsert policy: new non-empty scalars overwrite,
// creative lists union with existing order first, instruments resolve by
// precedence.
func mergeRecords(existing, incoming Record) Record {
	merged := existing

	merged.Path = overwriteString(existing.Path, incoming.Path)
	merged.File = overwriteString(existing.File, incoming.File)
	merged.AnalyzedAt = overwriteString(existing.AnalyzedAt, incoming.AnalyzedAt)
	merged.CreativeStatus = overwriteString(existing.CreativeStatus, incoming.CreativeStatus)
	merged.WaveformPNG = overwriteString(existing.WaveformPNG, incoming.WaveformPNG)

	if incoming.Technical.DurationSec > 0 || incoming.Technical.SampleRateHz > 0 {
		merged.Technical = incoming.Technical
	}
	if len(incoming.Analysis.Instruments) > 0 || len(incoming.Analysis.FinalInstruments) > 0 ||
		len(incoming.Analysis.DecisionTrace) > 0 {
		merged.Analysis = incoming.Analysis
	}

	merged.Creative.Genre = unionLists(existing.Creative.Genre, incoming.Creative.Genre)
	merged.Creative.Mood = unionLists(existing.Creative.Mood, incoming.Creative.Mood)
	merged.Creative.Vocals = unionLists(existing.Creative.Vocals, incoming.Creative.Vocals)
	merged.Creative.Theme = unionLists(existing.Creative.Theme, incoming.Creative.Theme)
	merged.Creative.LyricThemes = unionLists(existing.Creative.LyricThemes, incoming.Creative.LyricThemes)
	if len(incoming.Creative.SuggestedInstruments) > 0 {
		merged.Creative.SuggestedInstruments = incoming.Creative.SuggestedInstruments
	}
	merged.Creative.Narrative = overwriteString(existing.Creative.Narrative, incoming.Creative.Narrative)
	if incoming.Creative.Confidence > 0 {
		merged.Creative.Confidence = incoming.Creative.Confidence
	}

	merged.Creative.Instrument = InstrumentPrecedence(merged)
	return merged
}

func overwriteString(old, new string) string {
	if new != "" {
		return new
	}
	return old
}

func unionLists(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return existing
	}
	out := make([]string, 0, len(existing)+len(incoming))
	seen := map[string]struct{}{}
	for _, value := range existing {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	for _, value := range incoming {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
