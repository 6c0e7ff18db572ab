// Package store is the cached accessor over the persisted projects,
// deployments and templates collections.
//
// Reads and writes first reload from the storage adapter unless a reload
// happened less than the reload interval ago. Every write then persists
// the whole affected collection. A mutex serializes goroutines of one
// process; two processes sharing a backend can still lose updates between
// reload and save, the last save winning.
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/motia-studio/engine/internal/metrics"
	"github.com/motia-studio/engine/internal/models"
	"github.com/motia-studio/engine/internal/storage"
	appErr "github.com/motia-studio/engine/pkg/errors"
	"github.com/motia-studio/engine/pkg/logger"
	"go.uber.org/zap"
)

// DefaultReloadInterval bounds how stale a cached read may be.
const DefaultReloadInterval = time.Second

// Policy selects how adapter write failures reach callers.
type Policy int

const (
	// Lenient logs failed saves and keeps serving from memory.
	Lenient Policy = iota
	// Strict returns a persistence_failure error and undoes the mutation.
	Strict
)

// ParsePolicy maps a configuration value to a Policy.
func ParsePolicy(s string) Policy {
	if s == "strict" {
		return Strict
	}
	return Lenient
}

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

// Option configures a Store.
type Option func(*Store)

func WithClock(c Clock) Option { return func(s *Store) { s.clock = c } }

// WithReloadInterval sets the staleness bound. Zero reloads on every call.
func WithReloadInterval(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.interval = d
		}
	}
}

func WithPolicy(p Policy) Option { return func(s *Store) { s.policy = p } }

// Store caches the three collections above a storage.Adapter.
type Store struct {
	adapter  storage.Adapter
	clock    Clock
	interval time.Duration
	policy   Policy
	log      *zap.Logger

	mu          sync.Mutex
	loaded      bool
	lastReload  time.Time
	projects    map[string]models.Project
	deployments map[string]models.Deployment
	templates   map[string]models.Template

	// undecoded holds records that failed to decode, as loaded. They are
	// written back untouched so a save never drops them.
	undecoded map[storage.Collection]storage.Snapshot
}

// New returns a store over adapter. Nothing is loaded until the first call.
func New(adapter storage.Adapter, opts ...Option) *Store {
	s := &Store{
		adapter:     adapter,
		clock:       RealClock(),
		interval:    DefaultReloadInterval,
		policy:      Lenient,
		log:         logger.Component("store"),
		projects:    map[string]models.Project{},
		deployments: map[string]models.Deployment{},
		templates:   map[string]models.Template{},
		undecoded:   map[storage.Collection]storage.Snapshot{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Adapter returns the backing adapter.
func (s *Store) Adapter() storage.Adapter { return s.adapter }

// Reload refreshes the cache unless the last reload is younger than the
// reload interval. It returns the first adapter read error, if any; the
// affected collection keeps its cached contents.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx, false)
}

// ForceReload refreshes the cache regardless of the reload interval.
func (s *Store) ForceReload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx, true)
}

func (s *Store) reloadLocked(ctx context.Context, force bool) error {
	now := s.clock.Now()
	if !force && s.loaded && now.Sub(s.lastReload) < s.interval {
		return nil
	}

	var firstErr error
	for _, c := range storage.Collections {
		snap, err := s.adapter.LoadCollection(ctx, c)
		if err != nil {
			metrics.PersistenceFailure(string(c), "load")
			s.log.Error("load collection failed", zap.String("collection", string(c)), zap.Error(err))
			if firstErr == nil {
				firstErr = appErr.Wrap(err, appErr.CodePersistenceFailure, "load "+string(c)+" failed")
			}
			continue
		}
		var bad storage.Snapshot
		switch c {
		case storage.Projects:
			s.projects, bad = decodeRecords(s.log, c, snap, func(p *models.Project, id string) { p.ID = id })
		case storage.Deployments:
			s.deployments, bad = decodeRecords(s.log, c, snap, func(d *models.Deployment, id string) { d.ID = id })
		case storage.Templates:
			s.templates, bad = decodeRecords(s.log, c, snap, func(t *models.Template, id string) { t.ID = id })
		}
		s.undecoded[c] = bad
	}

	s.loaded = true
	s.lastReload = now
	metrics.StoreReload()
	s.log.Debug("store loaded",
		zap.Int("projects", len(s.projects)),
		zap.Int("deployments", len(s.deployments)),
		zap.Int("templates", len(s.templates)))
	return firstErr
}

// decodeRecords turns a snapshot into typed records. Records that fail to
// decode are logged and returned raw in bad. The map key is authoritative
// for the id.
func decodeRecords[T any](log *zap.Logger, c storage.Collection, snap storage.Snapshot, setID func(*T, string)) (out map[string]T, bad storage.Snapshot) {
	out = make(map[string]T, len(snap))
	for id, raw := range snap {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			log.Warn("skipping corrupt record", zap.String("collection", string(c)), zap.String("id", id), zap.Error(err))
			if bad == nil {
				bad = storage.Snapshot{}
			}
			bad[id] = raw
			continue
		}
		setID(&rec, id)
		out[id] = rec
	}
	return out, bad
}

// encodeRecords serializes records on top of the undecoded raw entries.
// A decoded record with the same id replaces the raw one.
func encodeRecords[T any](records map[string]T, undecoded storage.Snapshot) (storage.Snapshot, error) {
	snap := make(storage.Snapshot, len(records)+len(undecoded))
	for id, raw := range undecoded {
		snap[id] = raw
	}
	for id, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		snap[id] = raw
	}
	return snap, nil
}

// beginLocked runs the reload that precedes every operation. Read failures
// are already logged by reloadLocked; operations proceed on the cache.
func (s *Store) beginLocked(ctx context.Context) {
	_ = s.reloadLocked(ctx, false)
}

// persistLocked saves one collection. Under the lenient policy failures are
// logged and swallowed; under the strict policy they are returned.
func (s *Store) persistLocked(ctx context.Context, c storage.Collection) error {
	var (
		snap storage.Snapshot
		err  error
	)
	switch c {
	case storage.Projects:
		snap, err = encodeRecords(s.projects, s.undecoded[c])
	case storage.Deployments:
		snap, err = encodeRecords(s.deployments, s.undecoded[c])
	case storage.Templates:
		snap, err = encodeRecords(s.templates, s.undecoded[c])
	}
	if err == nil {
		err = s.adapter.SaveCollection(ctx, c, snap)
	}
	if err != nil {
		metrics.PersistenceFailure(string(c), "save")
		s.log.Error("save collection failed",
			zap.String("collection", string(c)), zap.String("policy", s.policy.String()), zap.Error(err))
		if s.policy == Strict {
			return appErr.Wrap(err, appErr.CodePersistenceFailure, "save "+string(c)+" failed").
				WithMeta("collection", string(c))
		}
		return nil
	}
	s.log.Debug("collection saved", zap.String("collection", string(c)), zap.Int("records", len(snap)))
	return nil
}

// takenLocked reports whether id belongs to an undecoded record of c.
func (s *Store) takenLocked(c storage.Collection, id string) bool {
	_, ok := s.undecoded[c][id]
	return ok
}

func (s *Store) now() models.Time { return models.NewTime(s.clock.Now()) }

// Stats describes the cached collections.
type Stats struct {
	Adapter     string    `json:"adapter"`
	Projects    int       `json:"projects"`
	Deployments int       `json:"deployments"`
	Templates   int       `json:"templates"`
	LastReload  time.Time `json:"lastReload"`
}

// Stats reloads if due and reports collection sizes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.reloadLocked(ctx, false)
	return Stats{
		Adapter:     s.adapter.Name(),
		Projects:    len(s.projects),
		Deployments: len(s.deployments),
		Templates:   len(s.templates),
		LastReload:  s.lastReload,
	}, err
}
