// Package readings is the append-only store of inspection readings. The
// whole collection is persisted as one JSON array in insertion order.
package readings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tphummel/logsheet/internal/db"
	"github.com/tphummel/logsheet/internal/models"
)

// DocumentKey is the name of the persisted readings document.
const DocumentKey = "readings"

// legacyNamespace seeds the ids derived for readings stored without one.
var legacyNamespace = uuid.MustParse("5b0c3f0e-6f1d-4c55-9a43-3d2b7f0b9e21")

// Documents is the subset of db.DB the store persists through.
type Documents interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Store holds the readings collection in memory and mirrors every change to
// the persisted document.
type Store struct {
	docs   Documents
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	readings []models.Reading
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp readings added without a
// created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open creates a Store and loads the persisted readings.
func Open(ctx context.Context, docs Documents, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		docs:   docs,
		logger: logger.With("store", DocumentKey),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Load(ctx)
	return s
}

// Load rereads the persisted readings in insertion order. A missing or
// unreadable document yields an empty result; on failure the previous
// in-memory state is kept.
func (s *Store) Load(ctx context.Context) []models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read(ctx)
	if err != nil {
		s.logger.Error("load readings", "error", err)
		return []models.Reading{}
	}
	s.readings = list
	return slices.Clone(list)
}

// All returns a copy of the in-memory readings in insertion order.
func (s *Store) All() []models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readings == nil {
		return []models.Reading{}
	}
	return slices.Clone(s.readings)
}

// ForEquipment returns the readings recorded against uid, oldest first.
func (s *Store) ForEquipment(uid string) []models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Reading{}
	for _, r := range s.readings {
		if r.UID == uid {
			out = append(out, r)
		}
	}
	return out
}

// Add appends r and persists the collection. The store assigns an id and,
// when r has none, a created_at; it performs no other validation.
func (s *Store) Add(ctx context.Context, r models.Reading) (models.Reading, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read(ctx)
	if err != nil {
		s.logger.Error("add reading", "uid", r.UID, "error", err)
		return models.Reading{}, err
	}
	list = append(list, r)
	if err := s.write(ctx, list); err != nil {
		s.logger.Error("add reading", "uid", r.UID, "error", err)
		return models.Reading{}, err
	}
	s.readings = list
	return r, nil
}

// Remove deletes the first reading whose uid matches and whose created_at is
// exactly equal to createdAt. It is a no-op when nothing matches.
func (s *Store) Remove(ctx context.Context, uid string, createdAt time.Time) error {
	return s.removeFirst(ctx, func(r models.Reading) bool {
		return r.UID == uid && r.CreatedAt.Equal(createdAt)
	}, slog.String("uid", uid), slog.Time("created_at", createdAt))
}

// RemoveByID deletes the reading with the given id. It is a no-op when
// nothing matches.
func (s *Store) RemoveByID(ctx context.Context, id string) error {
	return s.removeFirst(ctx, func(r models.Reading) bool {
		return r.ID == id
	}, slog.String("id", id))
}

func (s *Store) removeFirst(ctx context.Context, match func(models.Reading) bool, attrs ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read(ctx)
	if err != nil {
		s.logger.Error("remove reading", append(attrs, "error", err)...)
		return err
	}
	i := slices.IndexFunc(list, match)
	if i < 0 {
		s.readings = list
		return nil
	}

	list = slices.Delete(list, i, i+1)
	if err := s.write(ctx, list); err != nil {
		s.logger.Error("remove reading", append(attrs, "error", err)...)
		return err
	}
	s.readings = list
	return nil
}

func (s *Store) read(ctx context.Context) ([]models.Reading, error) {
	data, err := s.docs.Get(ctx, DocumentKey)
	if errors.Is(err, db.ErrNotFound) {
		return []models.Reading{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", models.ErrStorage, DocumentKey, err)
	}

	var list []models.Reading
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", models.ErrStorage, DocumentKey, err)
	}
	if list == nil {
		list = []models.Reading{}
	}
	for i := range list {
		if list[i].ID == "" {
			list[i].ID = LegacyID(list[i].UID, list[i].CreatedAt)
		}
	}
	return list, nil
}

func (s *Store) write(ctx context.Context, list []models.Reading) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", models.ErrStorage, DocumentKey, err)
	}
	if err := s.docs.Put(ctx, DocumentKey, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", models.ErrStorage, DocumentKey, err)
	}
	return nil
}

// LegacyID derives a stable id for a reading persisted before readings
// carried their own id.
func LegacyID(uid string, createdAt time.Time) string {
	key := uid + "|" + createdAt.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(legacyNamespace, []byte(key)).String()
}
