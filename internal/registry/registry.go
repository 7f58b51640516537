// Package registry keeps the user-maintained mapping from scanned equipment
// ids to the names operators gave them. The whole mapping is persisted as a
// single JSON document and rewritten on every change.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"github.com/tphummel/logsheet/internal/db"
	"github.com/tphummel/logsheet/internal/models"
)

// DocumentKey is the name of the persisted registry document.
const DocumentKey = "equipmentData"

// Documents is the subset of db.DB the registry persists through.
type Documents interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Registry is the in-memory view of the persisted id to name mapping.
type Registry struct {
	docs   Documents
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]string
}

// Open creates a Registry and loads the persisted mapping.
func Open(ctx context.Context, docs Documents, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		docs:    docs,
		logger:  logger.With("store", DocumentKey),
		entries: map[string]string{},
	}
	r.Load(ctx)
	return r
}

// Load rereads the persisted mapping. A missing or unreadable document yields
// an empty mapping; on failure the previous in-memory state is kept.
func (r *Registry) Load(ctx context.Context) map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read(ctx)
	if err != nil {
		r.logger.Error("load registry", "error", err)
		return map[string]string{}
	}
	r.entries = entries
	return maps.Clone(entries)
}

// All returns a copy of the current mapping.
func (r *Registry) All() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.entries)
}

// Len returns the number of registered ids.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Name returns the name registered for id.
func (r *Registry) Name(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.entries[id]
	return name, ok
}

// Add registers or renames id. The trimmed name must be non-empty and must not
// already belong to a different id; the comparison is exact and
// case-sensitive.
func (r *Registry) Add(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if id == "" {
		return &models.ValidationError{Field: "id", Message: "equipment id is required"}
	}
	if name == "" {
		return &models.ValidationError{Field: "name", Message: "equipment name is required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read(ctx)
	if err != nil {
		r.logger.Error("add equipment", "id", id, "error", err)
		return err
	}
	for otherID, otherName := range entries {
		if otherName == name && otherID != id {
			return &models.ValidationError{Field: "name", Message: "equipment name already taken"}
		}
	}

	entries[id] = name
	if err := r.write(ctx, entries); err != nil {
		r.logger.Error("add equipment", "id", id, "error", err)
		return err
	}
	r.entries = entries
	return nil
}

// Remove deletes id from the registry. Removing an unknown id is not an error.
// Readings that reference id are left untouched.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read(ctx)
	if err != nil {
		r.logger.Error("remove equipment", "id", id, "error", err)
		return err
	}
	if _, ok := entries[id]; !ok {
		r.entries = entries
		return nil
	}

	delete(entries, id)
	if err := r.write(ctx, entries); err != nil {
		r.logger.Error("remove equipment", "id", id, "error", err)
		return err
	}
	r.entries = entries
	return nil
}

func (r *Registry) read(ctx context.Context) (map[string]string, error) {
	data, err := r.docs.Get(ctx, DocumentKey)
	if errors.Is(err, db.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", models.ErrStorage, DocumentKey, err)
	}

	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", models.ErrStorage, DocumentKey, err)
	}
	if entries == nil {
		// a stored JSON null
		entries = map[string]string{}
	}
	return entries, nil
}

func (r *Registry) write(ctx context.Context, entries map[string]string) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", models.ErrStorage, DocumentKey, err)
	}
	if err := r.docs.Put(ctx, DocumentKey, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", models.ErrStorage, DocumentKey, err)
	}
	return nil
}
