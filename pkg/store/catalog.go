package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Catalog is the in-memory record list backed by a Backend.
type Catalog struct {
	mu      sync.Mutex
	backend Backend
	records []Record
	now     func() time.Time
}

// Open loads the record list from backend.
func Open(ctx context.Context, backend Backend) (*Catalog, error) {
	records, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		backend: backend,
		records: records,
		now:     time.Now,
	}, nil
}

// List returns a copy of all records in insertion order.
func (c *Catalog) List() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), c.records...)
}

// Get returns the record with the given id.
func (c *Catalog) Get(id string) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.records[i], nil
}

// Create adds a record and persists the list.
func (c *Catalog) Create(ctx context.Context, name, stateCode string) (Record, error) {
	if stateCode == "" {
		return Record{}, ErrEmptyStateCode
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec := Record{
		ID:        uuid.NewString(),
		Name:      normalizeName(name),
		StateCode: stateCode,
		CreatedAt: c.now().UTC(),
	}
	next := append(append([]Record(nil), c.records...), rec)
	if err := c.backend.Save(ctx, next); err != nil {
		return Record{}, err
	}
	c.records = next
	return rec, nil
}

// Update renames a record and replaces its state code.
func (c *Catalog) Update(ctx context.Context, id, name, stateCode string) (Record, error) {
	if stateCode == "" {
		return Record{}, ErrEmptyStateCode
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := append([]Record(nil), c.records...)
	next[i].Name = normalizeName(name)
	next[i].StateCode = stateCode
	if err := c.backend.Save(ctx, next); err != nil {
		return Record{}, err
	}
	c.records = next
	return next[i], nil
}

// Delete removes a record.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := make([]Record, 0, len(c.records)-1)
	next = append(next, c.records[:i]...)
	next = append(next, c.records[i+1:]...)
	if err := c.backend.Save(ctx, next); err != nil {
		return err
	}
	c.records = next
	return nil
}

func (c *Catalog) indexLocked(id string) int {
	for i, r := range c.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName
	}
	return name
}
