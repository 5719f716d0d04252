// Package store persists named state codes ("records") so they can be
// re-applied later.
//
// A Catalog keeps the record list in memory and writes the whole list
// through a Backend after every change. Three backends are provided:
//
//	store.NewMemoryBackend()                     // tests and ephemeral runs
//	store.NewFileBackend("records.json")         // single host
//	store.NewS3Backend(client, "bucket", "key")  // shared
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned for an unknown record id.
	ErrNotFound = errors.New("store: record not found")

	// ErrEmptyStateCode is returned when a record has no state code.
	ErrEmptyStateCode = errors.New("store: empty state code")
)

// DefaultName replaces an empty record name.
const DefaultName = "Untitled"

// Record is one saved state code.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StateCode string    `json:"stateCode"`
	CreatedAt time.Time `json:"createdAt"`
}

// Backend loads and saves the full record list.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Load returns the saved list. A backend that has never been saved to
	// returns an empty list and no error.
	Load(ctx context.Context) ([]Record, error)

	// Save replaces the saved list.
	Save(ctx context.Context, records []Record) error
}
