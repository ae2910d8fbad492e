// Package store persists calendar events. Two backends exist: a MongoDB
// collection for deployments and an in-memory store for development and tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"webcal/internal/model"
)

// ErrNotFound is returned when an id does not match any stored event.
var ErrNotFound = errors.New("event not found")

// Store is the persistence contract used by the REST service.
//
// List returns events in insertion order. ListRange returns events whose
// [Start, End] overlaps [start, end]. Update merges only the fields present in
// the patch. Create assigns the id and creation time.
type Store interface {
	List(ctx context.Context) ([]model.Event, error)
	ListRange(ctx context.Context, start, end time.Time) ([]model.Event, error)
	Get(ctx context.Context, id string) (model.Event, error)
	Create(ctx context.Context, e model.Event) (model.Event, error)
	Update(ctx context.Context, id string, p model.Patch) (model.Event, error)
	Delete(ctx context.Context, id string) error
	Close(ctx context.Context) error
}

// Backend names accepted by Open.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Options configures Open.
type Options struct {
	Backend    string
	URI        string
	Database   string
	Collection string
}

// Open returns the backend selected by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendMongo, "":
		return OpenMongo(ctx, opts.URI, opts.Database, opts.Collection)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", opts.Backend)
	}
}

// overlaps reports whether [aStart, aEnd] intersects [bStart, bEnd].
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
