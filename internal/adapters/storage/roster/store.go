package roster

import (
	"context"
	"errors"

	"contractor/internal/domain/worker"
)

// DefaultKey is the slot key the roster is stored under.
const DefaultKey = "contractorData"

// Load errors
var (
	ErrNotFound = errors.New("no saved roster")
	ErrCorrupt  = errors.New("saved roster is corrupt")
)

// Store persists the whole worker collection as one snapshot.
type Store interface {
	Load(ctx context.Context) ([]worker.Worker, error)
	Save(ctx context.Context, workers []worker.Worker) error
}
