package roster

import (
	"errors"
	"fmt"
	"slices"

	"contractor/internal/domain/attendance"
	"contractor/internal/domain/worker"
)

// Domain errors
var (
	ErrWorkerNotFound = errors.New("worker not found")
	ErrDuplicateID    = errors.New("worker id already exists")
)

// Roster is an immutable snapshot of the worker collection.
// Every transition returns a new Roster; earlier snapshots never change.
// INVARIANT: worker ids are unique
type Roster struct {
	workers []worker.Worker
}

// New builds a roster from workers, keeping their order.
// PRE: none
// POST: Returns a roster holding deep copies, or ErrDuplicateID / a worker validation error
func New(workers []worker.Worker) (Roster, error) {
	seen := make(map[string]struct{}, len(workers))
	list := make([]worker.Worker, 0, len(workers))
	for i, w := range workers {
		if err := w.Validate(); err != nil {
			return Roster{}, fmt.Errorf("worker %d (%s): %w", i, w.ID, err)
		}
		if _, dup := seen[w.ID]; dup {
			return Roster{}, fmt.Errorf("worker %d (%s): %w", i, w.ID, ErrDuplicateID)
		}
		seen[w.ID] = struct{}{}
		list = append(list, w.Clone())
	}
	return Roster{workers: list}, nil
}

// Len returns the number of workers.
func (r Roster) Len() int {
	return len(r.workers)
}

// Workers returns the workers in insertion order. The result is safe to modify.
func (r Roster) Workers() []worker.Worker {
	out := make([]worker.Worker, len(r.workers))
	for i, w := range r.workers {
		out[i] = w.Clone()
	}
	return out
}

// Find looks up a worker by id.
// POST: Returns a copy of the worker and true, or false when absent
func (r Roster) Find(id string) (worker.Worker, bool) {
	idx := r.index(id)
	if idx < 0 {
		return worker.Worker{}, false
	}
	return r.workers[idx].Clone(), true
}

// Has reports whether a worker with id exists.
func (r Roster) Has(id string) bool {
	return r.index(id) >= 0
}

// Add appends w to the roster.
// PRE: w has a fresh id and empty or valid attendance
// POST: Applied with the new roster, or Rejected with the roster unchanged
func (r Roster) Add(w worker.Worker) (Roster, Result) {
	if err := w.Validate(); err != nil {
		return r, Rejected(err)
	}
	if r.Has(w.ID) {
		return r, Rejected(ErrDuplicateID)
	}
	next := make([]worker.Worker, len(r.workers), len(r.workers)+1)
	copy(next, r.workers)
	next = append(next, w.Clone())
	return Roster{workers: next}, Applied()
}

// MarkAttendance records status for the worker on date, replacing any record for that date.
// PRE: none
// POST: Applied/Unchanged with one record for date, NotFound or Rejected with the roster unchanged
func (r Roster) MarkAttendance(id, date string, status attendance.Status) (Roster, Result) {
	idx := r.index(id)
	if idx < 0 {
		return r, NotFound(ErrWorkerNotFound)
	}
	rec, err := attendance.NewRecord(date, status)
	if err != nil {
		return r, Rejected(err)
	}

	updated, changed := r.workers[idx].WithAttendance(rec)
	if !changed {
		return r, Unchanged()
	}
	next := slices.Clone(r.workers)
	next[idx] = updated
	return Roster{workers: next}, Applied()
}

// Delete removes the worker with id together with its attendance history.
// POST: Applied with the worker gone, or NotFound with the roster unchanged
func (r Roster) Delete(id string) (Roster, Result) {
	idx := r.index(id)
	if idx < 0 {
		return r, NotFound(ErrWorkerNotFound)
	}
	next := make([]worker.Worker, 0, len(r.workers)-1)
	next = append(next, r.workers[:idx]...)
	next = append(next, r.workers[idx+1:]...)
	return Roster{workers: next}, Applied()
}

func (r Roster) index(id string) int {
	return slices.IndexFunc(r.workers, func(w worker.Worker) bool { return w.ID == id })
}
