package workerstore

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	rosterstore "contractor/internal/adapters/storage/roster"
	"contractor/internal/domain/attendance"
	"contractor/internal/domain/roster"
	"contractor/internal/domain/worker"
)

// Persister loads and saves the full worker collection.
type Persister interface {
	Load(ctx context.Context) ([]worker.Worker, error)
	Save(ctx context.Context, workers []worker.Worker) error
}

// Store owns the current roster snapshot and the selected date.
// Operations are serialized; each applied mutation is saved before the next operation starts.
type Store struct {
	mu       sync.Mutex
	roster   roster.Roster
	selected string // empty means today
	persist  Persister
	newID    func() string
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the uuid generator used for new workers.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock replaces the clock used for the default selected date.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// New creates an empty store backed by p.
// PRE: p is non-nil
// POST: store holds an empty roster until Load is called
func New(p Persister, opts ...Option) *Store {
	s := &Store{
		persist: p,
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the roster with the persisted collection.
// Any load failure leaves an empty roster; nothing is written back.
// POST: Returns the number of workers loaded
func (s *Store) Load(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roster = roster.Roster{}
	workers, err := s.persist.Load(ctx)
	switch {
	case errors.Is(err, rosterstore.ErrNotFound):
		slog.Info("roster_load_empty")
		return 0
	case errors.Is(err, rosterstore.ErrCorrupt):
		slog.Warn("roster_load_corrupt", "error", err)
		return 0
	case err != nil:
		slog.Error("roster_load_failed", "error", err)
		return 0
	}

	r, err := roster.New(workers)
	if err != nil {
		slog.Warn("roster_load_corrupt", "error", err)
		return 0
	}
	s.roster = r
	slog.Info("roster_loaded", "workers", r.Len())
	return r.Len()
}

// AddWorker creates a worker with a fresh id and no attendance.
// PRE: none
// POST: Applied with the new worker, or Rejected with the roster unchanged
func (s *Store) AddWorker(ctx context.Context, name, role string, dailyRate decimal.Decimal) (worker.Worker, roster.Result) {
	if err := worker.ValidateNew(name, dailyRate); err != nil {
		return worker.Worker{}, roster.Rejected(err)
	}
	role = strings.TrimSpace(role)
	if role == "" {
		role = worker.DefaultRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for s.roster.Has(id) {
		id = s.newID()
	}
	w := worker.Worker{
		ID:         id,
		Name:       strings.TrimSpace(name),
		Role:       role,
		DailyRate:  dailyRate,
		Attendance: []attendance.Record{},
	}
	next, res := s.roster.Add(w)
	if !res.OK() {
		return worker.Worker{}, res
	}
	s.commit(ctx, next, "worker_added", "worker_id", id)
	return w, res
}

// MarkAttendance records status for the worker on date.
// PRE: none
// POST: exactly one record for (workerID, date) when Applied or Unchanged
func (s *Store) MarkAttendance(ctx context.Context, workerID, date string, status attendance.Status) roster.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mark(ctx, workerID, date, status)
}

// MarkSelected records status for the worker on the selected date.
func (s *Store) MarkSelected(ctx context.Context, workerID string, status attendance.Status) roster.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mark(ctx, workerID, s.selectedDate(), status)
}

func (s *Store) mark(ctx context.Context, workerID, date string, status attendance.Status) roster.Result {
	next, res := s.roster.MarkAttendance(workerID, date, status)
	if res.OK() {
		s.commit(ctx, next, "attendance_marked", "worker_id", workerID, "date", date, "status", string(status))
	}
	return res
}

// DeleteWorker removes the worker and all of its attendance.
// POST: Applied with one fewer worker, or NotFound with the roster unchanged
func (s *Store) DeleteWorker(ctx context.Context, workerID string) roster.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, res := s.roster.Delete(workerID)
	if res.OK() {
		s.commit(ctx, next, "worker_deleted", "worker_id", workerID)
	}
	return res
}

// commit installs next as the current roster and saves it. Save failures are logged, not retried.
func (s *Store) commit(ctx context.Context, next roster.Roster, event string, args ...any) {
	s.roster = next
	slog.Info(event, args...)
	if err := s.persist.Save(ctx, next.Workers()); err != nil {
		slog.Error("roster_save_failed", "error", err, "workers", next.Len())
	}
}

// Snapshot returns the current roster. Later mutations do not affect it.
func (s *Store) Snapshot() roster.Roster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster
}

// Worker looks up a worker by id in the current roster.
func (s *Store) Worker(id string) (worker.Worker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Find(id)
}

// SelectedDate returns the date attendance marks apply to, today unless set.
func (s *Store) SelectedDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedDate()
}

func (s *Store) selectedDate() string {
	if s.selected != "" {
		return s.selected
	}
	return attendance.Today(s.now())
}

// SetSelectedDate changes the selected date. An empty date resets it to today.
// PRE: date is YYYY-MM-DD or empty
// POST: Returns attendance.ErrInvalidDate and keeps the old date on bad input
func (s *Store) SetSelectedDate(date string) error {
	if date != "" {
		if err := attendance.ValidateDate(date); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.selected = date
	s.mu.Unlock()
	return nil
}
