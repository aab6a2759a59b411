package roster_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"contractor/internal/domain/attendance"
	"contractor/internal/domain/roster"
	"contractor/internal/domain/worker"
)

func newWorker(id, name string, rate int64) worker.Worker {
	return worker.Worker{ID: id, Name: name, Role: worker.RolePlumber, DailyRate: decimal.NewFromInt(rate)}
}

func mustAdd(t *testing.T, r roster.Roster, w worker.Worker) roster.Roster {
	t.Helper()
	next, res := r.Add(w)
	if !res.OK() {
		t.Fatalf("Add(%s) = %s", w.ID, res)
	}
	return next
}

// TestRosterAdd tests adding valid and invalid workers.
func TestRosterAdd(t *testing.T) {
	var r roster.Roster
	r = mustAdd(t, r, newWorker("w1", "Alice", 100))

	tests := []struct {
		name       string
		w          worker.Worker
		wantStatus roster.Status
		wantReason error
	}{
		{"valid second worker", newWorker("w2", "Bob", 80), roster.StatusApplied, nil},
		{"duplicate id", newWorker("w1", "Carol", 90), roster.StatusRejected, roster.ErrDuplicateID},
		{"empty name", newWorker("w3", "", 90), roster.StatusRejected, worker.ErrEmptyName},
		{"zero rate", newWorker("w4", "Dan", 0), roster.StatusRejected, worker.ErrNonPositiveRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, res := r.Add(tt.w)
			if res.Status != tt.wantStatus {
				t.Fatalf("status = %s, want %s", res.Status, tt.wantStatus)
			}
			if !errors.Is(res.Reason, tt.wantReason) {
				t.Errorf("reason = %v, want %v", res.Reason, tt.wantReason)
			}
			if !res.OK() && next.Len() != r.Len() {
				t.Errorf("rejected add changed length to %d", next.Len())
			}
			if res.OK() && next.Len() != r.Len()+1 {
				t.Errorf("applied add length = %d, want %d", next.Len(), r.Len()+1)
			}
		})
	}
}

// TestRosterMarkAttendance_PresentThenAbsent verifies idempotent replace per date.
func TestRosterMarkAttendance_PresentThenAbsent(t *testing.T) {
	r := mustAdd(t, roster.Roster{}, newWorker("w1", "Alice", 100))

	r, res := r.MarkAttendance("w1", "2024-01-01", attendance.StatusPresent)
	if !res.OK() {
		t.Fatalf("mark present = %s", res)
	}
	r, res = r.MarkAttendance("w1", "2024-01-01", attendance.StatusAbsent)
	if !res.OK() {
		t.Fatalf("mark absent = %s", res)
	}

	w, _ := r.Find("w1")
	if len(w.Attendance) != 1 {
		t.Fatalf("records = %d, want 1", len(w.Attendance))
	}
	if got := w.Attendance[0]; got.Status != attendance.StatusAbsent || got.Hours != 0 {
		t.Errorf("record = %+v, want absent/0h", got)
	}
}

// TestRosterMarkAttendance_Outcomes tests the non-applied outcomes.
func TestRosterMarkAttendance_Outcomes(t *testing.T) {
	r := mustAdd(t, roster.Roster{}, newWorker("w1", "Alice", 100))
	r, _ = r.MarkAttendance("w1", "2024-01-01", attendance.StatusPresent)

	tests := []struct {
		name       string
		id         string
		date       string
		status     attendance.Status
		wantStatus roster.Status
		wantReason error
	}{
		{"same status again", "w1", "2024-01-01", attendance.StatusPresent, roster.StatusUnchanged, nil},
		{"unknown worker", "nobody", "2024-01-01", attendance.StatusPresent, roster.StatusNotFound, roster.ErrWorkerNotFound},
		{"bad date", "w1", "01/01/2024", attendance.StatusPresent, roster.StatusRejected, attendance.ErrInvalidDate},
		{"bad status", "w1", "2024-01-02", attendance.Status("sick"), roster.StatusRejected, attendance.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, res := r.MarkAttendance(tt.id, tt.date, tt.status)
			if res.Status != tt.wantStatus {
				t.Fatalf("status = %s, want %s", res.Status, tt.wantStatus)
			}
			if !errors.Is(res.Reason, tt.wantReason) {
				t.Errorf("reason = %v, want %v", res.Reason, tt.wantReason)
			}
			w, _ := next.Find("w1")
			if len(w.Attendance) != 1 {
				t.Errorf("records = %d, want 1", len(w.Attendance))
			}
		})
	}
}

// TestRosterMarkAttendance_StatsInvariant verifies total equals distinct dates for a mark sequence.
func TestRosterMarkAttendance_StatsInvariant(t *testing.T) {
	r := mustAdd(t, roster.Roster{}, newWorker("w1", "Alice", 100))
	marks := []struct {
		date   string
		status attendance.Status
	}{
		{"2024-01-01", attendance.StatusPresent},
		{"2024-01-02", attendance.StatusAbsent},
		{"2024-01-01", attendance.StatusAbsent},
		{"2024-01-03", attendance.StatusPresent},
		{"2024-01-02", attendance.StatusPresent},
		{"2024-01-03", attendance.StatusPresent},
	}
	dates := map[string]struct{}{}
	for _, m := range marks {
		r, _ = r.MarkAttendance("w1", m.date, m.status)
		dates[m.date] = struct{}{}
	}

	w, _ := r.Find("w1")
	s := w.Stats()
	if s.Total != s.Present+s.Absent {
		t.Errorf("total %d != present %d + absent %d", s.Total, s.Present, s.Absent)
	}
	if s.Total != len(dates) {
		t.Errorf("total = %d, want %d distinct dates", s.Total, len(dates))
	}
	if s.Present != 2 || s.Absent != 1 {
		t.Errorf("stats = %+v, want present 2 absent 1", s)
	}
}

// TestRosterSnapshotsAreImmutable verifies earlier snapshots do not see later changes.
func TestRosterSnapshotsAreImmutable(t *testing.T) {
	before := mustAdd(t, roster.Roster{}, newWorker("w1", "Alice", 100))
	before, _ = before.MarkAttendance("w1", "2024-01-01", attendance.StatusPresent)

	after, _ := before.MarkAttendance("w1", "2024-01-01", attendance.StatusAbsent)
	after, _ = after.MarkAttendance("w1", "2024-01-02", attendance.StatusPresent)
	after = mustAdd(t, after, newWorker("w2", "Bob", 50))

	w, _ := before.Find("w1")
	if len(w.Attendance) != 1 || w.Attendance[0].Status != attendance.StatusPresent {
		t.Errorf("earlier snapshot changed: %+v", w.Attendance)
	}
	if before.Len() != 1 || after.Len() != 2 {
		t.Errorf("lengths before=%d after=%d, want 1 and 2", before.Len(), after.Len())
	}

	// Mutating a returned copy must not leak back into the roster.
	listed := after.Workers()
	listed[0].Attendance[0].Status = attendance.StatusPresent
	listed[0].Name = "Mallory"
	w, _ = after.Find("w1")
	if w.Name != "Alice" || w.Attendance[0].Status != attendance.StatusAbsent {
		t.Errorf("roster modified through Workers(): %+v", w)
	}
}

// TestRosterDelete verifies only the targeted worker is removed.
func TestRosterDelete(t *testing.T) {
	r := mustAdd(t, roster.Roster{}, newWorker("w1", "Alice", 100))
	r = mustAdd(t, r, newWorker("w2", "Bob", 80))
	r = mustAdd(t, r, newWorker("w3", "Carol", 90))
	r, _ = r.MarkAttendance("w3", "2024-01-01", attendance.StatusPresent)

	next, res := r.Delete("w2")
	if !res.OK() {
		t.Fatalf("Delete(w2) = %s", res)
	}
	if next.Has("w2") || next.Len() != 2 {
		t.Fatalf("w2 still present or wrong length %d", next.Len())
	}
	ws := next.Workers()
	if ws[0].ID != "w1" || ws[1].ID != "w3" {
		t.Errorf("order = %s,%s; want w1,w3", ws[0].ID, ws[1].ID)
	}
	if len(ws[1].Attendance) != 1 {
		t.Errorf("w3 history lost: %+v", ws[1].Attendance)
	}

	_, res = next.Delete("w2")
	if res.Status != roster.StatusNotFound {
		t.Errorf("second delete status = %s, want not_found", res.Status)
	}
}

// TestNew tests building a roster from loaded workers.
func TestNew(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r, err := roster.New([]worker.Worker{newWorker("w1", "Alice", 100), newWorker("w2", "Bob", 80)})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if r.Len() != 2 {
			t.Errorf("Len() = %d, want 2", r.Len())
		}
	})

	t.Run("duplicate ids", func(t *testing.T) {
		_, err := roster.New([]worker.Worker{newWorker("w1", "Alice", 100), newWorker("w1", "Bob", 80)})
		if !errors.Is(err, roster.ErrDuplicateID) {
			t.Errorf("New() error = %v, want ErrDuplicateID", err)
		}
	})

	t.Run("invalid worker", func(t *testing.T) {
		_, err := roster.New([]worker.Worker{newWorker("w1", "Alice", -1)})
		if !errors.Is(err, worker.ErrNonPositiveRate) {
			t.Errorf("New() error = %v, want ErrNonPositiveRate", err)
		}
	})

	t.Run("error names the record", func(t *testing.T) {
		_, err := roster.New([]worker.Worker{newWorker("w1", "Alice", 100), newWorker("w2", "   ", 80)})
		if !errors.Is(err, worker.ErrEmptyName) || !strings.Contains(err.Error(), "worker 1 (w2)") {
			t.Errorf("New() error = %v, want ErrEmptyName for worker 1 (w2)", err)
		}
	})
}
