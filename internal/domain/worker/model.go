package worker

import (
	"errors"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"contractor/internal/domain/attendance"
)

// Roles offered by the add-worker form. Role is free text; these are the defaults.
const (
	RolePlumber          = "Plumber"
	RoleAssistantPlumber = "Assistant Plumber"
	RoleHelper           = "Helper"
	RoleSupervisor       = "Supervisor"
)

// DefaultRole is used when a worker is added without a role.
const DefaultRole = RolePlumber

// Roles lists the enumerated roles in form order.
var Roles = []string{RolePlumber, RoleAssistantPlumber, RoleHelper, RoleSupervisor}

// Domain errors
var (
	ErrEmptyID         = errors.New("worker id cannot be empty")
	ErrEmptyName       = errors.New("worker name cannot be empty")
	ErrNonPositiveRate = errors.New("daily rate must be greater than zero")
	ErrRateTooLarge    = errors.New("daily rate must not exceed 1000000")
	ErrRateTooPrecise  = errors.New("daily rate must have at most 6 decimal places")
	ErrDuplicateDate   = errors.New("worker has more than one record for a date")
)

// Daily rate bounds.
const (
	MaxRateScale    = 6
	maxRateExponent = 6
)

// MaxDailyRate is the largest accepted daily rate.
var MaxDailyRate = decimal.NewFromInt(1_000_000)

// Worker is a contract laborer paid per day present.
type Worker struct {
	ID         string
	Name       string
	Role       string
	DailyRate  decimal.Decimal
	Attendance []attendance.Record
}

// Stats tallies a worker's attendance records.
type Stats struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Total   int `json:"total"`
}

// ValidateNew checks the fields required to create a worker.
// PRE: none
// POST: Returns ErrEmptyName or a ValidateRate error, nil otherwise
func ValidateNew(name string, dailyRate decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return ValidateRate(dailyRate)
}

// ValidateRate checks that a daily rate is positive and within bounds.
// PRE: none
// POST: Returns ErrNonPositiveRate, ErrRateTooPrecise or ErrRateTooLarge, nil otherwise
func ValidateRate(rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return ErrNonPositiveRate
	}
	// exponent checks come first so the comparison never rescales a huge exponent
	if rate.Exponent() < -MaxRateScale {
		return ErrRateTooPrecise
	}
	if rate.Exponent() > maxRateExponent || rate.GreaterThan(MaxDailyRate) {
		return ErrRateTooLarge
	}
	return nil
}

// Validate checks if the Worker has valid data.
// PRE: Worker struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: ID and Name non-empty, DailyRate > 0, one record per date
func (w *Worker) Validate() error {
	if w.ID == "" {
		return ErrEmptyID
	}
	if err := ValidateNew(w.Name, w.DailyRate); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(w.Attendance))
	for i := range w.Attendance {
		if err := w.Attendance[i].Validate(); err != nil {
			return err
		}
		if _, dup := seen[w.Attendance[i].Date]; dup {
			return ErrDuplicateDate
		}
		seen[w.Attendance[i].Date] = struct{}{}
	}
	return nil
}

// AttendanceFor returns the record for date, if one exists.
// PRE: none
// POST: Returns the single matching record and true, or false
func (w Worker) AttendanceFor(date string) (attendance.Record, bool) {
	for _, r := range w.Attendance {
		if r.Date == date {
			return r, true
		}
	}
	return attendance.Record{}, false
}

// Stats counts present and absent records.
// INVARIANT: Total == Present + Absent
func (w Worker) Stats() Stats {
	var s Stats
	for _, r := range w.Attendance {
		switch r.Status {
		case attendance.StatusPresent:
			s.Present++
		case attendance.StatusAbsent:
			s.Absent++
		}
	}
	s.Total = s.Present + s.Absent
	return s
}

// TotalAmount is the pay owed: present days times the daily rate.
func (w Worker) TotalAmount() decimal.Decimal {
	return w.DailyRate.Mul(decimal.NewFromInt(int64(w.Stats().Present)))
}

// WithAttendance returns a copy of w with rec recorded for its date.
// An existing record for the same date is replaced in place, otherwise rec is appended.
// The receiver's attendance slice is never modified.
// POST: changed is false when an identical record was already present
func (w Worker) WithAttendance(rec attendance.Record) (updated Worker, changed bool) {
	idx := slices.IndexFunc(w.Attendance, func(r attendance.Record) bool { return r.Date == rec.Date })
	if idx >= 0 && w.Attendance[idx] == rec {
		return w, false
	}

	next := make([]attendance.Record, len(w.Attendance), len(w.Attendance)+1)
	copy(next, w.Attendance)
	if idx >= 0 {
		next[idx] = rec
	} else {
		next = append(next, rec)
	}
	w.Attendance = next
	return w, true
}

// Clone returns a copy that shares no attendance storage with w.
func (w Worker) Clone() Worker {
	w.Attendance = slices.Clone(w.Attendance)
	return w
}
