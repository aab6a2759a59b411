package attendance

import (
	"errors"
	"time"
)

// DateLayout is the ISO 8601 calendar date format used for record dates.
const DateLayout = "2006-01-02"

// Hours credited per status. Fixed policy, not configurable.
const (
	PresentHours = 8
	AbsentHours  = 0
)

// Status is the presence state of a single day.
type Status string

// Status values.
const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

// Domain errors
var (
	ErrInvalidDate   = errors.New("attendance date must be a calendar date (YYYY-MM-DD)")
	ErrInvalidStatus = errors.New("attendance status must be 'present' or 'absent'")
	ErrNegativeHours = errors.New("attendance hours cannot be negative")
)

// Record is one day's presence entry for a worker.
type Record struct {
	Date   string // YYYY-MM-DD format
	Status Status
	Hours  float64
}

// NewRecord builds a record for the date with hours derived from status.
// PRE: date is YYYY-MM-DD, status is present or absent
// POST: Returns a valid record or the first validation error
func NewRecord(date string, status Status) (Record, error) {
	r := Record{Date: date, Status: status, Hours: HoursFor(status)}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Validate checks if the Record has valid data.
// PRE: Record struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Date parses as a calendar date, Status is a known value
func (r *Record) Validate() error {
	if err := ValidateDate(r.Date); err != nil {
		return err
	}
	if !r.Status.Valid() {
		return ErrInvalidStatus
	}
	if r.Hours < 0 {
		return ErrNegativeHours
	}
	return nil
}

// IsPresent returns true if the worker was marked present.
func (r Record) IsPresent() bool {
	return r.Status == StatusPresent
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// ParseStatus converts user input into a Status.
// PRE: none
// POST: Returns the status or ErrInvalidStatus
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// HoursFor returns the hours credited for a status.
func HoursFor(s Status) float64 {
	if s == StatusPresent {
		return PresentHours
	}
	return AbsentHours
}

// ValidateDate checks that date is a strict YYYY-MM-DD calendar date.
func ValidateDate(date string) error {
	if len(date) != len(DateLayout) {
		return ErrInvalidDate
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Today formats now as a record date.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}
