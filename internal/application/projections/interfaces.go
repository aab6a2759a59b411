package projections

import (
	"contractor/internal/domain/roster"
)

// RosterReader exposes the current roster snapshot and the selected date.
type RosterReader interface {
	Snapshot() roster.Roster
	SelectedDate() string
}
