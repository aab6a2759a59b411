package roster

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"

	"contractor/internal/domain/attendance"
	domain "contractor/internal/domain/roster"
	"contractor/internal/domain/worker"
)

// Document is the persisted layout: a JSON array of workers.
type Document []WorkerDoc

// WorkerDoc is one persisted worker.
type WorkerDoc struct {
	ID         string      `json:"id" jsonschema:"required,minLength=1"`
	Name       string      `json:"name" jsonschema:"required,minLength=1"`
	Role       string      `json:"role" jsonschema:"required"`
	DailyRate  json.Number `json:"dailyRate" jsonschema:"required,description=pay per day present"`
	Attendance []RecordDoc `json:"attendance" jsonschema:"required"`
}

// RecordDoc is one persisted attendance record. Hours may be omitted by older writers.
type RecordDoc struct {
	Date   string   `json:"date" jsonschema:"required,format=date"`
	Status string   `json:"status" jsonschema:"required,enum=present,enum=absent"`
	Hours  *float64 `json:"hours,omitempty" jsonschema:"minimum=0"`
}

// Encode serializes workers in the persisted layout.
// PRE: workers satisfy the domain invariants
// POST: Returns a JSON array, "[]" for an empty collection
func Encode(workers []worker.Worker) ([]byte, error) {
	doc := make(Document, 0, len(workers))
	for _, w := range workers {
		wd := WorkerDoc{
			ID:         w.ID,
			Name:       w.Name,
			Role:       w.Role,
			DailyRate:  json.Number(w.DailyRate.String()),
			Attendance: make([]RecordDoc, 0, len(w.Attendance)),
		}
		for _, r := range w.Attendance {
			hours := r.Hours
			wd.Attendance = append(wd.Attendance, RecordDoc{Date: r.Date, Status: string(r.Status), Hours: &hours})
		}
		doc = append(doc, wd)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode roster: %w", err)
	}
	return data, nil
}

// Decode parses the persisted layout and checks the domain invariants.
// PRE: none
// POST: Returns the workers in stored order, or an error wrapping ErrCorrupt
func Decode(data []byte) ([]worker.Worker, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	workers := make([]worker.Worker, 0, len(doc))
	for i, wd := range doc {
		rate, err := decimal.NewFromString(wd.DailyRate.String())
		if err != nil {
			return nil, fmt.Errorf("%w: worker %d: daily rate %q: %w", ErrCorrupt, i, wd.DailyRate, err)
		}
		w := worker.Worker{
			ID:         wd.ID,
			Name:       wd.Name,
			Role:       wd.Role,
			DailyRate:  rate,
			Attendance: make([]attendance.Record, 0, len(wd.Attendance)),
		}
		for _, rd := range wd.Attendance {
			status := attendance.Status(rd.Status)
			hours := attendance.HoursFor(status)
			if rd.Hours != nil {
				hours = *rd.Hours
			}
			w.Attendance = append(w.Attendance, attendance.Record{Date: rd.Date, Status: status, Hours: hours})
		}
		workers = append(workers, w)
	}

	// roster.New enforces per-worker validity and id uniqueness
	if _, err := domain.New(workers); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return workers, nil
}

// GenerateSchema returns the JSON schema of the persisted layout.
func GenerateSchema() *jsonschema.Schema {
	schema := jsonschema.Reflect(Document{})
	schema.Title = "Contractor roster"
	schema.Description = "Persisted worker collection with attendance history"
	return schema
}
