package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"contractor/internal/domain/attendance"
	"contractor/internal/domain/roster"
	"contractor/internal/domain/worker"
)

// RosterWriter defines the WorkerStore operations needed by the roster orchestrators.
type RosterWriter interface {
	Snapshot() roster.Roster
	AddWorker(ctx context.Context, name, role string, dailyRate decimal.Decimal) (worker.Worker, roster.Result)
	MarkAttendance(ctx context.Context, workerID, date string, status attendance.Status) roster.Result
}

// SeedFile is the YAML layout of a seed roster.
type SeedFile struct {
	Workers []SeedWorker `yaml:"workers"`
}

// SeedWorker is one worker in a seed file.
type SeedWorker struct {
	Name       string       `yaml:"name"`
	Role       string       `yaml:"role"`
	DailyRate  string       `yaml:"daily_rate"`
	Attendance []SeedRecord `yaml:"attendance"`
}

// SeedRecord is one attendance mark in a seed file.
type SeedRecord struct {
	Date   string `yaml:"date"`
	Status string `yaml:"status"`
}

// SeedRosterInput carries input for SeedRoster.
type SeedRosterInput struct {
	Path string
}

// SeedRosterDeps holds dependencies for SeedRoster.
type SeedRosterDeps struct {
	Roster   RosterWriter
	ReadFile func(name string) ([]byte, error) // defaults to os.ReadFile
}

// ExecuteSeedRoster adds the workers of a YAML seed file when the roster is empty.
// PRE: input.Path names a readable YAML file
// POST: Returns the number of workers added; 0 when the roster already had workers.
// An invalid entry anywhere in the file fails the seed before any worker is added.
func ExecuteSeedRoster(ctx context.Context, input SeedRosterInput, deps SeedRosterDeps) (int, error) {
	if deps.Roster.Snapshot().Len() > 0 {
		return 0, nil // Already seeded
	}

	readFile := deps.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	data, err := readFile(input.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("failed to parse seed file %s: %w", input.Path, err)
	}

	entries, err := prepareSeed(seed)
	if err != nil {
		return 0, err
	}

	added := 0
	for i, e := range entries {
		w, res := deps.Roster.AddWorker(ctx, e.name, e.role, e.rate)
		if !res.OK() {
			return added, fmt.Errorf("seed worker %d: %w", i+1, res.Err())
		}
		added++

		for _, m := range e.marks {
			if res := deps.Roster.MarkAttendance(ctx, w.ID, m.date, m.status); res.Err() != nil {
				return added, fmt.Errorf("seed worker %d, %s: %w", i+1, m.date, res.Err())
			}
		}
	}

	slog.Info("seed_event", "event", "roster_seeded", "workers", added, "path", input.Path)
	return added, nil
}

type seedEntry struct {
	name, role string
	rate       decimal.Decimal
	marks      []seedMark
}

type seedMark struct {
	date   string
	status attendance.Status
}

// prepareSeed parses and validates every seed entry.
// PRE: none
// POST: Returns the entries in file order, or the first validation error
func prepareSeed(seed SeedFile) ([]seedEntry, error) {
	entries := make([]seedEntry, 0, len(seed.Workers))
	for i, sw := range seed.Workers {
		rate, err := decimal.NewFromString(sw.DailyRate)
		if err != nil {
			return nil, fmt.Errorf("seed worker %d: daily_rate %q: %w", i+1, sw.DailyRate, err)
		}
		if err := worker.ValidateNew(sw.Name, rate); err != nil {
			return nil, fmt.Errorf("seed worker %d: %w", i+1, err)
		}
		e := seedEntry{name: sw.Name, role: sw.Role, rate: rate, marks: make([]seedMark, 0, len(sw.Attendance))}
		for _, sr := range sw.Attendance {
			if err := attendance.ValidateDate(sr.Date); err != nil {
				return nil, fmt.Errorf("seed worker %d, %s: %w", i+1, sr.Date, err)
			}
			status, err := attendance.ParseStatus(sr.Status)
			if err != nil {
				return nil, fmt.Errorf("seed worker %d, %s: %w", i+1, sr.Date, err)
			}
			e.marks = append(e.marks, seedMark{date: sr.Date, status: status})
		}
		entries = append(entries, e)
	}
	return entries, nil
}
