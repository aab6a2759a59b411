package orchestrators

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"contractor/internal/application/workerstore"
	"contractor/internal/domain/attendance"
	"contractor/internal/domain/worker"
)

// --- in-memory test doubles ---

type memPersister struct {
	saved []worker.Worker
	saves int
}

// Load reports an empty slot.
// PRE: none
// POST: Returns no workers
func (p *memPersister) Load(context.Context) ([]worker.Worker, error) {
	return nil, nil
}

// Save keeps the last snapshot.
// PRE: none
// POST: saved holds workers
func (p *memPersister) Save(_ context.Context, workers []worker.Worker) error {
	p.saved = workers
	p.saves++
	return nil
}

func newSeedStore(t *testing.T) (*workerstore.Store, *memPersister) {
	t.Helper()
	p := &memPersister{}
	return workerstore.New(p), p
}

const seedYAML = `workers:
  - name: Alice
    role: Plumber
    daily_rate: "100"
    attendance:
      - {date: 2024-05-01, status: present}
      - {date: 2024-05-02, status: absent}
  - name: Bob
    daily_rate: "85.50"
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

// TestSeedRoster_AddsWorkers verifies workers and attendance are created from YAML.
func TestSeedRoster_AddsWorkers(t *testing.T) {
	store, p := newSeedStore(t)
	n, err := ExecuteSeedRoster(context.Background(), SeedRosterInput{Path: writeSeed(t, seedYAML)}, SeedRosterDeps{Roster: store})
	if err != nil {
		t.Fatalf("ExecuteSeedRoster: %v", err)
	}
	if n != 2 {
		t.Fatalf("added = %d, want 2", n)
	}

	workers := store.Snapshot().Workers()
	alice := workers[0]
	if alice.Name != "Alice" || alice.Stats() != (worker.Stats{Present: 1, Absent: 1, Total: 2}) {
		t.Errorf("alice = %+v", alice)
	}
	bob := workers[1]
	if bob.Role != worker.DefaultRole {
		t.Errorf("bob role = %q, want default", bob.Role)
	}
	if !bob.DailyRate.Equal(decimal.RequireFromString("85.5")) {
		t.Errorf("bob rate = %s", bob.DailyRate)
	}
	if len(p.saved) != 2 {
		t.Errorf("saved %d workers, want 2", len(p.saved))
	}
}

// TestSeedRoster_SkipsWhenNotEmpty verifies seeding is idempotent.
func TestSeedRoster_SkipsWhenNotEmpty(t *testing.T) {
	store, p := newSeedStore(t)
	store.AddWorker(context.Background(), "Existing", "", decimal.NewFromInt(50))
	saves := p.saves

	called := false
	deps := SeedRosterDeps{Roster: store, ReadFile: func(string) ([]byte, error) {
		called = true
		return nil, nil
	}}
	n, err := ExecuteSeedRoster(context.Background(), SeedRosterInput{Path: "ignored.yml"}, deps)
	if err != nil || n != 0 {
		t.Errorf("got (%d, %v), want (0, nil)", n, err)
	}
	if called {
		t.Error("seed file must not be read when roster has workers")
	}
	if p.saves != saves {
		t.Error("no saves expected")
	}
}

// TestSeedRoster_Errors verifies bad seed files stop with a descriptive error.
func TestSeedRoster_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		wantMsg string
	}{
		{"bad yaml", "workers: [", nil, "failed to parse"},
		{"bad rate", "workers:\n  - name: A\n    daily_rate: abc\n", nil, "daily_rate"},
		{"zero rate", "workers:\n  - name: A\n    daily_rate: \"0\"\n", worker.ErrNonPositiveRate, ""},
		{"empty name", "workers:\n  - name: \"\"\n    daily_rate: \"10\"\n", worker.ErrEmptyName, ""},
		{"bad status", "workers:\n  - name: A\n    daily_rate: \"10\"\n    attendance:\n      - {date: 2024-05-01, status: late}\n", attendance.ErrInvalidStatus, ""},
		{"bad date", "workers:\n  - name: A\n    daily_rate: \"10\"\n    attendance:\n      - {date: 01/05/2024, status: present}\n", attendance.ErrInvalidDate, ""},
		{"rate too large", "workers:\n  - name: A\n    daily_rate: \"1e5000000\"\n", worker.ErrRateTooLarge, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, p := newSeedStore(t)
			n, err := ExecuteSeedRoster(context.Background(), SeedRosterInput{Path: writeSeed(t, tt.content)}, SeedRosterDeps{Roster: store})
			if err == nil {
				t.Fatal("expected error")
			}
			if n != 0 || store.Snapshot().Len() != 0 || p.saves != 0 {
				t.Errorf("added %d, roster %d, saves %d; a bad seed must not add anything", n, store.Snapshot().Len(), p.saves)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

// TestSeedRoster_BadLaterEntryAddsNothing verifies the seed is all-or-nothing, so a
// fixed file still seeds on the next start.
func TestSeedRoster_BadLaterEntryAddsNothing(t *testing.T) {
	store, p := newSeedStore(t)
	bad := seedYAML + `  - name: Carol
    daily_rate: "0"
`
	n, err := ExecuteSeedRoster(context.Background(), SeedRosterInput{Path: writeSeed(t, bad)}, SeedRosterDeps{Roster: store})
	if !errors.Is(err, worker.ErrNonPositiveRate) {
		t.Fatalf("err = %v, want ErrNonPositiveRate", err)
	}
	if !strings.Contains(err.Error(), "seed worker 3") {
		t.Errorf("err = %v, want it to name worker 3", err)
	}
	if n != 0 || store.Snapshot().Len() != 0 || len(p.saved) != 0 || p.saves != 0 {
		t.Fatalf("added %d, roster %d, saves %d; want nothing", n, store.Snapshot().Len(), p.saves)
	}

	n, err = ExecuteSeedRoster(context.Background(), SeedRosterInput{Path: writeSeed(t, seedYAML)}, SeedRosterDeps{Roster: store})
	if err != nil || n != 2 {
		t.Fatalf("reseed = (%d, %v), want (2, nil)", n, err)
	}
}

// TestSeedRoster_MissingFile verifies a read error is wrapped.
func TestSeedRoster_MissingFile(t *testing.T) {
	store, _ := newSeedStore(t)
	_, err := ExecuteSeedRoster(context.Background(), SeedRosterInput{Path: filepath.Join(t.TempDir(), "nope.yml")}, SeedRosterDeps{Roster: store})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}
