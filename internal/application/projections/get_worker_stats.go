package projections

import (
	"context"

	"github.com/shopspring/decimal"

	"contractor/internal/domain/roster"
	"contractor/internal/domain/worker"
)

// GetWorkerStatsQuery carries query parameters.
type GetWorkerStatsQuery struct {
	WorkerID string
}

// GetWorkerStatsResult carries the query result.
type GetWorkerStatsResult struct {
	WorkerID string          `json:"workerId"`
	Name     string          `json:"name"`
	Stats    worker.Stats    `json:"stats"`
	Amount   decimal.Decimal `json:"amount"`
}

// GetWorkerStatsDeps holds dependencies for GetWorkerStats.
type GetWorkerStatsDeps struct {
	Roster RosterReader
}

// QueryGetWorkerStats retrieves attendance tallies and the amount owed for one worker.
// PRE: none
// POST: Returns the stats or roster.ErrWorkerNotFound
func QueryGetWorkerStats(ctx context.Context, query GetWorkerStatsQuery, deps GetWorkerStatsDeps) (GetWorkerStatsResult, error) {
	w, ok := deps.Roster.Snapshot().Find(query.WorkerID)
	if !ok {
		return GetWorkerStatsResult{}, roster.ErrWorkerNotFound
	}
	return GetWorkerStatsResult{
		WorkerID: w.ID,
		Name:     w.Name,
		Stats:    w.Stats(),
		Amount:   w.TotalAmount(),
	}, nil
}
