// Package snapshot loads the read-only affiliate and transaction tables a pairing run works on.
package snapshot

import (
	"context"

	"pairing-workers/internal/models"
)

// Source produces a complete snapshot for one run.
type Source interface {
	Load(ctx context.Context) (*models.Snapshot, error)
}

// PairHistoryLoader reads one pair's transactions straight from storage, newest first.
// A limit <= 0 returns every transaction.
type PairHistoryLoader interface {
	LoadPairHistory(ctx context.Context, affiliateID1, affiliateID2 string, limit int) ([]models.Transaction, error)
}

// Static serves a fixed snapshot. Used by tests and one-off tooling.
type Static struct {
	Snapshot *models.Snapshot
}

func (s Static) Load(context.Context) (*models.Snapshot, error) {
	return s.Snapshot, nil
}
