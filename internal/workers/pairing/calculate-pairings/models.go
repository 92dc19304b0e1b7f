// internal/workers/pairing/calculate-pairings/models.go
package calculatepairings

import "pairing-workers/internal/pairing"

type Input struct {
	pairing.Overrides
	// RefreshSnapshot drops the cached snapshot before loading.
	RefreshSnapshot bool `json:"refreshSnapshot,omitempty"`
}

type Output struct {
	RunID         string              `json:"runId"`
	Model         string              `json:"model"`
	Pairs         []pairing.Candidate `json:"pairs"`
	PairsExamined int                 `json:"pairsExamined"`
	Accepted      int                 `json:"accepted"`
	Skipped       map[string]int      `json:"skipped"`
	Truncated     bool                `json:"truncated"`
	SnapshotAt    string              `json:"snapshotAt,omitempty"`
	GeneratedAt   string              `json:"generatedAt"`
}
