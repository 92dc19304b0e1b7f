// internal/models/snapshot.go
package models

import "time"

// Snapshot is the read-only data a pairing run works on.
type Snapshot struct {
	Ranges       []AffiliateRange `json:"ranges"`
	Transactions []Transaction    `json:"transactions"`
	LoadedAt     time.Time        `json:"loadedAt"`
}
