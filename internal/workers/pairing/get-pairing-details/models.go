// internal/workers/pairing/get-pairing-details/models.go
package getpairingdetails

import "pairing-workers/internal/pairing"

type Input struct {
	AffiliateID1 string `json:"affiliateId1"`
	AffiliateID2 string `json:"affiliateId2"`
	FullHistory  bool   `json:"fullHistory,omitempty"`
	// Options, when present, are layered over the configured defaults and the pair's risk is
	// reported.
	Options *pairing.Overrides `json:"options,omitempty"`
}

type Output struct {
	pairing.PairDetail
	GeneratedAt string `json:"generatedAt"`
}
