// internal/models/transaction.go
package models

// Transaction is a recorded transfer between two affiliates. The pair is unordered.
type Transaction struct {
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	AffiliateID1 string  `json:"affiliateId1"`
	AffiliateID2 string  `json:"affiliateId2"`
	Amount       float64 `json:"amount"`
}

// Counterparty returns the other side of the transaction from id's perspective.
func (t Transaction) Counterparty(id string) string {
	if t.AffiliateID1 == id {
		return t.AffiliateID2
	}
	return t.AffiliateID1
}
