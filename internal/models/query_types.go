// internal/models/query_types.go
package models

type QueryType string

const (
	QueryTypeAffiliateRanges QueryType = "affiliate_ranges"
	QueryTypeTransactions    QueryType = "transactions"
	QueryTypePairHistory     QueryType = "pair_history"
)
