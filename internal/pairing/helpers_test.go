package pairing

import (
	"math/rand/v2"
	"testing"
	"time"

	"pairing-workers/internal/common/logger"
	"pairing-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

var testToday = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testToday }

func daysAgo(n int) string {
	return testToday.AddDate(0, 0, -n).Format("2006-01-02")
}

// fixedRand always returns the same draw.
type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func seededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	base := []Option{WithClock(fixedClock), WithRand(seededRand(42))}
	return NewEngine(logger.NewTestLogger(t), append(base, opts...)...)
}

func rangeRow(id string, start, end float64, receive ...models.Channel) models.AffiliateRange {
	return models.AffiliateRange{
		AffiliateID:     id,
		DisplayName:     "Affiliate " + id,
		RangeStart:      start,
		RangeEnd:        end,
		ReceiveChannels: receive,
		SendChannels:    []models.Channel{models.ChannelB},
	}
}

func tx(date, a, b string, amount float64) models.Transaction {
	return models.Transaction{Date: date, Time: "10:00:00", AffiliateID1: a, AffiliateID2: b, Amount: amount}
}

func floatPtr(f float64) *float64 { return &f }
