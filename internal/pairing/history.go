package pairing

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	apperrors "pairing-workers/internal/common/errors"
	"pairing-workers/internal/models"
)

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
}

var timeLayouts = []string{
	"15:04:05",
	"15:04",
}

// ParseDate accepts ISO dates and day-first slash dates.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > 10 {
		// timestamps serialized with a time part
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return truncateDay(t), nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func parseClock(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("unrecognized time %q", raw)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type record struct {
	tx  models.Transaction
	day time.Time
	at  time.Time
}

type pairKey struct{ lo, hi string }

func keyOf(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// History is an indexed, read-only view of the transaction table.
type History struct {
	records        []record
	byAffiliate    map[string][]int
	byPair         map[pairKey][]int
	counterparties map[string]map[string]struct{}
}

// NewHistory parses and indexes txs. An unparseable date or time fails the whole history.
func NewHistory(txs []models.Transaction) (*History, error) {
	h := &History{
		records:        make([]record, 0, len(txs)),
		byAffiliate:    make(map[string][]int),
		byPair:         make(map[pairKey][]int),
		counterparties: make(map[string]map[string]struct{}),
	}

	for i, tx := range txs {
		day, err := ParseDate(tx.Date)
		if err != nil {
			return nil, apperrors.NewProcessingError(fmt.Sprintf("transaction %d", i), err)
		}
		clock, err := parseClock(tx.Time)
		if err != nil {
			return nil, apperrors.NewProcessingError(fmt.Sprintf("transaction %d", i), err)
		}

		idx := len(h.records)
		h.records = append(h.records, record{tx: tx, day: day, at: day.Add(clock)})

		first := tx.AffiliateID1
		h.byAffiliate[first] = append(h.byAffiliate[first], idx)
		if other := tx.Counterparty(first); other != first {
			h.byAffiliate[other] = append(h.byAffiliate[other], idx)
			h.addCounterparty(first, other)
			h.addCounterparty(other, first)
		}
		k := keyOf(tx.AffiliateID1, tx.AffiliateID2)
		h.byPair[k] = append(h.byPair[k], idx)
	}

	return h, nil
}

func (h *History) addCounterparty(id, other string) {
	if id == other {
		return
	}
	set, ok := h.counterparties[id]
	if !ok {
		set = make(map[string]struct{})
		h.counterparties[id] = set
	}
	set[other] = struct{}{}
}

// Len returns the number of transactions in the history.
func (h *History) Len() int {
	return len(h.records)
}

// Diversity counts the distinct counterparties of affiliate.
func (h *History) Diversity(affiliate string) int {
	return len(h.counterparties[affiliate])
}

func (h *History) lastMutual(a, b string) (record, bool) {
	var (
		last  record
		found bool
	)
	for _, idx := range h.byPair[keyOf(a, b)] {
		r := h.records[idx]
		if !found || r.at.After(last.at) {
			last = r
			found = true
		}
	}
	return last, found
}

// RelativeActivity counts the transactions of a and b made after their last mutual
// transaction, or over the whole history when they never transacted. It returns the
// smaller count and who owns it; ties go to a.
func (h *History) RelativeActivity(a, b string) (int, string) {
	last, mutual := h.lastMutual(a, b)

	count := func(id string) int {
		if !mutual {
			return len(h.byAffiliate[id])
		}
		n := 0
		for _, idx := range h.byAffiliate[id] {
			if h.records[idx].at.After(last.at) {
				n++
			}
		}
		return n
	}

	countA, countB := count(a), count(b)
	if countB < countA {
		return countB, b
	}
	return countA, a
}

// DaysSinceLast returns the calendar days between today and the pair's most recent
// transaction, or +Inf when the pair never transacted.
func (h *History) DaysSinceLast(a, b string, today time.Time) float64 {
	last, ok := h.lastMutual(a, b)
	if !ok {
		return math.Inf(1)
	}
	return math.Round(truncateDay(today).Sub(last.day).Hours() / 24)
}

// PairTransactions returns the pair's transactions, newest first.
func (h *History) PairTransactions(a, b string) []models.Transaction {
	idxs := h.byPair[keyOf(a, b)]
	recs := make([]record, 0, len(idxs))
	for _, idx := range idxs {
		recs = append(recs, h.records[idx])
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].at.After(recs[j].at)
	})

	out := make([]models.Transaction, len(recs))
	for i, r := range recs {
		out[i] = r.tx
	}
	return out
}

// RecentAmounts returns up to limit amounts from the pair's newest transactions.
func (h *History) RecentAmounts(a, b string, limit int) []float64 {
	txs := h.PairTransactions(a, b)
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	out := make([]float64, len(txs))
	for i, tx := range txs {
		out[i] = tx.Amount
	}
	return out
}
