package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"time"

	apperrors "pairing-workers/internal/common/errors"
	"pairing-workers/internal/common/logger"
	"pairing-workers/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var queries = map[models.QueryType]string{
	models.QueryTypeAffiliateRanges: `
		SELECT a.id, a.display_name, r.range_start, r.range_end,
		       r.receive_channels, r.send_channels
		FROM affiliate_ranges r
		JOIN affiliates a ON a.id = r.affiliate_id
		WHERE a.active
		ORDER BY r.id`,
	models.QueryTypeTransactions: `
		SELECT to_char(t.op_date, 'YYYY-MM-DD'), to_char(t.op_time, 'HH24:MI:SS'),
		       t.affiliate_id_1, t.affiliate_id_2, t.amount
		FROM transactions t
		ORDER BY t.op_date, t.op_time, t.id`,
	models.QueryTypePairHistory: `
		SELECT to_char(t.op_date, 'YYYY-MM-DD'), to_char(t.op_time, 'HH24:MI:SS'),
		       t.affiliate_id_1, t.affiliate_id_2, t.amount
		FROM transactions t
		WHERE (t.affiliate_id_1 = $1 AND t.affiliate_id_2 = $2)
		   OR (t.affiliate_id_1 = $2 AND t.affiliate_id_2 = $1)
		ORDER BY t.op_date DESC, t.op_time DESC, t.id DESC`,
}

// PostgresSource reads snapshots from the affiliates, affiliate_ranges and transactions tables.
type PostgresSource struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewPostgresSource(db *sql.DB, log logger.Logger) *PostgresSource {
	return &PostgresSource{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "snapshot.postgres"}),
		now:    time.Now,
	}
}

func (s *PostgresSource) Load(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()

	ranges, err := s.loadRanges(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.queryTransactions(ctx, models.QueryTypeTransactions)
	if err != nil {
		return nil, err
	}

	s.logger.Info("snapshot loaded", map[string]interface{}{
		"rangeRows":    len(ranges),
		"transactions": len(txs),
		"durationMs":   time.Since(start).Milliseconds(),
	})

	return &models.Snapshot{
		Ranges:       ranges,
		Transactions: txs,
		LoadedAt:     s.now().UTC(),
	}, nil
}

func (s *PostgresSource) LoadPairHistory(ctx context.Context, affiliateID1, affiliateID2 string, limit int) ([]models.Transaction, error) {
	if affiliateID1 == "" || affiliateID2 == "" {
		return nil, apperrors.NewValidationError("both affiliate ids are required")
	}

	txs, err := s.queryTransactions(ctx, models.QueryTypePairHistory, affiliateID1, affiliateID2)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (s *PostgresSource) loadRanges(ctx context.Context) ([]models.AffiliateRange, error) {
	qt := models.QueryTypeAffiliateRanges

	rows, err := s.db.QueryContext(ctx, queries[qt])
	if err != nil {
		return nil, s.wrap(ctx, qt, err)
	}
	defer rows.Close()

	var out []models.AffiliateRange
	for rows.Next() {
		var (
			id, name     sql.NullString
			start, end   decimal.NullDecimal
			receive, snd pq.StringArray
		)
		if err := rows.Scan(&id, &name, &start, &end, &receive, &snd); err != nil {
			return nil, s.wrap(ctx, qt, err)
		}
		if !start.Valid || !end.Valid {
			return nil, apperrors.NewValidationError(fmt.Sprintf("affiliate %s has a range without bounds", id.String))
		}

		receiveChannels, err := parseChannels(id.String, receive)
		if err != nil {
			return nil, err
		}
		sendChannels, err := parseChannels(id.String, snd)
		if err != nil {
			return nil, err
		}

		out = append(out, models.AffiliateRange{
			AffiliateID:     id.String,
			DisplayName:     name.String,
			RangeStart:      start.Decimal.InexactFloat64(),
			RangeEnd:        end.Decimal.InexactFloat64(),
			ReceiveChannels: receiveChannels,
			SendChannels:    sendChannels,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(ctx, qt, err)
	}
	return out, nil
}

func (s *PostgresSource) queryTransactions(ctx context.Context, qt models.QueryType, args ...interface{}) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, queries[qt], args...)
	if err != nil {
		return nil, s.wrap(ctx, qt, err)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		var (
			date, clock sql.NullString
			tx          models.Transaction
			amount      decimal.NullDecimal
		)
		if err := rows.Scan(&date, &clock, &tx.AffiliateID1, &tx.AffiliateID2, &amount); err != nil {
			return nil, s.wrap(ctx, qt, err)
		}
		tx.Date = date.String
		tx.Time = clock.String
		if amount.Valid {
			tx.Amount = amount.Decimal.InexactFloat64()
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(ctx, qt, err)
	}
	return out, nil
}

func (s *PostgresSource) wrap(ctx context.Context, qt models.QueryType, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.logger.Warn("snapshot query timed out", map[string]interface{}{"queryType": string(qt)})
		return apperrors.NewSnapshotTimeoutError(string(qt))
	}
	if isConnectionError(err) {
		s.logger.Error("snapshot database unreachable", map[string]interface{}{
			"queryType": string(qt),
			"error":     err,
		})
		return apperrors.NewDatabaseConnectionFailedError(err)
	}
	s.logger.Error("snapshot query failed", map[string]interface{}{
		"queryType": string(qt),
		"error":     err,
	})
	return apperrors.NewSnapshotLoadFailedError(string(qt), err)
}

// isConnectionError reports failures reaching the server, as opposed to a failing query.
func isConnectionError(err error) bool {
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Class() == "08"
}

func parseChannels(affiliateID string, raw []string) ([]models.Channel, error) {
	out := make([]models.Channel, 0, len(raw))
	for _, tag := range raw {
		ch, err := models.ParseChannel(tag)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("affiliate %s: %v", affiliateID, err))
		}
		out = append(out, ch)
	}
	return out, nil
}
