//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairing-workers/internal/common/config"
	"pairing-workers/internal/common/database"
	"pairing-workers/internal/common/logger"
	"pairing-workers/internal/pairing"
	"pairing-workers/internal/snapshot"
	"pairing-workers/pkg/registry"

	calculatepairings "pairing-workers/internal/workers/pairing/calculate-pairings"
	getpairingdetails "pairing-workers/internal/workers/pairing/get-pairing-details"
)

var zeebeClient zbc.Client

func TestMain(m *testing.M) {
	var err error

	zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         "localhost:26500",
		UsePlaintextConnection: true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect to Zeebe: %v", err))
	}

	code := m.Run()

	zeebeClient.Close()
	os.Exit(code)
}

func TestFullE2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"

	assertAllServicesConnectivity(t, ctx, cfg)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer pg.Close()

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	defer rdb.Close()

	seedPairingTables(t, ctx, pg.DB)
	testPairingWorkers(t, ctx, cfg, pg.DB, rdb.Client)
}

func assertAllServicesConnectivity(t *testing.T, ctx context.Context, cfg *config.Config) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL client creation failed")
	assert.NoError(t, pg.Ping(ctx), "PostgreSQL ping failed")
	pg.Close()

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "Redis client creation failed")
	assert.NoError(t, rdb.Ping(ctx), "Redis ping failed")
	rdb.Close()

	_, err = zeebeClient.NewTopologyCommand().Send(ctx)
	assert.NoError(t, err, "Zeebe topology request failed")
}

// ==========================
// Database Tables Setup + Test Data
// ==========================
func seedPairingTables(t *testing.T, ctx context.Context, db *sql.DB) {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS affiliates (
			id VARCHAR(64) PRIMARY KEY,
			display_name VARCHAR(255) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE TABLE IF NOT EXISTS affiliate_ranges (
			id SERIAL PRIMARY KEY,
			affiliate_id VARCHAR(64) NOT NULL REFERENCES affiliates(id),
			range_start NUMERIC(14,2),
			range_end NUMERIC(14,2),
			receive_channels TEXT[] NOT NULL DEFAULT '{}',
			send_channels TEXT[] NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			op_date DATE NOT NULL,
			op_time TIME NOT NULL,
			affiliate_id_1 VARCHAR(64) NOT NULL,
			affiliate_id_2 VARCHAR(64) NOT NULL,
			amount NUMERIC(14,2) NOT NULL
		)`,
		`DELETE FROM transactions WHERE affiliate_id_1 LIKE 'e2e-%'`,
		`DELETE FROM affiliate_ranges WHERE affiliate_id LIKE 'e2e-%'`,
		`DELETE FROM affiliates WHERE id LIKE 'e2e-%'`,
		`INSERT INTO affiliates (id, display_name) VALUES
			('e2e-a', 'E2E Affiliate A'), ('e2e-b', 'E2E Affiliate B'), ('e2e-c', 'E2E Affiliate C')`,
		`INSERT INTO affiliate_ranges (affiliate_id, range_start, range_end, receive_channels, send_channels) VALUES
			('e2e-a', 0, 2000, '{channel_a}', '{channel_b}'),
			('e2e-b', 100, 1500, '{channel_b}', '{channel_b}'),
			('e2e-c', 5000, 6000, '{channel_b}', '{channel_b}')`,
		`INSERT INTO transactions (op_date, op_time, affiliate_id_1, affiliate_id_2, amount) VALUES
			(CURRENT_DATE - 40, '10:00', 'e2e-a', 'e2e-b', 420.00),
			(CURRENT_DATE - 20, '11:30', 'e2e-b', 'e2e-a', 515.50)`,
	}
	for _, stmt := range statements {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}
}

// ==========================
// Worker Tests
// ==========================
func testPairingWorkers(t *testing.T, ctx context.Context, cfg *config.Config, db *sql.DB, rdb *redis.Client) {
	log := logger.NewTestLogger(t)

	reg, err := registry.Load(cfg.Registry.Path)
	require.NoError(t, err)

	source := snapshot.NewCachedSource(
		snapshot.NewPostgresSource(db, log), rdb, "pairing:snapshot:e2e", time.Minute, log,
	)
	engine := pairing.NewEngine(log, pairing.WithMaxPairs(cfg.Pairing.MaxPairs))

	t.Run("calculate-pairings", func(t *testing.T) {
		handler := calculatepairings.NewHandler(
			calculatepairings.LoadConfig(config.GetWorkerConfig(cfg, calculatepairings.TaskType), cfg.Pairing),
			engine, source, reg.InputSchema(calculatepairings.TaskType), nil, log,
		)
		maxRisk := 100.0
		out, err := handler.Execute(ctx, &calculatepairings.Input{
			Overrides:       pairing.Overrides{MaxRisk: &maxRisk},
			RefreshSnapshot: true,
		})
		require.NoError(t, err)

		var found bool
		for _, p := range out.Pairs {
			if p.PairIDs == [2]string{"e2e-a", "e2e-b"} {
				found = true
				assert.Equal(t, pairing.DaysSince(20), p.DaysSinceLast)
				assert.LessOrEqual(t, p.EffectiveRange.End, pairing.CappedChannelLimit)
			}
		}
		assert.True(t, found, "expected e2e-a/e2e-b to be paired")
		assert.NotEmpty(t, out.SnapshotAt)
	})

	t.Run("get-pairing-details", func(t *testing.T) {
		handler := getpairingdetails.NewHandler(
			getpairingdetails.LoadConfig(config.GetWorkerConfig(cfg, getpairingdetails.TaskType), cfg.Pairing),
			engine, source, reg.InputSchema(getpairingdetails.TaskType), nil, log,
		)
		out, err := handler.Execute(ctx, &getpairingdetails.Input{
			AffiliateID1: "e2e-a",
			AffiliateID2: "e2e-b",
			FullHistory:  true,
		})
		require.NoError(t, err)
		assert.True(t, out.UsesCappedChannel)
		assert.Equal(t, 2, out.TotalTransactions)
		require.Len(t, out.History, 2)
		assert.Equal(t, 515.5, out.History[0].Amount)
		assert.NotEmpty(t, out.SuggestedAmounts)
	})
}
