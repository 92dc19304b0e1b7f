// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pairing-workers/internal/common/camunda"
	"pairing-workers/internal/common/config"
	"pairing-workers/internal/common/database"
	"pairing-workers/internal/common/logger"
	"pairing-workers/internal/common/observability"
	"pairing-workers/internal/pairing"
	"pairing-workers/internal/snapshot"
	"pairing-workers/pkg/registry"

	cp "pairing-workers/internal/workers/pairing/calculate-pairings"
	gpd "pairing-workers/internal/workers/pairing/get-pairing-details"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	zapLog.Info("Starting pairing worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	log := logger.NewFromConfig(cfg.Logging).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	ctx := context.Background()

	traceExporter, err := observability.NewTraceExporter(ctx, cfg.Tracing)
	if err != nil {
		zapLog.Warn("trace exporter unavailable, spans stay local", zap.Error(err))
		traceExporter = nil
	}
	obs := observability.New(cfg.App.Name, traceExporter)
	defer obs.Shutdown()

	// --- Activity registry ---
	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("registry load failed", zap.Error(err))
	}
	if problems := reg.Validate(); len(problems) > 0 {
		zapLog.Fatal("registry is invalid", zap.String("problems", strings.Join(problems, "; ")))
	}

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Snapshot source, optionally cached in Redis ---
	var source snapshot.Source = snapshot.NewPostgresSource(pg.DB, log)
	var rdb *database.RedisClient
	if cfg.Pairing.CacheEnabled() {
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		zapLog.Info("Redis connected successfully")

		source = snapshot.NewCachedSource(source, rdb.Client, cfg.Pairing.SnapshotCacheKey, cfg.Pairing.CacheTTL(), log)
	} else {
		zapLog.Info("snapshot cache disabled")
	}

	engine := pairing.NewEngine(log,
		pairing.WithMaxPairs(cfg.Pairing.MaxPairs),
		pairing.WithRecentAmounts(cfg.Pairing.RecentAmountsExcluded),
	)

	// --- Register workers ---
	var workers []*camunda.CamundaWorker

	if wc := config.GetWorkerConfig(cfg, cp.TaskType); wc.Enabled {
		handler := cp.NewHandler(
			cp.LoadConfig(wc, cfg.Pairing),
			engine, source, reg.InputSchema(cp.TaskType), obs, log,
		)
		workers = append(workers, camunda.StartWorker(zeebe.GetClient(), cp.TaskType, wc, handler, log))
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", cp.TaskType))
	}

	if wc := config.GetWorkerConfig(cfg, gpd.TaskType); wc.Enabled {
		handler := gpd.NewHandler(
			gpd.LoadConfig(wc, cfg.Pairing),
			engine, source, reg.InputSchema(gpd.TaskType), obs, log,
		)
		workers = append(workers, camunda.StartWorker(zeebe.GetClient(), gpd.TaskType, wc, handler, log))
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", gpd.TaskType))
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{"postgres": "ok", "zeebe": "ok"}
		status := http.StatusOK
		if err := pg.Ping(checkCtx); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Ping(checkCtx); err != nil {
				// The snapshot cache is bypassed when Redis is down.
				checks["redis"] = err.Error()
			}
		}
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			checks["zeebe"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		checks["time"] = time.Now().Format(time.RFC3339)
		if status == http.StatusOK {
			checks["status"] = "ready"
		} else {
			checks["status"] = "not ready"
		}
		writeStatus(w, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
