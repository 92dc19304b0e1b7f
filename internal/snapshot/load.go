package snapshot

import (
	"context"

	apperrors "pairing-workers/internal/common/errors"
	"pairing-workers/internal/common/logger"
	"pairing-workers/internal/common/metrics"
	"pairing-workers/internal/common/observability"
	"pairing-workers/internal/models"

	"go.opentelemetry.io/otel/codes"
)

// Invalidator is implemented by sources that keep a cached copy.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// LoadTraced loads a snapshot from src inside a span and records the outcome. With refresh set,
// a cached copy is dropped first. Errors that are not already StandardErrors become
// SNAPSHOT_LOAD_FAILED.
func LoadTraced(ctx context.Context, src Source, obs *observability.Observability, log logger.Logger, refresh bool) (*models.Snapshot, error) {
	ctx, span := obs.StartSpan(ctx, "snapshot.load")
	defer span.End()

	if refresh {
		if inv, ok := src.(Invalidator); ok {
			if err := inv.Invalidate(ctx); err != nil {
				log.Warn("failed to invalidate snapshot cache", map[string]interface{}{"error": err})
			}
		}
	}

	snap, err := src.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot load failed")
		metrics.SnapshotLoads.WithLabelValues("failed").Inc()
		if _, ok := apperrors.AsStandardError(err); ok {
			return nil, err
		}
		return nil, apperrors.NewSnapshotLoadFailedError("snapshot", err)
	}
	if snap == nil {
		metrics.SnapshotLoads.WithLabelValues("failed").Inc()
		return nil, apperrors.NewProcessingError("snapshot source returned no data", nil)
	}

	metrics.SnapshotLoads.WithLabelValues("success").Inc()
	return snap, nil
}
