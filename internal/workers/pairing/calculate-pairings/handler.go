package calculatepairings

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	apperrors "pairing-workers/internal/common/errors"
	"pairing-workers/internal/common/logger"
	"pairing-workers/internal/common/metrics"
	"pairing-workers/internal/common/observability"
	"pairing-workers/internal/common/validation"
	"pairing-workers/internal/pairing"
	"pairing-workers/internal/snapshot"
)

const (
	TaskType = "calculate-pairings"
)

type Handler struct {
	config     *Config
	engine     *pairing.Engine
	source     snapshot.Source
	schema     map[string]interface{}
	obs        *observability.Observability
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

func NewHandler(
	config *Config,
	engine *pairing.Engine,
	source snapshot.Source,
	schema map[string]interface{},
	obs *observability.Observability,
	log logger.Logger,
) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		engine:     engine,
		source:     source,
		schema:     schema,
		obs:        obs,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
		now:        time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	ctx, span := h.obs.StartSpan(ctx, TaskType, attribute.Int64("job.key", job.Key))
	defer span.End()

	input, err := h.parseInput(job.Variables)
	if err != nil {
		h.failJob(ctx, client, job, err, start)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err, start)
		return
	}

	h.completeJob(ctx, client, job, output, start)
}

func (h *Handler) parseInput(variables string) (*Input, error) {
	if strings.TrimSpace(variables) == "" {
		variables = "{}"
	}
	res, err := validation.ValidateJSON(h.schema, variables)
	if err != nil {
		return nil, apperrors.NewInvalidJobInputError(err.Error())
	}
	if !res.Valid {
		return nil, apperrors.NewInvalidJobInputError(strings.Join(res.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidJobInputError(err.Error())
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewValidationError("input cannot be nil")
	}

	runID := uuid.NewString()
	log := h.logger.WithFields(map[string]interface{}{"runId": runID})

	opts := input.Apply(h.config.Defaults)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	model := opts.ModelName()

	snap, err := snapshot.LoadTraced(ctx, h.source, h.obs, log, input.RefreshSnapshot)
	if err != nil {
		metrics.PairingRuns.WithLabelValues(model, "failed").Inc()
		return nil, err
	}

	runCtx, span := h.obs.StartSpan(ctx, "pairing.run",
		attribute.String("run.id", runID),
		attribute.String("model", model),
		attribute.Int("snapshot.ranges", len(snap.Ranges)),
		attribute.Int("snapshot.transactions", len(snap.Transactions)),
	)
	started := time.Now()
	result, err := h.engine.Run(runCtx, snap, opts)
	metrics.PairingRunDuration.WithLabelValues(model).Observe(time.Since(started).Seconds())
	span.End()

	if err != nil {
		metrics.PairingRuns.WithLabelValues(model, "failed").Inc()
		return nil, err
	}
	metrics.PairingRuns.WithLabelValues(model, "success").Inc()

	skipped := make(map[string]int, len(result.Skipped))
	for reason, n := range result.Skipped {
		skipped[string(reason)] = n
	}
	metrics.RecordPairOutcomes(result.Accepted(), skipped)
	for _, p := range result.Pairs {
		metrics.PairingAcceptedRisk.Observe(p.Risk)
	}
	h.obs.RecordPairsEvaluated(ctx, model, result.Examined)

	log.Info("pairing run completed", map[string]interface{}{
		"model":     model,
		"examined":  result.Examined,
		"accepted":  result.Accepted(),
		"truncated": result.Truncated,
	})

	out := &Output{
		RunID:         runID,
		Model:         result.Model,
		Pairs:         result.Pairs,
		PairsExamined: result.Examined,
		Accepted:      result.Accepted(),
		Skipped:       skipped,
		Truncated:     result.Truncated,
		GeneratedAt:   h.now().UTC().Format(time.RFC3339),
	}
	if !snap.LoadedAt.IsZero() {
		out.SnapshotAt = snap.LoadedAt.UTC().Format(time.RFC3339)
	}
	return out, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, start time.Time) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.failJob(ctx, client, job, apperrors.NewProcessingError("encode job output", err), start)
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, "success")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "success")

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":   job.Key,
		"runId":    output.RunID,
		"accepted": output.Accepted,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	stdErr := h.errHandler.HandleJobError(ctx, client, job, err)

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
