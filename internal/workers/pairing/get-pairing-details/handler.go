package getpairingdetails

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
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
	TaskType = "get-pairing-details"
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
	if input.AffiliateID1 == "" || input.AffiliateID2 == "" {
		return nil, apperrors.NewValidationError("affiliateId1 and affiliateId2 are required")
	}

	req := pairing.DetailRequest{
		AffiliateID1: input.AffiliateID1,
		AffiliateID2: input.AffiliateID2,
		FullHistory:  input.FullHistory,
		HistoryLimit: h.config.HistoryLimit,
		Suggestions:  h.config.Suggestions,
		Attempts:     h.config.Attempts,
	}
	if input.Options != nil {
		opts := input.Options.Apply(h.config.Defaults)
		req.Options = &opts
	}

	snap, err := snapshot.LoadTraced(ctx, h.source, h.obs, h.logger, false)
	if err != nil {
		return nil, err
	}

	detail, err := h.engine.Details(ctx, snap, req)
	if err != nil {
		return nil, err
	}

	if input.FullHistory {
		h.refreshHistory(ctx, detail)
	}

	return &Output{
		PairDetail:  *detail,
		GeneratedAt: h.now().UTC().Format(time.RFC3339),
	}, nil
}

// refreshHistory replaces the snapshot history with a direct read when the source supports
// it. On failure the snapshot copy is kept.
func (h *Handler) refreshHistory(ctx context.Context, detail *pairing.PairDetail) {
	loader, ok := h.source.(snapshot.PairHistoryLoader)
	if !ok {
		return
	}

	txs, err := loader.LoadPairHistory(ctx, detail.PairIDs[0], detail.PairIDs[1], 0)
	if err != nil {
		h.logger.Warn("full history read failed, using snapshot history", map[string]interface{}{
			"affiliate1": detail.PairIDs[0],
			"affiliate2": detail.PairIDs[1],
			"error":      err.Error(),
		})
		return
	}
	detail.History = txs
	detail.TotalTransactions = len(txs)
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
		"jobKey":      job.Key,
		"suggestions": len(output.SuggestedAmounts),
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
