// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"pairing-workers/internal/common/config"
	"pairing-workers/internal/common/logger"
	"pairing-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is implemented by every worker's Handler.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// StartWorker opens a job worker for taskType. The shared zbc client stays owned by the caller.
func StartWorker(
	client zbc.Client,
	taskType string,
	cfg config.WorkerConfig,
	handler JobHandler,
	log logger.Logger,
) *CamundaWorker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})

	builder := client.NewJobWorker().
		JobType(taskType).
		Handler(instrument(taskType, handler)).
		MaxJobsActive(maxJobsActive(cfg))
	if cfg.Timeout > 0 {
		builder = builder.Timeout(time.Duration(cfg.Timeout) * time.Millisecond)
	}

	w := &CamundaWorker{
		worker:   builder.Open(),
		logger:   log,
		taskType: taskType,
	}
	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": maxJobsActive(cfg),
		"timeoutMs":     cfg.Timeout,
	})
	return w
}

func maxJobsActive(cfg config.WorkerConfig) int {
	if cfg.MaxJobsActive > 0 {
		return cfg.MaxJobsActive
	}
	return 5
}

// instrument tracks in-flight jobs around handler.
func instrument(taskType string, handler JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()
		defer active.Dec()
		handler.Handle(client, job)
	}
}

func (w *CamundaWorker) TaskType() string {
	return w.taskType
}

// Stop closes the job worker and waits for in-flight jobs.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
