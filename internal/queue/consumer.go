// Package queue consumes document processing tasks from Redis via asynq and
// drives the pipeline for each one.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/constants"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/pipeline"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/repository"
)

// TaskProcessDocument is the task type handled by this consumer.
const TaskProcessDocument = "document:process"

// ProcessPayload is the wire format of a document processing task.
type ProcessPayload struct {
	JobID    string `json:"job_id"`
	Path     string `json:"path"`
	MIMEType string `json:"mime_type"`
	Filename string `json:"filename"`
	Language string `json:"language"`
}

// Config holds consumer settings.
type Config struct {
	RedisURL    string
	QueueName   string
	Concurrency int
	TaskTimeout time.Duration
}

// Consumer runs the asynq server and hands each task to the orchestrator.
type Consumer struct {
	cfg          Config
	server       *asynq.Server
	mux          *asynq.ServeMux
	orchestrator *pipeline.Orchestrator
	jobs         repository.JobRepository
	logger       *slog.Logger
}

func NewConsumer(cfg Config, orchestrator *pipeline.Orchestrator, jobs repository.JobRepository, logger *slog.Logger) (*Consumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RedisURL == "" {
		return nil, common.NewAppError(common.CodeConfigError, "redis URL is required", common.ErrInvalidInput)
	}
	if cfg.QueueName == "" {
		cfg.QueueName = "documents"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 5 * time.Minute
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			cfg.QueueName: 10,
			"default":     1,
		},
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			delay := time.Duration(5*(1<<uint(n))) * time.Second
			if delay > time.Minute {
				delay = time.Minute
			}
			return delay
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("queue.task_error", "type", task.Type(), "error", err)
		}),
	})

	c := &Consumer{
		cfg:          cfg,
		server:       server,
		mux:          asynq.NewServeMux(),
		orchestrator: orchestrator,
		jobs:         jobs,
		logger:       logger,
	}
	c.mux.HandleFunc(TaskProcessDocument, c.handleProcessDocument)
	return c, nil
}

// Start launches the asynq server. It returns once the server loop is running.
func (c *Consumer) Start() error {
	c.logger.Info("queue.starting", "queue", c.cfg.QueueName, "concurrency", c.cfg.Concurrency)
	if err := c.server.Start(c.mux); err != nil {
		return fmt.Errorf("start queue server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight tasks and stops the server.
func (c *Consumer) Shutdown() {
	c.logger.Info("queue.stopping")
	c.server.Shutdown()
	c.logger.Info("queue.stopped")
}

func (c *Consumer) handleProcessDocument(ctx context.Context, task *asynq.Task) error {
	var payload ProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// a malformed payload never becomes valid; do not retry
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return fmt.Errorf("parse job id %q: %v: %w", payload.JobID, err, asynq.SkipRetry)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.TaskTimeout)
	defer cancel()
	ctx = common.WithRequestID(ctx, uuid.New().String())

	start := time.Now()
	c.logger.Info("queue.task.start", "job_id", jobID, "path", payload.Path, "mime", payload.MIMEType)
	if err := c.jobs.MarkStatus(ctx, jobID, constants.JobStatusExtracting); err != nil {
		c.logger.Warn("queue.task.mark_status_failed", "job_id", jobID, "error", err)
	}

	res, err := c.orchestrator.Process(ctx, pipeline.Document{
		ID:       payload.JobID,
		Path:     payload.Path,
		MIMEType: payload.MIMEType,
		Filename: payload.Filename,
		Language: payload.Language,
	})
	if err != nil {
		code := common.CodeInternal
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			code = appErr.Code
		}
		if ferr := c.jobs.FinishFailure(ctx, jobID, string(code), err.Error()); ferr != nil {
			c.logger.Error("queue.task.persist_failure_error", "job_id", jobID, "error", ferr)
		}
		c.logger.Error("queue.task.failed", "job_id", jobID, "code", code,
			"elapsed_ms", time.Since(start).Milliseconds(), "error", err)
		return err
	}

	if err := c.jobs.FinishSuccess(ctx, jobID, res); err != nil {
		c.logger.Error("queue.task.persist_error", "job_id", jobID, "error", err)
		return err
	}
	c.logger.Info("queue.task.ok", "job_id", jobID,
		"method", res.ProcessingMethod, "pages", res.PageCount,
		"confidence", res.Confidence, "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}
