package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Producer submits document processing tasks.
type Producer struct {
	client    *asynq.Client
	queueName string
	logger    *slog.Logger
}

func NewProducer(redisURL, queueName string, logger *slog.Logger) (*Producer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if queueName == "" {
		queueName = "documents"
	}
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return &Producer{client: asynq.NewClient(redisOpt), queueName: queueName, logger: logger}, nil
}

// Enqueue submits one document processing task.
func (p *Producer) Enqueue(ctx context.Context, payload ProcessPayload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	info, err := p.client.EnqueueContext(ctx, asynq.NewTask(TaskProcessDocument, b),
		asynq.Queue(p.queueName),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute))
	if err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	p.logger.Info("queue.enqueued", "task_id", info.ID, "job_id", payload.JobID)
	return nil
}

func (p *Producer) Close() error {
	return p.client.Close()
}
