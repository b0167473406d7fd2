package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// ServerConfig holds worker server configuration
type ServerConfig struct {
	RedisURL    string
	QueueName   string
	Concurrency int
	Log         logrus.FieldLogger
}

// NewServer creates the asynq server that runs plate tasks.
func NewServer(cfg ServerConfig) (*asynq.Server, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	log := cfg.Log
	return asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			RetryDelayFunc: RetryDelay,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				if log == nil {
					return
				}
				log.WithFields(logrus.Fields{
					"task":    task.Type(),
					"payload": string(task.Payload()),
				}).WithError(err).Error("task processing error")
			}),
			Logger: asynqLogger(log),
		},
	), nil
}

// NewServeMux routes plate:read tasks to h.
func NewServeMux(h *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypePlateRead, h)
	return mux
}

// RetryDelay backs off exponentially from 5s, capped at one minute.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	if n > 4 {
		return 60 * time.Second
	}
	delay := time.Duration(5*(1<<uint(n))) * time.Second
	if delay > 60*time.Second {
		delay = 60 * time.Second
	}
	return delay
}

// asynqLogger lets asynq log through logrus. A nil logger leaves asynq on
// its default.
func asynqLogger(log logrus.FieldLogger) asynq.Logger {
	if log == nil {
		return nil
	}
	return log.WithField("component", "asynq")
}

// Client enqueues plate tasks.
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient creates a producer for queueName.
func NewClient(redisURL, queueName string) (*Client, error) {
	if queueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Client{client: asynq.NewClient(redisOpt), queue: queueName}, nil
}

// EnqueueRead submits a plate:read task and returns its ID.
func (c *Client) EnqueueRead(ctx context.Context, p ReadPayload) (string, error) {
	task, err := NewReadTask(p, asynq.Queue(c.queue))
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}
	return info.ID, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
