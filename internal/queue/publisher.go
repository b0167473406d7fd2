package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/ironsheep/plate-tools-mcp/internal/errors"
	"github.com/ironsheep/plate-tools-mcp/internal/storage"
)

// PlateEvent announces a stored plate read.
type PlateEvent struct {
	Event      string   `json:"event"`
	ReadID     string   `json:"read_id"`
	ImagePath  string   `json:"image_path"`
	Plate      string   `json:"plate"`
	Characters []string `json:"characters"`
	DurationMs int64    `json:"duration_ms"`
	Timestamp  string   `json:"timestamp"`
}

// NewPlateEvent describes read for subscribers.
func NewPlateEvent(read *storage.PlateRead) *PlateEvent {
	return &PlateEvent{
		Event:      TypePlateRead,
		ReadID:     read.ID.String(),
		ImagePath:  read.ImagePath,
		Plate:      read.Plate,
		Characters: read.Characters,
		DurationMs: read.DurationMs,
		Timestamp:  read.CreatedAt.Format(time.RFC3339),
	}
}

// EventPublisher announces plate reads.
type EventPublisher interface {
	Publish(ctx context.Context, event *PlateEvent) error
}

// Publisher publishes plate events on a Redis pub/sub channel.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher connects to redisURL and checks the connection.
func NewPublisher(redisURL, channel string) (*Publisher, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("channel is required")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Publisher{client: client, channel: channel}, nil
}

// Channel is the pub/sub channel events go to.
func (p *Publisher) Channel() string {
	return p.channel
}

// Publish sends event as JSON.
func (p *Publisher) Publish(ctx context.Context, event *PlateEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return apperrors.NewPublishFailedError(p.channel, err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return apperrors.NewPublishFailedError(p.channel, err)
	}
	return nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
