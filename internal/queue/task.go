// Package queue runs plate reads as background jobs.
//
// Producers enqueue a plate:read task on an asynq queue in Redis. The worker
// reads the plate, stores the result and announces it on a Redis pub/sub
// channel.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ironsheep/plate-tools-mcp/internal/plate"
)

// TypePlateRead is the asynq task type for one plate read.
const TypePlateRead = "plate:read"

const (
	defaultMaxRetry = 3
	defaultTimeout  = 2 * time.Minute
)

// ReadPayload is the body of a plate:read task.
type ReadPayload struct {
	ImagePath string `json:"image_path"`

	// Box is the plate bounding box. When nil the worker's predictor
	// locates the plate.
	Box *plate.Box `json:"box,omitempty"`

	// Methods restricts the crop variants; empty runs all nine.
	Methods []string `json:"methods,omitempty"`
}

// Validate rejects payloads that can never succeed.
func (p ReadPayload) Validate() error {
	if p.ImagePath == "" {
		return fmt.Errorf("image_path is required")
	}
	if p.Box != nil {
		if err := p.Box.Validate(); err != nil {
			return err
		}
	}
	if _, err := plate.ParseMethods(p.Methods); err != nil {
		return err
	}
	return nil
}

// NewReadTask builds a plate:read task. Extra options override the default
// retry count and timeout.
func NewReadTask(p ReadPayload, opts ...asynq.Option) (*asynq.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	defaults := []asynq.Option{asynq.MaxRetry(defaultMaxRetry), asynq.Timeout(defaultTimeout)}
	return asynq.NewTask(TypePlateRead, payload, append(defaults, opts...)...), nil
}
