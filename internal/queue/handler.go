package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	apperrors "github.com/ironsheep/plate-tools-mcp/internal/errors"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/locate"
	"github.com/ironsheep/plate-tools-mcp/internal/plate"
	"github.com/ironsheep/plate-tools-mcp/internal/storage"
)

// Handler processes plate:read tasks.
type Handler struct {
	reader    *plate.Reader
	predictor locate.Predictor
	store     storage.Store
	publisher EventPublisher
	cache     *imaging.ImageCache
	log       logrus.FieldLogger
}

// HandlerConfig holds handler collaborators. Predictor and Publisher are
// optional.
type HandlerConfig struct {
	Reader    *plate.Reader
	Predictor locate.Predictor
	Store     storage.Store
	Publisher EventPublisher
	Log       logrus.FieldLogger
}

// NewHandler creates a task handler
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Reader == nil {
		return nil, fmt.Errorf("Reader is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("Store is required")
	}
	if cfg.Log == nil {
		return nil, fmt.Errorf("Log is required")
	}
	return &Handler{
		reader:    cfg.Reader,
		predictor: cfg.Predictor,
		store:     cfg.Store,
		publisher: cfg.Publisher,
		cache:     imaging.NewImageCache(),
		log:       cfg.Log,
	}, nil
}

// ProcessTask implements asynq.Handler.
//
// Malformed payloads, invalid boxes (given or predicted) and unreadable
// images are not retried.
// Recognition, prediction and storage failures are returned for retry. A
// failed publish is logged only, since the read is already stored.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	start := time.Now()

	var p ReadPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	methods, _ := plate.ParseMethods(p.Methods)

	log := h.log.WithFields(logrus.Fields{
		"task":  task.Type(),
		"image": p.ImagePath,
	})

	img, err := h.cache.Load(p.ImagePath)
	if err != nil {
		return fmt.Errorf("failed to load image: %v: %w", err, asynq.SkipRetry)
	}
	// Each frame is read once; keep the cache from growing.
	defer h.cache.Evict(p.ImagePath)

	box, err := h.resolveBox(ctx, img, p.Box)
	if err != nil {
		return err
	}

	res, err := h.reader.WithMethods(methods).Read(ctx, img, box)
	if errors.Is(err, plate.ErrInvalidBox) {
		// The same box fails every retry.
		return fmt.Errorf("plate read failed: %w: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("plate read failed: %w", err)
	}

	read := storage.NewPlateRead(p.ImagePath, box, res)
	if err := h.store.SaveRead(ctx, read); err != nil {
		return err
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, NewPlateEvent(read)); err != nil {
			log.WithError(err).Warn("failed to publish plate event")
		}
	}

	log.WithFields(logrus.Fields{
		"read_id":     read.ID.String(),
		"plate":       read.Plate,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("plate task completed")

	return nil
}

func (h *Handler) resolveBox(ctx context.Context, img image.Image, box *plate.Box) (plate.Box, error) {
	if box != nil {
		return *box, nil
	}
	if h.predictor == nil {
		err := apperrors.NewInvalidBoxError("task has no box and no predictor is configured", nil)
		return plate.Box{}, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	predicted, err := h.predictor.Predict(ctx, img)
	if err == nil {
		err = predicted.Validate()
	}
	if errors.Is(err, plate.ErrInvalidBox) {
		return plate.Box{}, fmt.Errorf("predicted box: %w: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return plate.Box{}, apperrors.NewPredictionError(err)
	}
	return predicted, nil
}
