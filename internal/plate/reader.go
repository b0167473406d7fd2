package plate

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/ironsheep/plate-tools-mcp/internal/errors"
)

// RegionRecognizer produces detections for one crop variant.
type RegionRecognizer interface {
	Recognize(ctx context.Context, region *Region) ([]Detection, error)
}

// Options tune a Reader.
type Options struct {
	// Methods are the variants to run; all nine when empty.
	Methods []Method

	// Workers bounds how many variants run at once.
	Workers int

	// Timeout bounds each variant. A variant that runs out of time
	// contributes no detections.
	Timeout time.Duration

	// MinConfidence is the floor applied after clustering. Nil means the
	// default floor of 40; an explicit 0 keeps every cluster.
	MinConfidence *float64
}

// Floor returns a MinConfidence value for Options.
func Floor(v float64) *float64 {
	return &v
}

// DefaultOptions runs all nine variants at once with a 10s budget each.
func DefaultOptions() Options {
	return Options{
		Methods:       Methods(),
		Workers:       len(methodNames),
		Timeout:       10 * time.Second,
		MinConfidence: Floor(MinConfidence),
	}
}

// VariantReport summarizes one variant of a read.
type VariantReport struct {
	Method     Method          `json:"method"`
	Region     image.Rectangle `json:"region"`
	Clamped    bool            `json:"clamped"`
	Detections int             `json:"detections"`
	Err        string          `json:"error,omitempty"`
	TimedOut   bool            `json:"timed_out,omitempty"`
	Duration   time.Duration   `json:"duration_ns"`
}

// Result is the outcome of reading one plate.
type Result struct {
	// Plate is the composed string, empty when nothing was readable.
	Plate string `json:"plate"`

	// Detections are the characters that made up Plate, left-to-right.
	Detections []Detection `json:"detections"`

	// Pool is every detection from every variant, in method order.
	Pool []Detection `json:"pool"`

	Variants []VariantReport `json:"variants"`
	Duration time.Duration   `json:"duration_ns"`
}

// Reader runs the crop variants of a box concurrently and reconciles their
// detections into a plate string.
type Reader struct {
	recognizer RegionRecognizer
	opts       Options
	log        logrus.FieldLogger
}

// NewReader creates a reader. Zero option fields take their defaults.
func NewReader(recognizer RegionRecognizer, opts Options, log logrus.FieldLogger) *Reader {
	def := DefaultOptions()
	if len(opts.Methods) == 0 {
		opts.Methods = def.Methods
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MinConfidence == nil {
		opts.MinConfidence = def.MinConfidence
	} else {
		opts.MinConfidence = Floor(*opts.MinConfidence)
	}
	return &Reader{recognizer: recognizer, opts: opts, log: log}
}

// Options returns the effective options.
func (r *Reader) Options() Options {
	return r.opts
}

// WithMethods returns a copy of the reader restricted to methods. An empty
// list keeps the current set.
func (r *Reader) WithMethods(methods []Method) *Reader {
	if len(methods) == 0 {
		return r
	}
	cp := *r
	cp.opts.Methods = append([]Method(nil), methods...)
	return &cp
}

// collector gathers variant output during fan-in.
type collector struct {
	mu         sync.Mutex
	detections [][]Detection
	reports    []VariantReport
}

func (c *collector) add(i int, dets []Detection, report VariantReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detections[i] = dets
	c.reports[i] = report
}

// Read extracts every configured variant of box from img, recognizes them
// in parallel and returns the reconciled plate.
//
// Variant failures and timeouts are logged and contribute nothing. Read only
// fails for an invalid box or when ctx itself ends.
func (r *Reader) Read(ctx context.Context, img image.Image, box Box) (*Result, error) {
	start := time.Now()

	if err := box.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	methods := r.opts.Methods
	col := &collector{
		detections: make([][]Detection, len(methods)),
		reports:    make([]VariantReport, len(methods)),
	}

	sem := make(chan struct{}, r.opts.Workers)
	var wg sync.WaitGroup

	for i, m := range methods {
		wg.Add(1)
		go func(i int, m Method) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				col.add(i, nil, VariantReport{Method: m, Err: ctx.Err().Error()})
				return
			}
			defer func() { <-sem }()

			dets, report := r.runVariant(ctx, img, box, m)
			col.add(i, dets, report)
		}(i, m)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pool := make([]Detection, 0)
	for _, dets := range col.detections {
		pool = append(pool, dets...)
	}

	selected := Select(pool, *r.opts.MinConfidence)
	result := &Result{
		Plate:      Compose(selected),
		Detections: selected,
		Pool:       pool,
		Variants:   col.reports,
		Duration:   time.Since(start),
	}

	r.log.WithFields(logrus.Fields{
		"box":         box.String(),
		"plate":       result.Plate,
		"pool":        len(pool),
		"selected":    len(selected),
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("plate read")

	return result, nil
}

// runVariant extracts and recognizes one method under its own deadline. The
// recognizer runs on a separate goroutine so a call that ignores its context
// still cannot hold up the read.
func (r *Reader) runVariant(ctx context.Context, img image.Image, box Box, m Method) ([]Detection, VariantReport) {
	start := time.Now()
	report := VariantReport{Method: m}

	region, err := Extract(img, box, m)
	if err != nil {
		report.Err = err.Error()
		report.Duration = time.Since(start)
		return nil, report
	}
	report.Region = region.Rect()
	report.Clamped = region.Clamped

	log := r.log.WithFields(logrus.Fields{
		"method":  m.String(),
		"x_start": region.XStart,
		"y_start": region.YStart,
	})

	vctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	type outcome struct {
		dets []Detection
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		dets, err := r.recognizer.Recognize(vctx, region)
		done <- outcome{dets: dets, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-vctx.Done():
		out.err = vctx.Err()
	}
	report.Duration = time.Since(start)

	if out.err != nil {
		var perr *apperrors.PlateError
		switch {
		case ctx.Err() != nil:
			report.Err = ctx.Err().Error()
			return nil, report
		case errors.Is(out.err, context.DeadlineExceeded):
			report.TimedOut = true
			perr = apperrors.NewOCRTimeoutError(m.String(), r.opts.Timeout, out.err)
		default:
			perr = apperrors.NewOCRFailedError(m.String(), out.err)
		}
		report.Err = perr.Error()
		log.WithFields(logrus.Fields(perr.ToMap())).Warn("variant produced no detections")
		return nil, report
	}

	report.Detections = len(out.dets)
	log.WithField("detections", len(out.dets)).Debug("variant done")
	return out.dets, report
}
