// Package pipeline assembles the plate reader from configuration for the
// commands.
package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/plate-tools-mcp/internal/config"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/locate"
	"github.com/ironsheep/plate-tools-mcp/internal/ocr/tesseract"
	"github.com/ironsheep/plate-tools-mcp/internal/plate"
)

// Pipeline is a configured reader with its collaborators.
type Pipeline struct {
	Reader *plate.Reader
	OCR    *tesseract.Reader

	// Predictor is nil when no model is configured.
	Predictor locate.Predictor

	closers []func() error
}

// New builds the reader described by cfg. An ONNX predictor is loaded when
// cfg.ModelPath is set.
func New(cfg *config.Config, log logrus.FieldLogger) (*Pipeline, error) {
	tess := tesseract.New(cfg.OCRLanguage, cfg.TessdataPrefix)
	rec := plate.NewRecognizer(imaging.DefaultSegmenter(), tess, log)
	reader := plate.NewReader(rec, Options(cfg), log)

	p := &Pipeline{Reader: reader, OCR: tess}

	if cfg.ModelPath != "" {
		pred, err := locate.NewONNXPredictor(PredictorConfig(cfg), log)
		if err != nil {
			return nil, err
		}
		p.Predictor = pred
		p.closers = append(p.closers, pred.Close)
	}

	log.WithFields(logrus.Fields{
		"workers":        cfg.Workers,
		"timeout":        cfg.VariantTimeout.String(),
		"min_confidence": cfg.MinConfidence,
		"language":       cfg.OCRLanguage,
		"predictor":      p.Predictor != nil,
	}).Debug("pipeline ready")

	return p, nil
}

// Options maps configuration to reader options.
func Options(cfg *config.Config) plate.Options {
	return plate.Options{
		Methods:       plate.Methods(),
		Workers:       cfg.Workers,
		Timeout:       cfg.VariantTimeout,
		MinConfidence: plate.Floor(cfg.MinConfidence),
	}
}

// PredictorConfig maps configuration to the ONNX predictor settings.
func PredictorConfig(cfg *config.Config) locate.ONNXConfig {
	return locate.ONNXConfig{
		ModelPath:   cfg.ModelPath,
		RuntimeLib:  cfg.ONNXRuntimeLib,
		InputScale:  cfg.ModelInputScale,
		InputWidth:  cfg.ModelInputWidth,
		InputHeight: cfg.ModelInputHeight,
	}
}

// Close releases the predictor, if any.
func (p *Pipeline) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
