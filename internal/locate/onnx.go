package locate

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/nfnt/resize"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	apperrors "github.com/ironsheep/plate-tools-mcp/internal/errors"
	"github.com/ironsheep/plate-tools-mcp/internal/plate"
)

var (
	ortOnce sync.Once
	ortErr  error
)

// initRuntime loads the onnxruntime shared library once per process.
func initRuntime(libPath string) error {
	ortOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

// ONNXConfig configures an ONNXPredictor.
type ONNXConfig struct {
	// ModelPath is the .onnx bounding-box model. Required.
	ModelPath string

	// RuntimeLib is the onnxruntime shared library path.
	RuntimeLib string

	// InputScale multiplies 0-255 channel values before inference.
	InputScale float64

	// InputWidth and InputHeight are used when the model's input shape is
	// dynamic.
	InputWidth  int
	InputHeight int
}

// ONNXPredictor runs a single-output regression model that maps an NHWC RGB
// frame to [x, y, w, h] fractions.
type ONNXPredictor struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	options *ort.SessionOptions

	width  int
	height int
	scale  float32

	log logrus.FieldLogger
}

// NewONNXPredictor loads the model and prepares a session.
func NewONNXPredictor(cfg ONNXConfig, log logrus.FieldLogger) (*ONNXPredictor, error) {
	if cfg.ModelPath == "" {
		return nil, apperrors.NewPredictionError(fmt.Errorf("model path is empty"))
	}
	if err := initRuntime(cfg.RuntimeLib); err != nil {
		return nil, apperrors.NewPredictionError(fmt.Errorf("failed to initialize onnxruntime: %w", err))
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, apperrors.NewPredictionError(fmt.Errorf("failed to read model info: %w", err))
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, apperrors.NewPredictionError(fmt.Errorf("model has no inputs or outputs"))
	}

	width, height, err := inputSize(inputs[0].Dimensions, cfg.InputWidth, cfg.InputHeight)
	if err != nil {
		return nil, apperrors.NewPredictionError(err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, apperrors.NewPredictionError(fmt.Errorf("failed to create session options: %w", err))
	}
	if err := options.SetIntraOpNumThreads(1); err != nil {
		options.Destroy()
		return nil, apperrors.NewPredictionError(fmt.Errorf("failed to set intra-op threads: %w", err))
	}
	if err := options.SetInterOpNumThreads(1); err != nil {
		options.Destroy()
		return nil, apperrors.NewPredictionError(fmt.Errorf("failed to set inter-op threads: %w", err))
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		options,
	)
	if err != nil {
		options.Destroy()
		return nil, apperrors.NewPredictionError(fmt.Errorf("failed to create session: %w", err))
	}

	scale := cfg.InputScale
	if scale <= 0 {
		scale = 1.0 / 255.0
	}

	log.WithFields(logrus.Fields{
		"model":  cfg.ModelPath,
		"input":  inputs[0].Name,
		"output": outputs[0].Name,
		"width":  width,
		"height": height,
	}).Info("bounding box model loaded")

	return &ONNXPredictor{
		session: session,
		options: options,
		width:   width,
		height:  height,
		scale:   float32(scale),
		log:     log,
	}, nil
}

// inputSize reads H and W from an NHWC input shape, falling back to the
// configured size for dynamic dimensions.
func inputSize(dims ort.Shape, fallbackW, fallbackH int) (int, int, error) {
	if len(dims) != 4 {
		return 0, 0, fmt.Errorf("model input must be NHWC, got shape %v", dims)
	}
	if dims[3] > 0 && dims[3] != 3 {
		return 0, 0, fmt.Errorf("model input must have 3 channels, got %d", dims[3])
	}
	h, w := int(dims[1]), int(dims[2])
	if h <= 0 {
		h = fallbackH
	}
	if w <= 0 {
		w = fallbackW
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("model input size is dynamic; configure an input width and height")
	}
	return w, h, nil
}

// Predict implements Predictor.
func (p *ONNXPredictor) Predict(ctx context.Context, img image.Image) (plate.Box, error) {
	if err := ctx.Err(); err != nil {
		return plate.Box{}, err
	}

	data := toNHWC(img, p.width, p.height, p.scale)
	input, err := ort.NewTensor(ort.NewShape(1, int64(p.height), int64(p.width), 3), data)
	if err != nil {
		return plate.Box{}, apperrors.NewPredictionError(fmt.Errorf("failed to create input tensor: %w", err))
	}
	defer input.Destroy()

	outputs := []ort.ArbitraryTensor{nil}

	p.mu.Lock()
	err = p.session.Run([]ort.ArbitraryTensor{input}, outputs)
	p.mu.Unlock()
	if err != nil {
		return plate.Box{}, apperrors.NewPredictionError(fmt.Errorf("inference failed: %w", err))
	}
	if outputs[0] == nil {
		return plate.Box{}, apperrors.NewPredictionError(fmt.Errorf("model produced no output"))
	}
	defer outputs[0].Destroy()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return plate.Box{}, apperrors.NewPredictionError(fmt.Errorf("unsupported output type %T", outputs[0]))
	}

	box, err := boxFromOutput(tensor.GetData())
	if err != nil {
		return plate.Box{}, apperrors.NewPredictionError(err)
	}

	p.log.WithField("box", box.String()).Debug("bounding box predicted")
	return box, nil
}

// Close releases the session.
func (p *ONNXPredictor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.session != nil {
		err = p.session.Destroy()
		p.session = nil
	}
	if p.options != nil {
		if oerr := p.options.Destroy(); err == nil {
			err = oerr
		}
		p.options = nil
	}
	return err
}

// toNHWC resizes img to width x height and lays it out as interleaved RGB
// float32 values multiplied by scale.
func toNHWC(img image.Image, width, height int, scale float32) []float32 {
	resized := resize.Resize(uint(width), uint(height), img, resize.Bilinear)
	bounds := resized.Bounds()

	out := make([]float32, 0, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out = append(out,
				float32(r>>8)*scale,
				float32(g>>8)*scale,
				float32(b>>8)*scale,
			)
		}
	}
	return out
}

// boxFromOutput reads the first four values as [x, y, w, h] and clamps them
// into [0, 1].
func boxFromOutput(data []float32) (plate.Box, error) {
	if len(data) < 4 {
		return plate.Box{}, fmt.Errorf("model output has %d values, want 4", len(data))
	}
	clamp := func(v float32) float64 {
		f := float64(v)
		if math.IsNaN(f) {
			return 0
		}
		return math.Min(1, math.Max(0, f))
	}
	box := plate.Box{X: clamp(data[0]), Y: clamp(data[1]), W: clamp(data[2]), H: clamp(data[3])}
	if err := box.Validate(); err != nil {
		return plate.Box{}, fmt.Errorf("model predicted an empty box: %w", err)
	}
	return box, nil
}
