// Command plateread reads the plate in one frame from the command line.
//
//	plateread -image frame.jpg -box 305/608,267/456,111/608,25/456
//	plateread -image frame.jpg -model plates.onnx -annotate out.png
//	plateread -image /shared/frame.jpg -enqueue
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/plate-tools-mcp/internal/config"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/locate"
	"github.com/ironsheep/plate-tools-mcp/internal/logging"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
	"github.com/ironsheep/plate-tools-mcp/internal/plate"
	"github.com/ironsheep/plate-tools-mcp/internal/queue"
	"github.com/ironsheep/plate-tools-mcp/internal/server"
)

func main() {
	imagePath := flag.String("image", "", "path of the frame to read (required)")
	boxFlag := flag.String("box", "", "plate box as x,y,w,h fractions; values may be ratios like 305/608")
	modelFlag := flag.String("model", "", "ONNX bounding box model, used when -box is not given")
	methodsFlag := flag.String("methods", "", "comma-separated crop variants (default all nine)")
	annotatePath := flag.String("annotate", "", "write an overlay PNG of the variants and detections here")
	jsonOut := flag.Bool("json", false, "print the full result as JSON")
	enqueue := flag.Bool("enqueue", false, "submit a plate:read task to the worker queue instead of reading locally")
	flag.Parse()

	if *imagePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.New("plateread", "info").WithError(err).Fatal("failed to load configuration")
	}
	if *modelFlag != "" {
		cfg.ModelPath = *modelFlag
	}
	log := logging.New("plateread", cfg.LogLevel)

	var methods []string
	if *methodsFlag != "" {
		methods = strings.Split(*methodsFlag, ",")
	}
	parsedMethods, err := plate.ParseMethods(methods)
	if err != nil {
		log.WithError(err).Fatal("invalid -methods")
	}

	var box *plate.Box
	if *boxFlag != "" {
		b, err := locate.ParseBox(*boxFlag)
		if err != nil {
			log.WithError(err).Fatal("invalid -box")
		}
		box = &b
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *enqueue {
		if err := enqueueRead(ctx, cfg, queue.ReadPayload{ImagePath: *imagePath, Box: box, Methods: methods}); err != nil {
			log.WithError(err).Fatal("failed to enqueue plate read")
		}
		return
	}

	if err := run(ctx, cfg, log, *imagePath, box, parsedMethods, *annotatePath, *jsonOut); err != nil {
		log.WithError(err).Fatal("plate read failed")
	}
}

func enqueueRead(ctx context.Context, cfg *config.Config, p queue.ReadPayload) error {
	client, err := queue.NewClient(cfg.RedisURL, cfg.QueueName)
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := client.EnqueueRead(ctx, p)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func run(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, imagePath string, box *plate.Box, methods []plate.Method, annotatePath string, jsonOut bool) error {
	p, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}
	defer p.Close()

	img, err := imaging.NewImageCache().Load(imagePath)
	if err != nil {
		return err
	}

	var predictor locate.Predictor = locate.Static{Box: locate.DefaultBox}
	switch {
	case box != nil:
		predictor = locate.Static{Box: *box}
	case p.Predictor != nil:
		predictor = p.Predictor
	default:
		log.WithField("box", locate.DefaultBox.String()).Warn("no -box or model given, using the reference box")
	}

	b, err := predictor.Predict(ctx, img)
	if err != nil {
		return err
	}

	res, err := p.Reader.WithMethods(methods).Read(ctx, img, b)
	if err != nil {
		return err
	}

	if annotatePath != "" {
		if err := writeAnnotation(annotatePath, img, b, res.Detections); err != nil {
			return err
		}
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Println(res.Plate)
	return nil
}

func writeAnnotation(path string, img image.Image, box plate.Box, detections []plate.Detection) error {
	boxes, err := server.AnnotationBoxes(img.Bounds(), box, detections)
	if err != nil {
		return err
	}
	ann, err := imaging.Annotate(img, boxes)
	if err != nil {
		return err
	}
	data, err := base64.StdEncoding.DecodeString(ann.ImageBase64)
	if err != nil {
		return fmt.Errorf("failed to decode annotation: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write annotation: %w", err)
	}
	return nil
}
