// Command plate-worker runs queued plate reads, stores them in PostgreSQL and
// announces them on Redis.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/plate-tools-mcp/internal/config"
	"github.com/ironsheep/plate-tools-mcp/internal/logging"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
	"github.com/ironsheep/plate-tools-mcp/internal/queue"
	"github.com/ironsheep/plate-tools-mcp/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info(".env not found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	if err := cfg.ValidateWorker(); err != nil {
		logrus.WithError(err).Fatal("invalid worker configuration")
	}

	log := logging.New("plate-worker", cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"queue":       cfg.QueueName,
		"concurrency": cfg.Concurrency,
		"events":      cfg.EventsChannel,
	}).Info("plate worker starting")

	store, err := storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer store.Close()

	if err := store.EnsureSchema(context.Background()); err != nil {
		log.WithError(err).Fatal("failed to prepare schema")
	}

	publisher, err := queue.NewPublisher(cfg.RedisURL, cfg.EventsChannel)
	if err != nil {
		log.WithError(err).Fatal("failed to connect publisher")
	}
	defer publisher.Close()

	p, err := pipeline.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build plate reader")
	}
	defer p.Close()

	handler, err := queue.NewHandler(queue.HandlerConfig{
		Reader:    p.Reader,
		Predictor: p.Predictor,
		Store:     store,
		Publisher: publisher,
		Log:       log,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create task handler")
	}

	srv, err := queue.NewServer(queue.ServerConfig{
		RedisURL:    cfg.RedisURL,
		QueueName:   cfg.QueueName,
		Concurrency: cfg.Concurrency,
		Log:         log,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create queue server")
	}

	if err := srv.Start(queue.NewServeMux(handler)); err != nil {
		log.WithError(err).Fatal("failed to start queue server")
	}
	log.Info("waiting for plate tasks")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.WithField("signal", sig.String()).Info("shutting down")

	srv.Shutdown()
	log.Info("shutdown complete")
}
