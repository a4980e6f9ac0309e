package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brainquest/learning-platform/internal/bootstrap"
	"github.com/brainquest/learning-platform/internal/config"
	"github.com/brainquest/learning-platform/internal/observability/logging"
	"github.com/brainquest/learning-platform/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	go serveMetrics(cfg.WorkerMetricsPort, workerMetrics)

	runTimeout := time.Duration(cfg.OCRTimeout) * time.Second

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeIngestionRequested(ctx, func(handlerCtx context.Context, resourceID string) error {
		runCtx, cancel := context.WithTimeout(handlerCtx, runTimeout)
		defer cancel()

		if res, lookupErr := app.QueryUC.GetByID(runCtx, resourceID); lookupErr == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(res.CreatedAt))
		}

		workerMetrics.StartRun()
		start := time.Now()
		runErr := app.IngestUC.ProcessByID(runCtx, resourceID)
		workerMetrics.FinishRun("worker", time.Since(start), runErr)
		return runErr
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func serveMetrics(port string, m *metrics.WorkerMetrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("worker_metrics_server_failed", "error", err)
	}
}
