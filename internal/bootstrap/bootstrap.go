package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brainquest/learning-platform/internal/config"
	"github.com/brainquest/learning-platform/internal/core/ports"
	"github.com/brainquest/learning-platform/internal/core/usecase"
	"github.com/brainquest/learning-platform/internal/infrastructure/extractor"
	"github.com/brainquest/learning-platform/internal/infrastructure/extractor/imageocr"
	"github.com/brainquest/learning-platform/internal/infrastructure/extractor/pdftext"
	"github.com/brainquest/learning-platform/internal/infrastructure/extractor/plaintext"
	"github.com/brainquest/learning-platform/internal/infrastructure/fetcher"
	"github.com/brainquest/learning-platform/internal/infrastructure/quizgen/openai"
	natsqueue "github.com/brainquest/learning-platform/internal/infrastructure/queue/nats"
	"github.com/brainquest/learning-platform/internal/infrastructure/repository/postgres"
	"github.com/brainquest/learning-platform/internal/infrastructure/resilience"
	"github.com/brainquest/learning-platform/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue

	UploadUC ports.ResourceIngestor
	IngestUC ports.IngestionRunner
	QueryUC  ports.ResourceReader
	DeleteUC ports.ResourceRemover
	QuizUC   ports.QuizService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewResourceRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	quizRepo := postgres.NewQuizRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	textExtractor := buildExtractor(cfg)

	uploadUC := usecase.NewUploadResourceUseCase(repo, storage, queue)
	ingestUC := usecase.NewIngestResourceUseCase(repo, storage, textExtractor, queue)
	queryUC := usecase.NewResourceQueryUseCase(repo)
	deleteUC := usecase.NewDeleteResourceUseCase(repo, storage)

	generator := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	quizUC := usecase.NewGenerateQuizUseCase(repo, quizRepo, generator, usecase.QuizConfig{
		MaxAttempts:    cfg.QuizMaxAttempts,
		RetryBaseDelay: time.Duration(cfg.QuizRetryBaseDelay) * time.Millisecond,
		NumQuestions:   cfg.QuizNumQuestions,
	})

	return &App{
		Config: cfg,
		Queue:  queue,

		UploadUC: uploadUC,
		IngestUC: ingestUC,
		QueryUC:  queryUC,
		DeleteUC: deleteUC,
		QuizUC:   quizUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func buildExtractor(cfg config.Config) ports.TextExtractor {
	remote := fetcher.New(time.Duration(cfg.DownloadTimeout) * time.Second)

	image := imageocr.New(imageocr.Config{
		Binary:      cfg.TesseractBinary,
		Language:    cfg.TesseractLang,
		TessdataDir: cfg.TessdataDir,
		Confidence:  cfg.TesseractConfidence,
	}, func(percent int) {
		slog.Debug("ocr_progress", "percent", percent)
	})

	return extractor.NewRouter(remote, pdftext.New(), image, plaintext.New())
}
