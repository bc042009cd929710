// Package server wires the application's dependencies and runs the service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/socialpulse/content-engine/internal/api"
	"github.com/socialpulse/content-engine/internal/clock/system"
	"github.com/socialpulse/content-engine/internal/config"
	"github.com/socialpulse/content-engine/internal/content"
	"github.com/socialpulse/content-engine/internal/dispatcher"
	"github.com/socialpulse/content-engine/internal/id/uuid"
	"github.com/socialpulse/content-engine/internal/logging"
	"github.com/socialpulse/content-engine/internal/metrics"
	"github.com/socialpulse/content-engine/internal/normalize"
	memorypublisher "github.com/socialpulse/content-engine/internal/publisher/memory"
	gcppublisher "github.com/socialpulse/content-engine/internal/publisher/pubsub"
	queueMemory "github.com/socialpulse/content-engine/internal/queue/memory"
	"github.com/socialpulse/content-engine/internal/scrape"
	"github.com/socialpulse/content-engine/internal/scrape/apify"
	"github.com/socialpulse/content-engine/internal/scrape/unroll"
	gcsstorage "github.com/socialpulse/content-engine/internal/storage/gcs"
	localstorage "github.com/socialpulse/content-engine/internal/storage/local"
	memoryStorage "github.com/socialpulse/content-engine/internal/storage/memory"
	pgstore "github.com/socialpulse/content-engine/internal/storage/postgres"
	"github.com/socialpulse/content-engine/internal/worker"
)

// App holds the wired application dependencies.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	apiServer    *api.Server
	dispatch     *dispatcher.Dispatcher
	queue        *queueMemory.Queue
	pubsubClient *pubsub.Client
	gcsClient    *storage.Client
	pgTaskStore  *pgstore.TaskStore
}

// Build creates the application and all of its dependencies.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.File)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.Int("workers", cfg.Pipeline.Concurrency),
		zap.String("storage_backend", cfg.Storage.Backend))

	clock := system.New()

	taskStore, err := app.setupTaskStore(ctx, clock)
	if err != nil {
		return nil, err
	}
	blobStore, err := app.setupBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}

	apifyOpts := []apify.Option{
		apify.WithRateLimit(cfg.Apify.RequestsPerSecond, cfg.Apify.Burst),
	}
	if cfg.Apify.BaseURL != "" {
		apifyOpts = append(apifyOpts, apify.WithBaseURL(cfg.Apify.BaseURL))
	}
	client := apify.NewClient(cfg.Apify.Token, logger.Named("apify"), apifyOpts...)
	threads := unroll.New(logger.Named("unroll"))
	scraper := apify.NewScraper(client, threads, clock, logger.Named("scraper"))
	invoker := scrape.NewInvoker(scraper, cfg.ScrapeTimeout(), 0, logger.Named("invoker"))
	normalizer := normalize.New(logger.Named("normalize"))

	app.queue = queueMemory.NewQueue(cfg.Pipeline.QueueDepth)

	workerCfg := worker.Config{
		Topic:            cfg.PubSub.TopicName,
		BlobPrefix:       cfg.Storage.Prefix,
		SelectionTarget:  cfg.Pipeline.SelectionTarget,
		NormalizeTimeout: cfg.NormalizeTimeout(),
	}
	var workers []*worker.Worker
	for i := 0; i < cfg.Pipeline.Concurrency; i++ {
		workers = append(workers, worker.New(
			app.queue,
			taskStore,
			blobStore,
			publisher,
			invoker,
			normalizer,
			clock,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	app.dispatch = dispatcher.New(app.queue, workers)

	app.apiServer = api.NewServer(
		taskStore,
		app.dispatch,
		uuid.New(),
		clock,
		cfg,
		logger.Named("api"),
	)

	return app, nil
}

// Run starts the dispatcher and HTTP server, blocking until shutdown.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		a.logger.Info("dispatcher started")
		a.dispatch.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	return a.Close()
}

// Close releases infrastructure clients.
func (a *App) Close() error {
	a.queue.Close()
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pgTaskStore != nil {
		a.pgTaskStore.Close()
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) setupTaskStore(ctx context.Context, clock content.Clock) (content.TaskStore, error) {
	if a.cfg.DB.DSN == "" {
		a.logger.Info("using in-memory task store")
		return memoryStorage.NewTaskStore(clock), nil
	}
	store, err := pgstore.NewTaskStore(ctx, pgstore.TaskStoreConfig{
		DSN:      a.cfg.DB.DSN,
		Table:    a.cfg.DB.Table,
		MaxConns: a.cfg.DB.MaxConns,
		MinConns: a.cfg.DB.MinConns,
	}, clock)
	if err != nil {
		return nil, fmt.Errorf("postgres task store init failed: %w", err)
	}
	a.pgTaskStore = store
	a.logger.Info("postgres task store initialized", zap.String("table", a.cfg.DB.Table))
	return store, nil
}

func (a *App) setupBlobStore(ctx context.Context) (content.BlobStore, error) {
	switch a.cfg.Storage.Backend {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcsClient = client
		store, err := gcsstorage.New(client, gcsstorage.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.logger.Info("using GCS storage backend", zap.String("bucket", a.cfg.Storage.GCSBucket))
		return store, nil
	case "local":
		store, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Info("using local storage backend", zap.String("path", a.cfg.Storage.LocalDir))
		return store, nil
	default:
		a.logger.Info("using in-memory storage backend")
		return memoryStorage.NewBlobStore(), nil
	}
}

func (a *App) setupPublisher(ctx context.Context) (content.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Info("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName))
	return gcppublisher.New(client), nil
}
