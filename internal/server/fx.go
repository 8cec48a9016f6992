// Package server provides the core application server and dependency injection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"domainscout/internal/api"
	gcsblob "domainscout/internal/blobstore/gcs"
	localblob "domainscout/internal/blobstore/local"
	memoryblob "domainscout/internal/blobstore/memory"
	"domainscout/internal/clock/system"
	"domainscout/internal/commoncrawl"
	"domainscout/internal/config"
	"domainscout/internal/dispatcher"
	"domainscout/internal/dork"
	"domainscout/internal/extract"
	"domainscout/internal/hash/sha256"
	"domainscout/internal/id/uuid"
	"domainscout/internal/logging"
	memorypublisher "domainscout/internal/publisher/memory"
	gcppublisher "domainscout/internal/publisher/pubsub"
	queueMemory "domainscout/internal/queue/memory"
	"domainscout/internal/runner"
	runstoreMemory "domainscout/internal/runstore/memory"
	fssink "domainscout/internal/sink/fs"
	memorysink "domainscout/internal/sink/memory"
	pgsink "domainscout/internal/sink/postgres"
	restsink "domainscout/internal/sink/rest"
	"domainscout/internal/sources"
	pgstore "domainscout/internal/storage/postgres"
	"domainscout/internal/store"
	"domainscout/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg             *config.Config
	logger          *zap.Logger
	apiServer       *api.Server
	dispatch        *dispatcher.Dispatcher
	queue           *queueMemory.Queue
	pubsubClient    *pubsub.Client
	pubsubPublisher *pubsub.Publisher
	storage         *storage.Client
	pgSink          *pgsink.Sink
	catalogRepo     store.CatalogRepository
	renderer        *dork.ChromedpRenderer
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	type sanitizedConfig struct {
		ServerPort     int    `json:"server_port"`
		CrawlID        string `json:"crawl_id"`
		SinkBackend    string `json:"sink_backend"`
		StorageBackend string `json:"storage_backend"`
	}
	safeCfg := sanitizedConfig{
		ServerPort:     cfg.Server.Port,
		CrawlID:        cfg.CommonCrawl.CrawlID,
		SinkBackend:    cfg.Sink.Backend,
		StorageBackend: cfg.Storage.Backend,
	}
	logger.Info("Creating application", zap.Any("config", safeCfg))
	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Run starts the application and blocks until the context is canceled.
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

	return a.Close(shutdownCtx)
}

// Close gracefully shuts down the application.
func (a *App) Close(_ context.Context) error {
	a.queue.Close()
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pgSink != nil {
		a.pgSink.Close()
	}
	if a.catalogRepo != nil {
		if pgRepo, ok := a.catalogRepo.(*pgstore.CatalogStore); ok {
			pgRepo.Close()
		}
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app init failed: %w", err)
	}

	app.logger.Info("building application dependencies")
	runStore := runstoreMemory.NewRunStore()

	blobStore, err := setupStorage(ctx, app)
	if err != nil {
		return nil, err
	}

	sink, err := setupSink(ctx, app)
	if err != nil {
		return nil, err
	}

	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		return nil, err
	}

	app.queue = queueMemory.NewQueue(cfg.Worker.QueueDepth)
	app.dispatch, err = setupDispatcher(app, runStore, sink, blobStore, publisher)
	if err != nil {
		return nil, err
	}

	app.apiServer = api.NewServer(
		runStore,
		app.dispatch,
		uuid.New(),
		system.New(),
		*cfg,
		logger.Named("api"),
	)
	if app.catalogRepo != nil {
		app.apiServer.MountCatalog(api.NewCatalogHandler(app.catalogRepo, logger.Named("catalog")))
		app.logger.Info("domain catalog endpoints mounted")
	}

	return app, nil
}

func setupStorage(ctx context.Context, app *App) (extract.BlobStore, error) {
	switch app.cfg.Storage.Backend {
	case "gcs":
		app.logger.Info("using GCS storage backend")
		var err error
		app.storage, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		blobStore, err := gcsblob.New(app.storage, gcsblob.Config{
			Bucket: app.cfg.Storage.GCSBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		app.logger.Debug("GCS storage backend", zap.String("bucket", app.cfg.Storage.GCSBucket))
		return blobStore, nil
	case "local":
		app.logger.Info("using local storage backend")
		blobStore, err := localblob.New(localblob.Config{BaseDir: app.cfg.Storage.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		app.logger.Debug("local storage backend", zap.String("path", app.cfg.Storage.BaseDir))
		return blobStore, nil
	default:
		app.logger.Info("using in-memory storage backend")
		return memoryblob.NewBlobStore(), nil
	}
}

func setupSink(ctx context.Context, app *App) (extract.Sink, error) {
	switch app.cfg.Sink.Backend {
	case "postgres":
		app.logger.Info("using postgres sink backend", zap.String("table", app.cfg.Sink.Table))
		sink, err := pgsink.New(ctx, pgsink.Config{
			DSN:   app.cfg.Sink.DSN,
			Table: app.cfg.Sink.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres sink init failed: %w", err)
		}
		app.pgSink = sink
		catalog, err := pgstore.NewCatalogStore(ctx, app.cfg.Sink.DSN)
		if err != nil {
			return nil, fmt.Errorf("catalog store init failed: %w", err)
		}
		app.catalogRepo = catalog
		return sink, nil
	case "rest":
		app.logger.Info("using REST sink backend", zap.String("base_url", app.cfg.Sink.RESTBaseURL))
		sink, err := restsink.New(restsink.Config{
			BaseURL: app.cfg.Sink.RESTBaseURL,
			APIKey:  app.cfg.Sink.RESTAPIKey,
			Table:   app.cfg.Sink.Table,
			Timeout: app.cfg.SinkTimeout(),
		}, app.logger.Named("sink"))
		if err != nil {
			return nil, fmt.Errorf("rest sink init failed: %w", err)
		}
		return sink, nil
	case "fs":
		app.logger.Info("using file sink backend", zap.String("path", app.cfg.Sink.FilePath))
		sink, err := fssink.New(app.cfg.Sink.FilePath)
		if err != nil {
			return nil, fmt.Errorf("file sink init failed: %w", err)
		}
		return sink, nil
	default:
		app.logger.Info("using in-memory sink backend")
		return memorysink.New(), nil
	}
}

func setupPublisher(ctx context.Context, app *App) (extract.Publisher, error) {
	if !app.cfg.PubSub.Enabled || app.cfg.PubSub.TopicName == "" || app.cfg.PubSub.ProjectID == "" {
		app.logger.Warn("No Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	var err error
	app.pubsubClient, err = pubsub.NewClient(ctx, app.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.pubsubPublisher = app.pubsubClient.Publisher(app.cfg.PubSub.TopicName)
	app.logger.Info(
		"Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return gcppublisher.New(app.pubsubPublisher), nil
}

func setupDispatcher(
	app *App,
	runStore extract.RunStore,
	sink extract.Sink,
	blobStore extract.BlobStore,
	publisher extract.Publisher,
) (*dispatcher.Dispatcher, error) {
	hasher := sha256.New()
	clock := system.New()

	ccClient := commoncrawl.NewClient(
		app.cfg.CommonCrawl.CrawlID,
		app.logger.Named("commoncrawl"),
		commoncrawlOptions(app.cfg)...,
	)

	var renderer dork.Renderer
	if app.cfg.Headless.Enabled {
		r, err := dork.NewChromedpRenderer(dork.RendererConfig{
			MaxParallel:       app.cfg.Headless.MaxParallel,
			NavigationTimeout: time.Duration(app.cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			app.logger.Warn("headless renderer init failed", zap.Error(err))
		} else {
			app.renderer = r
			renderer = r
			app.logger.Info("using headless renderer", zap.Int("max_parallel", app.cfg.Headless.MaxParallel))
		}
	}

	factory := sources.New(
		ccClient,
		app.cfg.CommonCrawl,
		app.cfg.Dork,
		renderer,
		app.logger.Named("sources"),
	)

	run := runner.New(runner.Config{
		SourceConcurrency: app.cfg.Worker.SourceConcurrency,
	}, app.logger.Named("runner"))

	workerCfg := worker.Config{
		BlobPrefix: app.cfg.Storage.Prefix,
		Topic:      app.cfg.Worker.Topic,
	}
	app.logger.Info("worker config",
		zap.String("blob_prefix", workerCfg.BlobPrefix),
		zap.String("topic", workerCfg.Topic),
		zap.Int("count", app.cfg.Worker.Count),
	)

	var workers []*worker.Worker
	for i := 0; i < app.cfg.Worker.Count; i++ {
		workers = append(workers, worker.New(
			app.queue,
			runStore,
			sink,
			blobStore,
			publisher,
			hasher,
			clock,
			factory,
			run,
			workerCfg,
			app.logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	return dispatcher.New(app.queue, workers), nil
}

func commoncrawlOptions(cfg *config.Config) []commoncrawl.Option {
	var opts []commoncrawl.Option
	if cfg.CommonCrawl.BaseURL != "" {
		opts = append(opts, commoncrawl.WithBaseURL(cfg.CommonCrawl.BaseURL))
	}
	return opts
}
