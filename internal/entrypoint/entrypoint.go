package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/shelfsync/internal/config"
	"github.com/openshelf/shelfsync/internal/covers"
	"github.com/openshelf/shelfsync/internal/credstore"
	"github.com/openshelf/shelfsync/internal/crypto"
	"github.com/openshelf/shelfsync/internal/database"
	"github.com/openshelf/shelfsync/internal/database/books"
	syncdb "github.com/openshelf/shelfsync/internal/database/sync"
	"github.com/openshelf/shelfsync/internal/entities"
	"github.com/openshelf/shelfsync/internal/exporter"
	http_controllers "github.com/openshelf/shelfsync/internal/http"
	"github.com/openshelf/shelfsync/internal/importer"
	"github.com/openshelf/shelfsync/internal/remote"
	"github.com/openshelf/shelfsync/internal/scheduler"
	"github.com/openshelf/shelfsync/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for SIGINT or SIGTERM, then drain within the configured timeout.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop the task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting ShelfSync v%s", version)

	if cfg.Remote.ConsumerKey == "" || cfg.Remote.ConsumerSecret == "" {
		log.Printf("WARNING: Remote consumer credentials are not set. Set 'REMOTE_CONSUMER_KEY' and 'REMOTE_CONSUMER_SECRET' to enable synchronization.")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Token encryption key, generated on first run
	key, err := crypto.LoadOrCreateKey(cfg.Database.EncryptionKey)
	if err != nil {
		log.Fatalf("Failed to load encryption key: %v", err)
	}
	encryptor, err := crypto.NewEncryptorFromBase64(key)
	if err != nil {
		log.Fatalf("Failed to initialize encryptor: %v", err)
	}

	store := credstore.New(db.DB, encryptor)

	client := remote.NewClient(remote.Config{
		BaseURL:         cfg.Remote.BaseURL,
		ConsumerKey:     cfg.Remote.ConsumerKey,
		ConsumerSecret:  cfg.Remote.ConsumerSecret,
		CallbackURL:     cfg.Remote.CallbackURL,
		RequestInterval: cfg.Remote.RequestInterval,
	}, store)

	bookRepo := books.NewRepository(db.DB)
	importCheckpoints := syncdb.NewRepository(db.DB, entities.SyncTypeReviewImport)
	exportCheckpoints := syncdb.NewRepository(db.DB, entities.SyncTypeBookExport)

	// Cover cache for locally storing book cover images
	coverCache, err := covers.NewCache(cfg.Covers.Dir)
	if err != nil {
		log.Printf("WARNING: Failed to initialize cover cache: %v", err)
	} else {
		log.Printf("Cover cache initialized at %s", cfg.Covers.Dir)
	}

	reconciler := importer.NewReconciler(client, bookRepo, importCheckpoints, store)
	if coverCache != nil {
		reconciler.SetCoverFetcher(coverCache)
	}

	engine := exporter.NewEngine(client, bookRepo, exportCheckpoints)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var syncScheduler *scheduler.SyncScheduler
	var imports http_controllers.ImportEnqueuer
	var exports http_controllers.ExportEnqueuer
	var schedule http_controllers.ScheduleInfo

	if cfg.Tasks.Enabled {
		taskCfg := tasks.DefaultConfig()
		if cfg.Tasks.Workers > 0 {
			taskCfg.Workers = cfg.Tasks.Workers
		}
		if cfg.Tasks.ReleaseAfter > 0 {
			taskCfg.ReleaseAfter = cfg.Tasks.ReleaseAfter
		}
		if cfg.Tasks.CleanupInterval > 0 {
			taskCfg.CleanupInterval = cfg.Tasks.CleanupInterval
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		// A completed import chains into an export run through the queue
		reconciler.SetExportTrigger(tasks.NewExportEnqueuer(taskClient))

		taskClient.Register(
			tasks.NewImportReviewsQueue(reconciler),
			tasks.NewExportBooksQueue(engine),
		)

		// Start task workers in background
		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		enqueuer := tasks.NewSyncEnqueuer(taskClient)
		imports = enqueuer
		exports = tasks.NewExportEnqueuer(taskClient)

		syncScheduler = scheduler.NewSyncScheduler(store, client, enqueuer)
		syncScheduler.SetFallbacks(cfg.Sync.Enabled, cfg.Sync.Schedule)
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Printf("WARNING: Failed to start sync scheduler: %v", err)
		}
		schedule = syncScheduler
	} else {
		log.Printf("Task queue disabled. Sync and export endpoints will be unavailable.")
	}

	routerCfg := http_controllers.RouterConfig{
		DB:                db,
		Version:           version,
		Auth:              http_controllers.NewAuthController(client),
		ImportCheckpoints: importCheckpoints,
		ExportCheckpoints: exportCheckpoints,
		Imports:           imports,
		Exports:           exports,
		Scheduler:         schedule,
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		if syncScheduler != nil {
			syncScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
