package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"insurance-backoffice/internal/api"
	"insurance-backoffice/internal/common/aws"
	"insurance-backoffice/internal/common/config"
	"insurance-backoffice/internal/common/database"
	commonhttp "insurance-backoffice/internal/common/http"
	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/common/observability"
	"insurance-backoffice/internal/documents/folder"
	completestep "insurance-backoffice/internal/handlers/agent/complete-step"
	getapplication "insurance-backoffice/internal/handlers/agent/get-application"
	listapplications "insurance-backoffice/internal/handlers/agent/list-applications"
	reviewdecision "insurance-backoffice/internal/handlers/agent/review-decision"
	rollbackstep "insurance-backoffice/internal/handlers/agent/rollback-step"
	syncapplication "insurance-backoffice/internal/handlers/agent/sync-application"
	createclaimapplication "insurance-backoffice/internal/handlers/claims/create-claim-application"
	updateclaimdocuments "insurance-backoffice/internal/handlers/claims/update-claim-documents"
	deletedocument "insurance-backoffice/internal/handlers/documents/delete-document"
	listcategories "insurance-backoffice/internal/handlers/documents/list-categories"
	uploaddocument "insurance-backoffice/internal/handlers/documents/upload-document"
	"insurance-backoffice/internal/notify"
	"insurance-backoffice/internal/storage/docstore"
	"insurance-backoffice/internal/storage/objectstore"
	"insurance-backoffice/pkg/registry"

	"go.uber.org/zap"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting insurance API...", zap.String("environment", cfg.App.Environment))

	obs := observability.New("insurance-api")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	if err := pg.Migrate(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Claim document store ---
	var docs docstore.Store = docstore.Unconfigured{}
	if cfg.Database.Elasticsearch.Enabled() {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping()
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("claim document store unavailable, claim intake updates disabled", zap.Error(err))
		} else {
			index := cfg.Database.Elasticsearch.ClaimsIndex
			if err := es.EnsureIndex(ctx, index); err != nil {
				zapLog.Warn("failed to ensure claims index", zap.String("index", index), zap.Error(err))
			}
			docs = docstore.NewElasticsearch(es.Client, index, config.GetDuration(cfg.Database.Elasticsearch.Timeout))
			zapLog.Info("Elasticsearch connected successfully", zap.String("index", index))
		}
	} else {
		zapLog.Warn("no document store configured, claim intake updates disabled")
	}

	// --- Notification queue ---
	var queue notify.Queue = notify.NewMemoryQueue(256)
	if cfg.Database.Redis.Address != "" {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, notifications queued in memory", zap.Error(err))
		} else {
			defer rdb.Close()
			queue = notify.NewRedisQueue(rdb.Client, cfg.Database.Redis.QueueKey)
			zapLog.Info("Redis connected successfully", zap.String("queueKey", cfg.Database.Redis.QueueKey))
		}
	}

	// --- Object store ---
	storageTimeout := config.GetDuration(cfg.Storage.Timeout)
	store, uploadsDir := buildObjectStore(ctx, cfg, storageTimeout, zapLog)

	var extraHosts []string
	if u, err := url.Parse(cfg.Storage.S3.Endpoint); err == nil && u.Host != "" {
		extraHosts = append(extraHosts, u.Host)
	}
	introspector := folder.NewIntrospector(log, extraHosts...)

	// --- Category registry ---
	reg, err := loadRegistry(cfg.Categories.Path)
	if err != nil {
		zapLog.Fatal("category registry failed to load", zap.Error(err))
	}
	zapLog.Info("Category registry loaded", zap.String("version", reg.Version()))

	// --- Notification dispatcher ---
	dispatcher := notify.NewDispatcher(queue, log, notify.DispatcherOptions{
		MaxAttempts:    cfg.Agents.MaxAttempts,
		InitialBackoff: config.GetDuration(cfg.Agents.InitialBackoff),
	})
	agentSender := notify.NewAgentSender(commonhttp.NewClient(config.GetDuration(cfg.Agents.Timeout)))
	dispatcher.Register(notify.KindAgentApprove, agentSender)
	dispatcher.Register(notify.KindAgentResume, agentSender)

	if cfg.Notifications.SNS.Enabled {
		region := cfg.Notifications.SNS.Region
		if region == "" {
			region = cfg.Storage.S3.Region
		}
		snsClient, err := aws.NewSNSClient(ctx, region)
		if err != nil {
			zapLog.Warn("sns client failed, claim status events disabled", zap.Error(err))
		} else {
			dispatcher.Register(notify.KindClaimStatus, notify.NewClaimStatusSender(snsClient, cfg.Notifications.SNS.TopicARN))
			zapLog.Info("Claim status events enabled", zap.String("topic", cfg.Notifications.SNS.TopicARN))
		}
	}

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Run(ctx, cfg.Agents.DispatchWorkers)
	}()

	// --- Handlers ---
	db := pg.GetDB()
	agentTimeout := config.GetDuration(cfg.Agents.Timeout)
	handlers := api.Handlers{
		Sync: syncapplication.NewHandler(syncapplication.LoadConfig(), db, dispatcher, log),
		Get:  getapplication.NewHandler(getapplication.LoadConfig(), db, docs, log),
		List: listapplications.NewHandler(listapplications.LoadConfig(), db, log),
		Review: reviewdecision.NewHandler(
			reviewdecision.LoadConfig(cfg.Agents.PolicyURL, cfg.Agents.ClaimURL, agentTimeout),
			db, dispatcher, log,
		),
		CompleteStep: completestep.NewHandler(
			completestep.LoadConfig(cfg.Agents.PolicyURL, cfg.Agents.ClaimURL, config.GetDuration(cfg.Agents.ResumeTimeout)),
			db, dispatcher, log,
		),
		RollbackStep: rollbackstep.NewHandler(rollbackstep.LoadConfig(), db, log),
		Upload: uploaddocument.NewHandler(
			uploaddocument.LoadConfig(cfg.Server.MaxUploadBytes, storageTimeout),
			db, store, log,
		),
		Delete:     deletedocument.NewHandler(deletedocument.LoadConfig(storageTimeout), db, store, introspector, log),
		Categories: listcategories.NewHandler(listcategories.LoadConfig(), reg, log),
		CreateClaim: createclaimapplication.NewHandler(
			createclaimapplication.LoadConfig(config.GetDuration(cfg.Database.Elasticsearch.Timeout)),
			docs, db, log,
		),
		ClaimDocuments: updateclaimdocuments.NewHandler(
			updateclaimdocuments.LoadConfig(config.GetDuration(cfg.Database.Elasticsearch.Timeout)),
			docs, reg, introspector, log,
		),
	}

	server := api.NewServer(handlers, obs, log, api.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		MaxSyncBytes:   cfg.Server.MaxSyncBytes,
		UploadsDir:     uploadsDir,
		Ready:          pg.Ping,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	select {
	case <-dispatchDone:
	case <-shutdownCtx.Done():
		zapLog.Warn("notification dispatcher did not stop in time")
	}

	zapLog.Info("Insurance API stopped gracefully")
}

// buildObjectStore returns the configured store and, for the local variant,
// the directory to serve under /uploads/.
func buildObjectStore(ctx context.Context, cfg *config.Config, timeout time.Duration, zapLog *zap.Logger) (objectstore.Store, string) {
	if !cfg.Storage.S3.Enabled {
		local := objectstore.NewLocal(cfg.Storage.LocalDir, cfg.Server.PublicBaseURL)
		if err := local.EnsureContainer(ctx); err != nil {
			zapLog.Warn("local upload directory unavailable, uploads disabled", zap.Error(err))
			return objectstore.NewUnconfigured(), ""
		}
		zapLog.Info("Storing documents locally", zap.String("dir", local.Root()))
		return local, local.Root()
	}

	client, err := aws.NewS3Client(ctx, aws.S3Options{
		Region:          cfg.Storage.S3.Region,
		Endpoint:        cfg.Storage.S3.Endpoint,
		AccessKeyID:     cfg.Storage.S3.AccessKeyID,
		SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
	})
	if err != nil {
		zapLog.Warn("s3 client failed, uploads disabled", zap.Error(err))
		return objectstore.NewUnconfigured(), ""
	}

	store := objectstore.NewS3(client, objectstore.S3Config{
		Bucket:   cfg.Storage.S3.Bucket,
		Region:   cfg.Storage.S3.Region,
		Endpoint: cfg.Storage.S3.Endpoint,
		Timeout:  timeout,
	})
	err = retryWithBackoff(func() error {
		return store.EnsureContainer(ctx)
	}, 5, 2*time.Second, zapLog, "S3 bucket check")
	if err != nil {
		zapLog.Warn("s3 bucket unavailable, uploads disabled", zap.Error(err))
		return objectstore.NewUnconfigured(), ""
	}
	zapLog.Info("Storing documents in S3", zap.String("bucket", cfg.Storage.S3.Bucket))
	return store, ""
}

func loadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.Default()
	}
	return registry.LoadRegistry(path)
}
