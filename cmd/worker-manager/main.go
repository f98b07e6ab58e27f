// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"recruit-workers/internal/common/camunda"
	"recruit-workers/internal/common/config"
	"recruit-workers/internal/common/database"
	"recruit-workers/internal/common/logger"
	"recruit-workers/internal/common/observability"
	"recruit-workers/internal/notify"
	"recruit-workers/internal/search"
	"recruit-workers/internal/staging"
	"recruit-workers/internal/store"
	"recruit-workers/pkg/registry"

	// Intake Workers (3)
	dd "recruit-workers/internal/workers/intake/detect-duplicates"
	pcu "recruit-workers/internal/workers/intake/parse-candidate-upload"
	rd "recruit-workers/internal/workers/intake/resolve-duplicates"

	// Campaign Workers (2)
	fc "recruit-workers/internal/workers/campaign/filter-candidates"
	lc "recruit-workers/internal/workers/campaign/launch-campaign"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func(context.Context) error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation(ctx)
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")
	defer bootLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output).
		With(zap.String("service", cfg.App.Name), zap.String("version", cfg.App.Version))
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if err := run(cfg, log); err != nil {
		zapLog.Fatal("worker manager failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	log.Info("Starting worker manager...", map[string]interface{}{"environment": cfg.App.Environment})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.App.Name, nil)
	if err != nil {
		return fmt.Errorf("observability init: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	// --- Zeebe (retries internally) ---
	zeebe, err := camunda.NewClientWithConfig(ctx, camunda.ConfigFromApp(cfg.Camunda))
	if err != nil {
		return fmt.Errorf("zeebe client: %w", err)
	}
	defer zeebe.Close()
	log.Info("Zeebe client connected successfully", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	// --- PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(ctx, func(ctx context.Context) error {
		var err error
		pg, err = database.NewPostgres(ctx, cfg.Database.Postgres)
		return err
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return err
	}
	defer pg.Close()
	log.Info("PostgreSQL connected successfully", nil)

	// --- Redis with retry ---
	rclient, err := connectRedis(ctx, cfg.Database.Redis, log)
	if err != nil {
		return err
	}
	defer rclient.Close()
	log.Info("Redis connected successfully", nil)

	candidates := store.NewPostgresStore(pg.DB, log)
	stage := staging.NewStore(rclient, cfg.Pipeline.StagingDuration(), log)

	// --- Optional collaborators ---
	var mirror rd.SearchMirror
	var esPing func(context.Context) error
	if cfg.Database.Elasticsearch.Enabled() {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
		if err != nil {
			return fmt.Errorf("elasticsearch client: %w", err)
		}
		if err := database.PingElasticsearch(ctx, es); err != nil {
			// the mirror is best effort; run without it
			log.Warn("Elasticsearch unavailable, search mirror disabled", map[string]interface{}{"error": err})
		} else {
			mirror = search.NewIndexer(es, cfg.Database.Elasticsearch.Index, log)
			esPing = func(ctx context.Context) error { return database.PingElasticsearch(ctx, es) }
			log.Info("Elasticsearch connected successfully", map[string]interface{}{"index": cfg.Database.Elasticsearch.Index})
		}
	}

	var publisher lc.EventPublisher
	if cfg.Notifications.SNS.Enabled {
		p, err := notify.NewSNSPublisher(ctx, cfg.Notifications.SNS.Region, cfg.Notifications.SNS.TopicARN, log)
		if err != nil {
			return fmt.Errorf("sns publisher: %w", err)
		}
		publisher = p
		log.Info("Campaign events enabled", map[string]interface{}{"topicArn": cfg.Notifications.SNS.TopicARN})
	}

	// --- Register Workers ---
	manager := camunda.NewManager(zeebe.GetClient(), log)
	defer manager.Close()

	manager.Start(pcu.TaskType, config.GetWorkerConfig(cfg, pcu.TaskType),
		pcu.NewHandler(pcu.ConfigFromApp(cfg), stage, obs, log).Handle)
	manager.Start(dd.TaskType, config.GetWorkerConfig(cfg, dd.TaskType),
		dd.NewHandler(dd.ConfigFromApp(cfg), stage, candidates, obs, log).Handle)
	manager.Start(rd.TaskType, config.GetWorkerConfig(cfg, rd.TaskType),
		rd.NewHandler(rd.HandlerOptions{
			Config: rd.ConfigFromApp(cfg),
			Stage:  stage,
			Store:  candidates,
			Mirror: mirror,
			Obs:    obs,
			Logger: log,
		}).Handle)
	manager.Start(fc.TaskType, config.GetWorkerConfig(cfg, fc.TaskType),
		fc.NewHandler(fc.ConfigFromApp(cfg), candidates, obs, log).Handle)
	manager.Start(lc.TaskType, config.GetWorkerConfig(cfg, lc.TaskType),
		lc.NewHandler(lc.ConfigFromApp(cfg), candidates, publisher, obs, log).Handle)

	running := manager.TaskTypes()
	log.Info("Workers registered", map[string]interface{}{"count": len(running), "taskTypes": running})
	checkRegistry(cfg.Registry.Path, running, log)

	// --- Health & Metrics Server ---
	checks := map[string]func(context.Context) error{
		"zeebe":    zeebe.HealthCheck,
		"postgres": pg.Ping,
		"redis":    func(ctx context.Context) error { return rclient.Ping(ctx).Err() },
	}
	if esPing != nil {
		checks["elasticsearch"] = esPing
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newHealthMux(running, checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err})
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("Shutdown signal received, stopping workers...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping health server", map[string]interface{}{"error": err})
	}

	log.Info("Worker manager stopped gracefully", nil)
	return nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log logger.Logger) (*redis.Client, error) {
	var rdb *redis.Client
	err := retryWithBackoff(ctx, func(ctx context.Context) error {
		var err error
		rdb, err = database.NewRedis(ctx, cfg)
		return err
	}, 10, 2*time.Second, log, "Redis connection")
	return rdb, err
}

func checkRegistry(path string, running []string, log logger.Logger) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		log.Warn("Activity registry not loaded", map[string]interface{}{"path": path, "error": err})
		return
	}
	if err := reg.Validate(); err != nil {
		log.Warn("Activity registry invalid", map[string]interface{}{"path": path, "error": err})
		return
	}
	if drift := reg.CheckTaskTypes(running); !drift.Empty() {
		log.Warn("Activity registry drift", map[string]interface{}{
			"unregistered": drift.Unregistered,
			"missing":      drift.Missing,
		})
	}
}
