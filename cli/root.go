// Package cli provides ashfoxd's command tree and the full wiring between the
// gateway's packages: persistence backend selection, the Tool Service/Proxy Router/
// MCP Router stack, the Worker pool, and graceful HTTP lifecycle management.
//
// Architecture overview:
//
//	ashfoxd serve   → config → pipeline backend → toolservice → proxyrouter → mcprouter → Echo
//	ashfoxd worker  → config → pipeline backend → toolservice → worker.Pool
//	ashfoxd migrate → config → pipeline backend's schema bootstrap only
//
// Unlike the teacher's Viper-bound RootCmd, configuration here has no file tier: every
// setting is an ASHFOX_* environment variable read by config.Load (spec.md §6).
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ashfox/gateway/common"
	"github.com/ashfox/gateway/config"
	"github.com/ashfox/gateway/mcprouter"
	"github.com/ashfox/gateway/mcpsession"
	"github.com/ashfox/gateway/pipeline"
	"github.com/ashfox/gateway/pipeline/boltstore"
	"github.com/ashfox/gateway/pipeline/memstore"
	"github.com/ashfox/gateway/pipeline/pgstore"
	"github.com/ashfox/gateway/pipeline/redislock"
	"github.com/ashfox/gateway/proxyrouter"
	"github.com/ashfox/gateway/schema"
	"github.com/ashfox/gateway/snapshot"
	"github.com/ashfox/gateway/toolservice"
	"github.com/ashfox/gateway/tracelog"
	"github.com/ashfox/gateway/tracing"
	"github.com/ashfox/gateway/worker"
)

// RootCmd is ashfoxd's entry point command.
var RootCmd = &cobra.Command{
	Use:   "ashfoxd",
	Short: "Ashfox is an MCP/JSON-RPC gateway in front of a 3D-model-editor tool surface",
	Long: `ashfoxd

A JSON-RPC-over-HTTP/SSE gateway implementing the Model Context Protocol for a
3D-model-editor tool surface: project/bone/cube/texture/animation mutation tools, a
revision-guarded tool service, compound proxy pipelines, and a persistent job pipeline.

Configuration is entirely environment-variable driven (ASHFOX_*); there is no config
file tier. Run "ashfoxd serve" to start the gateway, "ashfoxd worker" to run a
standalone job-processing pool, or "ashfoxd migrate" to bootstrap the selected
persistence backend's schema.`,
}

func init() {
	RootCmd.AddCommand(serveCmd, workerCmd, migrateCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the MCP gateway's HTTP/SSE server",
	Run:   runServe,
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "run a standalone worker pool against the persistent pipeline",
	Run:   runWorker,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "bootstrap the selected persistence backend's schema",
	Run:   runMigrate,
}

// configureLogger applies cfg's log level/format to the shared logger (spec.md §6's
// ASHFOX_LOG_LEVEL/ASHFOX_LOG_FORMAT), matching the teacher's logrus-based ambient
// logging convention.
func configureLogger(cfg config.GatewayConfig) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	common.Logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		common.Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		common.Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// loadConfig reads and validates GatewayConfig, exiting the process on failure. Every
// subcommand starts from this same entry point (spec.md §6's configuration contract is
// shared across serve/worker/migrate).
func loadConfig() config.GatewayConfig {
	cfg := config.Load()
	if err := config.Check(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	configureLogger(cfg)
	common.Logger.WithFields(logrus.Fields{
		"dbProvider":  cfg.DBProvider,
		"postgresDsn": common.MaskSecret(cfg.PostgresDSN),
		"redisUrl":    common.MaskSecret(cfg.RedisURL),
	}).Info("configuration loaded")
	return cfg
}

// openRepository selects and opens the pipeline.ProjectRepository/Locker pair named by
// cfg.NativePipelineBackend/cfg.DBProvider (spec.md §6). The returned closer, if
// non-nil, should be deferred by the caller.
func openRepository(cfg config.GatewayConfig) (pipeline.ProjectRepository, pipeline.Locker, io.Closer, error) {
	if cfg.NativePipelineBackend == config.PipelineBackendMemory {
		return memstore.NewRepository(), memstore.NewLocker(), nil, nil
	}

	switch cfg.DBProvider {
	case config.DBProviderPostgres:
		repo, err := pgstore.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening postgres backend: %w", err)
		}
		locker := pipeline.NewDocumentLocker(repo).WithRetryInterval(cfg.LockRetryInterval)
		return repo, locker, nil, nil

	case config.DBProviderRedis:
		client, err := redislock.Open(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening redis backend: %w", err)
		}
		// Redis provides the lock and cross-process fan-out but not document storage:
		// pair it with the bolt repository for persistence, per SPEC_FULL.md's backend
		// matrix (ASHFOX_DB_PROVIDER=redis selects the lock/pub-sub role only).
		db, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("opening bolt repository for redis backend: %w", err)
		}
		closer := closerFunc(func() error {
			return errors.Join(db.Close(), client.Close())
		})
		return boltstore.NewRepository(db), client, closer, nil

	default: // config.DBProviderBolt
		db, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening bolt backend: %w", err)
		}
		repo := boltstore.NewRepository(db)
		locker := pipeline.NewDocumentLocker(repo).WithRetryInterval(cfg.LockRetryInterval)
		return repo, locker, db, nil
	}
}

// redisPublisher opens a redislock.Client purely for mcpsession.Store's cross-process
// SSE fan-out, independent of which repository backend is selected for documents.
func redisPublisher(cfg config.GatewayConfig) (mcpsession.Publisher, io.Closer, error) {
	if cfg.RedisURL == "" {
		return nil, nil, nil
	}
	client, err := redislock.Open(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("opening redis publisher: %w", err)
	}
	return client, client, nil
}

func buildToolservicePolicy() toolservice.Policy {
	return toolservice.Policy{
		RequireRevision:         false,
		AutoAttachActiveProject: true,
		MergePolicy:             snapshot.PolicyHybrid,
	}
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	logger := common.Logger.WithField("cmd", "serve")

	repo, locker, closer, err := openRepository(cfg)
	if err != nil {
		logger.Fatalf("failed to open pipeline backend: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	publisher, pubCloser, err := redisPublisher(cfg)
	if err != nil {
		logger.Fatalf("failed to open redis publisher: %v", err)
	}
	if pubCloser != nil {
		defer pubCloser.Close()
	}

	store := pipeline.New(repo, locker).WithLockTiming(cfg.LockTTL, cfg.LockAcquireTimeout)

	svc := toolservice.New(nil, buildToolservicePolicy(), schema.Registry())
	proxy := proxyrouter.New(svc)
	sessions := mcpsession.New(cfg.SessionIdleTTL, publisher)

	rt := mcprouter.New(svc, proxy, sessions, cfg.SSEKeepalive)
	rt.WithLogger(logger)

	metrics := tracing.NewMetrics(cfg.MetricsNamespace)
	rt.WithMetrics(metrics)

	if cfg.TraceLogPath != "" {
		tl, err := tracelog.Open(cfg.TraceLogPath, "")
		if err != nil {
			logger.Fatalf("failed to open trace log: %v", err)
		}
		defer tl.Close()
		rt.WithTraceLog(tl)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	rt.RegisterRoutes(e, cfg.MCPPath)
	tracing.RegisterMetricsEndpoint(e, "/metrics")

	// The worker pool shares the same Store and a live *toolservice.Service as its
	// Backend, so jobs submitted through tools/call are visible to both halves of the
	// same process without a second connection to the persistence backend.
	pool := worker.New(store, svc, worker.PreflightConstraints{}, workerCount())
	pool.WithLogger(logger)
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	pool.Start(workerCtx)
	defer func() {
		pool.Stop()
		cancelWorkers()
	}()

	go func() {
		logger.Infof("ashfoxd listening on :%d (mcp path %s)", cfg.Port, cfg.MCPPath)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatalf("shutdown error: %v", err)
	}
}

func runWorker(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	logger := common.Logger.WithField("cmd", "worker")

	repo, locker, closer, err := openRepository(cfg)
	if err != nil {
		logger.Fatalf("failed to open pipeline backend: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	store := pipeline.New(repo, locker).WithLockTiming(cfg.LockTTL, cfg.LockAcquireTimeout)
	svc := toolservice.New(nil, buildToolservicePolicy(), schema.Registry())

	pool := worker.New(store, svc, worker.PreflightConstraints{}, workerCount())
	pool.WithLogger(logger)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	logger.Infof("worker pool started (%d workers)", workerCount())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("stopping workers")
	pool.Stop()
	cancel()
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	logger := common.Logger.WithField("cmd", "migrate")

	if cfg.NativePipelineBackend == config.PipelineBackendMemory {
		logger.Info("ASHFOX_NATIVE_PIPELINE_BACKEND=memory has no schema to migrate")
		return
	}

	switch cfg.DBProvider {
	case config.DBProviderPostgres:
		if _, err := pgstore.Open(cfg.PostgresDSN); err != nil {
			logger.Fatalf("postgres migration failed: %v", err)
		}
		logger.Info("postgres schema migrated")
	case config.DBProviderRedis, config.DBProviderBolt:
		db, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			logger.Fatalf("bolt bucket creation failed: %v", err)
		}
		_ = db.Close()
		logger.Infof("bolt store ready at %s", cfg.BoltPath)
	default:
		logger.Fatalf("unknown db provider %q", cfg.DBProvider)
	}
}

// workerCount is fixed at 2: spec.md doesn't specify pool sizing, and the pipeline's
// single global mutation lock makes additional workers contend rather than add
// throughput beyond a small constant.
func workerCount() int { return 2 }

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
