package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"goal-image-service/internal/config"
	"goal-image-service/internal/events"
	"goal-image-service/internal/http/middleware"
	"goal-image-service/internal/http/server"
	"goal-image-service/internal/infra/cache"
	"goal-image-service/internal/infra/chrome"
	"goal-image-service/internal/infra/logging"
	"goal-image-service/internal/infra/postgres"
	"goal-image-service/internal/infra/storage"
	"goal-image-service/internal/jobs"
	"goal-image-service/internal/render"
	"goal-image-service/internal/service"
)

func main() {
	path, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseFlags returns the config path from --config, falling back to CONFIG_PATH.
func parseFlags(args []string) (string, error) {
	fs := flag.NewFlagSet("goal-image", flag.ContinueOnError)
	path := fs.StringP("config", "c", "", "path to the YAML config (default $CONFIG_PATH or config.yaml)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *path == "" {
		return config.Path(), nil
	}
	return *path, nil
}

func ensureLogDir(file string) error {
	if file == "" {
		return nil
	}
	dir := filepath.Dir(file)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func run(cfgPath string) error {
	cfg := config.LoadFrom(cfgPath)

	if err := ensureLogDir(cfg.Logger.File); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logging.Debug(fmt.Sprintf(format, args...))
	}))
	if err != nil {
		logging.Warn("Failed to set GOMAXPROCS", "error", err)
	}
	defer undo()

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}

	dsn, err := postgres.DSN(cfg.Postgres)
	if err != nil {
		return err
	}
	db := postgres.NewDB()
	defer db.Close()
	repo := postgres.NewImageRepository(db, dsn)
	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 5*time.Second)
	if err := repo.EnsureSchema(schemaCtx); err != nil {
		logging.Error("Failed to ensure images schema", "error", err)
	}
	cancelSchema()

	rdb := connectRedis(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	var opts []chrome.Option
	if cfg.Browser.HealthCheck {
		opts = append(opts, chrome.WithHealthCheck(chrome.TabProbe, 5*time.Second))
	}
	pool := chrome.NewPool(chrome.ExecLauncher{
		ChromePath:  cfg.Browser.ChromePath,
		UserDataDir: cfg.Browser.UserDataDir,
	}, cfg.Browser.PoolSize, opts...)
	gen := render.NewGenerator(pool, render.NewChromeRasterizer(cfg.Browser.LoadTimeout, cfg.Browser.SettleDelay), nil)
	defer func() {
		if err := gen.Cleanup(); err != nil {
			logging.Error("Browser pool cleanup failed", "error", err)
		}
	}()

	if cfg.Browser.WarmUp {
		warmCtx, cancelWarm := context.WithTimeout(context.Background(), time.Minute)
		if err := gen.Initialize(warmCtx); err != nil {
			logging.Error("Browser pool warm-up failed, will retry on first render", "error", err)
		}
		cancelWarm()
	}

	var imageCache service.ImageCache
	if rdb != nil && cfg.Cache.ImageCacheEnabled {
		imageCache = cache.NewImageCache(rdb, cfg.Cache.ImageCacheTTL)
	}
	svc := service.New(events.StaticSource{}, gen, imageCache, store, repo, service.Options{
		Width:       cfg.Image.Width,
		Height:      cfg.Image.Height,
		MaxPNGBytes: cfg.Image.MaxPNGBytes,
	})

	var (
		queue  jobs.Queue
		status jobs.StatusStore
	)
	if rdb != nil {
		queue = jobs.NewRedisQueue(rdb, cfg.Jobs.Stream, cfg.Jobs.Group)
		status = jobs.NewRedisStatusStore(rdb, cfg.Jobs.StatusTTL)
	} else {
		queue = jobs.NewMemoryQueue(0)
		status = jobs.NewMemoryStatusStore(cfg.Jobs.StatusTTL)
	}
	dispatcher := jobs.NewDispatcher(queue, status, svc, cfg.Jobs.Workers, 0)
	if err := dispatcher.Start(context.Background()); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	defer dispatcher.Stop()

	app := server.New(server.Deps{
		Config:  cfg,
		Images:  svc,
		Jobs:    dispatcher,
		Pool:    pool,
		Storage: middleware.NewRateLimitStorage(cfg),
	})

	idleConnsClosed := make(chan struct{})
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
	return nil
}

// connectRedis returns a client for the image cache DB, or nil when Redis is
// not configured or does not answer.
func connectRedis(cfg config.Config) *redis.Client {
	if cfg.Cache.RedisHost == "" {
		logging.Info("Redis not configured, using in-process queue and status store")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisHost,
		DB:   cfg.Cache.ImageCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logging.Error("Redis unreachable, using in-process queue and status store", "addr", cfg.Cache.RedisHost, "error", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// startServer starts the Fiber app and blocks until a shutdown signal arrives.
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigint)
	<-sigint

	logging.Warn("Shutdown signal received, closing server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}
