package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/TarouTanakaYokohama/tabbin/internal/category"
	"github.com/TarouTanakaYokohama/tabbin/internal/config"
	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver"
	"github.com/TarouTanakaYokohama/tabbin/internal/httpserver/deps"
	"github.com/TarouTanakaYokohama/tabbin/internal/kv"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
	"github.com/TarouTanakaYokohama/tabbin/internal/migrate"
	"github.com/TarouTanakaYokohama/tabbin/internal/redis"
	"github.com/TarouTanakaYokohama/tabbin/internal/scheduler"
	"github.com/TarouTanakaYokohama/tabbin/internal/sources/keywords"
	"github.com/TarouTanakaYokohama/tabbin/internal/store"
	"github.com/TarouTanakaYokohama/tabbin/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	migrator    *migrate.Engine
	gc          *scheduler.GarbageCollector
	sweeper     *scheduler.ExpirationSweeper
	reloader    *scheduler.KeywordsReloader
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	// Document database on top of Redis
	db := kv.NewDB(kv.NewRedisStore(redisClient, loggerClient), loggerClient)

	// Stores
	urls := store.NewURLStore(db, loggerClient)
	groups := store.NewGroupStore(db, urls, loggerClient)
	projects := store.NewProjectStore(db, urls, loggerClient)
	settings := store.NewSettingsStore(db, loggerClient)
	groups.Settings = settings

	categories := category.NewService(db, groups, urls, loggerClient)
	migrator := migrate.NewEngine(db, urls, groups, projects, loggerClient)
	maintenance := store.NewMaintenance(db, groups, projects, urls, loggerClient)

	// Optional seed keyword rules from keywords.yaml
	var pack *keywords.Pack
	var reloader *scheduler.KeywordsReloader
	if cfg.KeywordsFile != "" {
		loggerClient.Info("keyword rules file configured",
			logger.String("file", cfg.KeywordsFile))
		pack = keywords.NewPack()
		reloader = scheduler.NewKeywordsReloader(cfg.KeywordsFile, pack, loggerClient, cfg.ReloadInterval)
		groups.DefaultRules = pack.RulesFor
	} else {
		loggerClient.Info("keyword rules file not configured, new groups start without seed rules")
	}

	gcTrigger := make(chan struct{}, 1)
	gc := scheduler.NewGarbageCollector(maintenance, loggerClient, cfg.GCInterval, gcTrigger)
	sweeper := scheduler.NewExpirationSweeper(db, maintenance, loggerClient, cfg.SweepInterval)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		RedisClient:  redisClient,
		URLs:         urls,
		Groups:       groups,
		Projects:     projects,
		Settings:     settings,
		Categories:   categories,
		Migrator:     migrator,
		GCTrigger:    gcTrigger,
		KeywordPack:  pack,
		KeywordsFile: cfg.KeywordsFile,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		migrator:    migrator,
		gc:          gc,
		sweeper:     sweeper,
		reloader:    reloader,
	}
}

func (a *App) Run() error {
	defer func() { _ = a.logger.Sync() }()

	a.logger.Infof("🚀 Starting tabbin v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("tabbin %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One-time legacy migration before anything serves reads.
	if err := a.migrator.Run(ctx); err != nil {
		return fmt.Errorf("legacy migration failed: %w", err)
	}

	// Start keyword pack reloader (if enabled)
	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start keywords reloader: %w", err)
		}
		a.logger.Info("keywords reloader started",
			logger.Duration("interval", a.cfg.ReloadInterval))
	}

	// Start garbage collector
	if err := a.gc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start garbage collector: %w", err)
	}
	a.logger.Info("garbage collector started",
		logger.Duration("interval", a.cfg.GCInterval))

	// Start expiration sweeper
	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start expiration sweeper: %w", err)
	}
	a.logger.Info("expiration sweeper started",
		logger.Duration("interval", a.cfg.SweepInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	if a.reloader != nil {
		a.reloader.Stop()
	}
	a.gc.Stop()
	a.sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ tabbin stopped cleanly")
	return nil
}
