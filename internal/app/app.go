package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marksync/internal/commands"
	"github.com/MrSnakeDoc/marksync/internal/config"
	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/httpserver"
	"github.com/MrSnakeDoc/marksync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/notify"
	"github.com/MrSnakeDoc/marksync/internal/redis"
	"github.com/MrSnakeDoc/marksync/internal/registry"
	"github.com/MrSnakeDoc/marksync/internal/scheduler"
	"github.com/MrSnakeDoc/marksync/internal/store"
	"github.com/MrSnakeDoc/marksync/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/marksync/internal/store/redis"
	"github.com/MrSnakeDoc/marksync/internal/syncer"
	"github.com/MrSnakeDoc/marksync/internal/version"
	"github.com/MrSnakeDoc/marksync/internal/webdav"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	store       *store.Store
	hub         *notify.Hub
	trigger     *scheduler.SyncTrigger
	startup     *scheduler.StartupCheck
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.NewWithFile(cfg.LogLevel, cfg.PrettyLog, logger.FileOptions{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	// Local store: Redis when configured, otherwise in memory
	var (
		redisClient *goredis.Client
		backend     store.Backend
		backendName = "memory"
	)
	if cfg.RedisAddr != "" {
		client, err := redis.Connect(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
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
		redisClient = client
		backend = redisstore.NewBackend(client)
		backendName = "redis"
	} else {
		loggerClient.Warn("MARKSYNC_REDIS_ADDR not set, local state is kept in memory and lost on restart")
		backend = memory.New()
	}
	st := store.New(backend)

	if err := seedRemoteConfig(context.Background(), st, cfg.RemoteSeed, loggerClient); err != nil {
		loggerClient.Errorf("Failed to seed remote config: %v", err)
		os.Exit(1)
	}

	dav := webdav.New(st, &http.Client{Timeout: cfg.RemoteTimeout}, loggerClient)

	regOpts := []registry.Option{}
	if cfg.DeviceName != "" {
		name := cfg.DeviceName
		regOpts = append(regOpts, registry.WithDeviceName(func() string { return name }))
	}
	reg := registry.New(st, dav, loggerClient,
		registry.Policy{SkipIfUnnamed: cfg.SkipAuthIfUnnamed}, regOpts...)

	hub := notify.NewHub(loggerClient, nil)
	engine := syncer.New(st, dav, reg, hub, loggerClient)

	syncTrigger := make(chan struct{}, 1)
	trigger := scheduler.NewSyncTrigger(engine, st, loggerClient, cfg.SyncIdlePoll, syncTrigger)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		SyncRateBurst:  cfg.SyncRateBurst,
		SyncRatePerMin: cfg.SyncRatePerMin,
		Commands:       commands.New(st, engine, reg, dav, loggerClient),
		Store:          st,
		Events:         hub,
		SyncTrigger:    syncTrigger,
		StoreBackend:   backendName,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		store:       st,
		hub:         hub,
		trigger:     trigger,
		startup:     scheduler.NewStartupCheck(st, loggerClient),
	}
}

// seedRemoteConfig stores seed unless a remote is already configured, so a
// config saved over the API survives restarts.
func seedRemoteConfig(ctx context.Context, st store.Local, seed *domain.RemoteConfig, log logger.Logger) error {
	if seed == nil {
		return nil
	}
	current, err := st.GetConfig(ctx)
	if err != nil {
		return err
	}
	if current.IsConfigured() {
		log.Info("remote config already stored, ignoring seed",
			logger.String("server_url", current.ServerURL))
		return nil
	}
	if err := st.SaveConfig(ctx, *seed); err != nil {
		return err
	}
	log.Info("remote config seeded", logger.String("server_url", seed.ServerURL))
	return nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting marksync v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.startup.Run(ctx); err != nil {
		return fmt.Errorf("failed to read local sync state: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// first sync runs before the loop starts; keep it off the startup path
	go a.trigger.Start(ctx)
	a.logger.Info("sync scheduler started")

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.trigger.Stop()
	a.hub.Close()

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

	_ = a.logger.Sync()
	a.logger.Info("✅ marksync stopped cleanly")
	return nil
}
