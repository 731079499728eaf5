package app

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/koreafit-backend/internal/clients/redis"
	"github.com/yungbote/koreafit-backend/internal/http"
	ideamod "github.com/yungbote/koreafit-backend/internal/modules/ideas"
	"github.com/yungbote/koreafit-backend/internal/observability"
	"github.com/yungbote/koreafit-backend/internal/platform/logger"
)

// Core is everything below the HTTP layer. ideactl uses it directly.
type Core struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services

	otelShutdown func(context.Context) error
}

func NewCore(ctx context.Context) (*Core, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewCoreWithConfig(ctx, cfg)
}

func NewCoreWithConfig(ctx context.Context, cfg Config) (*Core, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.OtelServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    cfg.OtelInsecure,
		Headers:     observability.ParseHeaders(cfg.OtelHeaders),
		SampleRatio: cfg.OtelSampleRatio,
	})
	metrics := observability.Init(log, cfg.MetricsEnabled)

	theDB, err := openDB(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(log, cfg, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}

	return &Core{
		Log:          log,
		Cfg:          cfg,
		DB:           theDB,
		Metrics:      metrics,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		otelShutdown: shutdown,
	}, nil
}

func (c *Core) Close() {
	if c == nil {
		return
	}
	c.Clients.Close()
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if c.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = c.otelShutdown(ctx)
		cancel()
	}
	if c.Log != nil {
		c.Log.Sync()
	}
}

type App struct {
	*Core
	Server *http.Server
	cancel context.CancelFunc
}

func New() (*App, error) {
	core, err := NewCore(context.Background())
	if err != nil {
		return nil, err
	}
	handlerset := wireHandlers(core.Log, core.Services, core.DB, core.Clients)
	middleware := wireMiddleware(core.Log, core.Cfg, core.Services)
	server := wireRouter(core.Log, core.Cfg, core.Metrics, handlerset, middleware)
	return &App{Core: core, Server: server}, nil
}

// Start imports the seed catalog into an empty store and starts the
// background collectors.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Cfg.SeedOnStart {
		out, err := a.Services.Usecases.Seed(ctx, ideamod.SeedInput{OnlyIfEmpty: true})
		if err != nil {
			return fmt.Errorf("seed on start: %w", err)
		}
		if !out.Skipped {
			a.Log.Info("Seeded empty store", "processed", out.Processed)
		}
	}

	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		if a.DB != nil {
			a.Metrics.StartDBCollector(ctx, a.Log, a.DB, 15*time.Second)
		}
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis, 15*time.Second)
		}
	}

	// Other replicas' writes show up in this replica's log.
	if a.Clients.Redis != nil {
		eventLog := a.Log.With("component", "IdeaEventForwarder")
		if err := a.Clients.Events.StartForwarder(ctx, func(evt redis.IdeaEvent) {
			eventLog.Debug("Idea event", "type", evt.Type, "idea_id", evt.IdeaID)
		}); err != nil {
			a.Log.Warn("Idea event forwarder failed to start", "error", err)
		}
	}
	return nil
}

func (a *App) Run(addr string) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	if addr == "" {
		addr = a.Cfg.ServerAddr
	}
	a.Log.Info("HTTP server listening", "addr", addr, "db_driver", a.Cfg.DBDriver)
	return a.Server.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = a.Server.Shutdown(ctx)
		cancel()
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Core.Close()
}
