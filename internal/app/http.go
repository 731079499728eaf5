package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/koreafit-backend/internal/http"
	httpH "github.com/yungbote/koreafit-backend/internal/http/handlers"
	httpMW "github.com/yungbote/koreafit-backend/internal/http/middleware"
	"github.com/yungbote/koreafit-backend/internal/observability"
	"github.com/yungbote/koreafit-backend/internal/platform/logger"
)

type Middleware struct {
	Auth        *httpMW.AuthMiddleware
	VoteLimiter *httpMW.RateLimiter
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Idea     *httpH.IdeaHandler
	KoreaFit *httpH.KoreaFitHandler
}

func wireHandlers(log *logger.Logger, services Services, theDB *gorm.DB, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	checks := map[string]func(ctx context.Context) error{}
	if theDB != nil {
		checks["db"] = func(ctx context.Context) error {
			sqlDB, err := theDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return clients.Redis.Ping(ctx).Err()
		}
	}
	return Handlers{
		Health: httpH.NewHealthHandler(checks),
		Idea: httpH.NewIdeaHandlerWithDeps(httpH.IdeaHandlerDeps{
			Log:   log,
			Ideas: services.Ideas,
			Cards: services.Cards,
		}),
		KoreaFit: httpH.NewKoreaFitHandler(services.Ideas),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:        httpMW.NewAuthMiddleware(log, services.Tokens),
		VoteLimiter: httpMW.NewRateLimiter(cfg.VotesPerMinute, cfg.VotesBurst),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	traceName := ""
	if cfg.OtelEnabled {
		traceName = cfg.OtelServiceName
	}
	return http.NewServer(http.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		CORSOrigins:      cfg.CORSOrigins,
		TraceServiceName: traceName,
		AuthMiddleware:   middleware.Auth,
		VoteLimiter:      middleware.VoteLimiter,
		HealthHandler:    handlers.Health,
		IdeaHandler:      handlers.Idea,
		KoreaFitHandler:  handlers.KoreaFit,
	})
}
