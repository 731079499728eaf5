package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/koreafit-backend/internal/http/handlers"
	httpMW "github.com/yungbote/koreafit-backend/internal/http/middleware"
	"github.com/yungbote/koreafit-backend/internal/observability"
	"github.com/yungbote/koreafit-backend/internal/platform/logger"
	"github.com/yungbote/koreafit-backend/internal/services"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	CORSOrigins []string
	// TraceServiceName enables otelgin spans when set.
	TraceServiceName string

	AuthMiddleware *httpMW.AuthMiddleware
	VoteLimiter    *httpMW.RateLimiter

	HealthHandler   *httpH.HealthHandler
	IdeaHandler     *httpH.IdeaHandler
	KoreaFitHandler *httpH.KoreaFitHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TraceServiceName != "" {
		r.Use(otelgin.Middleware(cfg.TraceServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.IdeaHandler != nil {
			api.GET("/ideas", cfg.IdeaHandler.List)
			api.GET("/ideas/:id", cfg.IdeaHandler.Get)
			api.GET("/ideas/:id/card.png", cfg.IdeaHandler.Card)

			vote := []gin.HandlerFunc{}
			if cfg.VoteLimiter != nil {
				vote = append(vote, cfg.VoteLimiter.Middleware())
			}
			vote = append(vote, cfg.IdeaHandler.Vote)
			api.POST("/ideas/:id/vote", vote...)
		}
		if cfg.KoreaFitHandler != nil {
			api.POST("/korea-fit/score", cfg.KoreaFitHandler.Score)
		}
	}

	// Admin writes are only mounted with an auth middleware.
	if cfg.AuthMiddleware != nil && cfg.IdeaHandler != nil {
		admin := api.Group("/admin")
		admin.Use(cfg.AuthMiddleware.RequireRole(services.RoleAdmin))
		{
			admin.POST("/ideas", cfg.IdeaHandler.Create)
			admin.POST("/ideas/bulk", cfg.IdeaHandler.UpsertBulk)
			admin.PATCH("/ideas/:id", cfg.IdeaHandler.Update)
			admin.POST("/ideas/:id/enrich", cfg.IdeaHandler.Enrich)
			admin.POST("/ideas/:id/hide", cfg.IdeaHandler.Hide)
			admin.POST("/ideas/:id/show", cfg.IdeaHandler.Show)
		}
	}

	return r
}
