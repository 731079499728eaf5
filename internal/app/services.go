package app

import (
	"fmt"
	"math/rand"
	"time"

	ideamod "github.com/yungbote/koreafit-backend/internal/modules/ideas"
	"github.com/yungbote/koreafit-backend/internal/modules/ideas/steps"
	"github.com/yungbote/koreafit-backend/internal/observability"
	"github.com/yungbote/koreafit-backend/internal/platform/logger"
	"github.com/yungbote/koreafit-backend/internal/services"
)

type Services struct {
	Usecases ideamod.Usecases
	Ideas    services.IdeaService
	Tokens   services.TokenService
	Cards    services.CardRenderer
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func wireUsecases(log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) ideamod.Usecases {
	return ideamod.New(ideamod.UsecasesDeps{
		Log:         log.With("module", "ideas"),
		Ideas:       reposet.Ideas,
		Trends:      steps.NewTrendSimulator(newRand(cfg.EnrichSeed), nil),
		Roadmaps:    steps.NewRoadmapGenerator(steps.DefaultRoadmapCatalog()),
		Locker:      clients.Locker,
		LockTTL:     cfg.LockTTL,
		Metrics:     metrics,
		Concurrency: cfg.EnrichConcurrency,
	})
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	uc := wireUsecases(log, cfg, reposet, clients, metrics)
	cards, err := services.NewCardRenderer(log, cfg.CardFontPath)
	if err != nil {
		return Services{}, fmt.Errorf("init card renderer: %w", err)
	}
	return Services{
		Usecases: uc,
		Ideas:    services.NewIdeaService(log, reposet.Ideas, uc, clients.Events, metrics, cfg.EnrichOnRead),
		Tokens:   services.NewTokenService(log, cfg.JWTSecretKey, cfg.TokenTTL),
		Cards:    cards,
	}, nil
}
