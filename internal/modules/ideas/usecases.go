package ideas

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/koreafit-backend/internal/clients/redis"
	idearepo "github.com/yungbote/koreafit-backend/internal/data/repos/ideas"
	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
	"github.com/yungbote/koreafit-backend/internal/modules/ideas/steps"
	"github.com/yungbote/koreafit-backend/internal/observability"
	"github.com/yungbote/koreafit-backend/internal/platform/dbctx"
	"github.com/yungbote/koreafit-backend/internal/platform/logger"
)

const (
	OutcomeEnriched = "enriched"
	OutcomeSkipped  = "skipped"
	OutcomeLocked   = "locked"
	OutcomeAbsent   = "absent"
	OutcomeFailed   = "failed"

	defaultLockTTL = 30 * time.Second
)

type UsecasesDeps struct {
	Log *logger.Logger

	Ideas    idearepo.IdeaStore
	Trends   *steps.TrendSimulator
	Roadmaps *steps.RoadmapGenerator

	// Optional: cross-replica enrichment lock.
	Locker  redis.Locker
	LockTTL time.Duration

	// Optional.
	Metrics *observability.Metrics

	Concurrency int
}

type Usecases struct {
	deps   UsecasesDeps
	flight *singleflight.Group
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Roadmaps == nil {
		deps.Roadmaps = steps.NewRoadmapGenerator(nil)
	}
	if deps.Trends == nil {
		deps.Trends = steps.NewTrendSimulator(nil, nil)
	}
	if deps.LockTTL <= 0 {
		deps.LockTTL = defaultLockTTL
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = 1
	}
	return Usecases{deps: deps, flight: &singleflight.Group{}}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type (
	EnrichInput  = steps.EnrichInput
	EnrichOutput = steps.EnrichOutput
	EnrichError  = steps.EnrichError
)

// Enrich runs the enrichment step for one idea. Concurrent calls for the
// same id in this process share one computation; with a Locker configured a
// replica that loses the lock returns the stored record instead.
func (u Usecases) Enrich(ctx context.Context, in EnrichInput) (EnrichOutput, error) {
	id := in.IdeaID
	if id == "" && in.Idea != nil {
		id = in.Idea.ID
		in.IdeaID = id
	}
	if id == "" {
		return EnrichOutput{}, fmt.Errorf("enrich: missing idea_id")
	}

	ctx, span := otel.Tracer("koreafit/ideas").Start(ctx, "ideas.enrich")
	defer span.End()
	span.SetAttributes(attribute.String("idea.id", id), attribute.Bool("enrich.force", in.Force))

	start := time.Now()
	key := id
	if in.Force {
		key += "|force"
	}
	v, err, shared := u.flight.Do(key, func() (interface{}, error) {
		return u.enrichLocked(ctx, in)
	})
	out, _ := v.(steps.EnrichOutput)
	if out.Idea != nil && shared {
		out.Idea = out.Idea.Clone()
	}

	outcome := outcomeOf(out, err)
	u.deps.Metrics.ObserveEnrich(outcome, time.Since(start))
	span.SetAttributes(attribute.String("enrich.outcome", outcome), attribute.Bool("enrich.shared", shared))
	if errors.Is(err, errLocked) {
		return out, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func (u Usecases) enrichLocked(ctx context.Context, in EnrichInput) (steps.EnrichOutput, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if u.deps.Locker != nil {
		release, ok, err := u.deps.Locker.TryLock(ctx, redis.EnrichLockKey(in.IdeaID), u.deps.LockTTL)
		switch {
		case err != nil:
			u.deps.Log.Warn("enrich lock unavailable, continuing unlocked", "idea_id", in.IdeaID, "error", err)
		case !ok:
			got, getErr := u.deps.Ideas.Get(dbc, in.IdeaID)
			if getErr != nil {
				return steps.EnrichOutput{}, &steps.EnrichError{Stage: steps.StagePersist, IdeaID: in.IdeaID, Err: getErr}
			}
			return steps.EnrichOutput{Idea: got, Skipped: true}, errLocked
		default:
			defer func() {
				// The request context may already be gone.
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = release(releaseCtx)
			}()
		}
	}
	return steps.Enrich(dbc, steps.EnrichDeps{
		Log:      u.deps.Log,
		Ideas:    u.deps.Ideas,
		Trends:   u.deps.Trends,
		Roadmaps: u.deps.Roadmaps,
	}, in)
}

// errLocked marks a lost lock race so it can be counted; Enrich returns the
// stored record with a nil error in that case.
var errLocked = errors.New("enrichment in progress on another replica")

func outcomeOf(out steps.EnrichOutput, err error) string {
	switch {
	case errors.Is(err, errLocked):
		return OutcomeLocked
	case err != nil:
		return OutcomeFailed
	case out.Idea == nil:
		return OutcomeAbsent
	case out.Skipped:
		return OutcomeSkipped
	default:
		return OutcomeEnriched
	}
}

type EnrichAllInput struct {
	// IDs limits the run; empty means every stored idea, hidden ones included.
	IDs    []string
	Force  bool
	DryRun bool
}

type EnrichFailure struct {
	IdeaID string `json:"idea_id"`
	Stage  string `json:"stage,omitempty"`
	Error  string `json:"error"`
}

type EnrichAllOutput struct {
	Total    int             `json:"total"`
	Enriched int             `json:"enriched"`
	Skipped  int             `json:"skipped"`
	Missing  int             `json:"missing"`
	Pending  []string        `json:"pending,omitempty"`
	Failures []EnrichFailure `json:"failures,omitempty"`
}

// EnrichAll backfills enrichment with at most Concurrency ideas in flight.
// A failing idea is recorded and does not stop the others.
func (u Usecases) EnrichAll(ctx context.Context, in EnrichAllInput) (EnrichAllOutput, error) {
	out := EnrichAllOutput{}
	dbc := dbctx.Context{Ctx: ctx}

	ids := in.IDs
	if len(ids) == 0 {
		rows, err := u.deps.Ideas.ListAll(dbc)
		if err != nil {
			return out, fmt.Errorf("list ideas: %w", err)
		}
		for _, r := range rows {
			ids = append(ids, r.ID)
		}
	}
	out.Total = len(ids)

	if in.DryRun {
		for _, id := range ids {
			idea, err := u.deps.Ideas.Get(dbc, id)
			if err != nil {
				return out, fmt.Errorf("get idea %s: %w", id, err)
			}
			switch {
			case idea == nil:
				out.Missing++
			case idea.IsEnriched() && !in.Force:
				out.Skipped++
			default:
				out.Pending = append(out.Pending, id)
			}
		}
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.deps.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := u.Enrich(gctx, EnrichInput{IdeaID: id, Force: in.Force})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				f := EnrichFailure{IdeaID: id, Error: err.Error()}
				var ee *steps.EnrichError
				if errors.As(err, &ee) {
					f.Stage = string(ee.Stage)
				}
				out.Failures = append(out.Failures, f)
				u.deps.Log.Error("Backfill enrichment failed", "idea_id", id, "stage", f.Stage, "error", err)
			case res.Idea == nil:
				out.Missing++
			case res.Skipped:
				out.Skipped++
			default:
				out.Enriched++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	u.deps.Log.Info("Backfill finished",
		"total", out.Total,
		"enriched", out.Enriched,
		"skipped", out.Skipped,
		"missing", out.Missing,
		"failed", len(out.Failures),
	)
	return out, nil
}

// Preview scores an unsaved idea without touching the store.
func (u Usecases) Preview(idea *types.Idea) steps.KoreaFitResult {
	return steps.ScoreKoreaFit(idea)
}
