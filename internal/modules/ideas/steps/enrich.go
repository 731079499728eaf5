package steps

import (
	"fmt"
	"runtime/debug"

	idearepo "github.com/yungbote/koreafit-backend/internal/data/repos/ideas"
	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
	"github.com/yungbote/koreafit-backend/internal/platform/dbctx"
	"github.com/yungbote/koreafit-backend/internal/platform/logger"
)

type Stage string

const (
	StageKoreaFit Stage = "koreafit"
	StageTrend    Stage = "trend"
	StageRoadmap  Stage = "roadmap"
	StagePersist  Stage = "persist"
)

// EnrichError reports which enrichment stage failed. Callers are expected to
// log it and keep serving the stored record.
type EnrichError struct {
	Stage  Stage
	IdeaID string
	Err    error
}

func (e *EnrichError) Error() string {
	return fmt.Sprintf("enrich idea %s: %s: %v", e.IdeaID, e.Stage, e.Err)
}

func (e *EnrichError) Unwrap() error { return e.Err }

type EnrichDeps struct {
	Log      *logger.Logger
	Ideas    idearepo.IdeaStore
	Trends   *TrendSimulator
	Roadmaps *RoadmapGenerator
}

type EnrichInput struct {
	// Idea is the snapshot to enrich. When nil it is loaded by IdeaID.
	Idea   *types.Idea
	IdeaID string
	// Force recomputes enrichment that is already present.
	Force bool
}

type EnrichOutput struct {
	// Idea is the enriched record, or the stored record when enrichment was
	// skipped or failed.
	Idea     *types.Idea `json:"idea"`
	Enriched bool        `json:"enriched"`
	Skipped  bool        `json:"skipped"`
}

// Enrich scores the idea, simulates its trend, builds its roadmap and
// persists all three. Already-enriched ideas are returned untouched unless
// Force is set. An unknown id yields a nil Idea and no error.
func Enrich(dbc dbctx.Context, deps EnrichDeps, in EnrichInput) (EnrichOutput, error) {
	out := EnrichOutput{}
	if deps.Ideas == nil || deps.Trends == nil || deps.Roadmaps == nil {
		return out, fmt.Errorf("enrich: missing deps")
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	idea := in.Idea
	if idea == nil {
		if in.IdeaID == "" {
			return out, fmt.Errorf("enrich: missing idea_id")
		}
		got, err := deps.Ideas.Get(dbc, in.IdeaID)
		if err != nil {
			return out, &EnrichError{Stage: StagePersist, IdeaID: in.IdeaID, Err: err}
		}
		if got == nil {
			return out, nil
		}
		idea = got
	}
	out.Idea = idea

	if idea.IsEnriched() && !in.Force {
		out.Skipped = true
		return out, nil
	}

	snapshot := idea.Clone()
	var (
		fit     KoreaFitResult
		trend   types.TrendData
		roadmap []types.ExecutionStep
	)
	if err := runStage(StageKoreaFit, idea.ID, func() { fit = ScoreKoreaFit(snapshot) }); err != nil {
		return out, err
	}
	if err := runStage(StageTrend, idea.ID, func() { trend = deps.Trends.Trend(snapshot) }); err != nil {
		return out, err
	}
	if err := runStage(StageRoadmap, idea.ID, func() { roadmap = deps.Roadmaps.Generate(snapshot) }); err != nil {
		return out, err
	}

	patch := types.IdeaPatch{
		KoreaFit:                &fit.Score,
		KoreaFitFactors:         &fit.Factors,
		KoreaFitRecommendations: &fit.Recommendations,
		TrendData:               &trend,
		ExecutionRoadmap:        &roadmap,
	}
	updated, err := deps.Ideas.Update(dbc, idea.ID, patch)
	if err != nil {
		return out, &EnrichError{Stage: StagePersist, IdeaID: idea.ID, Err: err}
	}
	if updated == nil {
		return out, &EnrichError{Stage: StagePersist, IdeaID: idea.ID, Err: fmt.Errorf("idea disappeared before write")}
	}

	log.Debug("Idea enriched",
		"idea_id", idea.ID,
		"korea_fit", fit.Score,
		"trend_score", trend.TrendScore,
		"roadmap_steps", len(roadmap),
		"forced", in.Force,
	)
	out.Idea = updated
	out.Enriched = true
	return out, nil
}

func runStage(stage Stage, ideaID string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &EnrichError{
				Stage:  stage,
				IdeaID: ideaID,
				Err:    fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()
	fn()
	return nil
}
