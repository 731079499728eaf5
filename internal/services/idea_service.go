package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/koreafit-backend/internal/clients/redis"
	idearepo "github.com/yungbote/koreafit-backend/internal/data/repos/ideas"
	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
	ideamod "github.com/yungbote/koreafit-backend/internal/modules/ideas"
	"github.com/yungbote/koreafit-backend/internal/modules/ideas/steps"
	"github.com/yungbote/koreafit-backend/internal/observability"
	"github.com/yungbote/koreafit-backend/internal/platform/apierr"
	"github.com/yungbote/koreafit-backend/internal/platform/dbctx"
	"github.com/yungbote/koreafit-backend/internal/platform/logger"
)

const (
	SortRecent   = "recent"
	SortKoreaFit = "korea_fit"
	SortVotes    = "votes"

	VoteUp   = "up"
	VoteDown = "down"

	DefaultListLimit = 50
	MaxListLimit     = 200
)

type ListFilter struct {
	Sector string
	Tag    string
	Sort   string
	Limit  int
}

// EnrichStatus is reported next to an idea on read and enrich endpoints.
type EnrichStatus struct {
	Enriched bool   `json:"enriched"`
	Skipped  bool   `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

type IdeaService interface {
	List(ctx context.Context, filter ListFilter) ([]*types.Idea, error)
	// Get returns the stored record, hidden ideas included.
	Get(ctx context.Context, id string) (*types.Idea, error)
	// GetEnriched is the public read: hidden ideas are not found and missing
	// enrichment is computed once when lazy enrichment is on.
	GetEnriched(ctx context.Context, id string) (*types.Idea, EnrichStatus, error)
	Create(ctx context.Context, idea *types.Idea) (*types.Idea, error)
	Update(ctx context.Context, id string, patch types.IdeaPatch) (*types.Idea, error)
	UpsertBulk(ctx context.Context, rows []*types.Idea) (int, error)
	Enrich(ctx context.Context, id string, force bool) (*types.Idea, EnrichStatus, error)
	SetVisible(ctx context.Context, id string, visible bool) (*types.Idea, error)
	Vote(ctx context.Context, id, direction string) (*types.Idea, error)
	ScorePreview(ctx context.Context, idea *types.Idea) (steps.KoreaFitResult, error)
}

type ideaService struct {
	log          *logger.Logger
	ideas        idearepo.IdeaStore
	usecases     ideamod.Usecases
	events       redis.IdeaEventBus
	metrics      *observability.Metrics
	enrichOnRead bool
}

func NewIdeaService(
	log *logger.Logger,
	ideas idearepo.IdeaStore,
	usecases ideamod.Usecases,
	events redis.IdeaEventBus,
	metrics *observability.Metrics,
	enrichOnRead bool,
) IdeaService {
	serviceLog := log.With("service", "IdeaService")
	if events == nil {
		events = redis.NopEventBus()
	}
	return &ideaService{
		log:          serviceLog,
		ideas:        ideas,
		usecases:     usecases.WithLog(serviceLog),
		events:       events,
		metrics:      metrics,
		enrichOnRead: enrichOnRead,
	}
}

func (s *ideaService) List(ctx context.Context, filter ListFilter) ([]*types.Idea, error) {
	sortKey := strings.TrimSpace(filter.Sort)
	switch sortKey {
	case "", SortRecent, SortKoreaFit, SortVotes:
	default:
		return nil, apierr.BadRequest("invalid_sort", fmt.Errorf("unknown sort %q", sortKey))
	}
	rows, err := s.ideas.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "list_ideas_failed", err)
	}
	rows = filterIdeas(rows, filter)
	sortIdeas(rows, sortKey)

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func filterIdeas(rows []*types.Idea, filter ListFilter) []*types.Idea {
	sector := strings.ToLower(strings.TrimSpace(filter.Sector))
	tag := strings.ToLower(strings.TrimSpace(filter.Tag))
	if sector == "" && tag == "" {
		return rows
	}
	out := rows[:0:0]
	for _, r := range rows {
		if sector != "" && strings.ToLower(r.Sector) != sector {
			continue
		}
		if tag != "" && !hasTag(r, tag) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func hasTag(idea *types.Idea, tag string) bool {
	for _, t := range idea.Tags {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}

// sortIdeas keeps store order for ties, and for "recent".
func sortIdeas(rows []*types.Idea, key string) {
	switch key {
	case SortKoreaFit:
		sort.SliceStable(rows, func(i, j int) bool {
			return koreaFitOf(rows[i]) > koreaFitOf(rows[j])
		})
	case SortVotes:
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].VotesUp-rows[i].VotesDown > rows[j].VotesUp-rows[j].VotesDown
		})
	}
}

// Unscored ideas sort last.
func koreaFitOf(idea *types.Idea) float64 {
	if idea.KoreaFit == nil {
		return -1
	}
	return *idea.KoreaFit
}

func (s *ideaService) Get(ctx context.Context, id string) (*types.Idea, error) {
	idea, err := s.ideas.Get(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "get_idea_failed", err)
	}
	if idea == nil {
		return nil, apierr.NotFound("idea_not_found")
	}
	return idea, nil
}

func (s *ideaService) GetEnriched(ctx context.Context, id string) (*types.Idea, EnrichStatus, error) {
	idea, err := s.Get(ctx, id)
	if err != nil {
		return nil, EnrichStatus{}, err
	}
	if !idea.Visible {
		return nil, EnrichStatus{}, apierr.NotFound("idea_not_found")
	}
	if !s.enrichOnRead || idea.IsEnriched() {
		return idea, EnrichStatus{Enriched: idea.IsEnriched(), Skipped: true}, nil
	}
	return s.enrich(ctx, idea, false)
}

func (s *ideaService) Enrich(ctx context.Context, id string, force bool) (*types.Idea, EnrichStatus, error) {
	idea, err := s.Get(ctx, id)
	if err != nil {
		return nil, EnrichStatus{}, err
	}
	return s.enrich(ctx, idea, force)
}

// enrich never fails the read: an enrichment error is logged and reported
// in the status while the stored record is returned.
func (s *ideaService) enrich(ctx context.Context, stored *types.Idea, force bool) (*types.Idea, EnrichStatus, error) {
	out, err := s.usecases.Enrich(ctx, ideamod.EnrichInput{IdeaID: stored.ID, Force: force})
	if err != nil {
		stage := ""
		var ee *steps.EnrichError
		if errors.As(err, &ee) {
			stage = string(ee.Stage)
		}
		s.log.Error("Enrichment failed, serving stored record", "idea_id", stored.ID, "stage", stage, "error", err)
		return stored, EnrichStatus{Enriched: stored.IsEnriched(), Error: err.Error()}, nil
	}
	if out.Idea == nil {
		// Removed between the read and the enrichment.
		return nil, EnrichStatus{}, apierr.NotFound("idea_not_found")
	}
	if out.Enriched {
		s.publish(ctx, redis.EventIdeaEnriched, out.Idea.ID, map[string]any{"forced": force})
	}
	return out.Idea, EnrichStatus{Enriched: out.Idea.IsEnriched(), Skipped: out.Skipped}, nil
}

func (s *ideaService) Create(ctx context.Context, idea *types.Idea) (*types.Idea, error) {
	if idea == nil {
		return nil, apierr.BadRequest("invalid_idea", types.ErrInvalidIdea)
	}
	in := idea.Clone()
	// Votes only move through Vote.
	in.VotesUp, in.VotesDown = 0, 0
	types.Normalize(in)
	if err := types.Validate(in); err != nil {
		return nil, apierr.BadRequest("invalid_idea", err)
	}
	created, err := s.ideas.Create(dbctx.Context{Ctx: ctx}, in)
	switch {
	case errors.Is(err, types.ErrIDConflict):
		return nil, apierr.New(http.StatusConflict, "idea_id_conflict", err)
	case err != nil:
		return nil, apierr.New(http.StatusInternalServerError, "create_idea_failed", err)
	}
	s.publish(ctx, redis.EventIdeaCreated, created.ID, nil)
	return created, nil
}

func (s *ideaService) Update(ctx context.Context, id string, patch types.IdeaPatch) (*types.Idea, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apierr.BadRequest("invalid_idea", types.ErrInvalidIdea)
	}
	updated, err := s.ideas.Update(dbctx.Context{Ctx: ctx}, id, patch)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "update_idea_failed", err)
	}
	if updated == nil {
		return nil, apierr.NotFound("idea_not_found")
	}
	s.publish(ctx, redis.EventIdeaUpdated, updated.ID, nil)
	return updated, nil
}

func (s *ideaService) UpsertBulk(ctx context.Context, rows []*types.Idea) (int, error) {
	for i, r := range rows {
		if r == nil {
			return 0, apierr.BadRequest("invalid_idea", fmt.Errorf("row %d: %w", i, types.ErrInvalidIdea))
		}
	}
	// Rows matching a stored id are merges; the store validates the rows it inserts.
	n, err := s.ideas.UpsertBulk(dbctx.Context{Ctx: ctx}, rows)
	switch {
	case errors.Is(err, types.ErrInvalidIdea):
		return 0, apierr.BadRequest("invalid_idea", err)
	case err != nil:
		return 0, apierr.New(http.StatusInternalServerError, "upsert_ideas_failed", err)
	}
	s.log.Info("Bulk upsert", "processed", n)
	return n, nil
}

func (s *ideaService) SetVisible(ctx context.Context, id string, visible bool) (*types.Idea, error) {
	updated, err := s.ideas.Update(dbctx.Context{Ctx: ctx}, id, types.IdeaPatch{Visible: &visible})
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "update_idea_failed", err)
	}
	if updated == nil {
		return nil, apierr.NotFound("idea_not_found")
	}
	evt := redis.EventIdeaHidden
	if visible {
		evt = redis.EventIdeaShown
	}
	s.publish(ctx, evt, updated.ID, nil)
	return updated, nil
}

func (s *ideaService) Vote(ctx context.Context, id, direction string) (*types.Idea, error) {
	up, down := 0, 0
	switch direction {
	case VoteUp:
		up = 1
	case VoteDown:
		down = 1
	default:
		return nil, apierr.BadRequest("invalid_vote_direction", fmt.Errorf("direction must be %q or %q", VoteUp, VoteDown))
	}
	dbc := dbctx.Context{Ctx: ctx}
	// Hidden ideas do not take votes.
	cur, err := s.ideas.Get(dbc, id)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "get_idea_failed", err)
	}
	if cur == nil || !cur.Visible {
		return nil, apierr.NotFound("idea_not_found")
	}
	updated, err := s.ideas.AdjustVotes(dbc, id, up, down)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "vote_failed", err)
	}
	if updated == nil {
		return nil, apierr.NotFound("idea_not_found")
	}
	s.metrics.IncVote(direction)
	s.publish(ctx, redis.EventIdeaVoted, updated.ID, map[string]any{
		"direction": direction,
		"votesUp":   updated.VotesUp,
		"votesDown": updated.VotesDown,
	})
	return updated, nil
}

func (s *ideaService) ScorePreview(ctx context.Context, idea *types.Idea) (steps.KoreaFitResult, error) {
	if idea == nil {
		return steps.KoreaFitResult{}, apierr.BadRequest("invalid_idea", types.ErrInvalidIdea)
	}
	return s.usecases.Preview(idea), nil
}

// publish is best effort; a broken event bus never fails the write.
func (s *ideaService) publish(ctx context.Context, eventType, ideaID string, data map[string]any) {
	err := s.events.Publish(ctx, redis.IdeaEvent{
		Type:   eventType,
		IdeaID: ideaID,
		At:     time.Now().UTC(),
		Data:   data,
	})
	s.metrics.IncEvent(eventType, err == nil)
	if err != nil {
		s.log.Warn("Publish idea event failed", "type", eventType, "idea_id", ideaID, "error", err)
	}
}
