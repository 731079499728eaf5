package services

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"testing"

	"github.com/yungbote/koreafit-backend/internal/clients/redis"
	idearepo "github.com/yungbote/koreafit-backend/internal/data/repos/ideas"
	"github.com/yungbote/koreafit-backend/internal/data/repos/testutil"
	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
	ideamod "github.com/yungbote/koreafit-backend/internal/modules/ideas"
	"github.com/yungbote/koreafit-backend/internal/modules/ideas/steps"
	"github.com/yungbote/koreafit-backend/internal/observability"
	"github.com/yungbote/koreafit-backend/internal/platform/apierr"
	"github.com/yungbote/koreafit-backend/internal/platform/dbctx"
)

type recordingBus struct {
	mu     sync.Mutex
	events []redis.IdeaEvent
	err    error
}

func (b *recordingBus) Publish(_ context.Context, evt redis.IdeaEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt)
	return b.err
}

func (b *recordingBus) StartForwarder(context.Context, func(redis.IdeaEvent)) error { return nil }
func (b *recordingBus) Close() error                                             { return nil }

func (b *recordingBus) eventTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

// brokenUpdateStore refuses every Update so enrichment fails at persist.
type brokenUpdateStore struct {
	idearepo.IdeaStore
}

func (s brokenUpdateStore) Update(dbctx.Context, string, types.IdeaPatch) (*types.Idea, error) {
	return nil, errors.New("disk full")
}

type serviceFixture struct {
	svc     IdeaService
	store   idearepo.IdeaStore
	bus     *recordingBus
	metrics *observability.Metrics
}

func newServiceFixture(t *testing.T, store idearepo.IdeaStore, enrichOnRead bool) serviceFixture {
	t.Helper()
	log := testutil.Logger(t)
	if store == nil {
		store = idearepo.NewMemoryStore(log)
	}
	m := observability.New()
	uc := ideamod.New(ideamod.UsecasesDeps{
		Log:      log,
		Ideas:    store,
		Trends:   steps.NewTrendSimulator(rand.New(rand.NewSource(11)), nil),
		Roadmaps: steps.NewRoadmapGenerator(nil),
		Metrics:  m,
	})
	bus := &recordingBus{}
	return serviceFixture{
		svc:     NewIdeaService(log, store, uc, bus, m, enrichOnRead),
		store:   store,
		bus:     bus,
		metrics: m,
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apierr.Error, got %T: %v", err, err)
	}
	return ae.Status
}

func TestCreateValidatesAndPublishes(t *testing.T) {
	f := newServiceFixture(t, nil, true)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, &types.Idea{Title: "   "}); statusOf(t, err) != http.StatusBadRequest {
		t.Fatalf("blank title should be a 400, got %v", err)
	}

	created, err := f.svc.Create(ctx, &types.Idea{ID: "fixed-id", Title: "반려동물 보험 비교", Effort: 9, Risks: []string{"a", "b", "c", "d"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Effort != types.MaxEffort || len(created.Risks) != types.MaxRisks {
		t.Fatalf("not normalized: effort=%d risks=%v", created.Effort, created.Risks)
	}
	if _, err := f.svc.Create(ctx, &types.Idea{ID: "fixed-id", Title: "dup"}); statusOf(t, err) != http.StatusConflict {
		t.Fatalf("duplicate id should be a 409, got %v", err)
	}
	if got := f.bus.eventTypes(); len(got) != 1 || got[0] != redis.EventIdeaCreated {
		t.Fatalf("events=%v", got)
	}
}

func TestCreateAndUpdateBoundScores(t *testing.T) {
	f := newServiceFixture(t, nil, false)
	ctx := context.Background()

	high := 42.0
	created, err := f.svc.Create(ctx, &types.Idea{
		Title:           "x",
		KoreaFit:        &high,
		KoreaFitFactors: &types.KoreaFitFactors{RegulatoryFriendliness: -3},
		VotesUp:         500,
		VotesDown:       7,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if *created.KoreaFit != types.MaxKoreaFit || created.KoreaFitFactors.RegulatoryFriendliness != types.MinKoreaFit {
		t.Fatalf("create stored koreaFit=%v factors=%+v", *created.KoreaFit, *created.KoreaFitFactors)
	}
	if created.VotesUp != 0 || created.VotesDown != 0 {
		t.Fatalf("create accepted votes %d/%d", created.VotesUp, created.VotesDown)
	}

	zero := 0.0
	updated, err := f.svc.Update(ctx, created.ID, types.IdeaPatch{KoreaFit: &zero})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if *updated.KoreaFit != types.MinKoreaFit {
		t.Fatalf("update stored koreaFit=%v", *updated.KoreaFit)
	}
}

func TestGetEnrichedComputesOnce(t *testing.T) {
	f := newServiceFixture(t, nil, true)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, testutil.NewIdea("간편결제 정산 자동화", "fintech", "결제"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, status, err := f.svc.GetEnriched(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetEnriched: %v", err)
	}
	if !status.Enriched || status.Skipped || !first.IsEnriched() {
		t.Fatalf("first read should enrich: %+v", status)
	}

	second, status, err := f.svc.GetEnriched(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetEnriched: %v", err)
	}
	if !status.Skipped {
		t.Fatalf("second read should reuse the cache: %+v", status)
	}
	if second.TrendData.MonthlySearches != first.TrendData.MonthlySearches {
		t.Fatalf("cached trend recomputed: %s vs %s", second.TrendData.MonthlySearches, first.TrendData.MonthlySearches)
	}
	if f.metrics.EnrichCount(ideamod.OutcomeEnriched) != 1 {
		t.Fatalf("enriched count=%v", f.metrics.EnrichCount(ideamod.OutcomeEnriched))
	}
}

func TestGetEnrichedFallsBackOnFailure(t *testing.T) {
	log := testutil.Logger(t)
	base := idearepo.NewMemoryStore(log)
	stored, err := base.Create(dbctx.Background(), testutil.NewIdea("원격 진료 예약", "healthcare"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f := newServiceFixture(t, brokenUpdateStore{IdeaStore: base}, true)

	got, status, err := f.svc.GetEnriched(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("GetEnriched should not fail: %v", err)
	}
	if got == nil || got.ID != stored.ID || got.IsEnriched() {
		t.Fatalf("expected the unenriched stored record, got %+v", got)
	}
	if status.Error == "" || status.Enriched {
		t.Fatalf("status should carry the failure: %+v", status)
	}
}

func TestGetEnrichedWithoutLazyEnrichment(t *testing.T) {
	f := newServiceFixture(t, nil, false)
	created, err := f.svc.Create(context.Background(), testutil.NewIdea("중고 캠핑용품 대여", "e-commerce"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, status, err := f.svc.GetEnriched(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetEnriched: %v", err)
	}
	if got.IsEnriched() || status.Enriched {
		t.Fatalf("lazy enrichment is off: %+v", status)
	}
}

func TestHiddenIdeas(t *testing.T) {
	f := newServiceFixture(t, nil, true)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, testutil.NewIdea("숨길 아이디어", "edtech"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.SetVisible(ctx, created.ID, false); err != nil {
		t.Fatalf("SetVisible: %v", err)
	}

	if _, _, err := f.svc.GetEnriched(ctx, created.ID); statusOf(t, err) != http.StatusNotFound {
		t.Fatalf("hidden idea should be a 404 on the public read, got %v", err)
	}
	if got, err := f.svc.Get(ctx, created.ID); err != nil || got.Visible {
		t.Fatalf("Get should still return the hidden record: %+v %v", got, err)
	}
	list, err := f.svc.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("hidden idea listed: %d", len(list))
	}
	if _, err := f.svc.Vote(ctx, created.ID, VoteUp); statusOf(t, err) != http.StatusNotFound {
		t.Fatalf("vote on hidden idea should be a 404, got %v", err)
	}

	if _, err := f.svc.SetVisible(ctx, created.ID, true); err != nil {
		t.Fatalf("SetVisible: %v", err)
	}
	got := f.bus.eventTypes()
	want := []string{redis.EventIdeaCreated, redis.EventIdeaHidden, redis.EventIdeaShown}
	if len(got) != len(want) {
		t.Fatalf("events=%v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events=%v want %v", got, want)
		}
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	f := newServiceFixture(t, nil, false)
	ctx := context.Background()
	a, _ := f.svc.Create(ctx, testutil.NewIdea("a", "fintech", "AI"))
	b, _ := f.svc.Create(ctx, testutil.NewIdea("b", "FinTech", "결제"))
	c, _ := f.svc.Create(ctx, testutil.NewIdea("c", "edtech", "ai"))
	for _, id := range []string{b.ID, b.ID, c.ID} {
		if _, err := f.svc.Vote(ctx, id, VoteUp); err != nil {
			t.Fatalf("Vote: %v", err)
		}
	}
	score := 9.0
	if _, err := f.svc.Update(ctx, a.ID, types.IdeaPatch{KoreaFit: &score}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"recent is store order", ListFilter{}, []string{c.ID, b.ID, a.ID}},
		{"sector is case-insensitive", ListFilter{Sector: "fintech"}, []string{b.ID, a.ID}},
		{"tag", ListFilter{Tag: "AI"}, []string{c.ID, a.ID}},
		{"votes", ListFilter{Sort: SortVotes}, []string{b.ID, c.ID, a.ID}},
		{"korea fit, unscored last", ListFilter{Sort: SortKoreaFit}, []string{a.ID, c.ID, b.ID}},
		{"limit", ListFilter{Sort: SortVotes, Limit: 1}, []string{b.ID}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.svc.List(ctx, tc.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d ideas, want %d", len(got), len(tc.want))
			}
			for i := range tc.want {
				if got[i].ID != tc.want[i] {
					t.Fatalf("position %d: got %s want %s", i, got[i].ID, tc.want[i])
				}
			}
		})
	}

	if _, err := f.svc.List(ctx, ListFilter{Sort: "random"}); statusOf(t, err) != http.StatusBadRequest {
		t.Fatalf("unknown sort should be a 400")
	}
}

func TestVote(t *testing.T) {
	f := newServiceFixture(t, nil, false)
	ctx := context.Background()
	created, _ := f.svc.Create(ctx, testutil.NewIdea("동네 세탁 구독", "e-commerce"))

	if _, err := f.svc.Vote(ctx, created.ID, "sideways"); statusOf(t, err) != http.StatusBadRequest {
		t.Fatalf("bad direction should be a 400")
	}
	if _, err := f.svc.Vote(ctx, "nope", VoteUp); statusOf(t, err) != http.StatusNotFound {
		t.Fatalf("unknown id should be a 404")
	}
	if _, err := f.svc.Vote(ctx, created.ID, VoteUp); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	got, err := f.svc.Vote(ctx, created.ID, VoteDown)
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if got.VotesUp != 1 || got.VotesDown != 1 {
		t.Fatalf("votes=%d/%d", got.VotesUp, got.VotesDown)
	}
	if f.metrics.VoteCount(VoteUp) != 1 || f.metrics.VoteCount(VoteDown) != 1 {
		t.Fatalf("vote metrics not counted")
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	f := newServiceFixture(t, nil, false)
	f.bus.err = errors.New("redis gone")
	if _, err := f.svc.Create(context.Background(), testutil.NewIdea("x", "mobility")); err != nil {
		t.Fatalf("Create should ignore publish errors: %v", err)
	}
}

func TestUpdateUnknownAndBlankTitle(t *testing.T) {
	f := newServiceFixture(t, nil, false)
	ctx := context.Background()
	title := "new"
	if _, err := f.svc.Update(ctx, "missing", types.IdeaPatch{Title: &title}); statusOf(t, err) != http.StatusNotFound {
		t.Fatalf("unknown id should be a 404")
	}
	blank := " "
	if _, err := f.svc.Update(ctx, "missing", types.IdeaPatch{Title: &blank}); statusOf(t, err) != http.StatusBadRequest {
		t.Fatalf("blank title should be a 400")
	}
}

func TestEnrichForcedAndUnknown(t *testing.T) {
	f := newServiceFixture(t, nil, false)
	ctx := context.Background()
	created, _ := f.svc.Create(ctx, testutil.NewIdea("시니어 운동 코칭", "senior-tech"))

	if _, _, err := f.svc.Enrich(ctx, "missing", false); statusOf(t, err) != http.StatusNotFound {
		t.Fatalf("unknown id should be a 404")
	}
	if _, st, err := f.svc.Enrich(ctx, created.ID, false); err != nil || !st.Enriched || st.Skipped {
		t.Fatalf("Enrich: %+v %v", st, err)
	}
	if _, st, err := f.svc.Enrich(ctx, created.ID, false); err != nil || !st.Skipped {
		t.Fatalf("second Enrich should skip: %+v %v", st, err)
	}
	if _, st, err := f.svc.Enrich(ctx, created.ID, true); err != nil || st.Skipped || !st.Enriched {
		t.Fatalf("forced Enrich should recompute: %+v %v", st, err)
	}
	enriched := 0
	for _, typ := range f.bus.eventTypes() {
		if typ == redis.EventIdeaEnriched {
			enriched++
		}
	}
	if enriched != 2 {
		t.Fatalf("enriched events=%d want 2", enriched)
	}
}

func TestUpsertBulkAndPreview(t *testing.T) {
	f := newServiceFixture(t, nil, false)
	ctx := context.Background()
	if _, err := f.svc.UpsertBulk(ctx, []*types.Idea{{Title: ""}}); statusOf(t, err) != http.StatusBadRequest {
		t.Fatalf("untitled new row should be a 400")
	}
	if _, err := f.svc.UpsertBulk(ctx, []*types.Idea{{ID: "ghost"}}); statusOf(t, err) != http.StatusBadRequest {
		t.Fatalf("untitled row with an unknown id should be a 400, got %v", err)
	}
	if _, err := f.svc.Get(ctx, "ghost"); statusOf(t, err) != http.StatusNotFound {
		t.Fatalf("rejected row was stored: %v", err)
	}
	n, err := f.svc.UpsertBulk(ctx, []*types.Idea{testutil.NewIdea("a", "fintech"), testutil.NewIdea("b", "edtech")})
	if err != nil || n != 2 {
		t.Fatalf("UpsertBulk: n=%d err=%v", n, err)
	}

	idea := testutil.NewIdea("간편결제", "fintech")
	res, err := f.svc.ScorePreview(ctx, idea)
	if err != nil {
		t.Fatalf("ScorePreview: %v", err)
	}
	if res.Score < 1 || res.Score > 10 {
		t.Fatalf("preview=%+v", res)
	}
	if count, _ := f.store.Count(dbctx.Background()); count != 2 {
		t.Fatalf("preview must not persist: count=%d", count)
	}
}
