package http

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	idearepo "github.com/yungbote/koreafit-backend/internal/data/repos/ideas"
	"github.com/yungbote/koreafit-backend/internal/data/repos/testutil"
	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
	httpH "github.com/yungbote/koreafit-backend/internal/http/handlers"
	httpMW "github.com/yungbote/koreafit-backend/internal/http/middleware"
	ideamod "github.com/yungbote/koreafit-backend/internal/modules/ideas"
	"github.com/yungbote/koreafit-backend/internal/modules/ideas/steps"
	"github.com/yungbote/koreafit-backend/internal/observability"
	"github.com/yungbote/koreafit-backend/internal/services"
)

type testAPI struct {
	engine *gin.Engine
	admin  string
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testutil.Logger(t)
	store := idearepo.NewMemoryStore(log)
	m := observability.New()
	uc := ideamod.New(ideamod.UsecasesDeps{
		Log:      log,
		Ideas:    store,
		Trends:   steps.NewTrendSimulator(rand.New(rand.NewSource(5)), nil),
		Roadmaps: steps.NewRoadmapGenerator(nil),
		Metrics:  m,
	})
	ideaSvc := services.NewIdeaService(log, store, uc, nil, m, true)
	tokens := services.NewTokenService(log, "router-secret", time.Minute)
	cards, err := services.NewCardRenderer(log, "")
	if err != nil {
		t.Fatalf("NewCardRenderer: %v", err)
	}
	admin, _, err := tokens.Issue("ops", services.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	engine := NewRouter(RouterConfig{
		Log:             log,
		Metrics:         m,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, tokens),
		VoteLimiter:     httpMW.NewRateLimiter(60, 3),
		HealthHandler:   httpH.NewHealthHandler(nil),
		IdeaHandler:     httpH.NewIdeaHandlerWithDeps(httpH.IdeaHandlerDeps{Log: log, Ideas: ideaSvc, Cards: cards}),
		KoreaFitHandler: httpH.NewKoreaFitHandler(ideaSvc),
	})
	return testAPI{engine: engine, admin: admin}
}

func (a testAPI) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

type ideaList struct {
	Ideas []*types.Idea `json:"ideas"`
}

type ideaEnvelope struct {
	Idea       *types.Idea           `json:"idea"`
	Enrichment services.EnrichStatus `json:"enrichment"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthcheck(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthcheck", nil, "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}
}

func TestAdminRoutesNeedToken(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/admin/ideas", map[string]any{"title": "x"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestIdeaLifecycle(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/admin/ideas", map[string]any{
		"title":  "간편결제 정산 자동화",
		"sector": "fintech",
		"tags":   []string{"결제"},
		"effort": 8,
	}, api.admin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[ideaEnvelope](t, rec).Idea
	if created.ID == "" || created.Effort != types.MaxEffort || created.IsEnriched() {
		t.Fatalf("created=%+v", created)
	}

	rec = api.do(t, http.MethodGet, "/api/ideas/"+created.ID, nil, "")
	got := decode[ideaEnvelope](t, rec)
	if rec.Code != http.StatusOK || !got.Idea.IsEnriched() || !got.Enrichment.Enriched {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}
	if len(got.Idea.ExecutionRoadmap) != 5 {
		t.Fatalf("roadmap steps=%d", len(got.Idea.ExecutionRoadmap))
	}

	rec = api.do(t, http.MethodPatch, "/api/admin/ideas/"+created.ID, map[string]any{"summary3": "세 줄 요약"}, api.admin)
	if rec.Code != http.StatusOK || decode[ideaEnvelope](t, rec).Idea.Summary3 != "세 줄 요약" {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	rec = api.do(t, http.MethodPatch, "/api/admin/ideas/"+created.ID, map[string]any{}, api.admin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty patch: %d", rec.Code)
	}

	rec = api.do(t, http.MethodPost, "/api/ideas/"+created.ID+"/vote", map[string]any{"direction": "up"}, "")
	if rec.Code != http.StatusOK || decode[ideaEnvelope](t, rec).Idea.VotesUp != 1 {
		t.Fatalf("vote: %d %s", rec.Code, rec.Body.String())
	}
	rec = api.do(t, http.MethodPost, "/api/ideas/"+created.ID+"/vote", map[string]any{"direction": "left"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad vote: %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/api/ideas/"+created.ID+"/card.png", nil, "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("card: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = api.do(t, http.MethodPost, "/api/admin/ideas/"+created.ID+"/enrich?force=true", nil, api.admin)
	if env := decode[ideaEnvelope](t, rec); rec.Code != http.StatusOK || env.Enrichment.Skipped {
		t.Fatalf("forced enrich: %d %s", rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodPost, "/api/admin/ideas/"+created.ID+"/hide", nil, api.admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("hide: %d", rec.Code)
	}
	if rec = api.do(t, http.MethodGet, "/api/ideas/"+created.ID, nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("hidden get: %d", rec.Code)
	}
	rec = api.do(t, http.MethodGet, "/api/ideas", nil, "")
	if list := decode[ideaList](t, rec); len(list.Ideas) != 0 {
		t.Fatalf("hidden idea listed")
	}
	if rec = api.do(t, http.MethodPost, "/api/admin/ideas/"+created.ID+"/show", nil, api.admin); rec.Code != http.StatusOK {
		t.Fatalf("show: %d", rec.Code)
	}
}

func TestBulkAndListFilters(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/admin/ideas/bulk", map[string]any{
		"ideas": []map[string]any{
			{"id": "a", "title": "a", "sector": "edtech"},
			{"id": "b", "title": "b", "sector": "fintech"},
		},
	}, api.admin)
	if rec.Code != http.StatusOK || decode[map[string]int](t, rec)["processed"] != 2 {
		t.Fatalf("bulk: %d %s", rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodGet, "/api/ideas?sector=fintech", nil, "")
	list := decode[ideaList](t, rec)
	if len(list.Ideas) != 1 || list.Ideas[0].ID != "b" {
		t.Fatalf("filtered list: %s", rec.Body.String())
	}
	if rec = api.do(t, http.MethodGet, "/api/ideas?limit=abc", nil, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: %d", rec.Code)
	}
	if rec = api.do(t, http.MethodGet, "/api/ideas/missing", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing: %d", rec.Code)
	}
}

func TestScorePreviewPersistsNothing(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/korea-fit/score", map[string]any{"title": "B2B 회의록 SaaS", "sector": "B2B SaaS"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("score: %d %s", rec.Code, rec.Body.String())
	}
	res := decode[steps.KoreaFitResult](t, rec)
	if res.Score < 1 || res.Score > 10 {
		t.Fatalf("score=%v", res.Score)
	}
	rec = api.do(t, http.MethodGet, "/api/ideas", nil, "")
	if list := decode[ideaList](t, rec); len(list.Ideas) != 0 {
		t.Fatalf("preview persisted an idea")
	}
}
