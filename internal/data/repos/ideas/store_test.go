package ideas

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/yungbote/koreafit-backend/internal/data/repos/testutil"
	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
	"github.com/yungbote/koreafit-backend/internal/platform/dbctx"
)

type storeFactory func(t *testing.T) (IdeaStore, dbctx.Context)

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) (IdeaStore, dbctx.Context) {
			return NewMemoryStore(testutil.Logger(t)), dbctx.Context{Ctx: context.Background()}
		},
		"gorm": func(t *testing.T) (IdeaStore, dbctx.Context) {
			db := testutil.DB(t)
			tx := testutil.Tx(t, db)
			return NewGormStore(db, testutil.Logger(t)), dbctx.Context{Ctx: context.Background(), Tx: tx}
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, store IdeaStore, dbc dbctx.Context)) {
	for name, factory := range storeFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			store, dbc := factory(t)
			fn(t, store, dbc)
		})
	}
}

func TestIdeaStoreCreateGetRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, store IdeaStore, dbc dbctx.Context) {
		in := testutil.NewIdea("간편결제 정산 자동화", "FinTech", "결제", "정산")

		created, err := store.Create(dbc, in)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if created.ID == "" || created.CreatedAt.IsZero() || !created.UpdatedAt.Equal(created.CreatedAt) {
			t.Fatalf("Create did not set identity/timestamps: %+v", created)
		}
		if !created.Visible {
			t.Fatalf("Create should default visible=true")
		}

		got, err := store.Get(dbc, created.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got == nil {
			t.Fatalf("Get: missing idea %s", created.ID)
		}
		assertSameContent(t, got, in)
		if !got.CreatedAt.Equal(created.CreatedAt) {
			t.Fatalf("createdAt drifted: got=%v want=%v", got.CreatedAt, created.CreatedAt)
		}
	})
}

func TestIdeaStoreCreateInsertsAtFront(t *testing.T) {
	forEachStore(t, func(t *testing.T, store IdeaStore, dbc dbctx.Context) {
		first, err := store.Create(dbc, testutil.NewIdea("first", "edtech"))
		if err != nil {
			t.Fatalf("Create first: %v", err)
		}
		second, err := store.Create(dbc, testutil.NewIdea("second", "edtech"))
		if err != nil {
			t.Fatalf("Create second: %v", err)
		}
		rows, err := store.List(dbc)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(rows) != 2 || rows[0].ID != second.ID || rows[1].ID != first.ID {
			t.Fatalf("List order: got %v", ids(rows))
		}
	})
}

func TestIdeaStoreUpdate(t *testing.T) {
	forEachStore(t, func(t *testing.T, store IdeaStore, dbc dbctx.Context) {
		created, err := store.Create(dbc, testutil.NewIdea("old title", "healthcare", "건강"))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}

		title := "new title"
		updated, err := store.Update(dbc, created.ID, types.IdeaPatch{Title: &title})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated == nil {
			t.Fatalf("Update: missing idea")
		}

		got, err := store.Get(dbc, created.ID)
		if err != nil || got == nil {
			t.Fatalf("Get after Update: err=%v idea=%v", err, got)
		}
		if got.Title != "new title" || got.Sector != "healthcare" || !reflect.DeepEqual(got.Tags, []string{"건강"}) {
			t.Fatalf("merged fields wrong: %+v", got)
		}
		if !got.UpdatedAt.After(created.UpdatedAt) {
			t.Fatalf("updatedAt did not advance: before=%v after=%v", created.UpdatedAt, got.UpdatedAt)
		}
	})
}

func TestIdeaStoreUnknownIDIsAbsent(t *testing.T) {
	forEachStore(t, func(t *testing.T, store IdeaStore, dbc dbctx.Context) {
		got, err := store.Get(dbc, "missing")
		if err != nil || got != nil {
			t.Fatalf("Get: err=%v idea=%v", err, got)
		}
		title := "x"
		updated, err := store.Update(dbc, "missing", types.IdeaPatch{Title: &title})
		if err != nil || updated != nil {
			t.Fatalf("Update: err=%v idea=%v", err, updated)
		}
		voted, err := store.AdjustVotes(dbc, "missing", 1, 0)
		if err != nil || voted != nil {
			t.Fatalf("AdjustVotes: err=%v idea=%v", err, voted)
		}
	})
}

func TestIdeaStoreHiddenIdeas(t *testing.T) {
	forEachStore(t, func(t *testing.T, store IdeaStore, dbc dbctx.Context) {
		created, err := store.Create(dbc, testutil.NewIdea("hidden", "mobility"))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := store.Create(dbc, testutil.NewIdea("shown", "mobility")); err != nil {
			t.Fatalf("Create: %v", err)
		}
		hide := false
		if _, err := store.Update(dbc, created.ID, types.IdeaPatch{Visible: &hide}); err != nil {
			t.Fatalf("Update: %v", err)
		}

		visible, err := store.List(dbc)
		if err != nil || len(visible) != 1 || visible[0].Title != "shown" {
			t.Fatalf("List: err=%v ids=%v", err, ids(visible))
		}
		all, err := store.ListAll(dbc)
		if err != nil || len(all) != 2 {
			t.Fatalf("ListAll: err=%v len=%d", err, len(all))
		}
		got, err := store.Get(dbc, created.ID)
		if err != nil || got == nil || got.Visible {
			t.Fatalf("Get hidden: err=%v idea=%+v", err, got)
		}
	})
}

func TestIdeaStoreUpsertBulk(t *testing.T) {
	forEachStore(t, func(t *testing.T, store IdeaStore, dbc dbctx.Context) {
		existing, err := store.Create(dbc, testutil.NewIdea("existing", "food-tech", "배달"))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}

		merge := &types.Idea{ID: existing.ID, Summary3: "updated summary"}
		fresh := testutil.NewIdea("fresh", "senior-tech")
		fresh.ID = "seed-fresh"

		n, err := store.UpsertBulk(dbc, []*types.Idea{merge, fresh})
		if err != nil {
			t.Fatalf("UpsertBulk: %v", err)
		}
		if n != 2 {
			t.Fatalf("UpsertBulk processed=%d want=2", n)
		}

		got, err := store.Get(dbc, existing.ID)
		if err != nil || got == nil {
			t.Fatalf("Get merged: err=%v", err)
		}
		if got.Summary3 != "updated summary" || got.Title != "existing" || !reflect.DeepEqual(got.Tags, []string{"배달"}) {
			t.Fatalf("merge lost fields: %+v", got)
		}

		rows, err := store.List(dbc)
		if err != nil || len(rows) != 2 || rows[1].ID != "seed-fresh" || !rows[1].Visible {
			t.Fatalf("List after upsert: err=%v ids=%v", err, ids(rows))
		}
		count, err := store.Count(dbc)
		if err != nil || count != 2 {
			t.Fatalf("Count: err=%v n=%d", err, count)
		}
	})
}

func TestIdeaStoreUpsertBulkRejectsUntitledInsert(t *testing.T) {
	forEachStore(t, func(t *testing.T, store IdeaStore, dbc dbctx.Context) {
		existing, err := store.Create(dbc, testutil.NewIdea("existing", "fintech"))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}

		merge := &types.Idea{ID: existing.ID, Summary3: "changed"}
		ghost := &types.Idea{ID: "ghost"}
		if _, err := store.UpsertBulk(dbc, []*types.Idea{merge, ghost}); !errors.Is(err, types.ErrInvalidIdea) {
			t.Fatalf("UpsertBulk err=%v want ErrInvalidIdea", err)
		}
		if got, err := store.Get(dbc, "ghost"); err != nil || got != nil {
			t.Fatalf("Get ghost: err=%v idea=%+v", err, got)
		}
		got, err := store.Get(dbc, existing.ID)
		if err != nil || got == nil || got.Summary3 != existing.Summary3 {
			t.Fatalf("rejected batch wrote a merge: err=%v idea=%+v", err, got)
		}

		// A titled insert followed by an untitled merge of the same id is fine.
		first := testutil.NewIdea("new row", "edtech")
		first.ID = "batch-id"
		n, err := store.UpsertBulk(dbc, []*types.Idea{first, {ID: "batch-id", Summary3: "second"}})
		if err != nil || n != 2 {
			t.Fatalf("UpsertBulk: n=%d err=%v", n, err)
		}
		got, err = store.Get(dbc, "batch-id")
		if err != nil || got == nil || got.Title != "new row" || got.Summary3 != "second" {
			t.Fatalf("Get batch-id: err=%v idea=%+v", err, got)
		}
	})
}

func TestIdeaStoreClampsScores(t *testing.T) {
	forEachStore(t, func(t *testing.T, store IdeaStore, dbc dbctx.Context) {
		high := 42.0
		in := testutil.NewIdea("scored", "fintech")
		in.KoreaFit = &high
		in.KoreaFitFactors = &types.KoreaFitFactors{RegulatoryFriendliness: -3, CulturalAlignment: 12, MarketReadiness: 5}
		in.TrendData = &types.TrendData{Keyword: "scored", TrendScore: 250}
		in.VotesUp = -2
		created, err := store.Create(dbc, in)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		got, err := store.Get(dbc, created.ID)
		if err != nil || got == nil {
			t.Fatalf("Get: err=%v", err)
		}
		f := got.KoreaFitFactors
		if *got.KoreaFit != types.MaxKoreaFit || f.RegulatoryFriendliness != types.MinKoreaFit ||
			f.CulturalAlignment != types.MaxKoreaFit || f.MarketReadiness != 5 || f.CompetitiveLandscape != types.MinKoreaFit {
			t.Fatalf("scores not clamped: koreaFit=%v factors=%+v", *got.KoreaFit, *f)
		}
		if got.TrendData.TrendScore != types.MaxTrendScore || got.VotesUp != 0 {
			t.Fatalf("trendScore=%d votesUp=%d", got.TrendData.TrendScore, got.VotesUp)
		}

		low := 0.0
		updated, err := store.Update(dbc, created.ID, types.IdeaPatch{KoreaFit: &low})
		if err != nil || updated == nil || *updated.KoreaFit != types.MinKoreaFit {
			t.Fatalf("Update: err=%v idea=%+v", err, updated)
		}

		over := 11.5
		if _, err := store.UpsertBulk(dbc, []*types.Idea{{ID: created.ID, KoreaFit: &over}}); err != nil {
			t.Fatalf("UpsertBulk: %v", err)
		}
		got, err = store.Get(dbc, created.ID)
		if err != nil || got == nil || *got.KoreaFit != types.MaxKoreaFit {
			t.Fatalf("merged koreaFit not clamped: err=%v idea=%+v", err, got)
		}
	})
}

func TestIdeaStoreCreateConflict(t *testing.T) {
	forEachStore(t, func(t *testing.T, store IdeaStore, dbc dbctx.Context) {
		in := testutil.NewIdea("dup", "edtech")
		in.ID = "fixed-id"
		if _, err := store.Create(dbc, in); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := store.Create(dbc, in); !errors.Is(err, types.ErrIDConflict) {
			t.Fatalf("second Create err=%v want ErrIDConflict", err)
		}
	})
}

func TestIdeaStoreAdjustVotes(t *testing.T) {
	forEachStore(t, func(t *testing.T, store IdeaStore, dbc dbctx.Context) {
		created, err := store.Create(dbc, testutil.NewIdea("votes", "edtech"))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := store.AdjustVotes(dbc, created.ID, 1, 0); err != nil {
			t.Fatalf("AdjustVotes: %v", err)
		}
		got, err := store.AdjustVotes(dbc, created.ID, 1, 1)
		if err != nil || got == nil {
			t.Fatalf("AdjustVotes: err=%v", err)
		}
		if got.VotesUp != 2 || got.VotesDown != 1 {
			t.Fatalf("votes up=%d down=%d", got.VotesUp, got.VotesDown)
		}
	})
}

func TestIdeaStoreEnrichmentColumnsRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, store IdeaStore, dbc dbctx.Context) {
		created, err := store.Create(dbc, testutil.NewIdea("enriched", "fintech"))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		fit := 6.0
		factors := types.KoreaFitFactors{RegulatoryFriendliness: 5, CulturalAlignment: 7, MarketReadiness: 5, CompetitiveLandscape: 6, BusinessInfrastructure: 7}
		roadmap := []types.ExecutionStep{{ID: "s1", Title: "t", Category: types.CategoryLegal, Priority: types.PriorityHigh, Resources: []string{"r"}}}
		trend := types.TrendData{Keyword: "fintech", Growth: "+12.0%", MonthlySearches: "12,345", TrendScore: 61, RelatedKeywords: []string{"결제"}}
		if _, err := store.Update(dbc, created.ID, types.IdeaPatch{
			KoreaFit:         &fit,
			KoreaFitFactors:  &factors,
			TrendData:        &trend,
			ExecutionRoadmap: &roadmap,
		}); err != nil {
			t.Fatalf("Update: %v", err)
		}
		got, err := store.Get(dbc, created.ID)
		if err != nil || got == nil {
			t.Fatalf("Get: err=%v", err)
		}
		if !got.IsEnriched() || *got.KoreaFit != 6 || *got.KoreaFitFactors != factors {
			t.Fatalf("enrichment not persisted: %+v", got)
		}
		if got.TrendData.MonthlySearches != "12,345" || !reflect.DeepEqual(got.ExecutionRoadmap, roadmap) {
			t.Fatalf("nested documents differ: trend=%+v roadmap=%+v", got.TrendData, got.ExecutionRoadmap)
		}
	})
}

func TestMemoryStoreConcurrentWriters(t *testing.T) {
	store := NewMemoryStore(testutil.Logger(t))
	dbc := dbctx.Background()
	created, err := store.Create(dbc, testutil.NewIdea("shared", "edtech"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := fmt.Sprintf("writer-%d", i)
			_, _ = store.Update(dbc, created.ID, types.IdeaPatch{Title: &title})
			_, _ = store.AdjustVotes(dbc, created.ID, 1, 0)
			_, _ = store.List(dbc)
		}(i)
	}
	wg.Wait()

	got, err := store.Get(dbc, created.ID)
	if err != nil || got == nil {
		t.Fatalf("Get: err=%v", err)
	}
	if got.VotesUp != 16 {
		t.Fatalf("votes=%d want=16", got.VotesUp)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore(testutil.Logger(t))
	dbc := dbctx.Background()
	created, err := store.Create(dbc, testutil.NewIdea("copy", "edtech", "a"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	created.Tags[0] = "mutated"
	created.Title = "mutated"

	got, _ := store.Get(dbc, created.ID)
	if got.Title != "copy" || got.Tags[0] != "a" {
		t.Fatalf("store shares memory with caller: %+v", got)
	}
}

func assertSameContent(t *testing.T, got, want *types.Idea) {
	t.Helper()
	if got.Title != want.Title ||
		got.SourceURL != want.SourceURL ||
		got.SourceName != want.SourceName ||
		got.Summary3 != want.Summary3 ||
		got.Sector != want.Sector ||
		got.BusinessModel != want.BusinessModel ||
		got.TargetUser != want.TargetUser ||
		got.WhyNow != want.WhyNow ||
		got.Effort != want.Effort ||
		!reflect.DeepEqual(got.Tags, want.Tags) ||
		!reflect.DeepEqual(got.Risks, want.Risks) {
		t.Fatalf("content mismatch:\n got=%+v\nwant=%+v", got, want)
	}
}

func ids(rows []*types.Idea) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}
