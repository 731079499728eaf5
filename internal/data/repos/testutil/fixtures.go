package testutil

import (
	"testing"

	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
)

// NewIdea returns an unsaved, valid idea with Korean-market defaults.
func NewIdea(title, sector string, tags ...string) *types.Idea {
	return &types.Idea{
		Title:         title,
		SourceURL:     "https://example.com/" + sector,
		SourceName:    "fixture",
		Summary3:      title + " 요약",
		Tags:          tags,
		Sector:        sector,
		BusinessModel: "subscription",
		TargetUser:    "직장인",
		WhyNow:        "모바일 결제 확산",
		Risks:         []string{"규제"},
		Effort:        3,
		Visible:       true,
	}
}

// SeedIdeas creates each idea through create and fails the test on error.
func SeedIdeas(tb testing.TB, create func(*types.Idea) (*types.Idea, error), rows ...*types.Idea) []*types.Idea {
	tb.Helper()
	out := make([]*types.Idea, 0, len(rows))
	for _, row := range rows {
		created, err := create(row)
		if err != nil {
			tb.Fatalf("seed idea %q: %v", row.Title, err)
		}
		out = append(out, created)
	}
	return out
}
