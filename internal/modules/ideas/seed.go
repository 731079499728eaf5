package ideas

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
	"github.com/yungbote/koreafit-backend/internal/platform/dbctx"
)

//go:embed seed_catalog.yaml
var defaultSeedCatalog []byte

type seedMetrics struct {
	TimingScore       *float64 `yaml:"timingScore"`
	MarketOpportunity *float64 `yaml:"marketOpportunity"`
}

type seedIdea struct {
	ID            string       `yaml:"id"`
	Title         string       `yaml:"title"`
	SourceURL     string       `yaml:"sourceUrl"`
	SourceName    string       `yaml:"sourceName"`
	Summary3      string       `yaml:"summary3"`
	Tags          []string     `yaml:"tags"`
	Sector        string       `yaml:"sector"`
	BusinessModel string       `yaml:"businessModel"`
	TargetUser    string       `yaml:"targetUser"`
	WhyNow        string       `yaml:"whyNow"`
	Risks         []string     `yaml:"risks"`
	Effort        int          `yaml:"effort"`
	Metrics       *seedMetrics `yaml:"metrics"`
}

func (s seedIdea) toIdea() *types.Idea {
	idea := &types.Idea{
		ID:            s.ID,
		Title:         s.Title,
		SourceURL:     s.SourceURL,
		SourceName:    s.SourceName,
		Summary3:      s.Summary3,
		Tags:          s.Tags,
		Sector:        s.Sector,
		BusinessModel: s.BusinessModel,
		TargetUser:    s.TargetUser,
		WhyNow:        s.WhyNow,
		Risks:         s.Risks,
		Effort:        s.Effort,
		Visible:       true,
	}
	if s.Metrics != nil {
		idea.Metrics = &types.IdeaMetrics{
			TimingScore:       s.Metrics.TimingScore,
			MarketOpportunity: s.Metrics.MarketOpportunity,
		}
	}
	return idea
}

// ParseSeedCatalog decodes a YAML idea catalog. Every entry needs an id so
// repeated imports merge instead of duplicating.
func ParseSeedCatalog(data []byte) ([]*types.Idea, error) {
	var doc struct {
		Ideas []seedIdea `yaml:"ideas"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode seed catalog: %w", err)
	}
	out := make([]*types.Idea, 0, len(doc.Ideas))
	seen := map[string]struct{}{}
	for i, s := range doc.Ideas {
		if s.ID == "" {
			return nil, fmt.Errorf("seed catalog: entry %d has no id", i)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("seed catalog: duplicate id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
		idea := s.toIdea()
		if err := types.Validate(idea); err != nil {
			return nil, fmt.Errorf("seed catalog: %s: %w", s.ID, err)
		}
		out = append(out, idea)
	}
	return out, nil
}

func DefaultSeedCatalog() ([]*types.Idea, error) {
	return ParseSeedCatalog(defaultSeedCatalog)
}

type SeedInput struct {
	// Catalog overrides the embedded catalog when set.
	Catalog []byte
	// OnlyIfEmpty skips the import when the store already holds ideas.
	OnlyIfEmpty bool
}

type SeedOutput struct {
	Processed int  `json:"processed"`
	Skipped   bool `json:"skipped"`
}

// Seed imports a catalog through UpsertBulk.
func (u Usecases) Seed(ctx context.Context, in SeedInput) (SeedOutput, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if in.OnlyIfEmpty {
		n, err := u.deps.Ideas.Count(dbc)
		if err != nil {
			return SeedOutput{}, fmt.Errorf("count ideas: %w", err)
		}
		if n > 0 {
			return SeedOutput{Skipped: true}, nil
		}
	}
	data := in.Catalog
	if len(data) == 0 {
		data = defaultSeedCatalog
	}
	rows, err := ParseSeedCatalog(data)
	if err != nil {
		return SeedOutput{}, err
	}
	n, err := u.deps.Ideas.UpsertBulk(dbc, rows)
	if err != nil {
		return SeedOutput{}, fmt.Errorf("upsert seed ideas: %w", err)
	}
	u.deps.Log.Info("Seed catalog imported", "processed", n)
	return SeedOutput{Processed: n}, nil
}
