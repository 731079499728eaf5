package steps

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
)

//go:embed roadmap_catalog.yaml
var defaultRoadmapCatalog []byte

const (
	defaultSectorName = "default"
	stepsPerSector    = 3
)

type stepVariant struct {
	TitleContains       []string `yaml:"titleContains"`
	SectorIn            []string `yaml:"sectorIn"`
	types.ExecutionStep `yaml:",inline"`
}

type stepTemplate struct {
	types.ExecutionStep `yaml:",inline"`
	Variants            []stepVariant `yaml:"variants"`
}

type sectorTemplate struct {
	Name    string         `yaml:"name"`
	Aliases []string       `yaml:"aliases"`
	Steps   []stepTemplate `yaml:"steps"`
}

// RoadmapCatalog is the step data behind the roadmap generator.
type RoadmapCatalog struct {
	Sectors   []sectorTemplate `yaml:"sectors"`
	Universal []stepTemplate   `yaml:"universal"`

	bySector map[string]*sectorTemplate
	fallback *sectorTemplate
}

// ParseRoadmapCatalog decodes and validates a YAML step catalog.
func ParseRoadmapCatalog(data []byte) (*RoadmapCatalog, error) {
	var cat RoadmapCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decode roadmap catalog: %w", err)
	}
	if err := cat.index(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// DefaultRoadmapCatalog returns the embedded catalog. It panics if the
// embedded data is invalid, which the package tests rule out.
func DefaultRoadmapCatalog() *RoadmapCatalog {
	cat, err := ParseRoadmapCatalog(defaultRoadmapCatalog)
	if err != nil {
		panic(err)
	}
	return cat
}

func (c *RoadmapCatalog) index() error {
	c.bySector = map[string]*sectorTemplate{}
	for i := range c.Sectors {
		s := &c.Sectors[i]
		if s.Name == "" {
			return fmt.Errorf("roadmap catalog: sector %d has no name", i)
		}
		if len(s.Steps) != stepsPerSector {
			return fmt.Errorf("roadmap catalog: sector %q has %d steps, want %d", s.Name, len(s.Steps), stepsPerSector)
		}
		for _, key := range append([]string{s.Name}, s.Aliases...) {
			key = sectorKey(key)
			if prev, dup := c.bySector[key]; dup && prev != s {
				return fmt.Errorf("roadmap catalog: %q maps to both %q and %q", key, prev.Name, s.Name)
			}
			c.bySector[key] = s
		}
		if s.Name == defaultSectorName {
			c.fallback = s
		}
	}
	if c.fallback == nil {
		return fmt.Errorf("roadmap catalog: missing %q sector", defaultSectorName)
	}

	universalIDs := map[string]struct{}{}
	for _, tmpl := range c.Universal {
		if err := tmpl.validate(); err != nil {
			return fmt.Errorf("roadmap catalog: universal: %w", err)
		}
		universalIDs[tmpl.ID] = struct{}{}
	}
	for _, s := range c.Sectors {
		seen := map[string]struct{}{}
		for _, tmpl := range s.Steps {
			if err := tmpl.validate(); err != nil {
				return fmt.Errorf("roadmap catalog: sector %q: %w", s.Name, err)
			}
			if _, dup := seen[tmpl.ID]; dup {
				return fmt.Errorf("roadmap catalog: sector %q: duplicate step id %q", s.Name, tmpl.ID)
			}
			if _, dup := universalIDs[tmpl.ID]; dup {
				return fmt.Errorf("roadmap catalog: sector %q: step id %q collides with a universal step", s.Name, tmpl.ID)
			}
			seen[tmpl.ID] = struct{}{}
		}
	}
	return nil
}

func (t stepTemplate) validate() error {
	if t.ID == "" || t.Title == "" {
		return fmt.Errorf("step needs an id and a title")
	}
	if !t.Category.Valid() {
		return fmt.Errorf("step %q: invalid category %q", t.ID, t.Category)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("step %q: invalid priority %q", t.ID, t.Priority)
	}
	for _, v := range t.Variants {
		if len(v.TitleContains) == 0 && len(v.SectorIn) == 0 {
			return fmt.Errorf("step %q: variant without a condition", t.ID)
		}
		if v.ID != "" {
			return fmt.Errorf("step %q: variants cannot change the id", t.ID)
		}
		if v.Category != "" && !v.Category.Valid() {
			return fmt.Errorf("step %q: variant has invalid category %q", t.ID, v.Category)
		}
		if v.Priority != "" && !v.Priority.Valid() {
			return fmt.Errorf("step %q: variant has invalid priority %q", t.ID, v.Priority)
		}
	}
	return nil
}

// Sector resolves the sector template for a sector label, falling back to
// the default template.
func (c *RoadmapCatalog) Sector(label string) (name string, known bool) {
	if s, ok := c.bySector[sectorKey(label)]; ok {
		return s.Name, s != c.fallback
	}
	return c.fallback.Name, false
}

func (c *RoadmapCatalog) lookup(label string) *sectorTemplate {
	if s, ok := c.bySector[sectorKey(label)]; ok {
		return s
	}
	return c.fallback
}

func sectorKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type RoadmapGenerator struct {
	catalog *RoadmapCatalog
}

func NewRoadmapGenerator(catalog *RoadmapCatalog) *RoadmapGenerator {
	if catalog == nil {
		catalog = DefaultRoadmapCatalog()
	}
	return &RoadmapGenerator{catalog: catalog}
}

// Generate returns the sector steps followed by the universal steps, stably
// sorted by priority.
func (g *RoadmapGenerator) Generate(idea *types.Idea) []types.ExecutionStep {
	if idea == nil {
		idea = &types.Idea{}
	}
	sector := g.catalog.lookup(idea.Sector)
	out := make([]types.ExecutionStep, 0, len(sector.Steps)+len(g.catalog.Universal))
	for _, tmpl := range sector.Steps {
		out = append(out, tmpl.render(idea))
	}
	for _, tmpl := range g.catalog.Universal {
		out = append(out, tmpl.render(idea))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() < out[j].Priority.Rank()
	})
	return out
}

func (t stepTemplate) render(idea *types.Idea) types.ExecutionStep {
	step := t.ExecutionStep
	step.Resources = append([]string(nil), t.Resources...)
	for _, v := range t.Variants {
		if v.matches(idea) {
			overlay(&step, v.ExecutionStep)
			break
		}
	}
	if step.Resources == nil {
		step.Resources = []string{}
	}
	return step
}

func (v stepVariant) matches(idea *types.Idea) bool {
	for _, term := range v.TitleContains {
		if term != "" && strings.Contains(idea.Title, term) {
			return true
		}
	}
	key := sectorKey(idea.Sector)
	for _, s := range v.SectorIn {
		if key != "" && sectorKey(s) == key {
			return true
		}
	}
	return false
}

func overlay(dst *types.ExecutionStep, src types.ExecutionStep) {
	if src.Title != "" {
		dst.Title = src.Title
	}
	if src.Description != "" {
		dst.Description = src.Description
	}
	if src.Category != "" {
		dst.Category = src.Category
	}
	if src.Timeframe != "" {
		dst.Timeframe = src.Timeframe
	}
	if src.Priority != "" {
		dst.Priority = src.Priority
	}
	if len(src.Resources) > 0 {
		dst.Resources = append([]string(nil), src.Resources...)
	}
	if src.EstimatedCost != "" {
		dst.EstimatedCost = src.EstimatedCost
	}
}
