package ideas

import (
	"errors"
	"math"
	"strings"

	"gorm.io/datatypes"
)

var (
	ErrInvalidIdea = errors.New("invalid idea")
	ErrIDConflict  = errors.New("idea id already exists")
)

const (
	MinEffort     = 1
	MaxEffort     = 5
	DefaultEffort = 3
	MaxRisks      = 3

	MinKoreaFit   = 1.0
	MaxKoreaFit   = 10.0
	MaxTrendScore = 100
)

// IdeaPatch is a partial update. Nil fields are left untouched.
type IdeaPatch struct {
	Title         *string   `json:"title,omitempty"`
	SourceURL     *string   `json:"sourceUrl,omitempty"`
	SourceName    *string   `json:"sourceName,omitempty"`
	Summary3      *string   `json:"summary3,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	Sector        *string   `json:"sector,omitempty"`
	BusinessModel *string   `json:"businessModel,omitempty"`
	TargetUser    *string   `json:"targetUser,omitempty"`
	WhyNow        *string   `json:"whyNow,omitempty"`
	Risks         *[]string `json:"risks,omitempty"`
	Effort        *int      `json:"effort,omitempty"`
	Visible       *bool     `json:"visible,omitempty"`

	Metrics  *IdeaMetrics    `json:"metrics,omitempty"`
	Metadata *datatypes.JSON `json:"metadata,omitempty"`

	KoreaFit                *float64         `json:"koreaFit,omitempty"`
	KoreaFitFactors         *KoreaFitFactors `json:"koreaFitFactors,omitempty"`
	KoreaFitRecommendations *[]string        `json:"koreaFitRecommendations,omitempty"`
	TrendData               *TrendData       `json:"trendData,omitempty"`
	ExecutionRoadmap        *[]ExecutionStep `json:"executionRoadmap,omitempty"`
}

func (p IdeaPatch) IsEmpty() bool {
	return p == IdeaPatch{}
}

// Apply merges the patch onto dst. It does not touch timestamps.
func (p IdeaPatch) Apply(dst *Idea) {
	if dst == nil {
		return
	}
	setString(&dst.Title, p.Title)
	setString(&dst.SourceURL, p.SourceURL)
	setString(&dst.SourceName, p.SourceName)
	setString(&dst.Summary3, p.Summary3)
	setString(&dst.Sector, p.Sector)
	setString(&dst.BusinessModel, p.BusinessModel)
	setString(&dst.TargetUser, p.TargetUser)
	setString(&dst.WhyNow, p.WhyNow)
	if p.Tags != nil {
		dst.Tags = cloneStrings(*p.Tags)
	}
	if p.Risks != nil {
		dst.Risks = cloneStrings(*p.Risks)
	}
	if p.Effort != nil {
		dst.Effort = *p.Effort
	}
	if p.Visible != nil {
		dst.Visible = *p.Visible
	}
	if p.Metrics != nil {
		dst.Metrics = p.Metrics
	}
	if p.Metadata != nil {
		dst.Metadata = *p.Metadata
	}
	if p.KoreaFit != nil {
		v := *p.KoreaFit
		dst.KoreaFit = &v
	}
	if p.KoreaFitFactors != nil {
		f := *p.KoreaFitFactors
		dst.KoreaFitFactors = &f
	}
	if p.KoreaFitRecommendations != nil {
		dst.KoreaFitRecommendations = cloneStrings(*p.KoreaFitRecommendations)
	}
	if p.TrendData != nil {
		td := *p.TrendData
		dst.TrendData = &td
	}
	if p.ExecutionRoadmap != nil {
		dst.ExecutionRoadmap = append([]ExecutionStep(nil), (*p.ExecutionRoadmap)...)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Merge overlays the populated fields of src onto dst. It is the merge used by
// bulk upserts, where the input is a whole record rather than a patch.
// Identity, position, visibility and timestamps on dst are kept.
func Merge(dst, src *Idea) {
	if dst == nil || src == nil {
		return
	}
	mergeString(&dst.Title, src.Title)
	mergeString(&dst.SourceURL, src.SourceURL)
	mergeString(&dst.SourceName, src.SourceName)
	mergeString(&dst.Summary3, src.Summary3)
	mergeString(&dst.Sector, src.Sector)
	mergeString(&dst.BusinessModel, src.BusinessModel)
	mergeString(&dst.TargetUser, src.TargetUser)
	mergeString(&dst.WhyNow, src.WhyNow)
	if src.Tags != nil {
		dst.Tags = cloneStrings(src.Tags)
	}
	if src.Risks != nil {
		dst.Risks = cloneStrings(src.Risks)
	}
	if src.Effort != 0 {
		dst.Effort = src.Effort
	}
	if src.Metrics != nil {
		dst.Metrics = src.Metrics
	}
	if len(src.Metadata) > 0 {
		dst.Metadata = src.Metadata
	}
	if src.VotesUp != 0 {
		dst.VotesUp = src.VotesUp
	}
	if src.VotesDown != 0 {
		dst.VotesDown = src.VotesDown
	}
	enriched := src.Clone()
	if enriched.KoreaFit != nil {
		dst.KoreaFit = enriched.KoreaFit
	}
	if enriched.KoreaFitFactors != nil {
		dst.KoreaFitFactors = enriched.KoreaFitFactors
	}
	if enriched.KoreaFitRecommendations != nil {
		dst.KoreaFitRecommendations = enriched.KoreaFitRecommendations
	}
	if enriched.TrendData != nil {
		dst.TrendData = enriched.TrendData
	}
	if enriched.ExecutionRoadmap != nil {
		dst.ExecutionRoadmap = enriched.ExecutionRoadmap
	}
}

func mergeString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

// Normalize trims free text, drops empty and repeated tags, and brings effort,
// risks, scores and vote counters back inside their bounds. An unset effort
// becomes DefaultEffort.
func Normalize(i *Idea) {
	if i == nil {
		return
	}
	i.ID = strings.TrimSpace(i.ID)
	i.Title = strings.TrimSpace(i.Title)
	i.Sector = strings.TrimSpace(i.Sector)
	i.BusinessModel = strings.TrimSpace(i.BusinessModel)
	i.TargetUser = strings.TrimSpace(i.TargetUser)
	i.SourceURL = strings.TrimSpace(i.SourceURL)
	i.SourceName = strings.TrimSpace(i.SourceName)
	i.Tags = compactStrings(i.Tags)
	i.Risks = compactStrings(i.Risks)
	if len(i.Risks) > MaxRisks {
		i.Risks = i.Risks[:MaxRisks]
	}
	if i.Effort == 0 {
		i.Effort = DefaultEffort
	}
	i.Effort = ClampEffort(i.Effort)

	if i.KoreaFit != nil {
		v := clampKoreaFit(*i.KoreaFit)
		i.KoreaFit = &v
	}
	if f := i.KoreaFitFactors; f != nil {
		f.RegulatoryFriendliness = clampKoreaFit(f.RegulatoryFriendliness)
		f.CulturalAlignment = clampKoreaFit(f.CulturalAlignment)
		f.MarketReadiness = clampKoreaFit(f.MarketReadiness)
		f.CompetitiveLandscape = clampKoreaFit(f.CompetitiveLandscape)
		f.BusinessInfrastructure = clampKoreaFit(f.BusinessInfrastructure)
	}
	if td := i.TrendData; td != nil {
		td.TrendScore = min(max(td.TrendScore, 0), MaxTrendScore)
	}
	i.VotesUp = max(i.VotesUp, 0)
	i.VotesDown = max(i.VotesDown, 0)
}

// clampKoreaFit maps a score into [MinKoreaFit, MaxKoreaFit]. NaN becomes the minimum.
func clampKoreaFit(v float64) float64 {
	if math.IsNaN(v) {
		return MinKoreaFit
	}
	return math.Min(math.Max(v, MinKoreaFit), MaxKoreaFit)
}

func ClampEffort(effort int) int {
	if effort < MinEffort {
		return MinEffort
	}
	if effort > MaxEffort {
		return MaxEffort
	}
	return effort
}

func compactStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Validate checks the fields a new idea must carry.
func Validate(i *Idea) error {
	if i == nil || strings.TrimSpace(i.Title) == "" {
		return ErrInvalidIdea
	}
	return nil
}
