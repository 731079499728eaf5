package ideas

import (
	"time"

	"gorm.io/datatypes"
)

// Idea is one catalog record. Enrichment fields stay nil until they have been
// computed once; after that they are treated as cached.
type Idea struct {
	ID string `gorm:"column:id;type:varchar(64);primaryKey" json:"id" yaml:"id"`
	// Position orders the collection: lower values come first.
	Position int64 `gorm:"column:position;not null;index" json:"-" yaml:"-"`

	Title         string   `gorm:"column:title;not null" json:"title" yaml:"title"`
	SourceURL     string   `gorm:"column:source_url" json:"sourceUrl,omitempty" yaml:"sourceUrl"`
	SourceName    string   `gorm:"column:source_name" json:"sourceName,omitempty" yaml:"sourceName"`
	Summary3      string   `gorm:"column:summary3;type:text" json:"summary3,omitempty" yaml:"summary3"`
	Tags          []string `gorm:"column:tags;serializer:json" json:"tags" yaml:"tags"`
	Sector        string   `gorm:"column:sector;index" json:"sector,omitempty" yaml:"sector"`
	BusinessModel string   `gorm:"column:business_model" json:"businessModel,omitempty" yaml:"businessModel"`
	TargetUser    string   `gorm:"column:target_user" json:"targetUser,omitempty" yaml:"targetUser"`
	WhyNow        string   `gorm:"column:why_now;type:text" json:"whyNow,omitempty" yaml:"whyNow"`
	Risks         []string `gorm:"column:risks;serializer:json" json:"risks" yaml:"risks"`
	Effort        int      `gorm:"column:effort;not null;default:3" json:"effort" yaml:"effort"`

	Metrics  *IdeaMetrics   `gorm:"column:metrics;serializer:json" json:"metrics,omitempty" yaml:"metrics"`
	Metadata datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty" yaml:"-"`

	KoreaFit                *float64         `gorm:"column:korea_fit" json:"koreaFit,omitempty" yaml:"koreaFit"`
	KoreaFitFactors         *KoreaFitFactors `gorm:"column:korea_fit_factors;serializer:json" json:"koreaFitFactors,omitempty" yaml:"-"`
	KoreaFitRecommendations []string         `gorm:"column:korea_fit_recommendations;serializer:json" json:"koreaFitRecommendations,omitempty" yaml:"-"`
	TrendData               *TrendData       `gorm:"column:trend_data;serializer:json" json:"trendData,omitempty" yaml:"-"`
	ExecutionRoadmap        []ExecutionStep  `gorm:"column:execution_roadmap;serializer:json" json:"executionRoadmap,omitempty" yaml:"-"`

	Visible   bool      `gorm:"column:visible;not null;default:true;index" json:"visible" yaml:"visible"`
	VotesUp   int       `gorm:"column:votes_up;not null;default:0" json:"votesUp" yaml:"votesUp"`
	VotesDown int       `gorm:"column:votes_down;not null;default:0" json:"votesDown" yaml:"votesDown"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"createdAt" yaml:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updatedAt" yaml:"-"`
}

func (Idea) TableName() string { return "idea" }

// IdeaMetrics holds editorial scores attached at ingestion time. Either
// score may be absent.
type IdeaMetrics struct {
	TimingScore       *float64 `json:"timingScore,omitempty" yaml:"timingScore"`
	MarketOpportunity *float64 `json:"marketOpportunity,omitempty" yaml:"marketOpportunity"`
}

type KoreaFitFactors struct {
	RegulatoryFriendliness float64 `json:"regulatoryFriendliness"`
	CulturalAlignment      float64 `json:"culturalAlignment"`
	MarketReadiness        float64 `json:"marketReadiness"`
	CompetitiveLandscape   float64 `json:"competitiveLandscape"`
	BusinessInfrastructure float64 `json:"businessInfrastructure"`
}

// Values returns the factors in declaration order.
func (f KoreaFitFactors) Values() []float64 {
	return []float64{
		f.RegulatoryFriendliness,
		f.CulturalAlignment,
		f.MarketReadiness,
		f.CompetitiveLandscape,
		f.BusinessInfrastructure,
	}
}

type CompetitionLevel string

const (
	CompetitionLow    CompetitionLevel = "low"
	CompetitionMedium CompetitionLevel = "medium"
	CompetitionHigh   CompetitionLevel = "high"
)

type TrendData struct {
	Keyword          string           `json:"keyword"`
	Growth           string           `json:"growth"`
	MonthlySearches  string           `json:"monthlySearches"`
	TrendScore       int              `json:"trendScore"`
	CompetitionLevel CompetitionLevel `json:"competitionLevel"`
	Seasonality      string           `json:"seasonality"`
	RelatedKeywords  []string         `json:"relatedKeywords"`
	LastUpdated      time.Time        `json:"lastUpdated"`
}

// IsEnriched reports whether all three cached enrichment outputs are present.
func (i *Idea) IsEnriched() bool {
	if i == nil {
		return false
	}
	return i.KoreaFit != nil && i.TrendData != nil && len(i.ExecutionRoadmap) > 0
}

// Clone returns a deep copy so callers never share slices with a store.
func (i *Idea) Clone() *Idea {
	if i == nil {
		return nil
	}
	out := *i
	out.Tags = cloneStrings(i.Tags)
	out.Risks = cloneStrings(i.Risks)
	out.KoreaFitRecommendations = cloneStrings(i.KoreaFitRecommendations)
	if i.Metadata != nil {
		out.Metadata = append(datatypes.JSON(nil), i.Metadata...)
	}
	if i.KoreaFit != nil {
		v := *i.KoreaFit
		out.KoreaFit = &v
	}
	if i.KoreaFitFactors != nil {
		f := *i.KoreaFitFactors
		out.KoreaFitFactors = &f
	}
	if i.Metrics != nil {
		m := IdeaMetrics{}
		if i.Metrics.TimingScore != nil {
			v := *i.Metrics.TimingScore
			m.TimingScore = &v
		}
		if i.Metrics.MarketOpportunity != nil {
			v := *i.Metrics.MarketOpportunity
			m.MarketOpportunity = &v
		}
		out.Metrics = &m
	}
	if i.TrendData != nil {
		td := *i.TrendData
		td.RelatedKeywords = cloneStrings(i.TrendData.RelatedKeywords)
		out.TrendData = &td
	}
	if i.ExecutionRoadmap != nil {
		out.ExecutionRoadmap = make([]ExecutionStep, len(i.ExecutionRoadmap))
		for idx, step := range i.ExecutionRoadmap {
			step.Resources = cloneStrings(step.Resources)
			out.ExecutionRoadmap[idx] = step
		}
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
