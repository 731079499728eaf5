package steps

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
)

const (
	baseVolumeMin = 5000
	baseVolumeMax = 55000
	baseGrowthMin = -20.0
	baseGrowthMax = 20.0

	maxRelatedKeywords = 5
	keywordFallbackLen = 20
)

type trendBucket struct {
	Name             string
	Keywords         []string
	VolumeMultiplier float64
	GrowthBonus      float64
}

// First matching bucket wins.
var trendBuckets = []trendBucket{
	{Name: "popular", VolumeMultiplier: 1.5, GrowthBonus: 5, Keywords: []string{"ai", "인공지능", "fintech", "핀테크", "food", "배달", "beauty", "뷰티", "fashion", "패션", "game", "게임", "commerce", "커머스"}},
	{Name: "emerging", VolumeMultiplier: 0.7, GrowthBonus: 15, Keywords: []string{"web3", "metaverse", "메타버스", "climate", "기후", "탄소", "senior", "시니어", "pet", "반려", "healthcare", "헬스케어", "edtech", "에듀테크"}},
	{Name: "niche", VolumeMultiplier: 0.4, GrowthBonus: 8, Keywords: []string{"b2b", "saas", "agri", "농업", "legal", "리걸테크", "법률", "manufacturing", "제조"}},
}

type seasonalRule struct {
	Keywords   []string
	Months     []time.Month
	Multiplier float64
	Note       string
}

var seasonalRules = []seasonalRule{
	{
		Keywords:   []string{"food", "restaurant", "음식", "식당", "외식", "배달", "맛집"},
		Months:     []time.Month{time.November, time.December, time.January, time.February},
		Multiplier: 1.2,
		Note:       "겨울철 외식·배달 수요 증가 구간",
	},
	{
		Keywords:   []string{"fitness", "health", "헬스", "운동", "다이어트", "건강", "피트니스"},
		Months:     []time.Month{time.January, time.February},
		Multiplier: 1.4,
		Note:       "새해 건강관리 결심 시즌",
	},
}

const noSeasonalNote = "뚜렷한 계절성 없음"

type relatedTerms struct {
	Match []string
	Terms []string
}

var sectorRelatedTerms = []relatedTerms{
	{Match: []string{"food", "음식", "배달", "외식"}, Terms: []string{"배달앱", "밀키트", "푸드테크"}},
	{Match: []string{"health", "헬스", "의료", "건강"}, Terms: []string{"디지털 헬스", "원격진료", "웰니스"}},
	{Match: []string{"ai", "인공지능"}, Terms: []string{"생성형 AI", "AI 자동화", "LLM"}},
	{Match: []string{"fin", "fintech", "finance", "금융", "핀테크", "결제"}, Terms: []string{"간편결제", "오픈뱅킹", "마이데이터"}},
}

var businessModelTerms = []relatedTerms{
	{Match: []string{"subscription", "구독"}, Terms: []string{"구독 서비스", "정기 결제"}},
	{Match: []string{"marketplace", "마켓플레이스", "중개"}, Terms: []string{"마켓플레이스", "중개 플랫폼"}},
}

var fillerTerms = []string{"startup", "business", "service"}

// TrendSimulator fabricates an illustrative search-trend snapshot. Output is
// random unless the generator is seeded; a fixed seed and clock reproduce it.
type TrendSimulator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func NewTrendSimulator(rnd *rand.Rand, now func() time.Time) *TrendSimulator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &TrendSimulator{rnd: rnd, now: now}
}

// TrendSnapshot is the raw simulation before formatting.
type TrendSnapshot struct {
	Keyword     string
	Volume      int
	Growth      float64
	Competition types.CompetitionLevel
	Seasonality string
	Related     []string
	Score       int
}

func (s *TrendSimulator) Simulate(idea *types.Idea) TrendSnapshot {
	if idea == nil {
		idea = &types.Idea{}
	}
	keyword := DeriveKeyword(idea)
	lk := haystackOf(keyword)

	s.mu.Lock()
	volume := baseVolumeMin + s.rnd.Float64()*(baseVolumeMax-baseVolumeMin)
	growth := baseGrowthMin + s.rnd.Float64()*(baseGrowthMax-baseGrowthMin)
	now := s.now()
	s.mu.Unlock()

	for _, b := range trendBuckets {
		if containsAny(lk, b.Keywords) {
			volume *= b.VolumeMultiplier
			growth += b.GrowthBonus
			break
		}
	}

	seasonality := noSeasonalNote
	for _, rule := range seasonalRules {
		if containsAny(lk, rule.Keywords) && monthIn(now.Month(), rule.Months) {
			volume *= rule.Multiplier
			seasonality = rule.Note
			break
		}
	}

	competition := classifyCompetition(volume, growth)
	return TrendSnapshot{
		Keyword:     keyword,
		Volume:      int(math.Round(volume)),
		Growth:      growth,
		Competition: competition,
		Seasonality: seasonality,
		Related:     relatedKeywords(idea, lk),
		Score:       TrendScore(volume, growth, competition),
	}
}

// Trend runs Simulate and formats the result for storage.
func (s *TrendSimulator) Trend(idea *types.Idea) types.TrendData {
	snap := s.Simulate(idea)
	s.mu.Lock()
	now := s.now()
	s.mu.Unlock()
	return types.TrendData{
		Keyword:          snap.Keyword,
		Growth:           FormatGrowth(snap.Growth),
		MonthlySearches:  FormatSearches(snap.Volume),
		TrendScore:       snap.Score,
		CompetitionLevel: snap.Competition,
		Seasonality:      snap.Seasonality,
		RelatedKeywords:  snap.Related,
		LastUpdated:      now.UTC(),
	}
}

// DeriveKeyword prefers the sector, then the first tag, then the first
// content word of the title, then the first 20 characters of the title.
func DeriveKeyword(idea *types.Idea) string {
	if idea.Sector != "" {
		return idea.Sector
	}
	for _, tag := range idea.Tags {
		if tag != "" {
			return tag
		}
	}
	if word := firstContentWord(idea.Title); word != "" {
		return word
	}
	return truncateRunes(idea.Title, keywordFallbackLen)
}

func classifyCompetition(volume, growth float64) types.CompetitionLevel {
	switch {
	case volume > 30000 && growth > 10:
		return types.CompetitionHigh
	case volume < 10000 || growth < 0:
		return types.CompetitionLow
	default:
		return types.CompetitionMedium
	}
}

var competitionPoints = map[types.CompetitionLevel]float64{
	types.CompetitionLow:    20,
	types.CompetitionMedium: 12,
	types.CompetitionHigh:   5,
}

// TrendScore maps volume, growth and competition onto 0..100.
func TrendScore(volume, growth float64, competition types.CompetitionLevel) int {
	volumePts := math.Min(40, volume/1000*2)
	growthPts := math.Min(40, math.Max(0, (growth+20)*1.5))
	total := math.Round(volumePts + growthPts + competitionPoints[competition])
	return int(math.Min(100, math.Max(0, total)))
}

func relatedKeywords(idea *types.Idea, keyword string) []string {
	out := make([]string, 0, maxRelatedKeywords)
	seen := map[string]struct{}{}
	add := func(terms ...string) {
		for _, t := range terms {
			if len(out) >= maxRelatedKeywords {
				return
			}
			if t == "" {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}

	tags := idea.Tags
	if len(tags) > 3 {
		tags = tags[:3]
	}
	add(tags...)
	for _, group := range sectorRelatedTerms {
		if containsAny(keyword, group.Match) {
			add(group.Terms...)
		}
	}
	model := haystackOf(idea.BusinessModel)
	for _, group := range businessModelTerms {
		if containsAny(model, group.Match) {
			add(group.Terms...)
		}
	}
	add(fillerTerms...)
	return out
}

// FormatGrowth renders growth with one decimal. The sign follows the rounded
// value, so -0.04 prints as "+0.0%".
func FormatGrowth(growth float64) string {
	rounded := math.Round(growth*10) / 10
	sign := "+"
	if rounded < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%.1f%%", sign, math.Abs(rounded))
}

var searchesPrinter = message.NewPrinter(language.English)

func FormatSearches(volume int) string {
	return searchesPrinter.Sprintf("%d", volume)
}

func monthIn(m time.Month, months []time.Month) bool {
	for _, candidate := range months {
		if candidate == m {
			return true
		}
	}
	return false
}

func haystackOf(s string) string {
	return haystack(&types.Idea{Sector: s}, fieldSector)
}
