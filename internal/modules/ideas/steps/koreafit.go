package steps

import (
	"math"

	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
)

const (
	minScore = types.MinKoreaFit
	maxScore = types.MaxKoreaFit

	recommendBelow     = 5.0
	reinforceAtOrAbove = 8.0
)

type keywordRule struct {
	Keywords []string
	Delta    float64
}

type factorKind int

const (
	factorRegulatory factorKind = iota
	factorCultural
	factorMarketReadiness
	factorCompetitive
	factorInfrastructure
)

type factorTable struct {
	Kind   factorKind
	Base   float64
	Weight float64
	Fields []field
	Rules  []keywordRule
	// Advice is emitted below recommendBelow, Praise at or above
	// reinforceAtOrAbove.
	Advice string
	Praise string
}

// Declaration order is the order of KoreaFitFactors and of the emitted
// recommendations.
var koreaFitTables = []factorTable{
	{
		Kind:   factorRegulatory,
		Base:   7,
		Weight: 0.25,
		Fields: []field{fieldSector, fieldTags, fieldBusinessModel, fieldSummary},
		Rules: []keywordRule{
			{Delta: -2, Keywords: []string{"fintech", "핀테크", "금융", "healthcare", "헬스케어", "의료", "education", "교육", "에듀", "food", "식품"}},
			{Delta: -1, Keywords: []string{"mobility", "모빌리티", "logistics", "물류", "real estate", "부동산", "프롭테크"}},
			{Delta: +1, Keywords: []string{"saas", "b2b", "enterprise", "엔터프라이즈", "productivity", "생산성"}},
		},
		Advice: "규제 리스크가 큽니다. 규제 샌드박스 신청과 인허가 전문 법률 자문을 먼저 확보하세요.",
		Praise: "규제 환경이 우호적입니다. 빠른 출시로 시장을 선점할 수 있습니다.",
	},
	{
		Kind:   factorCultural,
		Base:   6,
		Weight: 0.25,
		Fields: []field{fieldSector, fieldTags, fieldSummary, fieldTargetUser},
		Rules: []keywordRule{
			{Delta: +1.5, Keywords: []string{"social", "community", "소셜", "커뮤니티", "모임"}},
			{Delta: +1, Keywords: []string{"workplace", "office", "직장", "회사", "사내", "hr", "조직"}},
			{Delta: +2, Keywords: []string{"mobile", "messaging", "messenger", "모바일", "메신저", "카카오", "kakao"}},
			{Delta: -0.5, Keywords: []string{"privacy", "personal data", "개인정보", "데이터 수집"}},
			{Delta: +1, Keywords: []string{"senior", "elderly", "시니어", "노인", "실버", "고령"}},
		},
		Advice: "한국 사용자 문화와의 접점이 약합니다. 카카오톡 연동이나 커뮤니티 기능으로 현지화를 강화하세요.",
		Praise: "한국 사용자 문화와 잘 맞습니다. 입소문과 커뮤니티 중심 마케팅이 효과적입니다.",
	},
	{
		Kind:   factorMarketReadiness,
		Base:   5,
		Weight: 0.20,
		Advice: "시장 준비도가 낮습니다. 소규모 파일럿으로 수요를 먼저 검증하세요.",
		Praise: "시장 수요가 무르익었습니다. 지금이 진입 적기입니다.",
	},
	{
		Kind:   factorCompetitive,
		Base:   6,
		Weight: 0.15,
		Fields: []field{fieldSector, fieldTags, fieldBusinessModel},
		Rules: []keywordRule{
			{Delta: -2, Keywords: []string{"delivery", "배달", "ride-sharing", "ride sharing", "차량공유", "social media", "소셜미디어"}},
			{Delta: -1, Keywords: []string{"e-commerce", "ecommerce", "이커머스", "쇼핑몰", "marketplace", "마켓플레이스", "streaming", "스트리밍"}},
			{Delta: +2, Keywords: []string{"b2b saas", "enterprise tool", "enterprise tools", "productivity", "생산성", "업무 자동화"}},
		},
		Advice: "경쟁이 치열한 시장입니다. 네이버·카카오·쿠팡 등 대형 플랫폼과 겹치지 않는 틈새를 정의하세요.",
		Praise: "경쟁 강도가 낮습니다. 초기 고객 확보에 유리합니다.",
	},
	{
		Kind:   factorInfrastructure,
		Base:   7,
		Weight: 0.15,
		Fields: []field{fieldSector, fieldTags, fieldBusinessModel, fieldSummary},
		Rules: []keywordRule{
			{Delta: -1, Keywords: []string{"iot", "blockchain", "블록체인", "ai", "ml", "인공지능", "머신러닝", "autonomous", "자율주행"}},
			{Delta: +1, Keywords: []string{"web", "웹", "mobile app", "모바일 앱", "saas"}},
		},
		Advice: "필요한 인프라 투자가 큽니다. 클라우드 파트너십이나 정부 R&D 과제를 활용하세요.",
		Praise: "한국의 디지털 인프라를 바로 활용할 수 있습니다.",
	},
}

type KoreaFitResult struct {
	Score           float64               `json:"koreaFit"`
	Factors         types.KoreaFitFactors `json:"koreaFitFactors"`
	Recommendations []string              `json:"koreaFitRecommendations"`
}

// ScoreKoreaFit is deterministic: equal text fields give equal scores.
// Missing fields fall back to the factor base scores.
func ScoreKoreaFit(idea *types.Idea) KoreaFitResult {
	if idea == nil {
		idea = &types.Idea{}
	}
	scores := make([]float64, len(koreaFitTables))
	weighted := 0.0
	for i, table := range koreaFitTables {
		var raw float64
		if table.Kind == factorMarketReadiness {
			raw = marketReadiness(idea, table.Base)
		} else {
			raw = table.Base
			hay := haystack(idea, table.Fields...)
			for _, rule := range table.Rules {
				if containsAny(hay, rule.Keywords) {
					raw += rule.Delta
				}
			}
		}
		scores[i] = clampRound(raw)
		weighted += scores[i] * table.Weight
	}

	factors := types.KoreaFitFactors{}
	recs := []string{}
	for i, table := range koreaFitTables {
		switch table.Kind {
		case factorRegulatory:
			factors.RegulatoryFriendliness = scores[i]
		case factorCultural:
			factors.CulturalAlignment = scores[i]
		case factorMarketReadiness:
			factors.MarketReadiness = scores[i]
		case factorCompetitive:
			factors.CompetitiveLandscape = scores[i]
		case factorInfrastructure:
			factors.BusinessInfrastructure = scores[i]
		}
		switch {
		case scores[i] < recommendBelow:
			recs = append(recs, table.Advice)
		case scores[i] >= reinforceAtOrAbove:
			recs = append(recs, table.Praise)
		}
	}

	return KoreaFitResult{
		Score:           clampRound(weighted),
		Factors:         factors,
		Recommendations: recs,
	}
}

func marketReadiness(idea *types.Idea, base float64) float64 {
	score := base
	if idea.TrendData != nil {
		score += float64(idea.TrendData.TrendScore) / 100 * 3
	}
	if idea.Metrics != nil {
		if idea.Metrics.TimingScore != nil {
			score += *idea.Metrics.TimingScore / 10 * 2
		}
		if idea.Metrics.MarketOpportunity != nil {
			score += *idea.Metrics.MarketOpportunity / 10 * 1.5
		}
	}
	return score
}

func clampRound(v float64) float64 {
	if math.IsNaN(v) {
		return minScore
	}
	return math.Round(math.Min(maxScore, math.Max(minScore, v)))
}
