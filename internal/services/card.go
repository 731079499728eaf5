package services

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
	"github.com/yungbote/koreafit-backend/internal/modules/ideas/steps"
	"github.com/yungbote/koreafit-backend/internal/platform/logger"
)

const (
	CardWidth  = 1200
	CardHeight = 630
)

var (
	cardBackground = color.NRGBA{R: 0x12, G: 0x18, B: 0x2b, A: 0xff}
	cardAccent     = color.NRGBA{R: 0xff, G: 0x5a, B: 0x5f, A: 0xff}
	cardMuted      = color.NRGBA{R: 0x9a, G: 0xa4, B: 0xbf, A: 0xff}
	cardTrack      = color.NRGBA{R: 0x2a, G: 0x33, B: 0x4f, A: 0xff}
)

var factorLabels = []string{"Regulatory", "Cultural", "Market", "Competition", "Infrastructure"}

type CardRenderer interface {
	// Render draws the share card as a PNG. Unscored ideas are scored on the
	// fly; nothing is persisted.
	Render(idea *types.Idea) ([]byte, error)
}

type cardRenderer struct {
	log   *logger.Logger
	large font.Face
	score font.Face
	body  font.Face
	small font.Face
}

// NewCardRenderer loads a TTF from fontPath, or the bundled Go Regular face
// when fontPath is empty. Go Regular has no Hangul glyphs, so Korean
// deployments should point fontPath at a CJK font.
func NewCardRenderer(log *logger.Logger, fontPath string) (CardRenderer, error) {
	serviceLog := log.With("service", "CardRenderer")
	fontBytes := goregular.TTF
	if p := strings.TrimSpace(fontPath); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		fontBytes = b
		serviceLog.Info("Loaded card font", "path", p)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return &cardRenderer{
		log:   serviceLog,
		large: newFace(parsedFont, 64),
		score: newFace(parsedFont, 120),
		body:  newFace(parsedFont, 30),
		small: newFace(parsedFont, 24),
	}, nil
}

func newFace(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

func (cr *cardRenderer) Render(idea *types.Idea) ([]byte, error) {
	if idea == nil {
		return nil, fmt.Errorf("idea required")
	}
	score, factors := cardScore(idea)
	keyword := steps.DeriveKeyword(idea)
	if idea.TrendData != nil && idea.TrendData.Keyword != "" {
		keyword = idea.TrendData.Keyword
	}
	sector := idea.Sector
	if sector == "" {
		sector = "general"
	}

	dc := gg.NewContext(CardWidth, CardHeight)
	dc.SetColor(cardBackground)
	dc.DrawRectangle(0, 0, CardWidth, CardHeight)
	dc.Fill()

	dc.SetColor(cardAccent)
	dc.DrawRectangle(0, 0, 16, CardHeight)
	dc.Fill()

	dc.SetFontFace(cr.small)
	dc.SetColor(cardMuted)
	dc.DrawString("KOREA-FIT", 72, 80)

	dc.SetFontFace(cr.large)
	dc.SetColor(color.White)
	dc.DrawString(fitText(dc, keyword, 620), 72, 170)

	dc.SetFontFace(cr.body)
	dc.SetColor(cardMuted)
	dc.DrawString(fitText(dc, strings.ToUpper(sector), 620), 72, 220)
	dc.SetColor(color.White)
	dc.DrawString(fitText(dc, idea.Title, 620), 72, 270)

	// Overall score, right column.
	dc.SetFontFace(cr.score)
	dc.SetColor(cardAccent)
	dc.DrawStringAnchored(fmt.Sprintf("%.1f", score), 1000, 190, 0.5, 0.5)
	dc.SetFontFace(cr.small)
	dc.SetColor(cardMuted)
	dc.DrawStringAnchored("/ 10", 1000, 270, 0.5, 0.5)

	const (
		barX      = 300.0
		barWidth  = 820.0
		barHeight = 22.0
		rowTop    = 340.0
		rowStep   = 54.0
	)
	for i, v := range factors.Values() {
		y := rowTop + float64(i)*rowStep
		dc.SetFontFace(cr.small)
		dc.SetColor(cardMuted)
		dc.DrawStringAnchored(factorLabels[i], 72, y+barHeight/2, 0, 0.35)

		dc.SetColor(cardTrack)
		dc.DrawRoundedRectangle(barX, y, barWidth, barHeight, barHeight/2)
		dc.Fill()
		if w := barWidth * clamp01(v/10); w > 0 {
			dc.SetColor(cardAccent)
			dc.DrawRoundedRectangle(barX, y, w, barHeight, barHeight/2)
			dc.Fill()
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func cardScore(idea *types.Idea) (float64, types.KoreaFitFactors) {
	if idea.KoreaFit != nil && idea.KoreaFitFactors != nil {
		return *idea.KoreaFit, *idea.KoreaFitFactors
	}
	res := steps.ScoreKoreaFit(idea)
	return res.Score, res.Factors
}

// fitText trims s with an ellipsis until it fits maxWidth in the current face.
func fitText(dc *gg.Context, s string, maxWidth float64) string {
	if w, _ := dc.MeasureString(s); w <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := strings.TrimSpace(string(runes)) + "…"
		if w, _ := dc.MeasureString(candidate); w <= maxWidth {
			return candidate
		}
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
