package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
	"github.com/yungbote/koreafit-backend/internal/http/response"
	"github.com/yungbote/koreafit-backend/internal/platform/logger"
	"github.com/yungbote/koreafit-backend/internal/services"
)

var errNoChanges = errors.New("no changes provided")

type IdeaHandlerDeps struct {
	Log   *logger.Logger
	Ideas services.IdeaService
	Cards services.CardRenderer
}

type IdeaHandler struct {
	log   *logger.Logger
	ideas services.IdeaService
	cards services.CardRenderer
}

func NewIdeaHandlerWithDeps(deps IdeaHandlerDeps) *IdeaHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &IdeaHandler{
		log:   log.With("handler", "IdeaHandler"),
		ideas: deps.Ideas,
		cards: deps.Cards,
	}
}

// GET /api/ideas?sector=&tag=&sort=&limit=
func (h *IdeaHandler) List(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = n
	}
	ideas, err := h.ideas.List(c.Request.Context(), services.ListFilter{
		Sector: c.Query("sector"),
		Tag:    c.Query("tag"),
		Sort:   c.Query("sort"),
		Limit:  limit,
	})
	if err != nil {
		response.RespondAPIError(c, err, "list_ideas_failed")
		return
	}
	response.RespondOK(c, gin.H{"ideas": ideas})
}

// GET /api/ideas/:id
func (h *IdeaHandler) Get(c *gin.Context) {
	idea, status, err := h.ideas.GetEnriched(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, err, "get_idea_failed")
		return
	}
	response.RespondOK(c, gin.H{"idea": idea, "enrichment": status})
}

// GET /api/ideas/:id/card.png
func (h *IdeaHandler) Card(c *gin.Context) {
	if h.cards == nil {
		response.RespondError(c, http.StatusNotImplemented, "card_unavailable", nil)
		return
	}
	idea, _, err := h.ideas.GetEnriched(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, err, "get_idea_failed")
		return
	}
	png, err := h.cards.Render(idea)
	if err != nil {
		h.log.Error("Card render failed", "idea_id", idea.ID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "card_render_failed", nil)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

// POST /api/ideas/:id/vote
// body: { "direction": "up" | "down" }
func (h *IdeaHandler) Vote(c *gin.Context) {
	var req struct {
		Direction string `json:"direction" binding:"required,oneof=up down"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	idea, err := h.ideas.Vote(c.Request.Context(), c.Param("id"), req.Direction)
	if err != nil {
		response.RespondAPIError(c, err, "vote_failed")
		return
	}
	response.RespondOK(c, gin.H{"idea": idea})
}

// POST /api/admin/ideas
func (h *IdeaHandler) Create(c *gin.Context) {
	var req types.Idea
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	idea, err := h.ideas.Create(c.Request.Context(), &req)
	if err != nil {
		response.RespondAPIError(c, err, "create_idea_failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"idea": idea})
}

// PATCH /api/admin/ideas/:id
func (h *IdeaHandler) Update(c *gin.Context) {
	var patch types.IdeaPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if patch.IsEmpty() {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errNoChanges)
		return
	}
	idea, err := h.ideas.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		response.RespondAPIError(c, err, "update_idea_failed")
		return
	}
	response.RespondOK(c, gin.H{"idea": idea})
}

// POST /api/admin/ideas/bulk
// body: { "ideas": [...] }
func (h *IdeaHandler) UpsertBulk(c *gin.Context) {
	var req struct {
		Ideas []*types.Idea `json:"ideas" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	n, err := h.ideas.UpsertBulk(c.Request.Context(), req.Ideas)
	if err != nil {
		response.RespondAPIError(c, err, "upsert_ideas_failed")
		return
	}
	response.RespondOK(c, gin.H{"processed": n})
}

// POST /api/admin/ideas/:id/enrich?force=true
func (h *IdeaHandler) Enrich(c *gin.Context) {
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))
	idea, status, err := h.ideas.Enrich(c.Request.Context(), c.Param("id"), force)
	if err != nil {
		response.RespondAPIError(c, err, "enrich_failed")
		return
	}
	response.RespondOK(c, gin.H{"idea": idea, "enrichment": status})
}

// POST /api/admin/ideas/:id/hide
func (h *IdeaHandler) Hide(c *gin.Context) { h.setVisible(c, false) }

// POST /api/admin/ideas/:id/show
func (h *IdeaHandler) Show(c *gin.Context) { h.setVisible(c, true) }

func (h *IdeaHandler) setVisible(c *gin.Context, visible bool) {
	idea, err := h.ideas.SetVisible(c.Request.Context(), c.Param("id"), visible)
	if err != nil {
		response.RespondAPIError(c, err, "update_idea_failed")
		return
	}
	response.RespondOK(c, gin.H{"idea": idea})
}
