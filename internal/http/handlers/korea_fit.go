package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
	"github.com/yungbote/koreafit-backend/internal/http/response"
	"github.com/yungbote/koreafit-backend/internal/services"
)

type KoreaFitHandler struct {
	ideas services.IdeaService
}

func NewKoreaFitHandler(ideas services.IdeaService) *KoreaFitHandler {
	return &KoreaFitHandler{ideas: ideas}
}

// POST /api/korea-fit/score
// body: an unsaved idea; nothing is persisted.
func (h *KoreaFitHandler) Score(c *gin.Context) {
	var req types.Idea
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.ideas.ScorePreview(c.Request.Context(), &req)
	if err != nil {
		response.RespondAPIError(c, err, "score_failed")
		return
	}
	response.RespondOK(c, res)
}
