package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
	"github.com/dmitrijs2005/bountyboard/internal/server/services"
	"github.com/gin-gonic/gin"
)

type challengePageResponse struct {
	Challenges []services.ChallengeView `json:"challenges"`
	Index      int                      `json:"index"`
	PageCount  int                      `json:"pageCount"`
}

// listChallenges serves GET /challenges?status=&index=. index is 1-based.
func (h *Handler) listChallenges(c *gin.Context) {
	index := 1
	if raw := c.Query("index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(c, common.NewValidationError("index", "must be a positive integer"))
			return
		}
		index = n
	}

	page, err := h.challenges.List(c.Request.Context(), models.ChallengeStatus(c.Query("status")), index-1)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, challengePageResponse{
		Challenges: page.Challenges,
		Index:      page.Page + 1,
		PageCount:  page.PageCount,
	})
}

func (h *Handler) getChallenge(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	v, err := h.challenges.Get(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) createChallenge(c *gin.Context) {
	var in services.CreateChallengeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	v, err := h.challenges.Create(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) updateChallenge(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var in services.UpdateChallengeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	v, err := h.challenges.Update(c.Request.Context(), id, currentUserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) listOwnChallenges(c *gin.Context) {
	list, err := h.challenges.ListOwn(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) listAchievements(c *gin.Context) {
	list, err := h.challenges.ListWon(c.Request.Context(), currentUserID(c), 0)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// pathID parses the :id parameter. Malformed ids are reported as 404.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, common.ErrorNotFound)
		return 0, false
	}
	return id, true
}
