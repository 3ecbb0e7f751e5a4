package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (h *Handler) getProfile(c *gin.Context) {
	p, err := h.users.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var in services.UpdateProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	p, err := h.users.UpdateProfile(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) uploadProfileImage(c *gin.Context) {
	img, closeFn, err := formImage(c, "profileImage")
	if err != nil {
		writeError(c, err)
		return
	}
	defer closeFn()

	url, err := h.users.UploadProfileImage(c.Request.Context(), currentUserID(c), img)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profileImage": url})
}

func (h *Handler) getLeaderboard(c *gin.Context) {
	entries, err := h.leaderboard.Compute(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// redirectImage sends the browser to the public URL of a stored image.
func (h *Handler) redirectImage(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		writeError(c, common.NewValidationError("path", "is required"))
		return
	}

	u, err := h.images.URL(c.Request.Context(), path)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, u)
}
