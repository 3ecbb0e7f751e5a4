package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/server/services"
	"github.com/gin-gonic/gin"
)

type sessionResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (h *Handler) register(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	s, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	h.setSession(c, s.Token)
	c.JSON(http.StatusCreated, sessionResponse{UserID: s.UserID, Username: s.Username, Token: s.Token})
}

func (h *Handler) login(c *gin.Context) {
	var in services.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	s, err := h.users.Login(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	h.setSession(c, s.Token)
	c.JSON(http.StatusOK, sessionResponse{UserID: s.UserID, Username: s.Username, Token: s.Token})
}

func (h *Handler) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(common.SessionCookieName, "", -1, "/", "", h.secureCookie, true)
	c.Status(http.StatusNoContent)
}

func (h *Handler) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(common.SessionCookieName, token, int(h.users.SessionValidity().Seconds()), "/", "", h.secureCookie, true)
}
