package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/gin-gonic/gin"
)

var errBodyTooLarge = errors.New("request body is too large")

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError maps service errors onto HTTP statuses. Unexpected errors
// never leak their cause to the client.
func writeError(c *gin.Context, err error) {
	var (
		verr     *common.ValidationError
		conflict *common.ConflictError
	)

	switch {
	case errors.Is(err, errBodyTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: errBodyTooLarge.Error()})
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, errorResponse{Error: conflict.Message})
	case errors.Is(err, common.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: common.ErrInvalidCredentials.Error()})
	case errors.Is(err, common.ErrorUnauthorized):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: common.ErrPersistence.Error()})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}
