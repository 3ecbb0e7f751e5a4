package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/server/services"
	"github.com/gin-gonic/gin"
)

type decisionRequest struct {
	Action services.Decision `json:"action"`
}

// submit serves the multipart proof upload: a "proofOfExploit" file part
// and an optional "description" field.
func (h *Handler) submit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	proof, closeFn, err := formImage(c, "proofOfExploit")
	if err != nil {
		writeError(c, err)
		return
	}
	defer closeFn()

	in := services.SubmitInput{Description: c.PostForm("description")}
	v, err := h.submissions.Submit(c.Request.Context(), currentUserID(c), id, in, proof)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) listSubmissions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	list, err := h.submissions.ListForCreator(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) decide(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if err := h.adjudication.Decide(c.Request.Context(), id, currentUserID(c), req.Action); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// formImage opens an uploaded file part. A missing part is a validation
// error on field.
func formImage(c *gin.Context, field string) (*services.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, func() {}, errBodyTooLarge
		}
		return nil, func() {}, common.NewValidationError(field, "is required")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}
