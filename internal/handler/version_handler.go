package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docscan/internal/pkg/errcode"
	"github.com/xxxsen/docscan/internal/pkg/response"
	"github.com/xxxsen/docscan/internal/service"
)

type VersionHandler struct {
	workspace *service.Workspace
}

func NewVersionHandler(workspace *service.Workspace) *VersionHandler {
	return &VersionHandler{workspace: workspace}
}

func (h *VersionHandler) List(c *gin.Context) {
	sess, ok := getSession(c)
	if !ok {
		return
	}
	versions, err := h.workspace.History(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, versions)
}

type restoreRequest struct {
	Revision *int64 `json:"revision"`
}

// Restore copies a version's content back onto its document. An empty body
// restores without a revision check.
func (h *VersionHandler) Restore(c *gin.Context) {
	sess, ok := getSession(c)
	if !ok {
		return
	}
	var req restoreRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, errcode.ErrInvalid, "invalid request")
			return
		}
	}
	doc, err := h.workspace.Restore(c.Request.Context(), sess, c.Param("id"), req.Revision)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}
