package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docscan/internal/pkg/response"
	"github.com/xxxsen/docscan/internal/service"
)

type ExportHandler struct {
	export *service.ExportService
}

func NewExportHandler(export *service.ExportService) *ExportHandler {
	return &ExportHandler{export: export}
}

// Export returns every document and version the user owns.
func (h *ExportHandler) Export(c *gin.Context) {
	payload, err := h.export.Export(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, payload)
}

func (h *ExportHandler) ExportDocument(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.Query("format")))
	if format == "" {
		format = "txt"
	}
	file, err := h.export.ExportDocument(c.Request.Context(), getUserID(c), c.Param("id"), format)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
