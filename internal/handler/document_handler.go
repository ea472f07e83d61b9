package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docscan/internal/model"
	"github.com/xxxsen/docscan/internal/pkg/errcode"
	"github.com/xxxsen/docscan/internal/pkg/response"
	"github.com/xxxsen/docscan/internal/recognition"
	"github.com/xxxsen/docscan/internal/service"
)

type DocumentHandler struct {
	workspace *service.Workspace
}

func NewDocumentHandler(workspace *service.Workspace) *DocumentHandler {
	return &DocumentHandler{workspace: workspace}
}

type recognitionPayload struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Latex      string  `json:"latex"`
	ImageKey   string  `json:"image_key"`
}

type documentRequest struct {
	Title       string                  `json:"title"`
	Content     string                  `json:"content"`
	Metadata    *model.DocumentMetadata `json:"metadata"`
	Recognition *recognitionPayload     `json:"recognition"`
}

// Create stores a manual document, or a scanned one when the body carries
// a recognition result.
func (h *DocumentHandler) Create(c *gin.Context) {
	sess, ok := getSession(c)
	if !ok {
		return
	}
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	var (
		doc *model.Document
		err error
	)
	if req.Recognition != nil {
		doc, err = h.workspace.CreateFromRecognition(c.Request.Context(), sess, service.ScanDocumentInput{
			Title: strings.TrimSpace(req.Title),
			Result: recognition.Result{
				Text:       req.Recognition.Text,
				Confidence: req.Recognition.Confidence,
				Language:   req.Recognition.Language,
				Latex:      req.Recognition.Latex,
			},
			ImageKey: req.Recognition.ImageKey,
		})
	} else {
		input := service.DocumentCreateInput{Title: req.Title, Content: req.Content}
		if req.Metadata != nil {
			input.Metadata = *req.Metadata
		}
		doc, err = h.workspace.Create(c.Request.Context(), sess, input)
	}
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

// List applies the query parameters to the session's list state. Absent
// parameters keep the session's current values.
func (h *DocumentHandler) List(c *gin.Context) {
	sess, ok := getSession(c)
	if !ok {
		return
	}
	var patch service.ListParamsPatch
	for _, item := range []struct {
		name string
		dst  **int
	}{{"page", &patch.Page}, {"per_page", &patch.PerPage}} {
		value, exists := c.GetQuery(item.name)
		if !exists {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			response.Error(c, errcode.ErrInvalid, "invalid "+item.name)
			return
		}
		*item.dst = &parsed
	}
	if value, exists := c.GetQuery("search"); exists {
		patch.Search = &value
	}
	if value, exists := c.GetQuery("sort_by"); exists {
		patch.SortBy = &value
	}
	if value, exists := c.GetQuery("sort_order"); exists {
		patch.SortOrder = &value
	}
	result, err := h.workspace.List(c.Request.Context(), sess, patch)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	sess, ok := getSession(c)
	if !ok {
		return
	}
	doc, err := h.workspace.Open(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

type saveRequest struct {
	Content  *string `json:"content"`
	Revision *int64  `json:"revision"`
}

func (h *DocumentHandler) Save(c *gin.Context) {
	sess, ok := getSession(c)
	if !ok {
		return
	}
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == nil {
		response.Error(c, errcode.ErrInvalid, "content required")
		return
	}
	doc, err := h.workspace.Save(c.Request.Context(), sess, c.Param("id"), *req.Content, req.Revision)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	sess, ok := getSession(c)
	if !ok {
		return
	}
	if err := h.workspace.Delete(c.Request.Context(), sess, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
