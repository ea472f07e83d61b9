package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docscan/internal/pkg/errcode"
	"github.com/xxxsen/docscan/internal/pkg/response"
	"github.com/xxxsen/docscan/internal/service"
)

type RecognitionHandler struct {
	scans    *service.ScanService
	maxBytes int64
}

func NewRecognitionHandler(scans *service.ScanService, maxBytes int64) *RecognitionHandler {
	return &RecognitionHandler{scans: scans, maxBytes: maxBytes}
}

type imageRequest struct {
	Image string `json:"image"`
}

// Recognize accepts a multipart "file" field or a JSON body whose "image"
// is a data URL.
func (h *RecognitionHandler) Recognize(c *gin.Context) {
	data, ok := h.readImage(c)
	if !ok {
		return
	}
	out, err := h.scans.Scan(c.Request.Context(), getUserID(c), data, requestBaseURL(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, out)
}

func (h *RecognitionHandler) RecognizeMath(c *gin.Context) {
	data, ok := h.readImage(c)
	if !ok {
		return
	}
	out, err := h.scans.RecognizeMath(c.Request.Context(), data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, out)
}

func (h *RecognitionHandler) readImage(c *gin.Context) ([]byte, bool) {
	limitBody(c, h.maxBytes)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("file")
		if err != nil {
			response.Error(c, errcode.ErrInvalidFile, "file is required")
			return nil, false
		}
		if file.Size > h.maxBytes {
			response.Error(c, errcode.ErrInvalidFile, "file exceeds "+formatUploadLimit(h.maxBytes))
			return nil, false
		}
		opened, err := file.Open()
		if err != nil {
			response.Error(c, errcode.ErrInvalidFile, "failed to open file")
			return nil, false
		}
		defer opened.Close()
		data, err := readLimited(opened, h.maxBytes)
		if err != nil {
			h.readFailed(c, err)
			return nil, false
		}
		return data, true
	}
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Image == "" {
		response.Error(c, errcode.ErrInvalidFile, "image is required")
		return nil, false
	}
	// base64 inflates by a third.
	if int64(len(req.Image)) > h.maxBytes*4/3+128 {
		response.Error(c, errcode.ErrInvalidFile, "file exceeds "+formatUploadLimit(h.maxBytes))
		return nil, false
	}
	return []byte(req.Image), true
}

func (h *RecognitionHandler) readFailed(c *gin.Context, err error) {
	if errors.Is(err, errUploadTooLarge) {
		response.Error(c, errcode.ErrInvalidFile, "file exceeds "+formatUploadLimit(h.maxBytes))
		return
	}
	response.Error(c, errcode.ErrInvalidFile, "failed to read file")
}
