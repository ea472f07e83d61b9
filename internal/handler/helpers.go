package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docscan/internal/filestore"
	"github.com/xxxsen/docscan/internal/middleware"
	"github.com/xxxsen/docscan/internal/pkg/errcode"
	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
	"github.com/xxxsen/docscan/internal/pkg/response"
	"github.com/xxxsen/docscan/internal/session"
)

func getUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserIDKey)
}

// getSession returns the session attached by JWTAuth. Routes behind the
// middleware always have one; a missing session writes an error.
func getSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, errcode.ErrUnauthorized, "session required")
		return nil, false
	}
	return sess, true
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code, msg := classify(err)
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Error(err),
	)
	if code == errcode.ErrInternal || code == errcode.ErrRecognitionFailed {
		logger.Error("request failed")
	} else {
		logger.Debug("request rejected")
	}
	response.Error(c, code, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		return errcode.ErrUnauthorized, "unauthorized"
	case errors.Is(err, appErr.ErrForbidden):
		return errcode.ErrForbidden, "forbidden"
	case errors.Is(err, appErr.ErrNotFound):
		return errcode.ErrNotFound, "not found"
	case errors.Is(err, appErr.ErrConflict):
		return errcode.ErrConflict, "document was modified, reload and retry"
	case errors.Is(err, appErr.ErrTooMany):
		return errcode.ErrTooMany, "too many requests"
	case errors.Is(err, appErr.ErrRecognition):
		return errcode.ErrRecognitionFailed, "recognition failed"
	case errors.Is(err, appErr.ErrUnavailable):
		return errcode.ErrMathUnavailable, "recognizer unavailable"
	case errors.Is(err, filestore.ErrInvalidKey):
		return errcode.ErrInvalid, "invalid file key"
	case errors.Is(err, appErr.ErrInvalid):
		return errcode.ErrInvalid, invalidMessage(err)
	default:
		return errcode.ErrInternal, "internal error"
	}
}

// invalidMessage keeps the validation detail of errors built as
// "<detail>: invalid".
func invalidMessage(err error) string {
	msg := err.Error()
	suffix := ": " + appErr.ErrInvalid.Error()
	if len(msg) > len(suffix) && msg[len(msg)-len(suffix):] == suffix {
		return msg[:len(msg)-len(suffix)]
	}
	return "invalid request"
}
