package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docscan/internal/pkg/response"
)

type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Get returns the caller's list parameters, cached list and selection.
func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := getSession(c)
	if !ok {
		return
	}
	response.Success(c, sess.View())
}
