package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docscan/internal/middleware"
	"github.com/xxxsen/docscan/internal/session"
)

type RouterDeps struct {
	Auth            *AuthHandler
	Documents       *DocumentHandler
	Versions        *VersionHandler
	Recognition     *RecognitionHandler
	Export          *ExportHandler
	Files           *FileHandler
	Session         *SessionHandler
	Sessions        *session.Manager
	JWTSecret       []byte
	RecognizeWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret, deps.Sessions))
	authGroup.POST("/auth/logout", deps.Auth.Logout)
	authGroup.GET("/session", deps.Session.Get)

	recognize := authGroup.Group("/recognize")
	recognize.Use(middleware.RateLimit(deps.RecognizeWindow))
	recognize.POST("", deps.Recognition.Recognize)
	recognize.POST("/math", deps.Recognition.RecognizeMath)

	authGroup.POST("/documents", deps.Documents.Create)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id", deps.Documents.Get)
	authGroup.PUT("/documents/:id", deps.Documents.Save)
	authGroup.DELETE("/documents/:id", deps.Documents.Delete)
	authGroup.GET("/documents/:id/versions", deps.Versions.List)
	authGroup.GET("/documents/:id/export", deps.Export.ExportDocument)
	authGroup.POST("/versions/:id/restore", deps.Versions.Restore)

	authGroup.GET("/export", deps.Export.Export)
	authGroup.GET("/files/:key", deps.Files.Get)
}
