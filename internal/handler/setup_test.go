package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docscan/internal/config"
	"github.com/xxxsen/docscan/internal/filestore"
	"github.com/xxxsen/docscan/internal/handler"
	"github.com/xxxsen/docscan/internal/middleware"
	"github.com/xxxsen/docscan/internal/recognition"
	"github.com/xxxsen/docscan/internal/service"
	"github.com/xxxsen/docscan/internal/session"
	"github.com/xxxsen/docscan/internal/testutil"
)

type stubEngine struct{}

func (stubEngine) Name() string { return "stub" }

func (stubEngine) Recognize(ctx context.Context, img *recognition.Image) (*recognition.TextResult, error) {
	return &recognition.TextResult{Text: "scanned text", Confidence: 0.75, Language: "eng"}, nil
}

type env struct {
	router   *gin.Engine
	store    *testutil.MemStore
	sessions *session.Manager
}

func setupRouter(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	secret := []byte("handler-secret")
	store := testutil.NewMemStore()
	sessions := session.NewManager(16, time.Hour, 10)
	files, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)

	docs := service.NewDocumentService(store, true)
	versions := service.NewVersionService(store, true)
	list := service.NewListController(store, 10)
	workspace := service.NewWorkspace(docs, versions, list)
	scans := service.NewScanService(recognition.NewGateway(stubEngine{}, nil, time.Second), files, true)

	router := gin.New()
	router.Use(middleware.RequestID())
	handler.RegisterRoutes(router.Group("/api/v1"), handler.RouterDeps{
		Auth:        handler.NewAuthHandler(service.NewAuthService(testutil.NewMemUsers(), sessions, secret, time.Hour)),
		Documents:   handler.NewDocumentHandler(workspace),
		Versions:    handler.NewVersionHandler(workspace),
		Recognition: handler.NewRecognitionHandler(scans, 1024*1024),
		Export:      handler.NewExportHandler(service.NewExportService(store)),
		Files:       handler.NewFileHandler(files),
		Session:     handler.NewSessionHandler(),
		Sessions:    sessions,
		JWTSecret:   secret,
	})
	return &env{router: router, store: store, sessions: sessions}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var out envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func (e *env) register(t *testing.T, email string) string {
	t.Helper()
	out := e.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(t, 0, out.Code, out.Msg)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func decode(t *testing.T, out envelope, dst interface{}) {
	t.Helper()
	require.Equal(t, 0, out.Code, out.Msg)
	require.NoError(t, json.Unmarshal(out.Data, dst))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}
