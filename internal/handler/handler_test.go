package handler_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docscan/internal/model"
	"github.com/xxxsen/docscan/internal/pkg/errcode"
	"github.com/xxxsen/docscan/internal/service"
	"github.com/xxxsen/docscan/internal/session"
)

func TestDocumentsRequireAuth(t *testing.T) {
	e := setupRouter(t)
	out := e.do(t, http.MethodGet, "/api/v1/documents", "", nil)
	require.Equal(t, errcode.ErrUnauthorized, out.Code)
	out = e.do(t, http.MethodGet, "/api/v1/documents", "garbage", nil)
	require.Equal(t, errcode.ErrUnauthorized, out.Code)
}

func TestDocumentLifecycle(t *testing.T) {
	e := setupRouter(t)
	token := e.register(t, "doc@example.com")

	var doc model.Document
	decode(t, e.do(t, http.MethodPost, "/api/v1/documents", token, map[string]string{"title": "Notes", "content": "v1"}), &doc)
	require.Equal(t, int64(1), doc.Revision)
	require.Equal(t, "manual", doc.Metadata.Source)

	out := e.do(t, http.MethodPost, "/api/v1/documents", token, map[string]string{"title": "  "})
	require.Equal(t, errcode.ErrInvalid, out.Code)

	var saved model.Document
	decode(t, e.do(t, http.MethodPut, "/api/v1/documents/"+doc.ID, token, map[string]interface{}{"content": "v2", "revision": 1}), &saved)
	require.Equal(t, "v2", saved.Content)
	require.Equal(t, int64(2), saved.Revision)

	out = e.do(t, http.MethodPut, "/api/v1/documents/"+doc.ID, token, map[string]interface{}{"content": "v3", "revision": 1})
	require.Equal(t, errcode.ErrConflict, out.Code)

	var versions []model.DocumentVersion
	decode(t, e.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID+"/versions", token, nil), &versions)
	require.Len(t, versions, 1)
	require.Equal(t, "v1", versions[0].Content)

	var restored model.Document
	decode(t, e.do(t, http.MethodPost, "/api/v1/versions/"+versions[0].ID+"/restore", token, map[string]interface{}{"revision": 2}), &restored)
	require.Equal(t, "v1", restored.Content)
	require.Equal(t, int64(3), restored.Revision)

	var view session.View
	decode(t, e.do(t, http.MethodGet, "/api/v1/session", token, nil), &view)
	require.NotNil(t, view.Selected)
	require.Equal(t, doc.ID, view.Selected.ID)
	require.Equal(t, int64(3), view.Selected.Revision)
	require.Equal(t, 1, view.List.Total)

	decode(t, e.do(t, http.MethodDelete, "/api/v1/documents/"+doc.ID, token, nil), &map[string]bool{})
	out = e.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID, token, nil)
	require.Equal(t, errcode.ErrNotFound, out.Code)
	require.Zero(t, e.store.VersionCount())

	view = session.View{}
	decode(t,e.do(t, http.MethodGet, "/api/v1/session", token, nil), &view)
	require.Nil(t, view.Selected)
	require.Zero(t, view.List.Total)
}

func TestDocumentsAreScopedToUser(t *testing.T) {
	e := setupRouter(t)
	alice := e.register(t, "alice@example.com")
	bob := e.register(t, "bob@example.com")

	var doc model.Document
	decode(t, e.do(t, http.MethodPost, "/api/v1/documents", alice, map[string]string{"title": "private"}), &doc)

	out := e.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID, bob, nil)
	require.Equal(t, errcode.ErrNotFound, out.Code)
	out = e.do(t, http.MethodPut, "/api/v1/documents/"+doc.ID, bob, map[string]string{"content": "x"})
	require.Equal(t, errcode.ErrNotFound, out.Code)

	var result service.ListResult
	decode(t, e.do(t, http.MethodGet, "/api/v1/documents", bob, nil), &result)
	require.Zero(t, result.Total)
}

func TestListUsesSessionParams(t *testing.T) {
	e := setupRouter(t)
	token := e.register(t, "list@example.com")
	for i := 0; i < 12; i++ {
		e.do(t, http.MethodPost, "/api/v1/documents", token, map[string]string{"title": fmt.Sprintf("doc %02d", i)})
	}

	var result service.ListResult
	decode(t, e.do(t, http.MethodGet, "/api/v1/documents?page=2&sort_by=title&sort_order=asc", token, nil), &result)
	require.Equal(t, 12, result.Total)
	require.Equal(t, 2, result.TotalPages)
	require.Len(t, result.Documents, 2)
	require.Equal(t, "doc 10", result.Documents[0].Title)

	// parameters persist in the session
	decode(t, e.do(t, http.MethodGet, "/api/v1/documents", token, nil), &result)
	require.Equal(t, 2, result.Page)

	decode(t, e.do(t, http.MethodGet, "/api/v1/documents?search=doc%2003", token, nil), &result)
	require.Equal(t, 1, result.Page)
	require.Equal(t, 1, result.Total)

	out := e.do(t, http.MethodGet, "/api/v1/documents?sort_by=size", token, nil)
	require.Equal(t, errcode.ErrInvalid, out.Code)
	out = e.do(t, http.MethodGet, "/api/v1/documents?page=x", token, nil)
	require.Equal(t, errcode.ErrInvalid, out.Code)
}

func TestRecognizeAndCreateScannedDocument(t *testing.T) {
	e := setupRouter(t)
	token := e.register(t, "scan@example.com")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "page.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var scan service.ScanOutcome
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	decode(t, env, &scan)
	require.Equal(t, "scanned text", scan.Text)
	require.NotEmpty(t, scan.ImageKey)

	var doc model.Document
	decode(t, e.do(t, http.MethodPost, "/api/v1/documents", token, map[string]interface{}{
		"recognition": map[string]interface{}{
			"text": scan.Text, "confidence": scan.Confidence, "language": scan.Language, "image_key": scan.ImageKey,
		},
	}), &doc)
	require.Equal(t, "OCR", doc.Metadata.Source)
	require.Equal(t, "scanned text", doc.Content)
	require.Contains(t, doc.Title, "Scanned Document")
	require.NotNil(t, doc.Metadata.Confidence)
	require.InDelta(t, 0.75, *doc.Metadata.Confidence, 1e-9)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/files/"+scan.ImageKey, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "image/png", resp.Header().Get("Content-Type"))

	other := e.register(t, "other@example.com")
	out := e.do(t, http.MethodGet, "/api/v1/files/"+scan.ImageKey, other, nil)
	require.Equal(t, errcode.ErrNotFound, out.Code)
}

func TestManualCreateRejectsForeignImageKey(t *testing.T) {
	e := setupRouter(t)
	token := e.register(t, "manual@example.com")
	out := e.do(t, http.MethodPost, "/api/v1/documents", token, map[string]interface{}{
		"title":    "borrowed",
		"metadata": map[string]string{"image_key": "someoneelse_abc.png"},
	})
	require.Equal(t, errcode.ErrInvalid, out.Code)
}

func TestRecognizeJSONBody(t *testing.T) {
	e := setupRouter(t)
	token := e.register(t, "json@example.com")
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))

	var scan service.ScanOutcome
	decode(t, e.do(t, http.MethodPost, "/api/v1/recognize", token, map[string]string{"image": dataURL}), &scan)
	require.Equal(t, "scanned text", scan.Text)

	out := e.do(t, http.MethodPost, "/api/v1/recognize", token, map[string]string{"image": "data:image/png;base64,AAAA"})
	require.Equal(t, errcode.ErrInvalid, out.Code)
	out = e.do(t, http.MethodPost, "/api/v1/recognize", token, map[string]string{})
	require.Equal(t, errcode.ErrInvalidFile, out.Code)

	out = e.do(t, http.MethodPost, "/api/v1/recognize/math", token, map[string]string{"image": dataURL})
	require.Equal(t, errcode.ErrMathUnavailable, out.Code)
}

func TestExportDocument(t *testing.T) {
	e := setupRouter(t)
	token := e.register(t, "export@example.com")
	var doc model.Document
	decode(t, e.do(t, http.MethodPost, "/api/v1/documents", token, map[string]string{"title": "Report", "content": "a < b"}), &doc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID+"/export?format=html", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Header().Get("Content-Disposition"), "Report.html")
	require.Contains(t, resp.Body.String(), "a &lt; b")

	out := e.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID+"/export?format=docx", token, nil)
	require.Equal(t, errcode.ErrInvalid, out.Code)

	var payload service.ExportPayload
	decode(t, e.do(t, http.MethodGet, "/api/v1/export", token, nil), &payload)
	require.Len(t, payload.Documents, 1)
}

func TestLogoutDropsSession(t *testing.T) {
	e := setupRouter(t)
	token := e.register(t, "logout@example.com")
	require.Equal(t, 1, e.sessions.Len())
	decode(t, e.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil), &map[string]bool{})
	require.Zero(t, e.sessions.Len())
}
