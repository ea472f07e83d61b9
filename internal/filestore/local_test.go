package filestore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docscan/internal/config"
	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
)

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

func newLocal(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)
	return store, dir
}

func TestLocalSaveOpen(t *testing.T) {
	store, dir := newLocal(t)
	key := ScanKey("u1")
	require.True(t, ValidKey(key))
	require.True(t, OwnedBy(key, "u1"))
	require.False(t, OwnedBy(key, "u2"))

	body := []byte("png-bytes")
	require.NoError(t, store.Save(context.Background(), key, nopCloser{bytes.NewReader(body)}, int64(len(body))))

	rc, err := store.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, body, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, key, entries[0].Name())
}

func TestLocalRejectsTraversal(t *testing.T) {
	store, dir := newLocal(t)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(dir), "secret.txt"), []byte("x"), 0o600))

	_, err := store.Open(context.Background(), "../secret.txt")
	require.ErrorIs(t, err, ErrInvalidKey)
	err = store.Save(context.Background(), "a/b.png", nopCloser{bytes.NewReader(nil)}, 0)
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestLocalOpenMissing(t *testing.T) {
	store, _ := newLocal(t)
	_, err := store.Open(context.Background(), "u1_missing.png")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestLocalURL(t *testing.T) {
	store, _ := newLocal(t)
	require.Equal(t, "http://host/api/v1/files/k.png", store.URL("k.png", "http://host/"))
}

func TestUnknownStore(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{Type: "local"})
	require.Error(t, err)
}
