package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/xxxsen/docscan/internal/config"
)

var (
	ErrInvalidKey   = errors.New("invalid file key")
	ErrNotSupported = errors.New("operation not supported by store")

	keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[a-z0-9]+$`)
)

// Store keeps scanned images. Keys are flat names produced by ScanKey.
type Store interface {
	Type() string
	Save(ctx context.Context, key string, r ReadSeekCloser, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	URL(key, baseURL string) string
}

type ReadSeekCloser interface {
	Read(p []byte) (n int, err error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
}

type Factory func(args interface{}) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.FileStoreConfig) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("file_store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported file store type: %s", cfg.Type)
	}
	return factory(cfg.Data)
}

// ScanKey names a new scan image owned by userID.
func ScanKey(userID string) string {
	return userID + "_" + strings.ReplaceAll(uuid.NewString(), "-", "") + ".png"
}

// OwnedBy reports whether key was issued by ScanKey for userID.
func OwnedBy(key, userID string) bool {
	return userID != "" && strings.HasPrefix(key, userID+"_")
}

func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("store config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode store config: %w", err)
	}
	return nil
}
