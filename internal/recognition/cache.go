package recognition

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// WrapLruCache memoizes text results per image content. Resubmitting the
// same page skips the engine entirely.
func WrapLruCache(e Engine, size int, ttl time.Duration) Engine {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEngine{
		next:  e,
		cache: expirable.NewLRU[string, TextResult](size, nil, ttl),
	}
}

type lruEngine struct {
	next  Engine
	cache *expirable.LRU[string, TextResult]
}

func (l *lruEngine) Name() string {
	return l.next.Name()
}

func (l *lruEngine) Recognize(ctx context.Context, img *Image) (*TextResult, error) {
	key := buildCacheKey(l.next.Name(), img.PNG)
	if cached, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("recognition cache hit", zap.String("engine", l.next.Name()))
		out := cached
		return &out, nil
	}
	res, err := l.next.Recognize(ctx, img)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, *res)
	return res, nil
}

func buildCacheKey(engine string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(engine))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
