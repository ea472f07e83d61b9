package recognition

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingEngine struct {
	calls int
}

func (c *countingEngine) Name() string { return "counting" }

func (c *countingEngine) Recognize(ctx context.Context, img *Image) (*TextResult, error) {
	c.calls++
	return &TextResult{Text: string(img.PNG), Confidence: 0.5}, nil
}

func TestWrapLruCache(t *testing.T) {
	inner := &countingEngine{}
	require.Same(t, Engine(inner), WrapLruCache(inner, 0, time.Minute))

	cached := WrapLruCache(inner, 8, time.Minute)
	require.Equal(t, "counting", cached.Name())
	for i := 0; i < 3; i++ {
		res, err := cached.Recognize(context.Background(), &Image{PNG: []byte("a")})
		require.NoError(t, err)
		require.Equal(t, "a", res.Text)
		res.Text = "mutated"
	}
	require.Equal(t, 1, inner.calls)

	_, err := cached.Recognize(context.Background(), &Image{PNG: []byte("b")})
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}
