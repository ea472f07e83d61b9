package recognition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
)

// Gateway runs the text and math passes over one image. The math pass is
// optional and its failure never fails the scan.
type Gateway struct {
	engine  Engine
	math    MathRecognizer
	timeout time.Duration
}

func NewGateway(engine Engine, math MathRecognizer, timeout time.Duration) *Gateway {
	return &Gateway{engine: engine, math: math, timeout: timeout}
}

func (g *Gateway) HasMath() bool {
	return g.math != nil
}

func (g *Gateway) Recognize(ctx context.Context, img *Image) (*Result, error) {
	if g.engine == nil {
		return nil, fmt.Errorf("no text engine: %w", appErr.ErrUnavailable)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	logger := logutil.GetLogger(ctx).With(zap.String("engine", g.engine.Name()))

	var (
		text    *TextResult
		math    *MathResult
		mathErr error
	)
	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		res, err := g.engine.Recognize(ectx, img)
		if err != nil {
			return err
		}
		text = res
		return nil
	})
	if g.math != nil {
		eg.Go(func() error {
			math, mathErr = g.math.RecognizeMath(ectx, img)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logger.Error("text recognition failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", appErr.ErrRecognition, err)
	}
	out := &Result{
		Text:       strings.TrimSpace(text.Text),
		Confidence: clampConfidence(text.Confidence),
		Language:   text.Language,
	}
	switch {
	case mathErr != nil:
		logger.Warn("math recognition failed, continuing without latex",
			zap.String("recognizer", g.math.Name()),
			zap.Error(mathErr),
		)
	case math != nil:
		out.Latex = strings.TrimSpace(math.Latex)
	}
	return out, nil
}

// RecognizeMath relays the image to the math recognizer alone.
func (g *Gateway) RecognizeMath(ctx context.Context, img *Image) (*MathResult, error) {
	if g.math == nil {
		return nil, ErrUnavailable
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.math.RecognizeMath(ctx, img)
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
