package recognition

import (
	"context"
	"fmt"

	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
)

// ErrUnavailable is returned by recognizers that are not configured.
var ErrUnavailable = fmt.Errorf("recognizer unavailable: %w", appErr.ErrUnavailable)

// Image is a normalized PNG ready to hand to any recognizer.
type Image struct {
	PNG    []byte
	Width  int
	Height int
	// Format is the format the image was uploaded in.
	Format string
}

type TextResult struct {
	Text       string
	Confidence float64
	Language   string
}

type MathResult struct {
	Text       string  `json:"text"`
	Latex      string  `json:"latex_styled,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Result is what a scan produces: recognized text plus, when the math pass
// succeeded, a LaTeX rendering.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Latex      string  `json:"latex,omitempty"`
}

// Engine runs the text pass.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img *Image) (*TextResult, error)
}

// MathRecognizer runs the math pass.
type MathRecognizer interface {
	Name() string
	RecognizeMath(ctx context.Context, img *Image) (*MathResult, error)
}
