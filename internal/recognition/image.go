package recognition

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
)

const maxPixels = 50_000_000

// DecodeImage accepts raw image bytes or a base64 data URL and re-encodes
// the image as PNG.
func DecodeImage(input []byte) (*Image, error) {
	raw, err := stripDataURL(input)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty image: %w", appErr.ErrInvalid)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unsupported image: %w", appErr.ErrInvalid)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("image dimensions %dx%d out of range: %w", cfg.Width, cfg.Height, appErr.ErrInvalid)
	}
	out := &Image{Width: cfg.Width, Height: cfg.Height, Format: format}
	if format == "png" {
		out.PNG = raw
		return out, nil
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %w", format, appErr.ErrInvalid)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	out.PNG = buf.Bytes()
	return out, nil
}

func stripDataURL(input []byte) ([]byte, error) {
	s := strings.TrimSpace(string(input))
	if !strings.HasPrefix(s, "data:") {
		return input, nil
	}
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return nil, fmt.Errorf("malformed data url: %w", appErr.ErrInvalid)
	}
	header := s[len("data:"):idx]
	if !strings.HasPrefix(header, "image/") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("data url must be a base64 image: %w", appErr.ErrInvalid)
	}
	data, err := base64.StdEncoding.DecodeString(s[idx+1:])
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", appErr.ErrInvalid)
	}
	return data, nil
}
