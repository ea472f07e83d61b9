package service

import (
	"bytes"
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docscan/internal/filestore"
	"github.com/xxxsen/docscan/internal/recognition"
)

type ScanOutcome struct {
	recognition.Result
	ImageKey string `json:"image_key,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// ScanService normalizes an upload, recognizes it and optionally keeps the
// image so the document can refer back to it.
type ScanService struct {
	gateway   *recognition.Gateway
	files     filestore.Store
	keepScans bool
}

func NewScanService(gateway *recognition.Gateway, files filestore.Store, keepScans bool) *ScanService {
	return &ScanService{gateway: gateway, files: files, keepScans: keepScans}
}

type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }

func (s *ScanService) Scan(ctx context.Context, userID string, input []byte, baseURL string) (*ScanOutcome, error) {
	img, err := recognition.DecodeImage(input)
	if err != nil {
		return nil, err
	}
	res, err := s.gateway.Recognize(ctx, img)
	if err != nil {
		return nil, err
	}
	out := &ScanOutcome{Result: *res}
	if !s.keepScans || s.files == nil {
		return out, nil
	}
	key := filestore.ScanKey(userID)
	if err := s.files.Save(ctx, key, readSeekNopCloser{bytes.NewReader(img.PNG)}, int64(len(img.PNG))); err != nil {
		logutil.GetLogger(ctx).Warn("keep scan image failed", zap.String("key", key), zap.Error(err))
		return out, nil
	}
	out.ImageKey = key
	out.ImageURL = s.files.URL(key, baseURL)
	return out, nil
}

func (s *ScanService) RecognizeMath(ctx context.Context, input []byte) (*recognition.MathResult, error) {
	img, err := recognition.DecodeImage(input)
	if err != nil {
		return nil, err
	}
	return s.gateway.RecognizeMath(ctx, img)
}
