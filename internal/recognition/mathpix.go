package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultMathpixEndpoint   = "https://api.mathpix.com/v3/text"
	defaultMathpixConfidence = 0.8
)

type mathpixConfig struct {
	AppID       string `json:"app_id"`
	AppKey      string `json:"app_key"`
	Endpoint    string `json:"endpoint"`
	TimeoutSecs int    `json:"timeout_secs"`
}

type mathpixRecognizer struct {
	appID    string
	appKey   string
	endpoint string
	client   *http.Client
}

type mathpixDataOptions struct {
	IncludeLatex     bool `json:"include_latex"`
	IncludeAsciimath bool `json:"include_asciimath"`
}

type mathpixRequest struct {
	Src         string             `json:"src"`
	Formats     []string           `json:"formats"`
	DataOptions mathpixDataOptions `json:"data_options"`
}

type mathpixResponse struct {
	Text        string   `json:"text"`
	LatexStyled string   `json:"latex_styled"`
	Confidence  *float64 `json:"confidence"`
	Error       string   `json:"error"`
}

func (m *mathpixRecognizer) Name() string {
	return "mathpix"
}

func (m *mathpixRecognizer) RecognizeMath(ctx context.Context, img *Image) (*MathResult, error) {
	if m.appID == "" || m.appKey == "" {
		return nil, ErrUnavailable
	}
	reqBody := mathpixRequest{
		Src:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(img.PNG),
		Formats: []string{"text", "latex_styled"},
		DataOptions: mathpixDataOptions{
			IncludeLatex:     true,
			IncludeAsciimath: true,
		},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("app_id", m.appID)
	req.Header.Set("app_key", m.appKey)
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("mathpix request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out mathpixResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode mathpix response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("mathpix error: %s", out.Error)
	}
	confidence := defaultMathpixConfidence
	if out.Confidence != nil && *out.Confidence > 0 {
		confidence = *out.Confidence
	}
	return &MathResult{
		Text:       out.Text,
		Latex:      out.LatexStyled,
		Confidence: confidence,
	}, nil
}

func createMathpixFactory(args interface{}) (MathRecognizer, error) {
	cfg := &mathpixConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultMathpixEndpoint
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &mathpixRecognizer{
		appID:    strings.TrimSpace(cfg.AppID),
		appKey:   strings.TrimSpace(cfg.AppKey),
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func init() {
	RegisterMath("mathpix", createMathpixFactory)
}
