package recognition

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"
	geminiMathPrompt   = "Transcribe every mathematical expression in this image as LaTeX. " +
		"Reply with the LaTeX only, without code fences or commentary. Reply with an empty message if there is no math."
	geminiConfidence = 0.7
)

type geminiConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

type geminiRecognizer struct {
	apiKey string
	model  string
}

func (g *geminiRecognizer) Name() string {
	return "gemini"
}

func (g *geminiRecognizer) RecognizeMath(ctx context.Context, img *Image) (*MathResult, error) {
	if g.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: geminiMathPrompt},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: img.PNG}},
			},
		}},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	latex := stripFence(resp.Text())
	return &MathResult{Text: latex, Latex: latex, Confidence: geminiConfidence}, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func createGeminiFactory(args interface{}) (MathRecognizer, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiRecognizer{apiKey: strings.TrimSpace(cfg.APIKey), model: model}, nil
}

func init() {
	RegisterMath("gemini", createGeminiFactory)
}
