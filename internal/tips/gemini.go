package tips

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiGenerator writes tips with a Gemini model
type GeminiGenerator struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	logger    *zap.Logger
	modelName string
}

// NewGeminiGenerator creates a new Gemini-backed generator
func NewGeminiGenerator(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.7),
		MaxOutputTokens: genai.Ptr[int32](400),
	}

	logger.Info("Gemini tip generator initialized", zap.String("model", modelName))

	return &GeminiGenerator{
		client:    client,
		model:     model,
		logger:    logger,
		modelName: modelName,
	}, nil
}

// Close closes the Gemini client
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// GenerateTip asks the model for recommendations. A response without text
// yields the "unavailable" advice rather than an error.
func (g *GeminiGenerator) GenerateTip(ctx context.Context, req Request) (Tip, error) {
	tip := Tip{
		RiskLevel:    RiskLevel(req.Points),
		Personalized: req.Profile != nil,
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(BuildPrompt(req)))
	if err != nil {
		return Tip{}, fmt.Errorf("gemini API error: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		g.logger.Warn("Unexpected Gemini response format", zap.String("model", g.modelName))
		tip.Tip = FallbackUnavailable
		return tip, nil
	}

	tip.Tip = text
	return tip, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
