package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiAPI calls Gemini with an API key, for deployments outside GCP.
type GeminiAPI struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiAPI(ctx context.Context, apiKey, modelName string) (*GeminiAPI, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	m := client.GenerativeModel(modelName)
	m.SetTemperature(0)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(redactionInstruction)}}
	return &GeminiAPI{client: client, model: m}, nil
}

func (g *GeminiAPI) Close() error { return g.client.Close() }

func (g *GeminiAPI) Redact(ctx context.Context, _ string, text string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from LLM")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return cleanOutput(sb.String())
}
