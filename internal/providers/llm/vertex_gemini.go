package llm

import (
	"context"
	"errors"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
)

type VertexGemini struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	m := c.GenerativeModel(modelName)
	m.SetTemperature(0)
	m.SystemInstruction = &vertexgenai.Content{Parts: []vertexgenai.Part{vertexgenai.Text(redactionInstruction)}}
	return &VertexGemini{client: c, model: m}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Redact(ctx context.Context, _ string, text string) (string, error) {
	resp, err := v.model.GenerateContent(ctx, vertexgenai.Text(text))
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("empty response from vertex")
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		// first candidate with content wins
		if sb.Len() > 0 {
			break
		}
	}
	return cleanOutput(sb.String())
}
