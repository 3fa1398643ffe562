package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FunctionRedactor invokes a hosted "anonymize_cv" function over HTTP.
type FunctionRedactor struct {
	URL    string
	APIKey string
	Client *http.Client
}

func NewFunctionRedactor(url, apiKey string, timeout time.Duration) *FunctionRedactor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &FunctionRedactor{URL: url, APIKey: apiKey, Client: &http.Client{Timeout: timeout}}
}

func (f *FunctionRedactor) Redact(ctx context.Context, correlationID, text string) (string, error) {
	body, err := json.Marshal(FunctionRequest{Action: ActionAnonymizeCV, CVText: text})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	if correlationID != "" {
		req.Header.Set("X-Correlation-Id", correlationID)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}

	var out FunctionResponse
	if jerr := json.Unmarshal(raw, &out); jerr != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("invalid function response: %w", jerr)
	}
	if resp.StatusCode >= 300 {
		if out.Error != "" {
			return "", fmt.Errorf("redaction function: status %d: %s", resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("redaction function: status %d", resp.StatusCode)
	}
	if out.Error != "" {
		return "", fmt.Errorf("redaction function: %s", out.Error)
	}
	return cleanOutput(out.RedactedText)
}
