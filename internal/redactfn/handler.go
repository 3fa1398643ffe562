// Package redactfn serves the anonymize_cv action behind an AWS Lambda
// function URL. Its contract is the one FunctionRedactor calls.
package redactfn

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/recruitlink/internal/providers/llm"
)

const maxCVText = 200 << 10

type Handler struct {
	Redactor llm.Redactor
	APIKey   string // optional bearer key
	Logger   *logrus.Logger
}

func (h *Handler) Handle(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	log := h.Logger
	if log == nil {
		log = logrus.New()
	}
	entry := log.WithFields(logrus.Fields{
		"request_id":     req.RequestContext.RequestID,
		"correlation_id": header(req.Headers, "x-correlation-id"),
	})

	if req.RequestContext.HTTP.Method != "" && req.RequestContext.HTTP.Method != http.MethodPost {
		return respond(http.StatusMethodNotAllowed, llm.FunctionResponse{Error: "method not allowed"}), nil
	}
	if h.APIKey != "" {
		got := strings.TrimPrefix(header(req.Headers, "authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.APIKey)) != 1 {
			return respond(http.StatusUnauthorized, llm.FunctionResponse{Error: "unauthorized"}), nil
		}
	}

	body := req.Body
	if req.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return respond(http.StatusBadRequest, llm.FunctionResponse{Error: "invalid body encoding"}), nil
		}
		body = string(b)
	}

	var in llm.FunctionRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return respond(http.StatusBadRequest, llm.FunctionResponse{Error: "invalid json"}), nil
	}
	if in.Action != llm.ActionAnonymizeCV {
		return respond(http.StatusBadRequest, llm.FunctionResponse{Error: "unsupported action"}), nil
	}
	if strings.TrimSpace(in.CVText) == "" {
		return respond(http.StatusBadRequest, llm.FunctionResponse{Error: "cvText is required"}), nil
	}
	if len(in.CVText) > maxCVText {
		return respond(http.StatusRequestEntityTooLarge, llm.FunctionResponse{Error: "cvText too large"}), nil
	}

	out, err := h.Redactor.Redact(ctx, header(req.Headers, "x-correlation-id"), in.CVText)
	if err != nil {
		entry.WithError(err).Error("redaction failed")
		return respond(http.StatusBadGateway, llm.FunctionResponse{Error: "redaction failed"}), nil
	}
	entry.WithField("chars", len(out)).Info("cv redacted")
	return respond(http.StatusOK, llm.FunctionResponse{RedactedText: out}), nil
}

// header looks a header up case-insensitively; function URLs lowercase them.
func header(h map[string]string, key string) string {
	if v, ok := h[key]; ok {
		return v
	}
	for k, v := range h {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func respond(status int, body llm.FunctionResponse) events.LambdaFunctionURLResponse {
	b, _ := json.Marshal(body)
	return events.LambdaFunctionURLResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(b),
	}
}
