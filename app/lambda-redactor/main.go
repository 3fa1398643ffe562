package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/yoockh/recruitlink/internal/logger"
	"github.com/yoockh/recruitlink/internal/providers/llm"
	"github.com/yoockh/recruitlink/internal/redactfn"
)

func main() {
	log := logger.New()
	ctx := context.Background()

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.0-flash"
	}

	var (
		redactor llm.Redactor
		err      error
	)
	if project := os.Getenv("GCP_PROJECT_ID"); project != "" && os.Getenv("GEMINI_API_KEY") == "" {
		location := os.Getenv("GCP_LOCATION")
		if location == "" {
			location = "us-central1"
		}
		redactor, err = llm.NewVertexGemini(ctx, project, location, model)
	} else {
		redactor, err = llm.NewGeminiAPI(ctx, os.Getenv("GEMINI_API_KEY"), model)
	}
	if err != nil {
		log.WithError(err).Fatal("redactor init error")
	}

	h := &redactfn.Handler{
		Redactor: redactor,
		APIKey:   os.Getenv("REDACT_FUNCTION_KEY"),
		Logger:   log,
	}
	lambda.Start(h.Handle)
}
