package llm

import (
	"context"
	"errors"
	"strings"
)

// Redactor removes personal data from CV text.
type Redactor interface {
	Redact(ctx context.Context, correlationID, text string) (string, error)
}

const ActionAnonymizeCV = "anonymize_cv"

// FunctionRequest is the body accepted by the redaction function.
type FunctionRequest struct {
	Action string `json:"action"`
	CVText string `json:"cvText"`
}

type FunctionResponse struct {
	RedactedText string `json:"redactedText,omitempty"`
	Error        string `json:"error,omitempty"`
}

const redactionInstruction = `You anonymize CVs for a recruiting marketplace.
Rewrite the CV text you receive, keeping skills, job titles, seniority, dates, industries and education.
Replace every personal identifier with a bracketed token: full name -> [CANDIDATE], email -> [EMAIL],
phone -> [PHONE], street address -> [ADDRESS], social or portfolio url -> [LINK], photo -> remove.
Replace the names of current and past employers with a neutral description such as [COMPANY, fintech, 200 employees].
Return only the rewritten CV as plain text, no commentary.`

var ErrEmptyRedaction = errors.New("redaction returned empty text")

// cleanOutput strips markdown fences some models wrap their answer in.
func cleanOutput(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = ""
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return "", ErrEmptyRedaction
	}
	return s, nil
}
