// Package pdf extracts text from uploaded CVs and renders redacted text
// back into a PDF document.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	lpdf "github.com/ledongthuc/pdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

type Extractor interface {
	ExtractText(ctx context.Context, doc []byte) (string, error)
}

type Renderer interface {
	Render(ctx context.Context, title, text string) ([]byte, error)
}

var ErrNoText = errors.New("pdf contains no extractable text")

// maxExtractedBytes bounds the text handed to the redaction service.
const maxExtractedBytes = 200 << 10

type TextExtractor struct{}

func (TextExtractor) ExtractText(ctx context.Context, doc []byte) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// the parser panics on some malformed xref tables
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	r, err := lpdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	b, err := io.ReadAll(io.LimitReader(plain, maxExtractedBytes))
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	text = normalizeSpace(string(b))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// normalizeSpace collapses runs of blank lines and trailing spaces.
func normalizeSpace(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if strings.TrimSpace(l) == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// bodyFont is embedded as a UTF-8 font so names and places outside Latin-1
// survive rendering.
const bodyFont = "go"

type TextRenderer struct{}

func (TextRenderer) Render(ctx context.Context, title, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddUTF8FontFromBytes(bodyFont, "", goregular.TTF)
	doc.AddUTF8FontFromBytes(bodyFont, "B", gobold.TTF)
	doc.SetTitle(title, true)
	doc.SetMargins(18, 18, 18)
	doc.SetAutoPageBreak(true, 18)
	doc.AddPage()

	if title != "" {
		doc.SetFont(bodyFont, "B", 14)
		doc.MultiCell(0, 8, title, "", "L", false)
		doc.Ln(4)
	}
	doc.SetFont(bodyFont, "", 10)
	doc.MultiCell(0, 5, text, "", "L", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
