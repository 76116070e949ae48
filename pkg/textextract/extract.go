// Package textextract turns fetched documents into plain readable text.
package textextract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrMalformed       = errors.New("malformed document")
)

// PDF limits. Extraction stops at whichever is reached first.
const (
	MaxPDFBytes = 8 << 20
	MaxPDFPages = 50
	MaxPDFText  = 256 << 10
)

type ExtractedText struct {
	Content  string
	Pages    int
	Metadata map[string]string
}

// Elements that never carry article text.
const noiseSelector = "script, style, nav, header, footer, aside, iframe, noscript, .ad, .ads, .advertisement, #cookie-banner"

// Candidate containers for the main content, in order of preference.
var contentSelectors = []string{"article", "main", `[role="main"]`, ".content", ".post-content", "body"}

// Extract dispatches on the media type of contentType. When contentType is
// empty the type is sniffed from data. Returned content has whitespace collapsed.
// PDF extraction checks ctx between pages.
func Extract(ctx context.Context, data []byte, contentType string) (*ExtractedText, error) {
	mediaType := mediaTypeOf(contentType, data)

	var (
		out *ExtractedText
		err error
	)
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		out, err = extractHTML(data)
	case "application/pdf":
		out, err = extractPDF(ctx, data)
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		out, err = extractDOCX(data)
	case "text/plain", "text/markdown":
		out = &ExtractedText{Content: string(data), Pages: 1, Metadata: map[string]string{"type": "txt"}}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
	}
	if err != nil {
		return nil, err
	}

	out.Content = strings.Join(strings.Fields(out.Content), " ")
	return out, nil
}

func mediaTypeOf(contentType string, data []byte) string {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func extractHTML(data []byte) (*ExtractedText, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	doc.Find(noiseSelector).Remove()

	var text, source string
	for _, sel := range contentSelectors {
		if t := doc.Find(sel).Text(); strings.TrimSpace(t) != "" {
			text, source = t, sel
			break
		}
	}

	return &ExtractedText{
		Content: text,
		Pages:   1,
		Metadata: map[string]string{
			"type":     "html",
			"selector": source,
			"title":    strings.TrimSpace(doc.Find("title").First().Text()),
		},
	}, nil
}

func extractPDF(ctx context.Context, data []byte) (out *ExtractedText, err error) {
	if len(data) > MaxPDFBytes {
		return nil, fmt.Errorf("%w: PDF exceeds %d bytes", ErrMalformed, MaxPDFBytes)
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	rejected := 0

	for i := 1; i <= numPages && i <= MaxPDFPages && buf.Len() < MaxPDFText; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		// The pdf lexer never returns from an array left open at the end
		// of a content stream, so such pages are not interpreted at all.
		if !contentsTerminated(page.V.Key("Contents")) {
			rejected++
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	if rejected > 0 && strings.TrimSpace(buf.String()) == "" {
		return nil, fmt.Errorf("%w: %d page(s) with unterminated content", ErrMalformed, rejected)
	}

	return &ExtractedText{
		Content: buf.String(),
		Pages:   numPages,
		Metadata: map[string]string{
			"type": "pdf",
		},
	}, nil
}

func extractDOCX(data []byte) (*ExtractedText, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open DOCX: %w", err)
	}

	for _, f := range reader.File {
		if filepath.Base(f.Name) != "document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read document.xml: %w", err)
		}
		return &ExtractedText{
			Content:  stripXMLTags(string(content)),
			Pages:    1,
			Metadata: map[string]string{"type": "docx"},
		}, nil
	}

	return nil, fmt.Errorf("open DOCX: document.xml not found")
}

func stripXMLTags(s string) string {
	var result strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			result.WriteRune(' ')
		case !inTag:
			result.WriteRune(r)
		}
	}
	return result.String()
}
