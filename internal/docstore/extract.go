package docstore

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// ExtractText converts a raw document into plain text suitable for the
// knowledge index. Dispatch is on MIME type first, then file extension.
func ExtractText(mimeType, filename string, data []byte) (string, error) {
	switch {
	case strings.Contains(mimeType, "pdf") || strings.HasSuffix(strings.ToLower(filename), ".pdf"):
		return extractPDF(data)
	case strings.Contains(mimeType, "html") || strings.HasSuffix(strings.ToLower(filename), ".html") || strings.HasSuffix(strings.ToLower(filename), ".htm"):
		return extractHTML(data)
	default:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("document %s is not valid UTF-8 text", filename)
		}
		return string(data), nil
	}
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("reading PDF text: %w", err)
	}
	return buf.String(), nil
}

func extractHTML(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	var sb strings.Builder
	walkHTML(doc, &sb)
	return strings.TrimSpace(sb.String()), nil
}

func walkHTML(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg":
			return
		case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteString("\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, sb)
	}
}
