// Package extract turns uploaded files into plain text for the ingestion
// adapters. Supported formats mirror what the bot accepts: .txt, .pdf, .docx.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	docx "github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat signals a file type the bot cannot read; the caller
// answers with a usage hint instead of an apology.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// File extracts plain text from the file at path, dispatching on its
// extension.
func File(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return plainText(path)
	case ".pdf":
		return pdfText(path)
	case ".docx":
		return docxText(path)
	default:
		return "", ErrUnsupportedFormat
	}
}

func plainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	return string(data), nil
}

func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	body, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	if _, err := buf.ReadFrom(body); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}

func docxText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat docx: %w", err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}

	var lines []string
	for _, item := range doc.Document.Body.Items {
		if para, ok := item.(*docx.Paragraph); ok {
			lines = append(lines, para.String())
		}
	}
	return strings.Join(lines, "\n"), nil
}
