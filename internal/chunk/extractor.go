package chunk

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
)

// ErrUnsupportedFileType is returned for extensions the extractor cannot read.
var ErrUnsupportedFileType = ragerrors.New(ragerrors.ErrCodeUnsupportedFile, "unsupported file type", nil)

// SupportedExtensions lists the lower-case extensions Extract understands.
var SupportedExtensions = []string{".pdf", ".docx", ".txt"}

// IsSupported reports whether path has an extension Extract can read.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Extract returns the plain text of the file at path. PDF pages and DOCX
// paragraphs are joined with newlines.
func Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = extractPDF(path)
	case ".docx":
		text, err = extractDOCX(path)
	case ".txt":
		text, err = extractText(path)
	default:
		return "", ragerrors.New(ragerrors.ErrCodeUnsupportedFile,
			fmt.Sprintf("Unsupported file type: %s", ext), ErrUnsupportedFileType).
			WithSuggestion("upload .pdf, .docx or .txt files")
	}
	if err != nil {
		return "", ragerrors.New(ragerrors.ErrCodeExtractionFailed,
			fmt.Sprintf("extract %s: %v", filepath.Base(path), err), err)
	}
	return text, nil
}

func extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid UTF-8")
	}
	return string(data), nil
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}

func extractDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	for _, file := range zr.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		return parseDocumentXML(content)
	}
	return "", fmt.Errorf("word/document.xml not found")
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []struct {
		Text []struct {
			Content string `xml:",chardata"`
		} `xml:"t"`
	} `xml:"r"`
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parse document.xml: %w", err)
	}

	lines := make([]string, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, run := range para.Runs {
			for _, t := range run.Text {
				sb.WriteString(t.Content)
			}
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n"), nil
}
