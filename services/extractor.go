package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// DocumentType identifies a supported upload format.
type DocumentType string

const (
	TypePDF  DocumentType = "pdf"
	TypeDOCX DocumentType = "docx"
	TypeText DocumentType = "text"
)

// DetectDocumentType maps a filename extension to a supported document type.
func DetectDocumentType(filename string) (DocumentType, bool) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "pdf":
		return TypePDF, true
	case "docx":
		return TypeDOCX, true
	case "txt", "md":
		return TypeText, true
	default:
		return "", false
	}
}

// TextExtractor converts raw uploaded document bytes into a single
// normalized string.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract returns the trimmed plain text of the document. A parse failure on
// malformed content is returned as an error; an empty result is not an error
// here, the caller rejects empty documents before indexing.
func (e *TextExtractor) Extract(data []byte, docType DocumentType) (string, error) {
	switch docType {
	case TypePDF:
		return e.extractPDF(data)
	case TypeDOCX:
		return e.extractDOCX(data)
	case TypeText:
		return e.extractPlainText(data), nil
	default:
		return "", fmt.Errorf("unsupported document type: %s", docType)
	}
}

func (e *TextExtractor) extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	var textBuilder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			// A single unreadable page should not sink the document
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return strings.TrimSpace(textBuilder.String()), nil
}

// extractDOCX pulls paragraph text out of word/document.xml. DOCX is a ZIP
// container, so no third-party parser is needed.
func (e *TextExtractor) extractDOCX(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX container: %w", err)
	}

	var docFile *zip.File
	for _, f := range reader.File {
		if strings.EqualFold(f.Name, "word/document.xml") {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("invalid DOCX: word/document.xml not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer rc.Close()

	text, err := parseDocumentXML(rc)
	if err != nil {
		return "", fmt.Errorf("failed to parse document.xml: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var buf strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return "", err
				}
				buf.WriteString(text)
			case "tab":
				buf.WriteByte('\t')
			case "br":
				buf.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				buf.WriteByte('\n')
			}
		}
	}
	return buf.String(), nil
}

// extractPlainText tolerates invalid UTF-8 the way a lossy decode would.
func (e *TextExtractor) extractPlainText(data []byte) string {
	if utf8.Valid(data) {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
}
