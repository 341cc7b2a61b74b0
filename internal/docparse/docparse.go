// Package docparse pulls plain text out of documents and web pages so it
// can be summarized.
package docparse

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
)

var (
	// ErrUnsupported is returned for formats without a text extractor.
	ErrUnsupported = errors.New("unsupported document format")

	// ErrNotFound is returned when a local document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrEmpty is returned when a document yields no text.
	ErrEmpty = errors.New("no text content found")
)

// Parse extracts text from a local file path or an http(s) URL.
func Parse(ctx context.Context, source string) (string, error) {
	source = strings.Trim(strings.TrimSpace(source), `"'`)
	if IsURL(source) {
		return FetchURL(ctx, source)
	}
	return ParseFile(source)
}

// ParseFile extracts text from a .txt, .md, .html or .docx file.
func ParseFile(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory: %w", path, ErrUnsupported)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", "":
		b, err := readLimited(path)
		if err != nil {
			return "", err
		}
		return nonEmpty(cleanText(string(b)))
	case ".md", ".markdown":
		b, err := readLimited(path)
		if err != nil {
			return "", err
		}
		return markdownText(b)
	case ".html", ".htm":
		b, err := readLimited(path)
		if err != nil {
			return "", err
		}
		return extractHTML(string(b))
	case ".docx":
		return parseDocx(path)
	default:
		return "", fmt.Errorf("%s (%s): %w", path, ext, ErrUnsupported)
	}
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	b, err := io.ReadAll(io.LimitReader(f, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

// parseDocx reads word/document.xml out of the archive and joins the text
// runs, one paragraph per line.
func parseDocx(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return docxText(io.LimitReader(rc, maxBodyBytes))
	}
	return "", fmt.Errorf("docx without word/document.xml: %w", ErrUnsupported)
}

func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteString(" ")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	lines := strings.Split(sb.String(), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return nonEmpty(strings.Join(kept, "\n"))
}

// markdownText renders markdown to HTML so headings, emphasis and link
// syntax drop out of the extracted text.
func markdownText(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return extractHTML(buf.String())
}

// cleanText collapses runs of whitespace.
func cleanText(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

func nonEmpty(s string) (string, error) {
	if s == "" {
		return "", ErrEmpty
	}
	return s, nil
}
