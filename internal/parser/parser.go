package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Importer converts a legacy manuscript format into literate markdown.
type Importer interface {
	Import(r io.Reader, filename string) (string, error)
}

// ImportExtensions lists manuscript formats `weave import` can convert.
var ImportExtensions = map[string]bool{
	".txt":  true,
	".csv":  true,
	".html": true,
	".htm":  true,
	".pdf":  true,
	".docx": true,
}

// ImporterFor returns the importer for a manuscript filename.
func ImporterFor(filename string) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextImporter{}, nil
	case ".csv":
		return &CSVImporter{}, nil
	case ".html", ".htm":
		return &HTMLImporter{}, nil
	case ".pdf":
		return &PDFImporter{}, nil
	case ".docx":
		return &DOCXImporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported manuscript format: %s", ext)
	}
}

// IsImportExtension checks if a file extension can be imported.
func IsImportExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ImportExtensions[ext]
}

// IsChapterFile reports whether a filename is a literate chapter source.
func IsChapterFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".md" || ext == ".markdown"
}
