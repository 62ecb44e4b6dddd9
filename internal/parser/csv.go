package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVImporter converts a data file into a markdown table chapter, for
// appendix material that should appear alongside the analysis chapters.
type CSVImporter struct{}

func (p *CSVImporter) Import(r io.Reader, filename string) (string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}

	var md strings.Builder
	md.WriteString("# " + strings.TrimSuffix(filename, ".csv") + "\n")
	if len(records) == 0 {
		return md.String(), nil
	}

	md.WriteString("\n")
	writeRow := func(row []string) {
		md.WriteString("|")
		for _, cell := range row {
			md.WriteString(" " + strings.ReplaceAll(cell, "|", "\\|") + " |")
		}
		md.WriteString("\n")
	}

	writeRow(records[0])
	md.WriteString("|" + strings.Repeat(" --- |", len(records[0])) + "\n")
	for _, row := range records[1:] {
		writeRow(row)
	}

	return md.String(), nil
}
