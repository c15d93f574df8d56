package alphavantage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// parseCSV decodes a CSV body into one map per row, keyed by the header
// names as sent. Short rows leave trailing columns absent.
func parseCSV(body []byte) ([]any, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []any{}, nil
		}
		return nil, fmt.Errorf("invalid CSV header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
	}

	rows := []any{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid CSV row: %w", err)
		}
		row := make(map[string]any, len(header))
		for i, v := range rec {
			if i >= len(header) {
				break
			}
			row[header[i]] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}
