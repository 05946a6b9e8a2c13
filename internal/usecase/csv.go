package usecase

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// CSVRow is one data row zipped against the header. Number is the line's
// position after the header, so numbering follows the file and not the set
// of rows that survived.
type CSVRow struct {
	Number int
	Data   map[string]string
}

// RowError describes a data row that could not be zipped.
type RowError struct {
	Number int
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Number, e.Err)
}

// ZipCSV maps each data line's values onto the header columns. Every line is
// parsed on its own with lenient quoting, so a broken line only costs that
// row. Rows whose field count differs from the header are returned as
// malformed. Blank lines are ignored but still counted. An error is returned
// only when the header itself cannot be parsed; empty content yields no rows.
func ZipCSV(content string) ([]CSVRow, []RowError, error) {
	lines := strings.Split(strings.TrimPrefix(content, utf8BOM), "\n")
	for len(lines) > 0 && isBlank(lines[0]) {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return nil, nil, nil
	}

	header, err := parseLine(lines[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	var (
		rows      []CSVRow
		malformed []RowError
	)
	for i, line := range lines[1:] {
		n := i + 1
		if isBlank(line) {
			continue
		}
		record, err := parseLine(line)
		if err == nil && len(record) != len(header) {
			err = fmt.Errorf("%w: got %d fields, want %d", csv.ErrFieldCount, len(record), len(header))
		}
		if err != nil {
			malformed = append(malformed, RowError{Number: n, Err: err})
			continue
		}
		data := make(map[string]string, len(header))
		for j, col := range header {
			data[col] = record[j]
		}
		rows = append(rows, CSVRow{Number: n, Data: data})
	}
	return rows, malformed, nil
}

func parseLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimSuffix(line, "\r")))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	record, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []string{""}, nil
	}
	return record, err
}

func isBlank(line string) bool {
	return strings.TrimSuffix(line, "\r") == ""
}
