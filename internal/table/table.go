// Package table turns delimited or spreadsheet exports into header-labeled rows.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format names an input encoding.
type Format string

const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a config value to a Format; empty means auto.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown table format %q", s)
}

// Options controls parsing.
type Options struct {
	Header         bool // first row holds column labels
	SkipEmptyLines bool
	Format         Format
}

// Row is one record. Values holds cells keyed by column label; labels missing
// from a short row are absent rather than empty.
type Row struct {
	Fields []string
	Values map[string]string
}

// Get returns the cell under label.
func (r Row) Get(label string) (string, bool) {
	v, ok := r.Values[label]
	return v, ok
}

// Result is the parsed table.
type Result struct {
	Rows   []Row
	Fields []string
}

var zipMagic = []byte("PK\x03\x04")

// Parse decodes data into rows. Empty input yields an empty result.
func Parse(data []byte, opts Options) (Result, error) {
	format := opts.Format
	if format == "" || format == FormatAuto {
		format = FormatCSV
		if bytes.HasPrefix(data, zipMagic) {
			format = FormatXLSX
		}
	}

	var records [][]string
	var err error
	switch format {
	case FormatXLSX:
		records, err = readXLSX(data)
	default:
		records, err = readCSV(data)
	}
	if err != nil {
		return Result{}, err
	}
	return build(records, opts), nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func build(records [][]string, opts Options) Result {
	var res Result
	if len(records) == 0 {
		return res
	}

	if opts.Header {
		res.Fields = records[0]
		records = records[1:]
	}

	for _, rec := range records {
		if opts.SkipEmptyLines && isEmpty(rec) {
			continue
		}
		fields := res.Fields
		if !opts.Header {
			fields = positional(len(rec))
		}
		row := Row{Fields: fields, Values: make(map[string]string, len(rec))}
		for i, label := range fields {
			if i >= len(rec) {
				break
			}
			if _, dup := row.Values[label]; dup {
				continue
			}
			row.Values[label] = rec[i]
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

// isEmpty reports whether a record carries no cell content at all.
func isEmpty(rec []string) bool {
	for _, c := range rec {
		if c != "" {
			return false
		}
	}
	return true
}

func positional(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%d", i)
	}
	return out
}
