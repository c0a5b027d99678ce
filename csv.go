package geostat

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type CSVOptions struct {
	// Coordinates names the two or three coordinate columns, in x, y, z order.
	Coordinates []string
	// Attributes names the value columns to read. Empty means every column
	// that is not a coordinate.
	Attributes []string
	Comma      rune
}

// LoadCSV reads samples from a table with a header row. Coordinates are not
// deduplicated here.
func LoadCSV(r io.Reader, opts CSVOptions) ([]Sample, error) {
	if n := len(opts.Coordinates); n < 2 || n > 3 {
		return nil, invalidInput("need 2 or 3 coordinate columns, got %d", n)
	}

	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.TrimLeadingSpace = true
	// Row lengths are checked per column so errors name the missing field.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Column: opts.Coordinates[0], Err: errors.New("empty input")}
	}
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}

	coordCols := make([]int, len(opts.Coordinates))
	isCoord := make(map[int]bool, len(opts.Coordinates))
	for i, name := range opts.Coordinates {
		c, ok := index[name]
		if !ok {
			return nil, &ParseError{Column: name, Err: errors.New("missing coordinate column")}
		}
		coordCols[i] = c
		isCoord[c] = true
	}

	attrs := opts.Attributes
	if len(attrs) == 0 {
		for i, h := range header {
			if !isCoord[i] {
				attrs = append(attrs, strings.TrimSpace(h))
			}
		}
	}
	attrCols := make([]int, len(attrs))
	for i, name := range attrs {
		c, ok := index[name]
		if !ok {
			return nil, &ParseError{Column: name, Err: errors.New("missing attribute column")}
		}
		attrCols[i] = c
	}

	var samples []Sample
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Row: row, Err: err}
		}
		var s Sample
		for i, c := range coordCols {
			v, err := parseCell(rec, c, row, opts.Coordinates[i])
			if err != nil {
				return nil, err
			}
			s.Pos[i] = v
		}
		s.Values = make(map[string]float64, len(attrs))
		for i, c := range attrCols {
			v, err := parseCell(rec, c, row, attrs[i])
			if err != nil {
				return nil, err
			}
			s.Values[attrs[i]] = v
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func parseCell(rec []string, col, row int, name string) (float64, error) {
	if col >= len(rec) {
		return 0, &ParseError{Row: row, Column: name, Err: errors.New("short row")}
	}
	raw := strings.TrimSpace(rec[col])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ParseError{Row: row, Column: name, Value: raw, Err: errors.Unwrap(err)}
	}
	if !isFinite(v) {
		return 0, &ParseError{Row: row, Column: name, Value: raw, Err: fmt.Errorf("not a finite number")}
	}
	return v, nil
}
