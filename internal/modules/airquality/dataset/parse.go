// Package dataset turns a sensor CSV export into a types.Dataset.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
)

var (
	ErrNoTimeColumn = errors.New("no timestamp column")
	ErrEmpty        = errors.New("csv has no header")
)

// CookingColumn is the optional boolean column marking cooking periods.
const CookingColumn = "Cooking"

// timeColumnCandidates are tried in order when ParseOptions.TimeColumn is empty.
var timeColumnCandidates = []string{"Datetime", "DateTime", "Timestamp", "Time", "Date"}

// timeLayouts are tried in order; the first that parses wins. Naive
// timestamps are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 3:04:05 PM",
	"2006-01-02 3:04 PM",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
}

type ParseOptions struct {
	Title      string
	TimeColumn string
	Source     string
	// Now stamps Dataset.LoadedAt; defaults to time.Now.
	Now func() time.Time
}

// Parse reads a CSV with a header row. Rows whose timestamp does not parse
// are dropped and counted in Dataset.DroppedRows.
func Parse(name string, r io.Reader, opts ParseOptions) (*types.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	timeIdx := findTimeColumn(header, opts.TimeColumn)
	if timeIdx < 0 {
		return nil, fmt.Errorf("%s: %w (header: %s)", name, ErrNoTimeColumn, strings.Join(header, ", "))
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(records)+2, err)
		}
		if isBlank(rec) {
			continue
		}
		records = append(records, rec)
	}

	numericIdx := numericColumns(header, timeIdx, records)
	cookingIdx := indexFold(header, CookingColumn)

	ds := &types.Dataset{
		Name:       name,
		Title:      opts.Title,
		TimeColumn: header[timeIdx],
		Columns:    header,
		HasCooking: cookingIdx >= 0,
		Source:     opts.Source,
	}
	if ds.Title == "" {
		ds.Title = name
	}
	for _, idx := range numericIdx {
		ds.NumericColumns = append(ds.NumericColumns, header[idx])
	}

	ds.Rows = make([]types.Row, 0, len(records))
	for _, rec := range records {
		ts, ok := ParseTime(cell(rec, timeIdx))
		if !ok {
			ds.DroppedRows++
			continue
		}
		row := types.Row{Time: ts, Values: make([]float64, len(numericIdx))}
		for i, idx := range numericIdx {
			row.Values[i] = parseFloat(cell(rec, idx))
		}
		if cookingIdx >= 0 {
			row.Cooking = ParseFlag(cell(rec, cookingIdx))
		}
		ds.Rows = append(ds.Rows, row)
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	ds.LoadedAt = now().UTC()
	return ds, nil
}

// ParseTime parses s with the first matching layout.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseFlag reports whether a cooking cell is set: 1, 1.0, true, yes.
func ParseFlag(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true", "yes", "y", "t":
		return true
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f == 1
}

func findTimeColumn(header []string, want string) int {
	if want != "" {
		return indexFold(header, want)
	}
	for _, c := range timeColumnCandidates {
		for i, h := range header {
			if h == c {
				return i
			}
		}
	}
	for _, c := range timeColumnCandidates {
		if i := indexFold(header, c); i >= 0 {
			return i
		}
	}
	return -1
}

// numericColumns returns the indexes of non-time columns whose every
// non-empty cell parses as a float.
func numericColumns(header []string, timeIdx int, records [][]string) []int {
	var out []int
	for idx := range header {
		if idx == timeIdx || header[idx] == "" {
			continue
		}
		numeric := true
		for _, rec := range records {
			v := strings.TrimSpace(cell(rec, idx))
			if isMissing(v) {
				continue
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				numeric = false
				break
			}
		}
		if numeric {
			out = append(out, idx)
		}
	}
	return out
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "na", "n/a", "null":
		return true
	}
	return false
}

func cell(rec []string, idx int) string {
	if idx < len(rec) {
		return rec[idx]
	}
	return ""
}

func indexFold(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
