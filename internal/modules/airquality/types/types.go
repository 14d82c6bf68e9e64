package types

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

var (
	ErrDatasetNotFound  = errors.New("dataset not found")
	ErrNoData           = errors.New("no data for the selected filters")
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrInvalidFilter    = errors.New("invalid filter")
)

// Dataset is one parsed sensor export. Values in each Row line up with
// NumericColumns; a missing cell is NaN.
type Dataset struct {
	Name           string
	Title          string
	TimeColumn     string
	Columns        []string
	NumericColumns []string
	HasCooking     bool
	Rows           []Row
	DroppedRows    int
	Source         string
	LoadedAt       time.Time
}

type Row struct {
	Time    time.Time
	Values  []float64
	Cooking bool
	// Live marks a reading ingested over MQTT rather than read from the export.
	Live bool
}

// ColumnIndex returns the position of name in NumericColumns, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.NumericColumns {
		if c == name {
			return i
		}
	}
	return -1
}

// TimeRange returns the earliest and latest row timestamps.
func (d *Dataset) TimeRange() (minT, maxT time.Time, ok bool) {
	for i, r := range d.Rows {
		if i == 0 || r.Time.Before(minT) {
			minT = r.Time
		}
		if i == 0 || r.Time.After(maxT) {
			maxT = r.Time
		}
	}
	return minT, maxT, len(d.Rows) > 0
}

func (d *Dataset) Info() DatasetInfo {
	info := DatasetInfo{
		Name:           d.Name,
		Title:          d.Title,
		TimeColumn:     d.TimeColumn,
		Columns:        d.Columns,
		NumericColumns: d.NumericColumns,
		HasCooking:     d.HasCooking,
		Rows:           len(d.Rows),
		DroppedRows:    d.DroppedRows,
		Source:         d.Source,
		LoadedAt:       d.LoadedAt,
	}
	if minT, maxT, ok := d.TimeRange(); ok {
		info.From = &minT
		info.To = &maxT
	}
	return info
}

type DatasetInfo struct {
	Name           string     `json:"name"`
	Title          string     `json:"title"`
	TimeColumn     string     `json:"timeColumn"`
	Columns        []string   `json:"columns"`
	NumericColumns []string   `json:"numericColumns"`
	HasCooking     bool       `json:"hasCooking"`
	Rows           int        `json:"rows"`
	DroppedRows    int        `json:"droppedRows"`
	Source         string     `json:"source"`
	LoadedAt       time.Time  `json:"loadedAt"`
	From           *time.Time `json:"from,omitempty"`
	To             *time.Time `json:"to,omitempty"`
}

// Filter selects rows by calendar date, hour of day and cooking flag.
// From and To are compared by date only; both bounds are inclusive.
type Filter struct {
	From        time.Time
	To          time.Time
	HourFrom    int
	HourTo      int
	Parameter   string
	CookingOnly bool
}

func (f Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"from":        dateOrNil(f.From),
		"to":          dateOrNil(f.To),
		"hourFrom":    f.HourFrom,
		"hourTo":      f.HourTo,
		"parameter":   f.Parameter,
		"cookingOnly": f.CookingOnly,
	})
}

func dateOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.DateOnly)
}

// Result is a filtered view of one dataset with its statistics. Summaries
// and Correlation are left empty when no rows match.
type Result struct {
	Dataset     *Dataset    `json:"-"`
	Info        DatasetInfo `json:"dataset"`
	Filter      Filter      `json:"filter"`
	Rows        []Row       `json:"-"`
	Count       int         `json:"count"`
	Empty       bool        `json:"empty"`
	Summaries   []Summary   `json:"summaries"`
	Correlation *Matrix     `json:"correlation,omitempty"`
}

// Summary holds descriptive statistics of one column.
type Summary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	P25    float64
	P50    float64
	P75    float64
	Max    float64
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"column": s.Column,
		"count":  s.Count,
		"mean":   NullFloat(s.Mean),
		"std":    NullFloat(s.Std),
		"min":    NullFloat(s.Min),
		"25%":    NullFloat(s.P25),
		"50%":    NullFloat(s.P50),
		"75%":    NullFloat(s.P75),
		"max":    NullFloat(s.Max),
	})
}

// Matrix is a square correlation matrix over Columns.
type Matrix struct {
	Columns []string
	Values  [][]float64
}

func (m Matrix) MarshalJSON() ([]byte, error) {
	values := make([][]any, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]any, len(row))
		for j, v := range row {
			values[i][j] = NullFloat(v)
		}
	}
	return json.Marshal(map[string]any{
		"columns": m.Columns,
		"values":  values,
	})
}

// NullFloat maps NaN and ±Inf to nil so the value encodes as JSON null.
func NullFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
