// Package charts renders the dashboard charts as PNG images.
package charts

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
)

const (
	Width  = 960
	Height = 360
)

var (
	lineColor = drawing.ColorFromHex("1f77b4")
	barColor  = drawing.ColorFromHex("ff7f0e")
)

// Line draws param over time for the given rows. Missing values are skipped.
func Line(w io.Writer, ds *types.Dataset, rows []types.Row, param string) error {
	idx := ds.ColumnIndex(param)
	if idx < 0 {
		return fmt.Errorf("%w: %q", types.ErrUnknownParameter, param)
	}

	xs := make([]time.Time, 0, len(rows))
	ys := make([]float64, 0, len(rows))
	for _, r := range rows {
		v := r.Values[idx]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xs = append(xs, r.Time)
		ys = append(ys, v)
	}
	if len(xs) == 0 {
		return types.ErrNoData
	}
	// A single point has no x extent; widen it by a minute.
	if len(xs) == 1 {
		xs = append(xs, xs[0].Add(time.Minute))
		ys = append(ys, ys[0])
	}

	lo, hi := bounds(ys)
	graph := chart.Chart{
		Title:  fmt.Sprintf("%s over time", param),
		Width:  Width,
		Height: Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 24, Bottom: 16},
		},
		XAxis: chart.XAxis{
			Name:           ds.TimeColumn,
			ValueFormatter: chart.TimeValueFormatterWithFormat(timeFormat(xs)),
		},
		YAxis: chart.YAxis{
			Name:  param,
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    param,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
				},
			},
		},
	}
	return graph.Render(chart.PNG, w)
}

// Bar draws the mean of param for each hour of day present in rows.
func Bar(w io.Writer, ds *types.Dataset, rows []types.Row, param string) error {
	idx := ds.ColumnIndex(param)
	if idx < 0 {
		return fmt.Errorf("%w: %q", types.ErrUnknownParameter, param)
	}

	means := HourlyMeans(rows, idx)
	bars := make([]chart.Value, 0, len(means))
	values := make([]float64, 0, len(means))
	for _, m := range means {
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%02d", m.Hour),
			Value: m.Mean,
			Style: chart.Style{FillColor: barColor, StrokeColor: barColor},
		})
		values = append(values, m.Mean)
	}
	if len(bars) == 0 {
		return types.ErrNoData
	}

	lo, hi := bounds(values)
	lo = math.Min(lo, 0)
	graph := chart.BarChart{
		Title:  fmt.Sprintf("Mean %s by hour of day", param),
		Width:  Width,
		Height: Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 24, Bottom: 16},
		},
		BarWidth:   24,
		BarSpacing: 8,
		YAxis: chart.YAxis{
			Name:  param,
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}

type HourlyMean struct {
	Hour  int
	Mean  float64
	Count int
}

// HourlyMeans averages column idx per hour of day, skipping hours without values.
func HourlyMeans(rows []types.Row, idx int) []HourlyMean {
	var sums [24]float64
	var counts [24]int
	for _, r := range rows {
		v := r.Values[idx]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		h := r.Time.Hour()
		sums[h] += v
		counts[h]++
	}
	var out []HourlyMean
	for h := 0; h < 24; h++ {
		if counts[h] == 0 {
			continue
		}
		out = append(out, HourlyMean{Hour: h, Mean: sums[h] / float64(counts[h]), Count: counts[h]})
	}
	return out
}

// bounds returns a non-empty y range around values.
func bounds(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		pad := math.Max(math.Abs(lo)*0.1, 1)
		return lo - pad, hi + pad
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}

func timeFormat(xs []time.Time) string {
	span := xs[len(xs)-1].Sub(xs[0])
	if span < 0 {
		span = -span
	}
	switch {
	case span <= 36*time.Hour:
		return "01-02 15:04"
	case span <= 60*24*time.Hour:
		return "Jan 02"
	default:
		return "2006-01"
	}
}
