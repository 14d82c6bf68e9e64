// Package analysis filters dataset rows and computes the summary statistics
// and correlations shown on the dashboard.
package analysis

import (
	"fmt"
	"time"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
)

// Apply returns the rows of ds matching f, in file order. Date and hour
// bounds are inclusive and are evaluated in each timestamp's own zone.
// CookingOnly has no effect on a dataset without a cooking column.
func Apply(ds *types.Dataset, f types.Filter) []types.Row {
	from := dateOf(f.From)
	to := dateOf(f.To)
	cooking := f.CookingOnly && ds.HasCooking

	out := make([]types.Row, 0, len(ds.Rows))
	for _, r := range ds.Rows {
		d := dateOf(r.Time)
		if !f.From.IsZero() && d.Before(from) {
			continue
		}
		if !f.To.IsZero() && d.After(to) {
			continue
		}
		if h := r.Time.Hour(); h < f.HourFrom || h > f.HourTo {
			continue
		}
		if cooking && !r.Cooking {
			continue
		}
		out = append(out, r)
	}
	return out
}

// DefaultFilter spans the whole dataset: every date, every hour, the first
// numeric column.
func DefaultFilter(ds *types.Dataset) types.Filter {
	f := types.Filter{HourFrom: 0, HourTo: 23}
	if minT, maxT, ok := ds.TimeRange(); ok {
		f.From = dateOf(minT)
		f.To = dateOf(maxT)
	}
	if len(ds.NumericColumns) > 0 {
		f.Parameter = ds.NumericColumns[0]
	}
	return f
}

func Validate(ds *types.Dataset, f types.Filter) error {
	if f.HourFrom < 0 || f.HourFrom > 23 || f.HourTo < 0 || f.HourTo > 23 {
		return fmt.Errorf("%w: hours must be between 0 and 23", types.ErrInvalidFilter)
	}
	if f.HourFrom > f.HourTo {
		return fmt.Errorf("%w: start hour %d is after end hour %d", types.ErrInvalidFilter, f.HourFrom, f.HourTo)
	}
	if !f.From.IsZero() && !f.To.IsZero() && dateOf(f.From).After(dateOf(f.To)) {
		return fmt.Errorf("%w: start date %s is after end date %s", types.ErrInvalidFilter,
			f.From.Format(time.DateOnly), f.To.Format(time.DateOnly))
	}
	if f.Parameter != "" && ds.ColumnIndex(f.Parameter) < 0 {
		return fmt.Errorf("%w: %q", types.ErrUnknownParameter, f.Parameter)
	}
	return nil
}

// Column extracts the values of the numeric column at idx.
func Column(rows []types.Row, idx int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Values[idx]
	}
	return out
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
