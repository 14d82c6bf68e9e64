package analysis

import (
	"math"
	"sort"

	"github.com/go-gota/gota/series"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
)

// Describe summarises the non-NaN values of one column. Std is the sample
// standard deviation; quartiles interpolate linearly between order statistics.
func Describe(column string, values []float64) types.Summary {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	nan := math.NaN()
	s := types.Summary{
		Column: column, Count: len(clean),
		Mean: nan, Std: nan, Min: nan, P25: nan, P50: nan, P75: nan, Max: nan,
	}
	if len(clean) == 0 {
		return s
	}

	ser := series.Floats(clean)
	s.Mean = ser.Mean()
	s.Min = ser.Min()
	s.Max = ser.Max()
	if len(clean) > 1 {
		s.Std = ser.StdDev()
	}

	sort.Float64s(clean)
	s.P25 = quantile(clean, 0.25)
	s.P50 = quantile(clean, 0.50)
	s.P75 = quantile(clean, 0.75)
	return s
}

// DescribeAll runs Describe over every numeric column of ds.
func DescribeAll(ds *types.Dataset, rows []types.Row) []types.Summary {
	out := make([]types.Summary, len(ds.NumericColumns))
	for i, col := range ds.NumericColumns {
		out[i] = Describe(col, Column(rows, i))
	}
	return out
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
