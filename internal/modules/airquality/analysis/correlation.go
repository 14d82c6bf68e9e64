package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
)

// Correlation builds the Pearson matrix over every pair of numeric columns.
// Each pair uses only rows where both values are present; fewer than two
// such rows, or a constant column, yields NaN.
func Correlation(ds *types.Dataset, rows []types.Row) types.Matrix {
	n := len(ds.NumericColumns)
	m := types.Matrix{
		Columns: append([]string(nil), ds.NumericColumns...),
		Values:  make([][]float64, n),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
	}
	cols := make([][]float64, n)
	for i := range cols {
		cols[i] = Column(rows, i)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			r := pearson(cols[i], cols[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

func pearson(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for k := range x {
		if math.IsNaN(x[k]) || math.IsNaN(y[k]) {
			continue
		}
		xs = append(xs, x[k])
		ys = append(ys, y[k])
	}
	if len(xs) < 2 || constant(xs) || constant(ys) {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	// Rounding can push |r| just past 1.
	return math.Max(-1, math.Min(1, r))
}

func constant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}
