// Package export writes filtered dataset rows as CSV or XLSX downloads.
package export

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/dataset"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
)

const timeLayout = "2006-01-02 15:04:05"

// Frame lays rows out as a table: the time column, every numeric column,
// then the cooking flag when it is not already numeric.
func Frame(ds *types.Dataset, rows []types.Row) dataframe.DataFrame {
	times := make([]string, len(rows))
	for i, r := range rows {
		times[i] = r.Time.Format(timeLayout)
	}
	cols := []series.Series{series.New(times, series.String, ds.TimeColumn)}
	for idx, name := range ds.NumericColumns {
		values := make([]float64, len(rows))
		for i, r := range rows {
			values[i] = r.Values[idx]
		}
		cols = append(cols, series.New(values, series.Float, name))
	}
	if extraCooking(ds) {
		flags := make([]int, len(rows))
		for i, r := range rows {
			if r.Cooking {
				flags[i] = 1
			}
		}
		cols = append(cols, series.New(flags, series.Int, dataset.CookingColumn))
	}
	return dataframe.New(cols...)
}

func WriteCSV(w io.Writer, ds *types.Dataset, rows []types.Row) error {
	df := Frame(ds, rows)
	if df.Err != nil {
		return fmt.Errorf("build frame: %w", df.Err)
	}
	return df.WriteCSV(w)
}

// WriteXLSX writes the same table as WriteCSV into a single sheet named
// after the dataset. Missing values are left blank.
func WriteXLSX(w io.Writer, ds *types.Dataset, rows []types.Row) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("close workbook", "error", err)
		}
	}()

	sheet := sheetName(ds.Name)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	cooking := extraCooking(ds)
	header := make([]any, 0, len(ds.NumericColumns)+2)
	header = append(header, ds.TimeColumn)
	for _, c := range ds.NumericColumns {
		header = append(header, c)
	}
	if cooking {
		header = append(header, dataset.CookingColumn)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		line := make([]any, 0, len(header))
		line = append(line, r.Time.Format(timeLayout))
		for _, v := range r.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				line = append(line, nil)
				continue
			}
			line = append(line, v)
		}
		if cooking {
			flag := 0
			if r.Cooking {
				flag = 1
			}
			line = append(line, flag)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func extraCooking(ds *types.Dataset) bool {
	if !ds.HasCooking {
		return false
	}
	for _, c := range ds.NumericColumns {
		if strings.EqualFold(c, dataset.CookingColumn) {
			return false
		}
	}
	return true
}

// sheetName trims name to what Excel accepts for a sheet title.
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "data"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
