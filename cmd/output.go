package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/charts"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/views"
)

var titleStyle = lipgloss.NewStyle().Bold(true)

func newTable() *table.Table {
	return table.New().Border(lipgloss.NormalBorder())
}

func printDatasets(w io.Writer, infos []types.DatasetInfo) {
	t := newTable().Headers("dataset", "rows", "dropped", "from", "to", "loaded")
	for _, info := range infos {
		t.Row(
			info.Name,
			strconv.Itoa(info.Rows),
			strconv.Itoa(info.DroppedRows),
			formatTime(info.From),
			formatTime(info.To),
			info.LoadedAt.Format(time.RFC3339),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func printResult(w io.Writer, res *types.Result) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s: %d readings", res.Info.Title, res.Count)))
	if res.Empty {
		fmt.Fprintln(w, views.EmptyNotice)
		return
	}

	summaries := newTable().Headers("", "count", "mean", "std", "min", "25%", "50%", "75%", "max")
	for _, s := range views.NewSummaryRows(res.Summaries) {
		summaries.Row(s.Column, strconv.Itoa(s.Count), s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max)
	}
	fmt.Fprintln(w, summaries.Render())

	if res.Correlation == nil {
		return
	}
	hm := charts.Heatmap(*res.Correlation)
	corr := newTable().Headers(append([]string{""}, hm.Columns...)...)
	for _, row := range hm.Rows {
		cells := []string{row.Label}
		for _, c := range row.Cells {
			cells = append(cells, c.Text)
		}
		corr.Row(cells...)
	}
	fmt.Fprintln(w, titleStyle.Render("Correlation"))
	fmt.Fprintln(w, corr.Render())
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
