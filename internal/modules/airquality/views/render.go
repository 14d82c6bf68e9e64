package views

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"math"
	"net/http"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/charts"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
)

// EmptyNotice is shown instead of charts when no rows match the filters.
const EmptyNotice = "No data available for the selected filters."

// NoValuesNotice replaces the charts when rows match but the chosen
// parameter has no value in any of them.
const NoValuesNotice = "No %s values for the selected filters."

var dashboardTmpl *template.Template

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	dashboardTmpl, err = template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// StaticHandler serves the embedded stylesheet under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

// Tab is one dataset selector at the top of the dashboard.
type Tab struct {
	Name   string
	Title  string
	Active bool
}

type DashboardData struct {
	Tabs  []Tab
	Panel *PanelData
	// Error replaces the panel when no dataset could be shown.
	Error string
}

// FilterForm holds the sidebar values exactly as they are submitted.
type FilterForm struct {
	From        string
	To          string
	HourFrom    int
	HourTo      int
	Parameter   string
	CookingOnly bool
}

type SummaryRow struct {
	Column string
	Count  int
	Mean   string
	Std    string
	Min    string
	P25    string
	P50    string
	P75    string
	Max    string
}

// PanelData is the view model for one dataset: sidebar form and results.
type PanelData struct {
	Dataset     string
	Title       string
	Filter      FilterForm
	Parameters  []string
	Hours       []int
	MinDate     string
	MaxDate     string
	HasCooking  bool
	Count       int
	DroppedRows int
	// Notice replaces the results, e.g. EmptyNotice or a filter error.
	Notice        string
	ChartNotice   string
	LineChartURL  string
	BarChartURL   string
	ExportCSVURL  string
	ExportXLSXURL string
	Summaries     []SummaryRow
	Heatmap       *charts.HeatmapView
}

// NewSummaryRows formats summaries for the statistics table.
func NewSummaryRows(summaries []types.Summary) []SummaryRow {
	out := make([]SummaryRow, len(summaries))
	for i, s := range summaries {
		out[i] = SummaryRow{
			Column: s.Column,
			Count:  s.Count,
			Mean:   formatStat(s.Mean),
			Std:    formatStat(s.Std),
			Min:    formatStat(s.Min),
			P25:    formatStat(s.P25),
			P50:    formatStat(s.P50),
			P75:    formatStat(s.P75),
			Max:    formatStat(s.Max),
		}
	}
	return out
}

// HourOptions lists 0..23 for the hour selects.
func HourOptions() []int {
	hours := make([]int, 24)
	for i := range hours {
		hours[i] = i
	}
	return hours
}

func formatStat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderPanelPartial executes only the dataset panel into w.
// Use for HTMX fragment refresh when the filters change.
func RenderPanelPartial(w io.Writer, data *PanelData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/panel.html", data)
}
