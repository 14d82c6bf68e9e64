package controller

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/analysis"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/charts"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/views"
	"github.com/svemuri1602/air-quality-dashboard/internal/utils"
)

const noDatasetsMessage = "No datasets are loaded yet. Try again shortly."

func (c *airQualityControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := &views.DashboardData{}
	infos := c.service.Datasets()
	if len(infos) == 0 {
		data.Error = noDatasetsMessage
	} else {
		ds, ok := c.selectedDataset(w, r, infos)
		if !ok {
			return
		}
		for _, info := range infos {
			data.Tabs = append(data.Tabs, views.Tab{Name: info.Name, Title: info.Title, Active: info.Name == ds.Name})
		}
		panel, err := c.buildPanel(ds, r)
		if err != nil {
			slog.Error("dashboard: build panel failed", "dataset", ds.Name, "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to load dataset")
			return
		}
		data.Panel = panel
	}

	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, data); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("dashboard: write response failed", "error", err)
	}
}

func (c *airQualityControllerImpl) handlePanelPartial(w http.ResponseWriter, r *http.Request) {
	infos := c.service.Datasets()
	if len(infos) == 0 {
		utils.WriteError(w, http.StatusServiceUnavailable, noDatasetsMessage)
		return
	}
	ds, ok := c.selectedDataset(w, r, infos)
	if !ok {
		return
	}
	panel, err := c.buildPanel(ds, r)
	if err != nil {
		slog.Error("panel: build failed", "dataset", ds.Name, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load dataset")
		return
	}

	var buf bytes.Buffer
	if err := views.RenderPanelPartial(&buf, panel); err != nil {
		slog.Error("panel partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("panel: write response failed", "error", err)
	}
}

// selectedDataset resolves ?dataset=, defaulting to the first tab. It writes
// a 404 and returns false for an unknown name.
func (c *airQualityControllerImpl) selectedDataset(w http.ResponseWriter, r *http.Request, infos []types.DatasetInfo) (*types.Dataset, bool) {
	name := r.URL.Query().Get("dataset")
	if name == "" {
		name = infos[0].Name
	}
	ds, err := c.service.Dataset(name)
	if err != nil {
		if errors.Is(err, types.ErrDatasetNotFound) {
			slog.Warn("dashboard: unknown dataset", "dataset", name)
			utils.WriteError(w, http.StatusNotFound, err.Error())
			return nil, false
		}
		slog.Error("dashboard: get dataset failed", "dataset", name, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load dataset")
		return nil, false
	}
	return ds, true
}

// buildPanel runs the query for the panel. Filter errors and empty results
// become a notice instead of an error.
func (c *airQualityControllerImpl) buildPanel(ds *types.Dataset, r *http.Request) (*views.PanelData, error) {
	panel := &views.PanelData{
		Dataset:     ds.Name,
		Title:       ds.Title,
		Parameters:  ds.NumericColumns,
		Hours:       views.HourOptions(),
		HasCooking:  ds.HasCooking,
		DroppedRows: ds.DroppedRows,
		Filter:      filterForm(analysis.DefaultFilter(ds)),
	}
	if minT, maxT, ok := ds.TimeRange(); ok {
		panel.MinDate = dateString(minT)
		panel.MaxDate = dateString(maxT)
	}

	f, err := parseFilter(r, ds)
	if err != nil {
		panel.Notice = err.Error()
		return panel, nil
	}
	panel.Filter = filterForm(f)

	res, err := c.service.Query(ds.Name, f)
	if err != nil {
		if isFilterError(err) {
			panel.Notice = err.Error()
			return panel, nil
		}
		return nil, err
	}
	panel.Count = res.Count
	if res.Empty {
		panel.Notice = views.EmptyNotice
		return panel, nil
	}

	qs := filterValues(f).Encode()
	name := url.PathEscape(ds.Name)
	if hasValues(res.Summaries, f.Parameter) {
		panel.LineChartURL = "/charts/" + name + "/line.png?" + qs
		panel.BarChartURL = "/charts/" + name + "/bar.png?" + qs
	} else {
		panel.ChartNotice = fmt.Sprintf(views.NoValuesNotice, f.Parameter)
	}
	panel.ExportCSVURL = "/api/v1/datasets/" + name + "/export.csv?" + qs
	panel.ExportXLSXURL = "/api/v1/datasets/" + name + "/export.xlsx?" + qs
	panel.Summaries = views.NewSummaryRows(res.Summaries)
	if res.Correlation != nil {
		hm := charts.Heatmap(*res.Correlation)
		panel.Heatmap = &hm
	}
	return panel, nil
}

func hasValues(summaries []types.Summary, column string) bool {
	for _, s := range summaries {
		if s.Column == column {
			return s.Count > 0
		}
	}
	return false
}

func filterForm(f types.Filter) views.FilterForm {
	return views.FilterForm{
		From:        dateString(f.From),
		To:          dateString(f.To),
		HourFrom:    f.HourFrom,
		HourTo:      f.HourTo,
		Parameter:   f.Parameter,
		CookingOnly: f.CookingOnly,
	}
}
