package controller

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/analysis"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/charts"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/export"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
	"github.com/svemuri1602/air-quality-dashboard/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type readingJSON struct {
	Time    time.Time      `json:"time"`
	Values  map[string]any `json:"values"`
	Cooking *bool          `json:"cooking,omitempty"`
}

func (c *airQualityControllerImpl) handleDatasets(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.Datasets())
}

func (c *airQualityControllerImpl) handleDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := c.service.Dataset(r.PathValue("dataset"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"dataset":       ds.Info(),
		"defaultFilter": analysis.DefaultFilter(ds),
	})
}

func (c *airQualityControllerImpl) handleReadings(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := c.query(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	rows := res.Rows
	if len(rows) > limit {
		rows = rows[:limit]
	}
	readings := make([]readingJSON, 0, len(rows))
	for _, row := range rows {
		values := make(map[string]any, len(row.Values))
		for i, col := range res.Dataset.NumericColumns {
			values[col] = types.NullFloat(row.Values[i])
		}
		reading := readingJSON{Time: row.Time, Values: values}
		if res.Dataset.HasCooking {
			cooking := row.Cooking
			reading.Cooking = &cooking
		}
		readings = append(readings, reading)
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"dataset":  res.Dataset.Name,
		"filter":   res.Filter,
		"count":    res.Count,
		"returned": len(readings),
		"readings": readings,
	})
}

func (c *airQualityControllerImpl) handleSummary(w http.ResponseWriter, r *http.Request) {
	res, err := c.query(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (c *airQualityControllerImpl) handleLineChart(w http.ResponseWriter, r *http.Request) {
	c.writeChart(w, r, charts.Line)
}

func (c *airQualityControllerImpl) handleBarChart(w http.ResponseWriter, r *http.Request) {
	c.writeChart(w, r, charts.Bar)
}

type chartFunc func(io.Writer, *types.Dataset, []types.Row, string) error

func (c *airQualityControllerImpl) writeChart(w http.ResponseWriter, r *http.Request, draw chartFunc) {
	res, err := c.query(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if res.Empty {
		writeServiceError(w, r, types.ErrNoData)
		return
	}
	var buf bytes.Buffer
	if err := draw(&buf, res.Dataset, res.Rows, res.Filter.Parameter); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("chart: write response failed", "error", err)
	}
}

func (c *airQualityControllerImpl) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	c.writeExport(w, r, "text/csv; charset=utf-8", ".csv", export.WriteCSV)
}

func (c *airQualityControllerImpl) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	c.writeExport(w, r, xlsxContentType, ".xlsx", export.WriteXLSX)
}

type exportFunc func(io.Writer, *types.Dataset, []types.Row) error

func (c *airQualityControllerImpl) writeExport(w http.ResponseWriter, r *http.Request, contentType, ext string, write exportFunc) {
	res, err := c.query(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, res.Dataset, res.Rows); err != nil {
		slog.Error("export failed", "dataset", res.Dataset.Name, "format", ext, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to export")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.Dataset.Name+ext+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("export: write response failed", "error", err)
	}
}

func (c *airQualityControllerImpl) handleRefresh(w http.ResponseWriter, r *http.Request) {
	info, err := c.service.Refresh(r.Context(), r.PathValue("dataset"))
	if err != nil {
		if errors.Is(err, types.ErrDatasetNotFound) {
			utils.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("refresh failed", "dataset", r.PathValue("dataset"), "error", err)
		utils.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, info)
}

// query parses the filter for the {dataset} path value and runs it.
func (c *airQualityControllerImpl) query(r *http.Request) (*types.Result, error) {
	ds, err := c.service.Dataset(r.PathValue("dataset"))
	if err != nil {
		return nil, err
	}
	f, err := parseFilter(r, ds)
	if err != nil {
		return nil, err
	}
	return c.service.Query(ds.Name, f)
}
