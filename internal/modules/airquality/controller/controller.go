package controller

import (
	"context"
	"net/http"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/views"
)

// AirQualityService is the part of service.Service the HTTP layer needs.
type AirQualityService interface {
	Dataset(name string) (*types.Dataset, error)
	Datasets() []types.DatasetInfo
	Query(name string, f types.Filter) (*types.Result, error)
	Refresh(ctx context.Context, name string) (types.DatasetInfo, error)
}

type AirQualityController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type airQualityControllerImpl struct {
	service AirQualityService
}

func NewAirQualityController(service AirQualityService) AirQualityController {
	return &airQualityControllerImpl{service: service}
}

func (c *airQualityControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleDashboard)
	mux.HandleFunc("GET /partials/panel", c.handlePanelPartial)
	mux.Handle("GET /static/", views.StaticHandler())

	mux.HandleFunc("GET /charts/{dataset}/line.png", c.handleLineChart)
	mux.HandleFunc("GET /charts/{dataset}/bar.png", c.handleBarChart)

	mux.HandleFunc("GET /api/v1/datasets", c.handleDatasets)
	mux.HandleFunc("GET /api/v1/datasets/{dataset}", c.handleDataset)
	mux.HandleFunc("GET /api/v1/datasets/{dataset}/readings", c.handleReadings)
	mux.HandleFunc("GET /api/v1/datasets/{dataset}/summary", c.handleSummary)
	mux.HandleFunc("GET /api/v1/datasets/{dataset}/export.csv", c.handleExportCSV)
	mux.HandleFunc("GET /api/v1/datasets/{dataset}/export.xlsx", c.handleExportXLSX)
	mux.HandleFunc("POST /api/v1/datasets/{dataset}/refresh", c.handleRefresh)
}
