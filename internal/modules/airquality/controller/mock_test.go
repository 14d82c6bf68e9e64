package controller

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/analysis"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
)

type mockService struct {
	datasets   map[string]*types.Dataset
	order      []string
	queryErr   error
	refreshErr error
	refreshed  []string
}

func (m *mockService) Dataset(name string) (*types.Dataset, error) {
	ds, ok := m.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrDatasetNotFound, name)
	}
	return ds, nil
}

func (m *mockService) Datasets() []types.DatasetInfo {
	out := make([]types.DatasetInfo, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.datasets[name].Info())
	}
	return out
}

func (m *mockService) Query(name string, f types.Filter) (*types.Result, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	ds, err := m.Dataset(name)
	if err != nil {
		return nil, err
	}
	if err := analysis.Validate(ds, f); err != nil {
		return nil, err
	}
	rows := analysis.Apply(ds, f)
	res := &types.Result{
		Dataset:   ds,
		Info:      ds.Info(),
		Filter:    f,
		Rows:      rows,
		Count:     len(rows),
		Empty:     len(rows) == 0,
		Summaries: []types.Summary{},
	}
	if !res.Empty {
		res.Summaries = analysis.DescribeAll(ds, rows)
		matrix := analysis.Correlation(ds, rows)
		res.Correlation = &matrix
	}
	return res, nil
}

func (m *mockService) Refresh(ctx context.Context, name string) (types.DatasetInfo, error) {
	ds, err := m.Dataset(name)
	if err != nil {
		return types.DatasetInfo{}, err
	}
	if m.refreshErr != nil {
		return types.DatasetInfo{}, m.refreshErr
	}
	m.refreshed = append(m.refreshed, name)
	return ds.Info(), nil
}

func at(day, hour int) time.Time {
	return time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)
}

func newMockService() *mockService {
	indoor := &types.Dataset{
		Name:           "indoor",
		Title:          "Indoor Air Quality",
		TimeColumn:     "Datetime",
		Columns:        []string{"Datetime", "PM2.5", "CO2", "Cooking"},
		NumericColumns: []string{"PM2.5", "CO2"},
		HasCooking:     true,
		Rows: []types.Row{
			{Time: at(1, 6), Values: []float64{10, 400}},
			{Time: at(1, 12), Values: []float64{30, 600}, Cooking: true},
			{Time: at(2, 7), Values: []float64{20, 500}},
			{Time: at(2, 18), Values: []float64{40, 700}, Cooking: true},
		},
		DroppedRows: 1,
	}
	outdoor := &types.Dataset{
		Name:           "outdoor",
		Title:          "Outdoor Air Quality",
		TimeColumn:     "DateTime",
		Columns:        []string{"DateTime", "PM10"},
		NumericColumns: []string{"PM10"},
		Rows: []types.Row{
			{Time: at(1, 0), Values: []float64{5}},
			{Time: at(1, 1), Values: []float64{7}},
		},
	}
	return &mockService{
		datasets: map[string]*types.Dataset{"indoor": indoor, "outdoor": outdoor},
		order:    []string{"indoor", "outdoor"},
	}
}

func serve(t *testing.T, svc AirQualityService, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewAirQualityController(svc).RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}
