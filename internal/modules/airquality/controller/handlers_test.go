package controller

import (
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/views"
)

func Test_handleDashboard(t *testing.T) {
	ctrl := NewAirQualityController(newMockService()).(*airQualityControllerImpl)

	t.Run("returns 404 when path is not /", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		rec := httptest.NewRecorder()

		ctrl.handleDashboard(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("returns 500 and error body when render fails", func(t *testing.T) {
		// Render fails when templates are not loaded yet.
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		ctrl.handleDashboard(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
		}
		if body := rec.Body.String(); !strings.Contains(body, "failed to render page") {
			t.Errorf("body = %q; expected 'failed to render page'", body)
		}
	})

	if err := views.LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}

	t.Run("renders first dataset by default", func(t *testing.T) {
		rec := serve(t, newMockService(), http.MethodGet, "/")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200; body %s", rec.Code, rec.Body.String())
		}
		body := rec.Body.String()
		for _, want := range []string{
			"<!DOCTYPE html>",
			`class="tab active" href="/?dataset=indoor"`,
			"Outdoor Air Quality",
			"/charts/indoor/line.png?",
			"/charts/indoor/bar.png?",
			"/api/v1/datasets/indoor/export.csv?",
			"Summary statistics",
			`class="heatmap"`,
			`name="cooking"`,
			"1 rows skipped",
		} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q", want)
			}
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("selects dataset tab", func(t *testing.T) {
		rec := serve(t, newMockService(), http.MethodGet, "/?dataset=outdoor")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, `class="tab active" href="/?dataset=outdoor"`) {
			t.Error("outdoor tab not active")
		}
		if !strings.Contains(body, `<option value="PM10" selected>PM10</option>`) {
			t.Error("PM10 not the selected parameter")
		}
		if strings.Contains(body, `name="cooking"`) {
			t.Error("cooking checkbox shown for outdoor dataset")
		}
	})

	t.Run("shows notice for empty result", func(t *testing.T) {
		rec := serve(t, newMockService(), http.MethodGet, "/?from=2024-03-01&to=2024-03-01&hour_from=20&hour_to=23")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, views.EmptyNotice) {
			t.Errorf("body missing empty notice")
		}
		if strings.Contains(body, "/charts/indoor/line.png") {
			t.Error("chart rendered for empty result")
		}
	})

	t.Run("shows notice for invalid filter", func(t *testing.T) {
		rec := serve(t, newMockService(), http.MethodGet, "/?hour_from=12&hour_to=6")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "invalid filter") {
			t.Error("body missing filter error notice")
		}
	})

	t.Run("returns 404 for unknown dataset", func(t *testing.T) {
		rec := serve(t, newMockService(), http.MethodGet, "/?dataset=kitchen")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want 404", rec.Code)
		}
	})

	t.Run("shows message when nothing is loaded", func(t *testing.T) {
		rec := serve(t, &mockService{}, http.MethodGet, "/")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), noDatasetsMessage) {
			t.Error("body missing no-datasets message")
		}
	})
}

func Test_handlePanelPartial(t *testing.T) {
	if err := views.LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}

	t.Run("renders fragment only", func(t *testing.T) {
		rec := serve(t, newMockService(), http.MethodGet, "/partials/panel?dataset=indoor&parameter=CO2&cooking=on")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200", rec.Code)
		}
		body := rec.Body.String()
		if strings.Contains(body, "<!DOCTYPE html>") {
			t.Error("partial contains full layout")
		}
		if !strings.Contains(body, `id="panel"`) {
			t.Error("partial missing panel section")
		}
		if !strings.Contains(body, "parameter=CO2") || !strings.Contains(body, "cooking=1") {
			t.Errorf("chart links do not carry the filter: %s", body)
		}
		if !strings.Contains(body, "2 readings") {
			t.Error("partial missing reading count")
		}
	})

	t.Run("replaces charts when the parameter has no values", func(t *testing.T) {
		svc := newMockService()
		for i := range svc.datasets["indoor"].Rows {
			svc.datasets["indoor"].Rows[i].Values[1] = math.NaN()
		}
		rec := serve(t, svc, http.MethodGet, "/partials/panel?dataset=indoor&parameter=CO2")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, fmt.Sprintf(views.NoValuesNotice, "CO2")) {
			t.Error("partial missing no-values notice")
		}
		if strings.Contains(body, "line.png") || strings.Contains(body, "bar.png") {
			t.Error("partial links charts that have nothing to draw")
		}
		if !strings.Contains(body, `class="summary"`) {
			t.Error("summary table hidden; want it kept")
		}
	})

	t.Run("returns 503 when nothing is loaded", func(t *testing.T) {
		rec := serve(t, &mockService{}, http.MethodGet, "/partials/panel")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d; want 503", rec.Code)
		}
	})
}

func Test_staticAssets(t *testing.T) {
	rec := serve(t, newMockService(), http.MethodGet, "/static/app.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
}
