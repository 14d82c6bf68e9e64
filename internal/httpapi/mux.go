package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/svemuri1602/air-quality-dashboard/internal/metrics"
)

func NewMux(db *sql.DB, readiness Readiness) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, readiness)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}
