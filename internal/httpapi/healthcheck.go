package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/svemuri1602/air-quality-dashboard/internal/utils"
)

// Readiness reports whether the datasets are loaded and queries can be served.
type Readiness interface {
	Ready() bool
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db        *sql.DB
	readiness Readiness
}

func NewHealthchecker(db *sql.DB, readiness Readiness) healthchecker {
	return &healthcheckerImpl{db: db, readiness: readiness}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}
	if h.readiness != nil && !h.readiness.Ready() {
		utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, readiness Readiness) {
	healthchecker := NewHealthchecker(db, readiness)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
