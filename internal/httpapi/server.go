package httpapi

import (
	"net/http"
	"time"

	"github.com/svemuri1602/air-quality-dashboard/internal/config"
)

const readHeaderTimeout = 5 * time.Second

func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           withMiddleware(handler),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
	}
}
