// Package httpserver builds the process's http.Server from config so every
// timeout is tunable without a rebuild.
package httpserver

import (
	"net/http"

	"formflow/internal/platform/config"
)

// New builds an HTTP server with the configured timeouts.
func New(addr string, cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
