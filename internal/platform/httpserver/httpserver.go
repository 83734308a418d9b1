// Package httpserver builds the qara API listener.
package httpserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"qara/internal/platform/config"
)

const readHeaderTimeout = 5 * time.Second

// New returns a server bound to cfg.Addr. Request contexts carry base's values
// but not its cancellation, so Shutdown drains them. net/http's own errors are
// logged at warn level.
func New(base context.Context, cfg config.Server, handler http.Handler, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.With("component", "http").Handler(), slog.LevelWarn),
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(base)
		},
	}
}
