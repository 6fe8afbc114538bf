package http_server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/jaennil/guide_helper/backend/mapcore/pkg/config"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
)

// NewServer wraps handler in an http.Server listening on cfg.Port. Requests inherit ctx, so the
// logger stored in it is available to handlers before any middleware runs.
func NewServer(ctx context.Context, cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}

// ListenAndServe runs srv until it is shut down. http.ErrServerClosed is not an error.
func ListenAndServe(srv *http.Server) error {
	l := logger.FromContext(srv.BaseContext(nil))
	l.Info("starting http server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
