package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"supportrag/internal/logger"
	"supportrag/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP API on addr until ctx is canceled, then drains
// in-flight requests.
func Serve(ctx context.Context, addr string, engine *usecase.Engine, log logger.Logger) error {
	if log == nil {
		log = logger.Discard()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(engine, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("http server stopped")
	return nil
}
