package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// Run serves until SIGINT/SIGTERM, then drains in-flight requests within
// the shutdown timeout before running the registered hooks.
func Run(server *http.Server, hooks *ShutdownHooks, shutdownTimeout time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		// listen failure: shutdown hooks still run so partially started
		// dependencies are released
		hooks.Execute(context.Background())
		return err
	case <-ctx.Done():
	}

	stop()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		log.Warn().Err(err).Msg("server drain failed, closing")
		_ = server.Close()
	}

	hooks.Execute(shutdownCtx)

	if serveResult := <-serveErr; !errors.Is(serveResult, http.ErrServerClosed) {
		return serveResult
	}

	return err
}
