package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// Serve runs srv on listener until ctx is done or the process receives
// SIGINT or SIGTERM. The server then stops accepting connections, waits at
// most timeout for in-flight requests, and runs hooks within the same
// deadline.
func Serve(ctx context.Context, srv *http.Server, listener net.Listener, timeout time.Duration, hooks *ShutdownHooks) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("address", listener.Addr().String()).Msg("server: listening")
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped unexpectedly: %w", err)

	case <-ctx.Done():
		log.Info().Dur("timeout", timeout).Msg("server: shutting down")
	}

	// the parent context is done, so shutdown gets a fresh deadline
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		err = fmt.Errorf("server shutdown failed: %w", err)
	}

	if hooks != nil {
		err = errors.Join(err, hooks.Execute(shutdownCtx))
	}

	log.Info().Msg("server: shutdown complete")

	return err
}

// Listen opens the TCP listener for port, on all interfaces.
func Listen(port int) (net.Listener, error) {
	return net.Listen("tcp", fmt.Sprintf(":%d", port))
}
