// Package httpserver runs an http.Handler until its context is cancelled.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"librarycat/internal/logutil"
)

// ShutdownTimeout bounds how long in-flight requests may take to drain.
var ShutdownTimeout = 30 * time.Second

// Serve listens on bind and serves handler. It returns nil after a clean
// shutdown triggered by ctx.
func Serve(ctx context.Context, bind string, handler http.Handler) error {
	l, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	return ServeListener(ctx, l, handler)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, l net.Listener, handler http.Handler) error {
	server := http.Server{
		Handler:           handler,
		Addr:              l.Addr().String(),
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute * 5,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	done := make(chan struct{})
	go serveInBackground(ctx, &server, l, errc, done)
	<-done
	return <-errc
}

func serveInBackground(ctx context.Context, server *http.Server, l net.Listener, firstErr chan<- error, done chan<- struct{}) {
	log := logutil.GetOrDefault(ctx).With().Str("server.addr", server.Addr).Logger()
	defer close(done)
	serverCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		defer close(firstErr)
		log.Info().Msg("Starting HTTP server")
		err := server.Serve(l)
		if errors.Is(err, http.ErrServerClosed) {
			log.Info().Msg("Server closed")
			return
		} else if err != nil {
			firstErr <- err
		}
	}()
	select {
	case <-serverCtx.Done():
	case <-ctx.Done():
		log.Info().Msg("Initiating shutdown process")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
		log.Info().Msg("Shutdown completed")
	}
}
