package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/DeBrosOfficial/loghub/pkg/logging"
	"go.uber.org/zap"
)

// Start serves on cfg.ListenAddr until ctx is cancelled, then shuts down.
func (g *Gateway) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", g.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", g.cfg.ListenAddr, err)
	}
	return g.Serve(ctx, listener)
}

// Serve is Start on an existing listener.
func (g *Gateway) Serve(ctx context.Context, listener net.Listener) error {
	g.server = &http.Server{
		Handler:      g.router,
		ReadTimeout:  g.cfg.ReadTimeout,
		WriteTimeout: g.cfg.WriteTimeout,
	}

	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	if g.rateLimiter != nil {
		g.rateLimiter.StartCleanup(time.Minute, 10*time.Minute, stopCleanup)
	}

	g.logger.ComponentInfo(logging.ComponentGateway, "HTTP server starting",
		zap.String("listen_addr", listener.Addr().String()),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := g.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return g.Stop()
	case err, ok := <-errCh:
		if ok {
			g.logger.ComponentError(logging.ComponentGateway, "HTTP server error", zap.Error(err))
			return err
		}
		return nil
	}
}

// Stop gracefully stops the HTTP server
func (g *Gateway) Stop() error {
	if g.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	g.logger.ComponentInfo(logging.ComponentGateway, "HTTP server shutting down")

	if err := g.server.Shutdown(ctx); err != nil {
		g.logger.ComponentError(logging.ComponentGateway, "HTTP server shutdown error", zap.Error(err))
		return err
	}

	g.logger.ComponentInfo(logging.ComponentGateway, "HTTP server shutdown complete")
	return nil
}
