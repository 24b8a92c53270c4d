package controlapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/openbmc-go/pldmd/internal/config"
	"github.com/openbmc-go/pldmd/internal/controlapi/auth"
	"github.com/openbmc-go/pldmd/internal/effecter"
	"github.com/openbmc-go/pldmd/internal/logger"
)

// Server is the control API's HTTP listener, supporting graceful shutdown.
type Server struct {
	httpServer   *http.Server
	shutdownOnce sync.Once
}

// NewServer builds a Server from cfg, wiring store, writer, and reg into the
// router. The server is constructed in a stopped state; call Start to begin
// serving.
func NewServer(cfg config.ControlAPIConfig, store Store, writer *effecter.Writer, reg *effecter.Registry) (*Server, error) {
	jwtSvc, err := auth.NewService(auth.Config{Secret: cfg.JWTSecret, Duration: cfg.TokenDuration})
	if err != nil {
		return nil, fmt.Errorf("controlapi: %w", err)
	}

	router := NewRouter(store, jwtSvc, writer, reg)
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.ListenAddress,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}, nil
}

// Start serves the control API until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("controlapi: listening", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("controlapi: server failed: %w", err)
	}
}

// Stop gracefully shuts down the server. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}
