// Package server wires the Echo HTTP server for the neighborhood app.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/kiezfinder/kiezfinder/internal/profile"
	apiv1 "github.com/kiezfinder/kiezfinder/server/router/api/v1"
	"github.com/kiezfinder/kiezfinder/store"
)

// Server hosts the HTTP API.
type Server struct {
	echoServer *echo.Echo
	profile    *profile.Profile
}

// NewServer creates the Echo server and registers the v1 API routes.
func NewServer(profile *profile.Profile, apiService *apiv1.APIV1Service, store *store.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	apiService.Register(e)

	return &Server{
		echoServer: e,
		profile:    profile,
	}
}

// Start runs the server until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server started", "address", address, "mode", s.profile.Mode, "version", s.profile.Version)

	errChan := make(chan error, 1)
	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown server")
	}
	slog.Info("server stopped")
	return nil
}
