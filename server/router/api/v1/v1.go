// Package v1 implements the HTTP API: the chat endpoint and the read-only
// borough/neighborhood queries.
package v1

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kiezfinder/kiezfinder/internal/profile"
	"github.com/kiezfinder/kiezfinder/plugin/chatbot"
	"github.com/kiezfinder/kiezfinder/plugin/chatbot/session"
	"github.com/kiezfinder/kiezfinder/server/middleware"
	"github.com/kiezfinder/kiezfinder/store"
)

// APIV1Service bundles the handlers' collaborators.
type APIV1Service struct {
	Profile  *profile.Profile
	Resolver *chatbot.Resolver
	Sessions session.Service
	Store    *store.Store

	limiter *middleware.RateLimiter
}

// NewAPIV1Service creates the v1 API service. Store may be nil when no
// database is configured; the neighborhood endpoints then report 503.
func NewAPIV1Service(profile *profile.Profile, resolver *chatbot.Resolver, sessions session.Service, store *store.Store) *APIV1Service {
	return &APIV1Service{
		Profile:  profile,
		Resolver: resolver,
		Sessions: sessions,
		Store:    store,
		limiter:  middleware.NewRateLimiter(200*time.Millisecond, 10),
	}
}

// Register attaches the v1 routes to the Echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	g := e.Group("/api/v1")

	g.POST("/chat", s.handleChat)

	g.GET("/boroughs", s.handleListBoroughs)
	g.GET("/boroughs/:slug", s.handleGetBorough)
	g.GET("/neighborhoods", s.handleListNeighborhoods)
	g.GET("/neighborhoods/:slug", s.handleGetNeighborhood)
}
