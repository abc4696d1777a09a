// Package httpapi is the HTTP face of the auth service. It maps session and
// credential errors onto status codes and never leaks which token check
// failed.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/session"
	"github.com/gin-gonic/gin"
)

// SessionService is the part of session.Manager the gateway uses.
type SessionService interface {
	Issue(ctx context.Context, subjectID string) (*session.Issued, error)
	Validate(ctx context.Context, token string) (string, error)
	Refresh(ctx context.Context, refreshToken string) (*session.Refreshed, error)
	Revoke(ctx context.Context, accessToken string) (bool, error)
}

// CredentialService registers users and checks their passwords.
type CredentialService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Verify(ctx context.Context, username, password string) (string, error)
	Ping(ctx context.Context) error
}

// Pinger reports backend reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Observer records request latency.
type Observer interface {
	ObserveHTTP(route string, status int, d time.Duration)
	Handler() http.Handler
}

// Deps are the collaborators of the router. Metrics may be nil.
type Deps struct {
	Sessions SessionService
	Users    CredentialService
	Store    Pinger
	Logger   logging.Logger
	Metrics  Observer
}

type handlers struct {
	sessions SessionService
	users    CredentialService
	store    Pinger
	logger   logging.Logger
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger.With("module", "httpapi")
	h := &handlers{sessions: d.Sessions, users: d.Users, store: d.Store, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger, d.Metrics))

	r.POST("/register", h.register)
	r.POST("/login", h.login)
	r.POST("/refresh", h.refresh)
	r.POST("/logout", h.logout)
	r.GET("/health", h.health)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	protected := r.Group("")
	protected.Use(RequireToken(d.Sessions, logger))
	protected.GET("/protected", h.protected)

	return r
}
