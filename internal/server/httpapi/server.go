// Package httpapi exposes the authentication and account API over HTTP.
// It owns everything the core must not touch: request framing, cookies,
// device-key derivation, and status-code mapping.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CredentialIssuer is the slice of the credential service the transport
// needs.
type CredentialIssuer interface {
	Login(ctx context.Context, identifier, plainPassword, deviceKey string) (*services.TokenPair, error)
	Refresh(ctx context.Context, presentedToken, deviceKey string) (*services.TokenPair, error)
	Logout(ctx context.Context, presentedToken string) error
}

// AccountDirectory is the slice of the account service the transport
// needs.
type AccountDirectory interface {
	Register(ctx context.Context, email, plainPassword string, roles []string) (*models.Account, error)
	Find(ctx context.Context, idOrEmail string) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
	Delete(ctx context.Context, id string, actor *auth.Claims) error
}

type Server struct {
	address       string
	logger        logging.Logger
	credentials   CredentialIssuer
	accounts      AccountDirectory
	jwtSecret     []byte
	secureCookies bool
	corsOrigins   []string
}

func NewServer(cfg *config.Config, l logging.Logger, credentials CredentialIssuer, accounts AccountDirectory) *Server {
	return &Server{
		address:       cfg.EndpointAddrHTTP,
		logger:        l.With("module", "http_server"),
		credentials:   credentials,
		accounts:      accounts,
		jwtSecret:     []byte(cfg.SecretKey),
		secureCookies: cfg.Production(),
		corsOrigins:   cfg.CORSAllowedOrigins,
	}
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Get("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)
	})

	r.Route("/user", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handleListAccounts)
		r.Get("/{idOrEmail}", s.handleGetAccount)
		r.Delete("/{id}", s.handleDeleteAccount)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{Addr: s.address, Handler: s.Router()}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
