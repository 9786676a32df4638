// Package httpapi exposes the gateway over HTTP in the forward-auth style:
// the fronting proxy sends each request's headers to /authz and copies the
// identity response headers onto the upstream request.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/akarpov87/identity-gateway/internal/common"
	"github.com/akarpov87/identity-gateway/internal/gateway/models"
	"github.com/akarpov87/identity-gateway/internal/logging"
)

// Identity response headers consumed by the proxy.
const (
	HeaderUserID   = "X-Auth-User-Id"
	HeaderEmail    = "X-Auth-Email"
	HeaderRole     = "X-Auth-Role"
	HeaderTier     = "X-Auth-Tier"
	HeaderDegraded = "X-Auth-Degraded"
)

const shutdownTimeout = 5 * time.Second

// Authenticator is the slice of the gateway the HTTP surface needs.
type Authenticator interface {
	Authenticate(ctx context.Context, h http.Header) (*models.Principal, []models.StoreFailure, error)
}

type Server struct {
	address string
	auth    Authenticator
	logger  logging.Logger
}

func NewServer(address string, auth Authenticator, logger logging.Logger) *Server {
	return &Server{
		address: address,
		auth:    auth,
		logger:  logger.With("module", "http_server"),
	}
}

// Handler builds the route table. Exposed separately so tests can drive it
// without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /authz", s.handleAuthz)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleAuthz authenticates the forwarded headers and answers with the
// identity headers the proxy copies upstream. The body is irrelevant to the
// proxy, only the status code and headers matter.
func (s *Server) handleAuthz(w http.ResponseWriter, r *http.Request) {
	p, failures, err := s.auth.Authenticate(r.Context(), r.Header)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrUnauthenticated):
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
		case errors.Is(err, common.ErrKeySetUnavailable):
			http.Error(w, "verification keys unavailable", http.StatusServiceUnavailable)
		default:
			s.logger.Error(r.Context(), "authentication pipeline failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	h := w.Header()
	h.Set(HeaderUserID, p.ID)
	h.Set(HeaderEmail, p.Email)
	h.Set(HeaderRole, string(p.Role))
	h.Set(HeaderTier, string(p.Tier))
	if len(failures) > 0 {
		kinds := make([]string, 0, len(failures))
		for _, f := range failures {
			kinds = append(kinds, string(f.Store))
		}
		h.Set(HeaderDegraded, strings.Join(kinds, ","))
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
