package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/2beens/workouttracker/internal/auth"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=middleware_mocks_test.go -package=middleware_test

type sessionGetter interface {
	Get(ctx context.Context, token string) (*auth.Session, error)
}

type tokenReader interface {
	Token(r *http.Request) (string, error)
}

type AuthMiddlewareHandler struct {
	sessions     sessionGetter
	tokens       tokenReader
	allowedPaths map[string]bool
}

func NewAuthMiddlewareHandler(sessions sessionGetter, tokens tokenReader) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		sessions: sessions,
		tokens:   tokens,
		allowedPaths: map[string]bool{
			"/api/health":   true,
			"/api/login":    true,
			"/api/register": true,
		},
	}
}

func (h *AuthMiddlewareHandler) pathIsAlwaysAllowed(path string) bool {
	return h.allowedPaths[strings.TrimSuffix(path, "/")]
}

// AuthCheck resolves the session cookie into an auth.Session and stores it in
// the request context. Requests without a valid session get 401.
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.pathIsAlwaysAllowed(r.URL.Path) {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			token, err := h.tokens.Token(r)
			if err != nil {
				log.Tracef("[missing session] [auth middleware] unauthorized => %s", r.URL.Path)
				pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated", "")
				span.SetStatus(codes.Error, "missing-session")
				return
			}

			session, err := h.sessions.Get(ctx, token)
			if err != nil {
				if errors.Is(err, auth.ErrSessionNotFound) {
					log.Tracef("[invalid session] [auth middleware] unauthorized => %s", r.URL.Path)
					pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated", "")
					span.SetStatus(codes.Error, "not-logged")
					return
				}
				log.Errorf("[failed session check] => %s: %s", r.URL.Path, err)
				pkg.WriteJSONError(w, http.StatusInternalServerError, "Server error", "")
				span.SetStatus(codes.Error, "check-session-err")
				span.RecordError(err)
				return
			}

			span.SetAttributes(attribute.Int("user.id", session.UserID))
			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
		})
	}
}

// RequireAdmin lets through only sessions with the admin role. It has to run
// after AuthCheck.
func RequireAdmin() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			session, ok := auth.FromContext(r.Context())
			if !ok {
				pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated", "")
				return
			}
			if !session.IsAdmin() {
				log.Warnf("non-admin user %d [%s] tried to access %s", session.UserID, session.Username, r.URL.Path)
				pkg.WriteJSONError(w, http.StatusForbidden, "Admin access required", "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
