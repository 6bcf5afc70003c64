package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"carehub-backend/internal/config"
	"carehub-backend/internal/domain"
	"carehub-backend/internal/logger"
	"carehub-backend/internal/security"
	"carehub-backend/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ctxKey int

const (
	principalKey ctxKey = iota
	actorKey
	requestIDKey
)

const requestIDHeader = "X-Request-ID"

// authMiddleware enforces the security level of the matched route. Principal
// routes get the verified principal; account routes also get the actor.
type authMiddleware struct {
	verifier security.Verifier
	identity service.IdentityService
}

func (m *authMiddleware) handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		level := config.SecurityAccount
		if route := mux.CurrentRoute(r); route != nil {
			level = config.RouteSecurity(route.GetName())
		}
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, security.ErrInvalidToken)
			return
		}
		principal, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			logger.DebugContext(r.Context(), "Token rejected", "path", r.URL.Path, "error", err)
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, principal)

		if level == config.SecurityAccount {
			actor, err := m.identity.Actor(ctx, principal.ID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			ctx = context.WithValue(ctx, actorKey, actor)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalActor resolves the caller on a public route when a valid token is
// presented. Any failure just means anonymous.
func (m *authMiddleware) optionalActor(r *http.Request) (domain.Actor, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return domain.Actor{}, false
	}
	principal, err := m.verifier.Verify(r.Context(), token)
	if err != nil {
		return domain.Actor{}, false
	}
	actor, err := m.identity.Actor(r.Context(), principal.ID)
	if err != nil {
		return domain.Actor{}, false
	}
	return actor, true
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		token := strings.TrimSpace(h[7:])
		return token, token != ""
	}
	return "", false
}

func principalFrom(ctx context.Context) *security.Principal {
	p, _ := ctx.Value(principalKey).(*security.Principal)
	return p
}

func actorFrom(ctx context.Context) domain.Actor {
	a, _ := ctx.Value(actorKey).(domain.Actor)
	return a
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger tags each request with an id and logs its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.InfoContext(ctx, "HTTP request",
			"requestID", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// recoverer turns handler panics into a 500.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(r.Context(), "Handler panicked", "path", r.URL.Path, "panic", rec)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: domain.Error{Code: "INTERNAL", Message: "internal server error"}})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
