package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Tomlord1122/space-todo/internal/logger"
	"github.com/Tomlord1122/space-todo/internal/policy"
)

// requestLogger puts chi's request id on the context logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = logger.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate resolves the request principal from a bearer token or the
// session cookie. Requests without a token continue as anonymous.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		principal := policy.Anonymous

		tok, err := policy.TokenFromRequest(r)
		switch {
		case errors.Is(err, policy.ErrNoToken):
		case err != nil:
			respondWithError(w, http.StatusUnauthorized, err.Error())
			return
		default:
			principal, err = policy.ParseToken(s.jwtSecret, tok)
			if err != nil {
				logger.Debug(ctx, "Rejected token", "error", err)
				respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(policy.WithPrincipal(ctx, principal)))
	})
}
