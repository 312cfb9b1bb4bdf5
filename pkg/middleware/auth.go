package middleware

import (
	"net/http"
	"strings"

	apperrors "expobook/pkg/errors"
	httputil "expobook/pkg/http"
	"expobook/pkg/logger"
	"expobook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// TokenVerifier turns a bearer token into the principal it was issued to.
type TokenVerifier interface {
	Verify(token string) (model.Principal, error)
}

// Authenticate attaches the principal of a valid bearer token to the request
// context. Requests without an Authorization header pass through anonymous;
// a malformed or invalid token is rejected with 401.
func Authenticate(verifier TokenVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(header)
			if !ok {
				rejectUnauthorized(w, log, r, "Authorization header must use the Bearer scheme")
				return
			}

			principal, err := verifier.Verify(token)
			if err != nil {
				rejectUnauthorized(w, log, r, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAuth rejects anonymous requests before they reach handle.
func RequireAuth(handle httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			_ = httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
			return
		}
		handle(w, r, ps)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func rejectUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Authentication failed",
		"request_id", RequestIDFromContext(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
	)
	_ = httputil.WriteError(w, apperrors.Unauthorized(reason))
}
