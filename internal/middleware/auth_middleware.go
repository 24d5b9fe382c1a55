package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"notes-server/internal/domain"
	"notes-server/internal/httperror"
	"notes-server/internal/logger"
	"notes-server/pkg/jwt"
)

type contextKey string

const UserIDKey contextKey = "userID"

// Step is one stage of an authorization pipeline. It either returns the
// request to hand to the next stage or an error that ends the pipeline.
type Step func(r *http.Request) (*http.Request, error)

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type UserChecker interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// TokenExtractor pulls the raw token out of a request, returning "" when
// there is none.
type TokenExtractor func(r *http.Request) string

func FromHeader(name string) TokenExtractor {
	return func(r *http.Request) string {
		return strings.TrimSpace(r.Header.Get(name))
	}
}

// FromHeaderOrQuery falls back to a query parameter. Browsers cannot set
// headers on WebSocket upgrades.
func FromHeaderOrQuery(name, param string) TokenExtractor {
	header := FromHeader(name)
	return func(r *http.Request) string {
		if token := header(r); token != "" {
			return token
		}
		return strings.TrimSpace(r.URL.Query().Get(param))
	}
}

// FetchUser resolves the caller's identity from the token alone. It never
// touches the user store.
func FetchUser(verifier TokenVerifier, extract TokenExtractor) Step {
	return func(r *http.Request) (*http.Request, error) {
		token := extract(r)
		if token == "" {
			return nil, domain.NewUnauthenticated(domain.ReasonNoToken, "no token provided", nil)
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			return nil, tokenError(err)
		}

		setLoggedUser(r, userID)
		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		return r.WithContext(ctx), nil
	}
}

// CheckUser confirms that the identity resolved by FetchUser still exists.
func CheckUser(checker UserChecker, log *logger.Logger) Step {
	return func(r *http.Request) (*http.Request, error) {
		userID := GetUserID(r)
		if userID == "" {
			return nil, domain.NewUnauthenticated(domain.ReasonNoToken, "no token provided", nil)
		}

		exists, err := checker.Exists(r.Context(), userID)
		if err != nil {
			return nil, domain.NewInternalError("failed to check user", err)
		}
		if !exists {
			log.Warn("valid token for unknown user", "user_id", userID, "path", r.URL.Path)
			return nil, domain.NewUnauthenticated(domain.ReasonUserNotFound, "user not found", nil)
		}

		return r, nil
	}
}

// Pipeline runs steps in order and stops at the first failure, rendering it
// through errs.
func Pipeline(errs *httperror.Writer, log *logger.Logger, steps ...Step) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, step := range steps {
				nr, err := step(r)
				if err != nil {
					e := domain.AsError(err)
					log.Debug("request rejected", "path", r.URL.Path, "kind", e.Kind, "reason", e.Reason)
					errs.Write(w, err)
					return
				}
				r = nr
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Gate is the full check: a valid token naming an existing user.
func Gate(errs *httperror.Writer, log *logger.Logger, verifier TokenVerifier, checker UserChecker, extract TokenExtractor) func(http.Handler) http.Handler {
	return Pipeline(errs, log, FetchUser(verifier, extract), CheckUser(checker, log))
}

func GetUserID(r *http.Request) string {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

func tokenError(err error) *domain.Error {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return domain.NewUnauthenticated(domain.ReasonExpired, "token has expired", err)
	case errors.Is(err, jwt.ErrInvalidSignature):
		return domain.NewUnauthenticated(domain.ReasonInvalidSignature, "invalid token signature", err)
	default:
		return domain.NewUnauthenticated(domain.ReasonMalformed, "malformed token", err)
	}
}
