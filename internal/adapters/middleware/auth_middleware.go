package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/services"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/observability"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal attaches the resolved principal to ctx.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal attached by Authenticate, or nil.
func PrincipalFromContext(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(principalKey).(domain.Principal)
	return p
}

// AuthMiddleware runs every request through credential validation, the revocation
// check and identity resolution before any handler sees it.
type AuthMiddleware struct {
	validator   ports.TokenValidator
	revocations ports.RevocationStore
	resolver    ports.IdentityResolver
	logger      *slog.Logger
}

// NewAuthMiddleware builds the pipeline. revocations may be nil when no blacklist store is configured.
func NewAuthMiddleware(validator ports.TokenValidator, revocations ports.RevocationStore, resolver ports.IdentityResolver, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		validator:   validator,
		revocations: revocations,
		resolver:    resolver,
		logger:      logger.With("component", "auth_middleware"),
	}
}

// Authenticate rejects the request unless it carries a valid, unrevoked credential
// that resolves to an active principal.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := m.authenticate(r)
		if err != nil {
			reason := failureReason(err)
			observability.AuthFailures.WithLabelValues(reason).Inc()
			if errors.Is(err, domain.ErrDatastoreUnavailable) {
				m.logger.Error("authentication dependency unavailable", "path", r.URL.Path, "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "Service temporarily unavailable"})
				return
			}
			if !domain.IsAuthenticationError(err) {
				m.logger.Error("authentication failed unexpectedly", "path", r.URL.Path, "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
				return
			}
			m.logger.Info("request rejected", "path", r.URL.Path, "reason", reason)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": authMessage(err)})
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (m *AuthMiddleware) authenticate(r *http.Request) (domain.Principal, error) {
	raw := bearerToken(r.Header.Get("Authorization"))

	claim, err := m.validator.Validate(raw)
	if err != nil {
		return nil, err
	}

	if m.revocations != nil {
		revoked, err := m.revocations.IsRevoked(r.Context(), raw)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, domain.ErrRevokedCredential
		}
	}

	return m.resolver.Resolve(r.Context(), *claim)
}

// RequireRole admits only principals holding one of roles. It must run after Authenticate.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := services.Authorize(PrincipalFromContext(r.Context()), roles...)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			var denied *domain.AccessDeniedError
			if errors.As(err, &denied) {
				observability.AuthFailures.WithLabelValues("access_denied").Inc()
				writeJSON(w, http.StatusForbidden, AccessDeniedResponse{
					Message:       "Access denied",
					RequiredRoles: denied.Required,
					UserRole:      denied.Actual,
				})
				return
			}
			observability.AuthFailures.WithLabelValues("authentication_required").Inc()
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
		})
	}
}

type AccessDeniedResponse struct {
	Message       string        `json:"message"`
	RequiredRoles []domain.Role `json:"requiredRoles"`
	UserRole      domain.Role   `json:"userRole"`
}

// bearerToken strips the Bearer scheme. Anything else yields "", which the validator
// reports as a missing credential.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		return "No token provided"
	case errors.Is(err, domain.ErrExpiredCredential):
		return "Token expired"
	case errors.Is(err, domain.ErrIncompleteCredential):
		return "Invalid token structure"
	case errors.Is(err, domain.ErrRevokedCredential):
		return "Token has been revoked"
	case errors.Is(err, domain.ErrUnknownRole):
		return "Invalid role"
	case errors.Is(err, domain.ErrUnknownManager):
		return "Invalid manager account"
	case errors.Is(err, domain.ErrUnknownBabysitter):
		return "Invalid babysitter account"
	default:
		return "Invalid token"
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		return "missing"
	case errors.Is(err, domain.ErrExpiredCredential):
		return "expired"
	case errors.Is(err, domain.ErrIncompleteCredential):
		return "incomplete"
	case errors.Is(err, domain.ErrMalformedCredential):
		return "malformed"
	case errors.Is(err, domain.ErrRevokedCredential):
		return "revoked"
	case errors.Is(err, domain.ErrUnknownRole):
		return "unknown_role"
	case errors.Is(err, domain.ErrUnknownManager):
		return "unknown_manager"
	case errors.Is(err, domain.ErrUnknownBabysitter):
		return "unknown_babysitter"
	case errors.Is(err, domain.ErrDatastoreUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
