package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/adapters/middleware"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
)

type MessageResponse struct {
	Message string `json:"message"`
}

type ValidationResponse struct {
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// writeError maps an error to its status code. Only domain messages reach the client;
// anything unexpected is logged and answered with a generic 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		validation *domain.ValidationError
		denied     *domain.AccessDeniedError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, ValidationResponse{Message: "Validation failed", Errors: validation.Fields})
	case errors.As(err, &denied):
		writeJSON(w, http.StatusForbidden, middleware.AccessDeniedResponse{
			Message:       "Access denied",
			RequiredRoles: denied.Required,
			UserRole:      denied.Actual,
		})
	case domain.IsAuthenticationError(err):
		writeJSON(w, http.StatusUnauthorized, MessageResponse{Message: "Authentication required"})
	case errors.Is(err, domain.ErrChildNotFound):
		writeJSON(w, http.StatusNotFound, MessageResponse{Message: "Child not found"})
	case errors.Is(err, domain.ErrReportNotFound):
		writeJSON(w, http.StatusNotFound, MessageResponse{Message: "Incident report not found"})
	case errors.Is(err, domain.ErrNotificationNotFound):
		writeJSON(w, http.StatusNotFound, MessageResponse{Message: "Notification not found"})
	case errors.Is(err, domain.ErrDatastoreUnavailable):
		logger.Error("datastore unavailable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, MessageResponse{Message: "Service temporarily unavailable"})
	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: "Server error"})
	}
}
