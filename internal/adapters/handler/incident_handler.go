package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/adapters/middleware"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
)

type IncidentHandler struct {
	incidents ports.IncidentService
	logger    *slog.Logger
}

func NewIncidentHandler(incidents ports.IncidentService, logger *slog.Logger) *IncidentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IncidentHandler{incidents: incidents, logger: logger.With("component", "incident_handler")}
}

type CreateIncidentResponse struct {
	Message      string                     `json:"message"`
	IncidentID   int64                      `json:"incidentId"`
	Notification domain.NotificationOutcome `json:"notification"`
}

type UpdateIncidentResponse struct {
	Message  string               `json:"message"`
	Incident *domain.IncidentView `json:"incident"`
}

// Create handles POST /incidents.
func (h *IncidentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.NewIncident
	if err := decodeBody(r, &req); err != nil {
		h.writeDecodeError(w, err)
		return
	}

	result, err := h.incidents.Create(r.Context(), middleware.PrincipalFromContext(r.Context()), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateIncidentResponse{
		Message:      createMessage(result.Notification),
		IncidentID:   result.IncidentID,
		Notification: result.Notification,
	})
}

func (h *IncidentHandler) writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errInvalidPayload) {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "Invalid request payload"})
		return
	}
	writeError(w, h.logger, err)
}

func createMessage(outcome domain.NotificationOutcome) string {
	switch outcome {
	case domain.NotificationSent:
		return "Incident report submitted and email sent to parent"
	case domain.NotificationFailed:
		return "Incident saved but email notification failed"
	default:
		return "Incident report submitted successfully"
	}
}

// Update handles PUT /incidents/{id}.
func (h *IncidentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Invalid incident ID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req domain.IncidentUpdate
	if err := decodeBody(r, &req); err != nil {
		h.writeDecodeError(w, err)
		return
	}

	view, err := h.incidents.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, UpdateIncidentResponse{Message: "Incident report updated successfully", Incident: view})
}

// Get handles GET /incidents/{id}.
func (h *IncidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Invalid incident ID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	view, err := h.incidents.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// List handles GET /incidents.
func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseIncidentFilter(r.URL.Query())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items, err := h.incidents.List(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ListByChild handles GET /incidents/child/{childId}.
func (h *IncidentHandler) ListByChild(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childId", "Invalid child ID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items, err := h.incidents.ListByChild(r.Context(), childID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
