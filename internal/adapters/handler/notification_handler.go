package handler

import (
	"log/slog"
	"net/http"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
)

type NotificationHandler struct {
	notifications ports.NotificationService
	logger        *slog.Logger
}

func NewNotificationHandler(notifications ports.NotificationService, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{notifications: notifications, logger: logger.With("component", "notification_handler")}
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

// List handles GET /incidents/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.notifications.List(r.Context(), domain.NotificationFilter{
		BabysitterName: q.Get("babysitterName"),
		ChildName:      q.Get("childName"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// UnreadCount handles GET /incidents/notifications/unread.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifications.UnreadCount(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadCountResponse{Count: count})
}

// MarkRead handles PUT /incidents/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Invalid incident ID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.notifications.MarkRead(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Notification marked as read"})
}

// Summary handles GET /incidents/summary.
func (h *NotificationHandler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSummaryFilter(r.URL.Query())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	summary, err := h.notifications.Summary(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
