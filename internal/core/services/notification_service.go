package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
)

type NotificationService struct {
	notifications ports.NotificationRepository
	logger        *slog.Logger
}

var _ ports.NotificationService = (*NotificationService)(nil)

func NewNotificationService(notifications ports.NotificationRepository, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		notifications: notifications,
		logger:        logger.With("component", "notification_service"),
	}
}

// List returns manager-targeted reports, unread first and newest first within each group.
// Blank name filters are dropped.
func (s *NotificationService) List(ctx context.Context, filter domain.NotificationFilter) ([]domain.IncidentView, error) {
	filter.BabysitterName = strings.TrimSpace(filter.BabysitterName)
	filter.ChildName = strings.TrimSpace(filter.ChildName)
	items, err := s.notifications.ListNotifications(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.IncidentView{}
	}
	return items, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	return s.notifications.CountUnread(ctx)
}

// MarkRead flips the read flag of a manager-targeted report. Repeating it is not an error.
func (s *NotificationService) MarkRead(ctx context.Context, id int64) error {
	if err := s.notifications.MarkRead(ctx, id); err != nil {
		return err
	}
	s.logger.Info("notification marked as read", "incident_id", id)
	return nil
}

func (s *NotificationService) Summary(ctx context.Context, filter domain.IncidentFilter) (*domain.Summary, error) {
	summary, err := s.notifications.Summary(ctx, filter)
	if err != nil {
		return nil, err
	}
	if summary.ByType == nil {
		summary.ByType = map[domain.IncidentType]int{}
	}
	return summary, nil
}
