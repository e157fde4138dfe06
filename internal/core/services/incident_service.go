package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/observability"
)

const defaultNotifyTimeout = 5 * time.Second

type IncidentService struct {
	incidents     ports.IncidentRepository
	children      ports.ChildRepository
	notifier      ports.GuardianNotifier
	notifyTimeout time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

var _ ports.IncidentService = (*IncidentService)(nil)

type IncidentServiceOption func(*IncidentService)

func WithNotifyTimeout(d time.Duration) IncidentServiceOption {
	return func(s *IncidentService) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func WithClock(now func() time.Time) IncidentServiceOption {
	return func(s *IncidentService) {
		s.now = now
	}
}

func WithLogger(logger *slog.Logger) IncidentServiceOption {
	return func(s *IncidentService) {
		s.logger = logger
	}
}

func NewIncidentService(
	incidents ports.IncidentRepository,
	children ports.ChildRepository,
	notifier ports.GuardianNotifier,
	opts ...IncidentServiceOption,
) *IncidentService {
	s := &IncidentService{
		incidents:     incidents,
		children:      children,
		notifier:      notifier,
		notifyTimeout: defaultNotifyTimeout,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "incident_service")
	return s
}

// Create stores a report on behalf of principal. Guardian mail for parent-targeted reports
// is attempted only after the report is durable and never turns the result into an error.
func (s *IncidentService) Create(ctx context.Context, principal domain.Principal, in domain.NewIncident) (*domain.CreateResult, error) {
	if principal == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	child, err := s.children.FindChild(ctx, in.ChildID)
	if err != nil {
		return nil, err
	}

	report := domain.IncidentReport{
		ChildID:      child.ID,
		IncidentType: domain.IncidentType(in.IncidentType),
		Description:  in.Description,
		ReportedBy:   principal.ID(),
		ReporterRole: principal.Role(),
		Target:       domain.Target(in.Target),
		IsRead:       false,
		Status:       domain.LifecycleOpen,
		CreatedAt:    s.now().UTC(),
	}

	id, err := s.incidents.Create(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("create incident report: %w", err)
	}
	observability.IncidentsCreated.WithLabelValues(string(report.IncidentType), string(report.Target)).Inc()
	s.logger.Info("incident report created",
		"incident_id", id,
		"child_id", child.ID,
		"incident_type", report.IncidentType,
		"target", report.Target,
		"reporter_role", report.ReporterRole,
	)

	result := &domain.CreateResult{IncidentID: id, Notification: domain.NotificationNotRequested}
	if report.Target == domain.TargetParent {
		result.Notification = s.notifyGuardian(ctx, child, id, report)
	}
	observability.GuardianNotifications.WithLabelValues(string(result.Notification)).Inc()
	return result, nil
}

func (s *IncidentService) notifyGuardian(ctx context.Context, child *domain.Child, id int64, report domain.IncidentReport) domain.NotificationOutcome {
	if child.ParentEmail == "" {
		s.logger.Info("guardian mail skipped, no guardian email on file", "incident_id", id, "child_id", child.ID)
		return domain.NotificationSkipped
	}
	if s.notifier == nil {
		s.logger.Warn("guardian mail not sent, no notifier configured", "incident_id", id)
		return domain.NotificationFailed
	}

	mail := domain.GuardianMail{
		IncidentID:   id,
		To:           child.ParentEmail,
		GuardianName: child.ParentName,
		ChildName:    child.FullName,
		IncidentType: report.IncidentType,
		Description:  report.Description,
	}

	// The report is already committed; only the timeout bounds the attempt, not the caller.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.notifier.NotifyGuardian(nctx, mail)
	}()

	var err error
	select {
	case err = <-done:
	case <-nctx.Done():
		err = nctx.Err()
	}
	if err != nil {
		s.logger.Warn("guardian mail failed",
			"incident_id", id,
			"error", errors.Join(domain.ErrNotificationDeliveryFailed, err),
		)
		return domain.NotificationFailed
	}
	return domain.NotificationSent
}

// Update applies a manager's partial update. The parent notification date is stamped by the
// repository in the same statement that flips parent_notified, never by the caller.
func (s *IncidentService) Update(ctx context.Context, id int64, upd domain.IncidentUpdate) (*domain.IncidentView, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	upd.NotifiedAt = s.now().UTC()

	view, err := s.incidents.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.logger.Info("incident report updated", "incident_id", id, "status", view.Status, "parent_notified", view.ParentNotified)
	return view, nil
}

func (s *IncidentService) Get(ctx context.Context, id int64) (*domain.IncidentView, error) {
	return s.incidents.FindByID(ctx, id)
}

func (s *IncidentService) List(ctx context.Context, filter domain.IncidentFilter) ([]domain.IncidentView, error) {
	return s.incidents.List(ctx, filter)
}

func (s *IncidentService) ListByChild(ctx context.Context, childID int64) ([]domain.IncidentView, error) {
	return s.incidents.List(ctx, domain.IncidentFilter{ChildID: &childID})
}
