package domain

import (
	"time"
)

type IncidentType string

const (
	IncidentHealth          IncidentType = "health"
	IncidentBehavior        IncidentType = "behavior"
	IncidentWellBeing       IncidentType = "well-being"
	IncidentPaymentReminder IncidentType = "payment-reminder"
	IncidentPaymentOverdue  IncidentType = "payment-overdue"
)

var IncidentTypes = []IncidentType{
	IncidentHealth,
	IncidentBehavior,
	IncidentWellBeing,
	IncidentPaymentReminder,
	IncidentPaymentOverdue,
}

func (t IncidentType) Valid() bool {
	for _, known := range IncidentTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Target string

const (
	TargetParent  Target = "parent"
	TargetManager Target = "manager"
)

func (t Target) Valid() bool {
	return t == TargetParent || t == TargetManager
}

// Lifecycle is the resolution stage of a report, independent of its read state.
type Lifecycle string

const (
	LifecycleOpen     Lifecycle = "open"
	LifecycleResolved Lifecycle = "resolved"
	LifecycleClosed   Lifecycle = "closed"
)

var lifecycleOrder = map[Lifecycle]int{
	LifecycleOpen:     0,
	LifecycleResolved: 1,
	LifecycleClosed:   2,
}

func (l Lifecycle) Valid() bool {
	_, ok := lifecycleOrder[l]
	return ok
}

// CanAdvanceTo reports whether moving to next keeps the lifecycle monotonic.
// Update does not enforce it; reopening is a caller decision.
func (l Lifecycle) CanAdvanceTo(next Lifecycle) bool {
	from, ok := lifecycleOrder[l]
	if !ok {
		return false
	}
	to, ok := lifecycleOrder[next]
	if !ok {
		return false
	}
	return to >= from
}

type IncidentReport struct {
	ID                     int64        `json:"id"`
	ChildID                int64        `json:"child_id"`
	IncidentType           IncidentType `json:"incident_type"`
	Description            string       `json:"description"`
	ReportedBy             int64        `json:"reported_by"`
	ReporterRole           Role         `json:"reporter_role"`
	Target                 Target       `json:"target"`
	IsRead                 bool         `json:"is_read"`
	Status                 Lifecycle    `json:"status"`
	CreatedAt              time.Time    `json:"created_at"`
	ParentNotified         bool         `json:"parent_notified"`
	ParentNotificationDate *time.Time   `json:"parent_notification_date"`
	FollowUpRequired       bool         `json:"follow_up_required"`
	FollowUpNotes          string       `json:"follow_up_notes"`
}

// IncidentView is a report enriched with the child's and the reporter's display names.
type IncidentView struct {
	IncidentReport
	ChildName      string `json:"child_name"`
	ReportedByName string `json:"reported_by_name"`
}

// NewIncident is the caller-supplied part of a report.
type NewIncident struct {
	ChildID      int64  `json:"child_id" validate:"required,gt=0"`
	IncidentType string `json:"incident_type" validate:"required,oneof=health behavior well-being payment-reminder payment-overdue"`
	Description  string `json:"description" validate:"required"`
	Target       string `json:"target" validate:"required,oneof=parent manager"`
}

// IncidentUpdate carries the manager-editable fields; nil means unchanged.
// NotifiedAt is assigned by the service and only lands in the row when
// parent_notified flips from false to true in the same statement.
type IncidentUpdate struct {
	ParentNotified   *bool     `json:"parentNotified"`
	FollowUpRequired *bool     `json:"followUpRequired"`
	FollowUpNotes    *string   `json:"followUpNotes"`
	Status           *string   `json:"status" validate:"omitempty,oneof=open resolved closed"`
	NotifiedAt       time.Time `json:"-"`
}

type IncidentFilter struct {
	StartDate    *time.Time
	EndDate      *time.Time
	ChildID      *int64
	IncidentType *IncidentType
	Status       *Lifecycle
}

type NotificationFilter struct {
	BabysitterName string
	ChildName      string
}

type StatusCounts struct {
	Open     int `json:"open"`
	Resolved int `json:"resolved"`
	Closed   int `json:"closed"`
}

type Summary struct {
	TotalIncidents int                  `json:"totalIncidents"`
	ByType         map[IncidentType]int `json:"byType"`
	ByStatus       StatusCounts         `json:"byStatus"`
}

func (s *Summary) Add(t IncidentType, status Lifecycle, n int) {
	if s.ByType == nil {
		s.ByType = make(map[IncidentType]int)
	}
	s.TotalIncidents += n
	s.ByType[t] += n
	switch status {
	case LifecycleOpen:
		s.ByStatus.Open += n
	case LifecycleResolved:
		s.ByStatus.Resolved += n
	default:
		s.ByStatus.Closed += n
	}
}

// NotificationOutcome describes what happened to the guardian mail of a new report.
type NotificationOutcome string

const (
	NotificationNotRequested NotificationOutcome = "not_requested"
	NotificationSent         NotificationOutcome = "sent"
	NotificationSkipped      NotificationOutcome = "skipped"
	NotificationFailed       NotificationOutcome = "failed"
)

type CreateResult struct {
	IncidentID   int64
	Notification NotificationOutcome
}

// Degraded is true for CreatedWithDegradedNotification: the report is stored, the mail is not.
func (r CreateResult) Degraded() bool {
	return r.Notification == NotificationFailed
}

// GuardianMail is the request handed to the mail collaborator.
type GuardianMail struct {
	IncidentID   int64        `json:"incidentId"`
	To           string       `json:"to"`
	GuardianName string       `json:"guardianName"`
	ChildName    string       `json:"childName"`
	IncidentType IncidentType `json:"incidentType"`
	Description  string       `json:"description"`
}

// IncidentCreatedEvent is written to the outbox with the report and relayed to the broker.
type IncidentCreatedEvent struct {
	IncidentID   int64        `json:"incidentId"`
	ChildID      int64        `json:"childId"`
	IncidentType IncidentType `json:"incidentType"`
	Target       Target       `json:"target"`
	ReportedBy   int64        `json:"reportedBy"`
	ReporterRole Role         `json:"reporterRole"`
	CreatedAt    time.Time    `json:"createdAt"`
}

const IncidentCreatedEventType = "incident.created"
