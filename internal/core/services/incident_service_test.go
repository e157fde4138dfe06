package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/mocks"
)

var (
	testManager    = domain.Manager{UserID: 1, FirstName: "Mara", LastName: "Jansen"}
	testBabysitter = domain.Babysitter{UserID: 1, FirstName: "Ann", LastName: "Smith"}
)

type incidentFixture struct {
	svc      *IncidentService
	store    *mocks.MockStore
	notifier *mocks.MockGuardianNotifier
	now      time.Time
}

func newIncidentFixture(t *testing.T, opts ...IncidentServiceOption) *incidentFixture {
	t.Helper()
	store := mocks.NewMockStore()
	store.SeedManager(testManager, true)
	store.SeedBabysitter(testBabysitter, true)
	store.SeedChild(domain.Child{ID: 10, FullName: "Liam de Vries", ParentName: "Eva de Vries", ParentEmail: "eva@example.com"})
	store.SeedChild(domain.Child{ID: 11, FullName: "Noor Bakker"})

	f := &incidentFixture{
		store:    store,
		notifier: mocks.NewMockGuardianNotifier(),
		now:      time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	opts = append([]IncidentServiceOption{WithClock(func() time.Time { return f.now })}, opts...)
	f.svc = NewIncidentService(store, store, f.notifier, opts...)
	return f
}

func TestCreate_ManagerTargetRoundTrip(t *testing.T) {
	f := newIncidentFixture(t)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, testBabysitter, domain.NewIncident{
		ChildID: 10, IncidentType: "health", Description: "fever 38.5C", Target: "manager",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationNotRequested, res.Notification)
	assert.False(t, res.Degraded())
	assert.Empty(t, f.notifier.SentMail())

	view, err := f.svc.Get(ctx, res.IncidentID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), view.ChildID)
	assert.Equal(t, domain.IncidentHealth, view.IncidentType)
	assert.Equal(t, "fever 38.5C", view.Description)
	assert.Equal(t, domain.TargetManager, view.Target)
	assert.Equal(t, int64(1), view.ReportedBy)
	assert.Equal(t, domain.RoleBabysitter, view.ReporterRole)
	assert.Equal(t, "Ann Smith", view.ReportedByName)
	assert.Equal(t, "Liam de Vries", view.ChildName)
	assert.False(t, view.IsRead)
	assert.Equal(t, domain.LifecycleOpen, view.Status)
	assert.Equal(t, f.now, view.CreatedAt)
	assert.False(t, view.ParentNotified)
	assert.Nil(t, view.ParentNotificationDate)

	require.Len(t, f.store.OutboxEvents, 1)
	assert.Equal(t, res.IncidentID, f.store.OutboxEvents[0].IncidentID)
}

func TestCreate_ParentTargetSendsMail(t *testing.T) {
	f := newIncidentFixture(t)

	res, err := f.svc.Create(context.Background(), testManager, domain.NewIncident{
		ChildID: 10, IncidentType: "behavior", Description: "bit a friend", Target: "parent",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationSent, res.Notification)

	sent := f.notifier.SentMail()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.GuardianMail{
		IncidentID:   res.IncidentID,
		To:           "eva@example.com",
		GuardianName: "Eva de Vries",
		ChildName:    "Liam de Vries",
		IncidentType: domain.IncidentBehavior,
		Description:  "bit a friend",
	}, sent[0])

	view, err := f.svc.Get(context.Background(), res.IncidentID)
	require.NoError(t, err)
	assert.False(t, view.IsRead)
	assert.Equal(t, domain.LifecycleOpen, view.Status)
	assert.Equal(t, domain.RoleManager, view.ReporterRole)
}

func TestCreate_ParentTargetWithoutEmailIsSkipped(t *testing.T) {
	f := newIncidentFixture(t)

	res, err := f.svc.Create(context.Background(), testManager, domain.NewIncident{
		ChildID: 11, IncidentType: "health", Description: "rash", Target: "parent",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationSkipped, res.Notification)
	assert.Empty(t, f.notifier.SentMail())
}

func TestCreate_MailFailureStillStoresReport(t *testing.T) {
	f := newIncidentFixture(t)
	f.notifier.NotifyError = errors.New("broker down")

	res, err := f.svc.Create(context.Background(), testManager, domain.NewIncident{
		ChildID: 10, IncidentType: "health", Description: "fall", Target: "parent",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationFailed, res.Notification)
	assert.True(t, res.Degraded())

	_, ok := f.store.Report(res.IncidentID)
	assert.True(t, ok)
}

func TestCreate_MailTimeoutIsBounded(t *testing.T) {
	f := newIncidentFixture(t, WithNotifyTimeout(20*time.Millisecond))
	f.notifier.Delay = 5 * time.Second

	start := time.Now()
	res, err := f.svc.Create(context.Background(), testManager, domain.NewIncident{
		ChildID: 10, IncidentType: "health", Description: "fall", Target: "parent",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationFailed, res.Notification)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCreate_MailOutlivesAbandonedRequest(t *testing.T) {
	f := newIncidentFixture(t, WithNotifyTimeout(time.Second))
	f.notifier.Delay = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.Create(ctx, testManager, domain.NewIncident{
		ChildID: 10, IncidentType: "health", Description: "fall", Target: "parent",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationSent, res.Notification)
	assert.Len(t, f.notifier.SentMail(), 1)
}

func TestCreate_NilNotifierDegrades(t *testing.T) {
	store := mocks.NewMockStore()
	store.SeedChild(domain.Child{ID: 10, FullName: "Liam", ParentEmail: "eva@example.com"})
	svc := NewIncidentService(store, store, nil)

	res, err := svc.Create(context.Background(), testManager, domain.NewIncident{
		ChildID: 10, IncidentType: "health", Description: "fall", Target: "parent",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationFailed, res.Notification)
}

func TestCreate_ValidationCollectsAllFields(t *testing.T) {
	f := newIncidentFixture(t)

	_, err := f.svc.Create(context.Background(), testBabysitter, domain.NewIncident{
		IncidentType: "injury", Description: " ", Target: "guardian",
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 4)
	assert.Empty(t, f.store.FindChildCalls, "validation runs before any lookup")
	assert.Empty(t, f.store.CreateCalls)
}

func TestCreate_UnknownChild(t *testing.T) {
	f := newIncidentFixture(t)

	_, err := f.svc.Create(context.Background(), testBabysitter, domain.NewIncident{
		ChildID: 404, IncidentType: "health", Description: "x", Target: "manager",
	})
	assert.ErrorIs(t, err, domain.ErrChildNotFound)
	assert.Empty(t, f.store.CreateCalls)
}

func TestCreate_RequiresPrincipal(t *testing.T) {
	f := newIncidentFixture(t)

	_, err := f.svc.Create(context.Background(), nil, domain.NewIncident{
		ChildID: 10, IncidentType: "health", Description: "x", Target: "manager",
	})
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
}

func TestCreate_DatastoreFailure(t *testing.T) {
	f := newIncidentFixture(t)
	f.store.CreateError = domain.ErrDatastoreUnavailable

	_, err := f.svc.Create(context.Background(), testBabysitter, domain.NewIncident{
		ChildID: 10, IncidentType: "health", Description: "x", Target: "parent",
	})
	assert.ErrorIs(t, err, domain.ErrDatastoreUnavailable)
	assert.Empty(t, f.notifier.SentMail(), "no mail for a report that was not stored")
}

func TestUpdate_ParentNotifiedStampsDateOnce(t *testing.T) {
	f := newIncidentFixture(t)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, testBabysitter, domain.NewIncident{
		ChildID: 10, IncidentType: "health", Description: "x", Target: "manager",
	})
	require.NoError(t, err)

	notified := true
	first := f.now.Add(time.Hour)
	f.now = first
	view, err := f.svc.Update(ctx, res.IncidentID, domain.IncidentUpdate{ParentNotified: &notified})
	require.NoError(t, err)
	assert.True(t, view.ParentNotified)
	require.NotNil(t, view.ParentNotificationDate)
	assert.Equal(t, first, *view.ParentNotificationDate)

	f.now = first.Add(time.Hour)
	view, err = f.svc.Update(ctx, res.IncidentID, domain.IncidentUpdate{ParentNotified: &notified})
	require.NoError(t, err)
	assert.Equal(t, first, *view.ParentNotificationDate, "repeat leaves the first date")
}

func TestUpdate_PartialFields(t *testing.T) {
	f := newIncidentFixture(t)
	ctx := context.Background()
	res, err := f.svc.Create(ctx, testBabysitter, domain.NewIncident{
		ChildID: 10, IncidentType: "health", Description: "x", Target: "manager",
	})
	require.NoError(t, err)

	followUp := true
	notes := "  call GP  "
	status := "resolved"
	view, err := f.svc.Update(ctx, res.IncidentID, domain.IncidentUpdate{
		FollowUpRequired: &followUp, FollowUpNotes: &notes, Status: &status,
	})
	require.NoError(t, err)
	assert.True(t, view.FollowUpRequired)
	assert.Equal(t, "call GP", view.FollowUpNotes)
	assert.Equal(t, domain.LifecycleResolved, view.Status)
	assert.False(t, view.ParentNotified)
	assert.Nil(t, view.ParentNotificationDate)
	assert.False(t, view.IsRead, "lifecycle and read state are independent")
}

func TestUpdate_Errors(t *testing.T) {
	f := newIncidentFixture(t)

	status := "resolved"
	_, err := f.svc.Update(context.Background(), 999, domain.IncidentUpdate{Status: &status})
	assert.ErrorIs(t, err, domain.ErrReportNotFound)

	bad := "unread"
	_, err = f.svc.Update(context.Background(), 1, domain.IncidentUpdate{Status: &bad})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, []int64{999}, f.store.UpdateCalls, "invalid update never reaches the store")
}

func TestList_FiltersAndOrdering(t *testing.T) {
	f := newIncidentFixture(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.store.SeedReport(domain.IncidentReport{ID: 1, ChildID: 10, IncidentType: domain.IncidentHealth, Target: domain.TargetManager, Status: domain.LifecycleOpen, CreatedAt: base})
	f.store.SeedReport(domain.IncidentReport{ID: 2, ChildID: 11, IncidentType: domain.IncidentBehavior, Target: domain.TargetParent, Status: domain.LifecycleClosed, CreatedAt: base.Add(24 * time.Hour)})
	f.store.SeedReport(domain.IncidentReport{ID: 3, ChildID: 10, IncidentType: domain.IncidentHealth, Target: domain.TargetParent, Status: domain.LifecycleOpen, CreatedAt: base.Add(48 * time.Hour)})

	all, err := f.svc.List(context.Background(), domain.IncidentFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, ids(all))

	health := domain.IncidentHealth
	byType, err := f.svc.List(context.Background(), domain.IncidentFilter{IncidentType: &health})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids(byType))

	start := base.Add(time.Hour)
	since, err := f.svc.List(context.Background(), domain.IncidentFilter{StartDate: &start})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids(since))

	byChild, err := f.svc.ListByChild(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(byChild))
}

func ids(views []domain.IncidentView) []int64 {
	out := make([]int64, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}
