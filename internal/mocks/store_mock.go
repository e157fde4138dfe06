// Package mocks provides in-memory implementations of the port interfaces for testing.
// Services and handlers depend on ports, so tests inject these instead of Postgres,
// RabbitMQ or Redis and exercise the same code paths.
package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
)

type principalRow[T any] struct {
	value  T
	active bool
}

// MockStore implements every repository port over one in-memory data set, so joins
// (child name, reporter name) behave like the SQL views.
type MockStore struct {
	mu sync.RWMutex

	managers    map[int64]principalRow[domain.Manager]
	babysitters map[int64]principalRow[domain.Babysitter]
	children    map[int64]domain.Child
	reports     map[int64]*domain.IncidentReport
	nextID      int64

	// OutboxEvents holds the events Create wrote alongside each report.
	OutboxEvents []domain.IncidentCreatedEvent

	// Call tracking for verification
	FindActiveManagerCalls    []int64
	FindActiveBabysitterCalls []int64
	FindChildCalls            []int64
	CreateCalls               []domain.IncidentReport
	UpdateCalls               []int64
	MarkReadCalls             []int64

	// Error injection for testing error scenarios
	PrincipalError error
	FindChildError error
	CreateError    error
	FindError      error
	ListError      error
	UpdateError    error
	NotifyRepoErr  error
}

var (
	_ ports.PrincipalRepository    = (*MockStore)(nil)
	_ ports.ChildRepository        = (*MockStore)(nil)
	_ ports.IncidentRepository     = (*MockStore)(nil)
	_ ports.NotificationRepository = (*MockStore)(nil)
)

func NewMockStore() *MockStore {
	return &MockStore{
		managers:    make(map[int64]principalRow[domain.Manager]),
		babysitters: make(map[int64]principalRow[domain.Babysitter]),
		children:    make(map[int64]domain.Child),
		reports:     make(map[int64]*domain.IncidentReport),
	}
}

// SeedManager adds a manager row; inactive rows exist but never resolve.
func (m *MockStore) SeedManager(manager domain.Manager, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.managers[manager.UserID] = principalRow[domain.Manager]{value: manager, active: active}
}

func (m *MockStore) SeedBabysitter(babysitter domain.Babysitter, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.babysitters[babysitter.UserID] = principalRow[domain.Babysitter]{value: babysitter, active: active}
}

func (m *MockStore) SeedChild(child domain.Child) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.children[child.ID] = child
}

// SeedReport stores a report as-is, keeping its ID and CreatedAt.
func (m *MockStore) SeedReport(report domain.IncidentReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if report.ID == 0 {
		m.nextID++
		report.ID = m.nextID
	} else if report.ID > m.nextID {
		m.nextID = report.ID
	}
	r := report
	m.reports[r.ID] = &r
}

// Report returns a copy of the stored row, or false.
func (m *MockStore) Report(id int64) (domain.IncidentReport, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok {
		return domain.IncidentReport{}, false
	}
	return *r, true
}

func (m *MockStore) FindActiveManager(ctx context.Context, id int64) (*domain.Manager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindActiveManagerCalls = append(m.FindActiveManagerCalls, id)

	if m.PrincipalError != nil {
		return nil, m.PrincipalError
	}
	row, ok := m.managers[id]
	if !ok || !row.active {
		return nil, nil
	}
	manager := row.value
	return &manager, nil
}

func (m *MockStore) FindActiveBabysitter(ctx context.Context, id int64) (*domain.Babysitter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindActiveBabysitterCalls = append(m.FindActiveBabysitterCalls, id)

	if m.PrincipalError != nil {
		return nil, m.PrincipalError
	}
	row, ok := m.babysitters[id]
	if !ok || !row.active {
		return nil, nil
	}
	babysitter := row.value
	return &babysitter, nil
}

func (m *MockStore) FindChild(ctx context.Context, id int64) (*domain.Child, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindChildCalls = append(m.FindChildCalls, id)

	if m.FindChildError != nil {
		return nil, m.FindChildError
	}
	child, ok := m.children[id]
	if !ok {
		return nil, domain.ErrChildNotFound
	}
	return &child, nil
}

// Create stores the report and records its outbox event, mirroring the single transaction.
func (m *MockStore) Create(ctx context.Context, report domain.IncidentReport) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, report)

	if m.CreateError != nil {
		return 0, m.CreateError
	}
	if _, ok := m.children[report.ChildID]; !ok {
		return 0, domain.ErrChildNotFound
	}

	m.nextID++
	report.ID = m.nextID
	m.reports[report.ID] = &report
	m.OutboxEvents = append(m.OutboxEvents, domain.IncidentCreatedEvent{
		IncidentID:   report.ID,
		ChildID:      report.ChildID,
		IncidentType: report.IncidentType,
		Target:       report.Target,
		ReportedBy:   report.ReportedBy,
		ReporterRole: report.ReporterRole,
		CreatedAt:    report.CreatedAt,
	})
	return report.ID, nil
}

func (m *MockStore) FindByID(ctx context.Context, id int64) (*domain.IncidentView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FindError != nil {
		return nil, m.FindError
	}
	r, ok := m.reports[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	view := m.view(*r)
	return &view, nil
}

func (m *MockStore) List(ctx context.Context, filter domain.IncidentFilter) ([]domain.IncidentView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListError != nil {
		return nil, m.ListError
	}
	items := make([]domain.IncidentView, 0)
	for _, r := range m.reports {
		if matchesFilter(*r, filter) {
			items = append(items, m.view(*r))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return newerFirst(items[i], items[j])
	})
	return items, nil
}

// Update stamps the notification date only on a false to true transition of parent_notified.
func (m *MockStore) Update(ctx context.Context, id int64, upd domain.IncidentUpdate) (*domain.IncidentView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls = append(m.UpdateCalls, id)

	if m.UpdateError != nil {
		return nil, m.UpdateError
	}
	r, ok := m.reports[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}

	if upd.ParentNotified != nil {
		if *upd.ParentNotified && !r.ParentNotified {
			at := upd.NotifiedAt
			r.ParentNotificationDate = &at
		}
		r.ParentNotified = *upd.ParentNotified
	}
	if upd.FollowUpRequired != nil {
		r.FollowUpRequired = *upd.FollowUpRequired
	}
	if upd.FollowUpNotes != nil {
		r.FollowUpNotes = *upd.FollowUpNotes
	}
	if upd.Status != nil {
		r.Status = domain.Lifecycle(*upd.Status)
	}

	view := m.view(*r)
	return &view, nil
}

func (m *MockStore) ListNotifications(ctx context.Context, filter domain.NotificationFilter) ([]domain.IncidentView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.NotifyRepoErr != nil {
		return nil, m.NotifyRepoErr
	}
	items := make([]domain.IncidentView, 0)
	for _, r := range m.reports {
		if r.Target != domain.TargetManager {
			continue
		}
		v := m.view(*r)
		if !containsFold(v.ReportedByName, filter.BabysitterName) || !containsFold(v.ChildName, filter.ChildName) {
			continue
		}
		items = append(items, v)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].IsRead != items[j].IsRead {
			return !items[i].IsRead
		}
		return newerFirst(items[i], items[j])
	})
	return items, nil
}

func (m *MockStore) CountUnread(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.NotifyRepoErr != nil {
		return 0, m.NotifyRepoErr
	}
	n := 0
	for _, r := range m.reports {
		if r.Target == domain.TargetManager && !r.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) MarkRead(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkReadCalls = append(m.MarkReadCalls, id)

	if m.NotifyRepoErr != nil {
		return m.NotifyRepoErr
	}
	r, ok := m.reports[id]
	if !ok || r.Target != domain.TargetManager {
		return domain.ErrNotificationNotFound
	}
	r.IsRead = true
	return nil
}

func (m *MockStore) Summary(ctx context.Context, filter domain.IncidentFilter) (*domain.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.NotifyRepoErr != nil {
		return nil, m.NotifyRepoErr
	}
	summary := &domain.Summary{ByType: map[domain.IncidentType]int{}}
	dates := domain.IncidentFilter{StartDate: filter.StartDate, EndDate: filter.EndDate}
	for _, r := range m.reports {
		if matchesFilter(*r, dates) {
			summary.Add(r.IncidentType, r.Status, 1)
		}
	}
	return summary, nil
}

// Reset clears call tracking and injected errors, keeping seeded data.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindActiveManagerCalls = nil
	m.FindActiveBabysitterCalls = nil
	m.FindChildCalls = nil
	m.CreateCalls = nil
	m.UpdateCalls = nil
	m.MarkReadCalls = nil
	m.PrincipalError = nil
	m.FindChildError = nil
	m.CreateError = nil
	m.FindError = nil
	m.ListError = nil
	m.UpdateError = nil
	m.NotifyRepoErr = nil
}

// view must be called with mu held.
func (m *MockStore) view(r domain.IncidentReport) domain.IncidentView {
	v := domain.IncidentView{IncidentReport: r}
	if child, ok := m.children[r.ChildID]; ok {
		v.ChildName = child.FullName
	}
	switch r.ReporterRole {
	case domain.RoleManager:
		if row, ok := m.managers[r.ReportedBy]; ok {
			v.ReportedByName = row.value.DisplayName()
		}
	case domain.RoleBabysitter:
		if row, ok := m.babysitters[r.ReportedBy]; ok {
			v.ReportedByName = row.value.DisplayName()
		}
	}
	return v
}

func matchesFilter(r domain.IncidentReport, f domain.IncidentFilter) bool {
	if f.StartDate != nil && r.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && r.CreatedAt.After(*f.EndDate) {
		return false
	}
	if f.ChildID != nil && r.ChildID != *f.ChildID {
		return false
	}
	if f.IncidentType != nil && r.IncidentType != *f.IncidentType {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	return true
}

func newerFirst(a, b domain.IncidentView) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
