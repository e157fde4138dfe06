package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestNewIncidentValidate_Valid(t *testing.T) {
	in := NewIncident{ChildID: 7, IncidentType: "health", Description: "  fever 38.5C  ", Target: "manager"}
	require.NoError(t, in.Validate())
	assert.Equal(t, "fever 38.5C", in.Description)
}

func TestNewIncidentValidate_CollectsEveryField(t *testing.T) {
	in := NewIncident{ChildID: 0, IncidentType: "injury", Description: "   ", Target: "guardian"}
	err := in.Validate()

	assert.ElementsMatch(t, []string{"child_id", "incident_type", "description", "target"}, fieldNames(t, err))
}

func TestNewIncidentValidate_Messages(t *testing.T) {
	in := NewIncident{ChildID: 3, IncidentType: "health", Description: "", Target: "parent"}
	err := in.Validate()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, FieldError{Field: "description", Message: "Description is required"}, verr.Fields[0])
}

func TestNewIncidentValidate_AllTypesAccepted(t *testing.T) {
	for _, typ := range IncidentTypes {
		t.Run(string(typ), func(t *testing.T) {
			in := NewIncident{ChildID: 1, IncidentType: string(typ), Description: "x", Target: "parent"}
			assert.NoError(t, in.Validate())
		})
	}
}

func TestIncidentUpdateValidate(t *testing.T) {
	bad := "archived"
	err := (&IncidentUpdate{Status: &bad}).Validate()
	assert.Equal(t, []string{"status"}, fieldNames(t, err))

	good := "resolved"
	notes := "  called parent  "
	upd := IncidentUpdate{Status: &good, FollowUpNotes: &notes}
	require.NoError(t, upd.Validate())
	assert.Equal(t, "called parent", *upd.FollowUpNotes)

	assert.NoError(t, (&IncidentUpdate{}).Validate(), "empty update is valid")
}

func TestLifecycleCanAdvanceTo(t *testing.T) {
	assert.True(t, LifecycleOpen.CanAdvanceTo(LifecycleResolved))
	assert.True(t, LifecycleResolved.CanAdvanceTo(LifecycleClosed))
	assert.True(t, LifecycleOpen.CanAdvanceTo(LifecycleOpen))
	assert.False(t, LifecycleClosed.CanAdvanceTo(LifecycleOpen))
	assert.False(t, Lifecycle("unread").CanAdvanceTo(LifecycleOpen))
}

func TestSummaryAdd(t *testing.T) {
	var s Summary
	s.Add(IncidentHealth, LifecycleOpen, 2)
	s.Add(IncidentHealth, LifecycleClosed, 1)
	s.Add(IncidentBehavior, LifecycleResolved, 1)

	assert.Equal(t, 4, s.TotalIncidents)
	assert.Equal(t, map[IncidentType]int{IncidentHealth: 3, IncidentBehavior: 1}, s.ByType)
	assert.Equal(t, StatusCounts{Open: 2, Resolved: 1, Closed: 1}, s.ByStatus)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsAuthenticationError(ErrUnknownManager))
	assert.True(t, IsAuthenticationError(errors.Join(errors.New("ctx"), ErrExpiredCredential)))
	assert.False(t, IsAuthenticationError(ErrDatastoreUnavailable))
	assert.False(t, IsAuthenticationError(&AccessDeniedError{Required: []Role{RoleManager}, Actual: RoleBabysitter}))

	assert.True(t, IsNotFound(ErrReportNotFound))
	assert.False(t, IsNotFound(ErrMissingCredential))

	assert.Nil(t, (&ValidationError{}).OrNil())
}

func TestPrincipalDisplayName(t *testing.T) {
	assert.Equal(t, "Ann Smith", Babysitter{FirstName: "Ann", LastName: "Smith"}.DisplayName())
	assert.Equal(t, "Mara", Manager{FirstName: "Mara"}.DisplayName())
	assert.Equal(t, RoleManager, Manager{}.Role())
}
