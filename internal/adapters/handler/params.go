package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
)

const dateOnly = "2006-01-02"

// pathID reads a positive integer URL parameter.
func pathID(r *http.Request, name, message string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		verr := &domain.ValidationError{}
		verr.Add(name, message)
		return 0, verr
	}
	return id, nil
}

// parseIncidentFilter reads startDate, endDate, child, incidentType and status.
// Every bad value is reported, not only the first.
func parseIncidentFilter(q url.Values) (domain.IncidentFilter, error) {
	var (
		filter domain.IncidentFilter
		verr   = &domain.ValidationError{}
	)

	filter.StartDate, filter.EndDate = parseDateRange(q, verr)

	if raw := strings.TrimSpace(q.Get("child")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			verr.Add("child", "Invalid child ID")
		} else {
			filter.ChildID = &id
		}
	}

	if raw := strings.TrimSpace(q.Get("incidentType")); raw != "" {
		t := domain.IncidentType(raw)
		if !t.Valid() {
			verr.Add("incidentType", "Invalid incident type")
		} else {
			filter.IncidentType = &t
		}
	}

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		s := domain.Lifecycle(raw)
		if !s.Valid() {
			verr.Add("status", "Invalid status")
		} else {
			filter.Status = &s
		}
	}

	return filter, verr.OrNil()
}

func parseSummaryFilter(q url.Values) (domain.IncidentFilter, error) {
	verr := &domain.ValidationError{}
	start, end := parseDateRange(q, verr)
	return domain.IncidentFilter{StartDate: start, EndDate: end}, verr.OrNil()
}

func parseDateRange(q url.Values, verr *domain.ValidationError) (start, end *time.Time) {
	if raw := strings.TrimSpace(q.Get("startDate")); raw != "" {
		t, _, err := parseDate(raw)
		if err != nil {
			verr.Add("startDate", "Invalid start date")
		} else {
			start = &t
		}
	}
	if raw := strings.TrimSpace(q.Get("endDate")); raw != "" {
		t, dayOnly, err := parseDate(raw)
		switch {
		case err != nil:
			verr.Add("endDate", "Invalid end date")
		case dayOnly:
			// A bare date includes the whole day.
			t = t.AddDate(0, 0, 1).Add(-time.Microsecond)
			end = &t
		default:
			end = &t
		}
	}
	return start, end
}

// parseDate accepts RFC 3339 timestamps and bare dates, which are read as UTC midnight.
func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(dateOnly, raw); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), false, nil
}
