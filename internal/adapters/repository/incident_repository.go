package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
)

// incidentView joins the child name and the reporter name. The reporter join is driven by
// reporter_role because manager and babysitter ids overlap.
const incidentView = `
	SELECT
		ir.id, ir.child_id, ir.incident_type, ir.description, ir.reported_by, ir.reporter_role,
		ir.target, ir.is_read, ir.status, ir.created_at, ir.parent_notified,
		ir.parent_notification_date, ir.follow_up_required, ir.follow_up_notes,
		COALESCE(c.full_name, '') AS child_name,
		COALESCE(NULLIF(CONCAT_WS(' ', m.first_name, m.last_name), ''),
		         CONCAT_WS(' ', b.first_name, b.last_name)) AS reported_by_name
	FROM incident_reports ir
	LEFT JOIN children c ON c.id = ir.child_id
	LEFT JOIN managers m ON ir.reporter_role = 'manager' AND m.id = ir.reported_by
	LEFT JOIN babysitters b ON ir.reporter_role = 'babysitter' AND b.id = ir.reported_by`

const viewColumns = `v.id, v.child_id, v.incident_type, v.description, v.reported_by, v.reporter_role,
	v.target, v.is_read, v.status, v.created_at, v.parent_notified, v.parent_notification_date,
	v.follow_up_required, v.follow_up_notes, v.child_name, v.reported_by_name`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanView(row rowScanner) (domain.IncidentView, error) {
	var (
		v          domain.IncidentView
		notifiedAt sql.NullTime
	)
	err := row.Scan(
		&v.ID,
		&v.ChildID,
		&v.IncidentType,
		&v.Description,
		&v.ReportedBy,
		&v.ReporterRole,
		&v.Target,
		&v.IsRead,
		&v.Status,
		&v.CreatedAt,
		&v.ParentNotified,
		&notifiedAt,
		&v.FollowUpRequired,
		&v.FollowUpNotes,
		&v.ChildName,
		&v.ReportedByName,
	)
	if err != nil {
		return v, err
	}
	if notifiedAt.Valid {
		t := notifiedAt.Time
		v.ParentNotificationDate = &t
	}
	return v, nil
}

func scanViews(rows *sql.Rows) ([]domain.IncidentView, error) {
	defer rows.Close()
	items := make([]domain.IncidentView, 0)
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

// queryBuilder appends AND-ed conditions with numbered placeholders.
type queryBuilder struct {
	where []string
	args  []any
}

func (q *queryBuilder) add(cond string, arg any) {
	q.args = append(q.args, arg)
	q.where = append(q.where, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(q.args))))
}

func (q *queryBuilder) clause() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

func (q *queryBuilder) applyIncidentFilter(f domain.IncidentFilter) {
	if f.StartDate != nil {
		q.add("v.created_at >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		q.add("v.created_at <= ?", *f.EndDate)
	}
	if f.ChildID != nil {
		q.add("v.child_id = ?", *f.ChildID)
	}
	if f.IncidentType != nil {
		q.add("v.incident_type = ?", string(*f.IncidentType))
	}
	if f.Status != nil {
		q.add("v.status = ?", string(*f.Status))
	}
}

func (r *SQLRepository) Create(ctx context.Context, report domain.IncidentReport) (int64, error) {
	var id int64
	err := r.run(func() error {
		return r.withTx(ctx, func(tx *sql.Tx) error {
			err := tx.QueryRowContext(ctx, `
				INSERT INTO incident_reports
					(child_id, incident_type, description, reported_by, reporter_role, target, is_read, status, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				RETURNING id`,
				report.ChildID,
				report.IncidentType,
				report.Description,
				report.ReportedBy,
				report.ReporterRole,
				report.Target,
				report.IsRead,
				report.Status,
				report.CreatedAt,
			).Scan(&id)
			if isForeignKeyViolation(err) {
				return domain.ErrChildNotFound
			}
			if err != nil {
				return err
			}

			payload, err := json.Marshal(domain.IncidentCreatedEvent{
				IncidentID:   id,
				ChildID:      report.ChildID,
				IncidentType: report.IncidentType,
				Target:       report.Target,
				ReportedBy:   report.ReportedBy,
				ReporterRole: report.ReporterRole,
				CreatedAt:    report.CreatedAt,
			})
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx,
				"INSERT INTO outbox_events (id, event_type, payload) VALUES ($1, $2, $3)",
				uuid.NewString(),
				domain.IncidentCreatedEventType,
				payload,
			)
			return err
		})
	})
	if err != nil {
		return 0, fmt.Errorf("insert incident report: %w", err)
	}
	return id, nil
}

func (r *SQLRepository) FindByID(ctx context.Context, id int64) (*domain.IncidentView, error) {
	var view domain.IncidentView
	err := r.run(func() error {
		var err error
		view, err = scanView(r.db.QueryRowContext(ctx,
			"SELECT "+viewColumns+" FROM ("+incidentView+") v WHERE v.id = $1", id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find incident report: %w", err)
	}
	return &view, nil
}

func (r *SQLRepository) List(ctx context.Context, filter domain.IncidentFilter) ([]domain.IncidentView, error) {
	q := &queryBuilder{}
	q.applyIncidentFilter(filter)

	var items []domain.IncidentView
	err := r.run(func() error {
		rows, err := r.db.QueryContext(ctx,
			"SELECT "+viewColumns+" FROM ("+incidentView+") v"+q.clause()+" ORDER BY v.created_at DESC, v.id DESC",
			q.args...)
		if err != nil {
			return err
		}
		items, err = scanViews(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list incident reports: %w", err)
	}
	return items, nil
}

// Update applies the partial update in one statement. The CASE reads the pre-update
// parent_notified, so the date is stamped only on a false to true transition.
func (r *SQLRepository) Update(ctx context.Context, id int64, upd domain.IncidentUpdate) (*domain.IncidentView, error) {
	var view domain.IncidentView
	err := r.run(func() error {
		return r.withTx(ctx, func(tx *sql.Tx) error {
			var updatedID int64
			err := tx.QueryRowContext(ctx, `
				UPDATE incident_reports SET
					parent_notification_date = CASE
						WHEN $2::boolean IS TRUE AND parent_notified = FALSE THEN $6::timestamptz
						ELSE parent_notification_date
					END,
					parent_notified = COALESCE($2, parent_notified),
					follow_up_required = COALESCE($3, follow_up_required),
					follow_up_notes = COALESCE($4, follow_up_notes),
					status = COALESCE($5, status)
				WHERE id = $1
				RETURNING id`,
				id,
				nullBool(upd.ParentNotified),
				nullBool(upd.FollowUpRequired),
				nullString(upd.FollowUpNotes),
				nullString(upd.Status),
				upd.NotifiedAt,
			).Scan(&updatedID)
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrReportNotFound
			}
			if err != nil {
				return err
			}

			view, err = scanView(tx.QueryRowContext(ctx,
				"SELECT "+viewColumns+" FROM ("+incidentView+") v WHERE v.id = $1", updatedID))
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("update incident report %d: %w", id, err)
	}
	return &view, nil
}

func (r *SQLRepository) ListNotifications(ctx context.Context, filter domain.NotificationFilter) ([]domain.IncidentView, error) {
	q := &queryBuilder{}
	q.where = append(q.where, "v.target = 'manager'")
	if filter.BabysitterName != "" {
		q.add("STRPOS(LOWER(v.reported_by_name), LOWER(?)) > 0", filter.BabysitterName)
	}
	if filter.ChildName != "" {
		q.add("STRPOS(LOWER(v.child_name), LOWER(?)) > 0", filter.ChildName)
	}

	var items []domain.IncidentView
	err := r.run(func() error {
		rows, err := r.db.QueryContext(ctx,
			"SELECT "+viewColumns+" FROM ("+incidentView+") v"+q.clause()+
				" ORDER BY v.is_read ASC, v.created_at DESC, v.id DESC",
			q.args...)
		if err != nil {
			return err
		}
		items, err = scanViews(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

func (r *SQLRepository) CountUnread(ctx context.Context) (int, error) {
	var count int
	err := r.run(func() error {
		return r.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM incident_reports WHERE target = 'manager' AND is_read = FALSE",
		).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (r *SQLRepository) MarkRead(ctx context.Context, id int64) error {
	err := r.run(func() error {
		res, err := r.db.ExecContext(ctx,
			"UPDATE incident_reports SET is_read = TRUE WHERE id = $1 AND target = 'manager'", id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotificationNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, domain.ErrNotificationNotFound) {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return err
}

func (r *SQLRepository) Summary(ctx context.Context, filter domain.IncidentFilter) (*domain.Summary, error) {
	q := &queryBuilder{}
	q.applyIncidentFilter(domain.IncidentFilter{StartDate: filter.StartDate, EndDate: filter.EndDate})

	summary := &domain.Summary{ByType: map[domain.IncidentType]int{}}
	err := r.run(func() error {
		rows, err := r.db.QueryContext(ctx,
			"SELECT v.incident_type, v.status, COUNT(*) FROM incident_reports v"+q.clause()+
				" GROUP BY v.incident_type, v.status",
			q.args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				t      domain.IncidentType
				status domain.Lifecycle
				n      int
			)
			if err := rows.Scan(&t, &status, &n); err != nil {
				return err
			}
			summary.Add(t, status, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("summarize incident reports: %w", err)
	}
	return summary, nil
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
