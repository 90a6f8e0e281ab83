package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/presence-station/internal/attendance"
)

// AttendanceRepository is an attendance.KeyedLog backed by the attendance_events table.
// Each Append is a single INSERT, so an entry is either stored completely or not at all.
type AttendanceRepository struct {
	pool *Pool
	loc  *time.Location
}

var _ attendance.KeyedLog = (*AttendanceRepository)(nil)

// NewAttendanceRepository creates a repository. Timestamps are returned in loc.
func NewAttendanceRepository(pool *Pool, loc *time.Location) *AttendanceRepository {
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceRepository{pool: pool, loc: loc}
}

// Append stores one entry.
func (r *AttendanceRepository) Append(ctx context.Context, e attendance.Entry) error {
	_, err := r.pool.db.ExecContext(ctx,
		`INSERT INTO attendance_events (identity_key, action, logged_at) VALUES ($1, $2, $3)`,
		e.Key, string(e.Action), e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert attendance event: %w", err)
	}
	return nil
}

// Entries returns every entry in insertion order.
func (r *AttendanceRepository) Entries(ctx context.Context) ([]attendance.Entry, error) {
	return r.query(ctx, `SELECT identity_key, action, logged_at FROM attendance_events ORDER BY id`)
}

// EntriesFor returns the entries of one identity in insertion order.
func (r *AttendanceRepository) EntriesFor(ctx context.Context, key string) ([]attendance.Entry, error) {
	return r.query(ctx,
		`SELECT identity_key, action, logged_at FROM attendance_events WHERE identity_key = $1 ORDER BY id`, key)
}

func (r *AttendanceRepository) query(ctx context.Context, q string, args ...any) ([]attendance.Entry, error) {
	rows, err := r.pool.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance events: %w", err)
	}
	defer rows.Close()

	var entries []attendance.Entry
	for rows.Next() {
		var e attendance.Entry
		var action string
		if err := rows.Scan(&e.Key, &action, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan attendance event: %w", err)
		}
		e.Action = attendance.Action(action)
		e.Timestamp = e.Timestamp.In(r.loc)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance events: %w", err)
	}
	return entries, nil
}
