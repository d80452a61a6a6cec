// Package repository implements persistence for visits and prize draw
// entries on top of database/sql.  The SQL is kept portable so the same
// repositories run against MySQL in production and SQLite for local runs
// and tests.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/zone-explorer/internal/model"
)

// VisitRepo provides data access to the visits table.  Rows are only ever
// inserted (one per accepted check-in) or deleted when a visitor resets
// their progress.  All timestamps are stored and compared in UTC.
type VisitRepo struct {
	db *sql.DB
}

// NewVisitRepo returns a new VisitRepo bound to the provided database.
func NewVisitRepo(db *sql.DB) *VisitRepo { return &VisitRepo{db: db} }

// Insert appends a visit and returns its ID.
func (r *VisitRepo) Insert(ctx context.Context, v model.Visit) (uint64, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO visits (user_id, zone, timestamp) VALUES (?,?,?)",
		v.VisitorID, v.ZoneCode, v.OccurredAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert visit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// LatestAt returns the time of the visitor's most recent visit to zone.
// The boolean is false when the visitor has never checked in there.
func (r *VisitRepo) LatestAt(ctx context.Context, visitorID, zone string) (time.Time, bool, error) {
	var ts time.Time
	err := conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT timestamp FROM visits WHERE user_id=? AND zone=? ORDER BY timestamp DESC LIMIT 1",
		visitorID, zone).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest visit: %w", err)
	}
	return ts.UTC(), true, nil
}

// CountByZoneForVisitor returns the number of visits per zone code for a
// single visitor.  Zones never visited are absent from the map.
func (r *VisitRepo) CountByZoneForVisitor(ctx context.Context, visitorID string) (map[string]int, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT zone, COUNT(*) FROM visits WHERE user_id=? GROUP BY zone",
		visitorID)
	if err != nil {
		return nil, fmt.Errorf("count visits: %w", err)
	}
	return scanZoneCounts(rows)
}

// CountByZoneBetween returns the number of visits per zone code with a
// timestamp inside [from, to].
func (r *VisitRepo) CountByZoneBetween(ctx context.Context, from, to time.Time) (map[string]int, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT zone, COUNT(*) FROM visits WHERE timestamp >= ? AND timestamp <= ? GROUP BY zone",
		from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("count visits by zone: %w", err)
	}
	return scanZoneCounts(rows)
}

func scanZoneCounts(rows *sql.Rows) (map[string]int, error) {
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var (
			zone string
			n    int
		)
		if err := rows.Scan(&zone, &n); err != nil {
			return nil, err
		}
		counts[zone] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// ListBetween returns every visit inside [from, to] ordered by time.
func (r *VisitRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.Visit, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, user_id, zone, timestamp FROM visits
		 WHERE timestamp >= ? AND timestamp <= ?
		 ORDER BY timestamp, id`,
		from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()
	visits := []model.Visit{}
	for rows.Next() {
		var v model.Visit
		if err := rows.Scan(&v.ID, &v.VisitorID, &v.ZoneCode, &v.OccurredAt); err != nil {
			return nil, err
		}
		v.OccurredAt = v.OccurredAt.UTC()
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return visits, nil
}

// DistinctZonesByVisitor returns, for every visitor with at least one
// visit, the set of distinct zone codes they have logged.
func (r *VisitRepo) DistinctZonesByVisitor(ctx context.Context) (map[string]map[string]struct{}, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, "SELECT DISTINCT user_id, zone FROM visits")
	if err != nil {
		return nil, fmt.Errorf("distinct zones: %w", err)
	}
	defer rows.Close()
	out := make(map[string]map[string]struct{})
	for rows.Next() {
		var visitorID, zone string
		if err := rows.Scan(&visitorID, &zone); err != nil {
			return nil, err
		}
		set, ok := out[visitorID]
		if !ok {
			set = make(map[string]struct{})
			out[visitorID] = set
		}
		set[zone] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByVisitor removes all visits of a visitor and returns the number
// of deleted rows.
func (r *VisitRepo) DeleteByVisitor(ctx context.Context, visitorID string) (int64, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM visits WHERE user_id=?", visitorID)
	if err != nil {
		return 0, fmt.Errorf("delete visits: %w", err)
	}
	return res.RowsAffected()
}
