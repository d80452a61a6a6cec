package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/zone-explorer/internal/model"
)

// PrizeRepo persists prize draw entries (the prize_draw table).  It does
// not check eligibility or uniqueness; see service.PrizeService.
type PrizeRepo struct{ db *sql.DB }

func NewPrizeRepo(db *sql.DB) *PrizeRepo { return &PrizeRepo{db: db} }

// Create inserts an entry and returns its ID.
func (r *PrizeRepo) Create(ctx context.Context, visitorID, email string, at time.Time) (uint64, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO prize_draw (user_id, email, created_at) VALUES (?,?,?)",
		visitorID, email, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert prize entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ExistsForVisitor reports whether the visitor has at least one entry.
func (r *PrizeRepo) ExistsForVisitor(ctx context.Context, visitorID string) (bool, error) {
	var n int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM prize_draw WHERE user_id=?", visitorID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check prize entry: %w", err)
	}
	return n > 0, nil
}

// List returns all entries in insertion order.
func (r *PrizeRepo) List(ctx context.Context) ([]model.PrizeEntry, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT id, user_id, email, created_at FROM prize_draw ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list prize entries: %w", err)
	}
	defer rows.Close()
	entries := []model.PrizeEntry{}
	for rows.Next() {
		var e model.PrizeEntry
		if err := rows.Scan(&e.ID, &e.VisitorID, &e.Email, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteByVisitor removes every entry of the visitor.
func (r *PrizeRepo) DeleteByVisitor(ctx context.Context, visitorID string) (int64, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM prize_draw WHERE user_id=?", visitorID)
	if err != nil {
		return 0, fmt.Errorf("delete prize entries: %w", err)
	}
	return res.RowsAffected()
}
