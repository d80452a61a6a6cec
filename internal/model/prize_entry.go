package model

import "time"

// PrizeEntry is a visitor's registration for the prize draw.  Entries
// are never updated; they are removed only when the visitor resets
// their progress.
type PrizeEntry struct {
    ID        uint64    `json:"id"`         // prize_draw.id
    VisitorID string    `json:"visitor_id"` // prize_draw.user_id
    Email     string    `json:"email"`      // prize_draw.email
    CreatedAt time.Time `json:"created_at"` // prize_draw.created_at
}
