package model

import "time"

// Visit records a single successful check-in of a visitor at a zone.
// Visits are append-only; several visits may exist for the same
// visitor and zone once the cooldown has elapsed.
//
// Fields:
//  ID         – primary key identifier.
//  VisitorID  – normalized e-mail address of the visitor.
//  ZoneCode   – code of the zone that was scanned.
//  OccurredAt – time of the check-in (UTC).
type Visit struct {
    ID         uint64    `json:"id"`          // visits.id
    VisitorID  string    `json:"visitor_id"`  // visits.user_id
    ZoneCode   string    `json:"zone"`        // visits.zone
    OccurredAt time.Time `json:"occurred_at"` // visits.timestamp
}
