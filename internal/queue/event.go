// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/google/uuid"
)

// ActivityQueue is the durable queue every activity event is routed to.
const ActivityQueue = "zone.activity"

// Event types.
const (
    EventZoneVisited  = "zone.visited"
    EventPrizeEntered = "prize.entered"
    EventWinnerDrawn  = "prize.winner_drawn"
)

// ActivityEvent is published after a state change in the game.  It carries
// enough information for downstream consumers to log or notify without
// querying the primary database.  ZoneCode and ZoneName are empty for
// prize events.
type ActivityEvent struct {
    ID         string `json:"id"`
    Type       string `json:"type"`
    VisitorID  string `json:"visitor_id"`
    ZoneCode   string `json:"zone_code,omitempty"`
    ZoneName   string `json:"zone_name,omitempty"`
    OccurredAt string `json:"occurred_at"`
}

// NewActivityEvent stamps a new event with a random ID.
func NewActivityEvent(typ, visitorID string, at time.Time) ActivityEvent {
    return ActivityEvent{
        ID:         uuid.NewString(),
        Type:       typ,
        VisitorID:  visitorID,
        OccurredAt: at.UTC().Format(time.RFC3339),
    }
}
