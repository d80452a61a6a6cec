package service

import "errors"

// Sentinel errors returned by the services.  Handlers translate them into
// HTTP responses with errors.Is.
var (
	// ErrUnknownZone means the scanned or typed code is not in the catalog.
	ErrUnknownZone = errors.New("unknown zone")
	// ErrCooldownActive means the visitor checked into the same zone too
	// recently; nothing was written.
	ErrCooldownActive = errors.New("cooldown active")
	// ErrNoEligibleEntries means no prize entry belongs to a visitor who
	// completed every zone.
	ErrNoEligibleEntries = errors.New("no eligible entries")
	ErrVisitorRequired   = errors.New("visitor id required")
	ErrNotComplete       = errors.New("not all zones visited")
	ErrAlreadyEntered    = errors.New("already entered in prize draw")
)
