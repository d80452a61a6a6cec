// Package zone holds the catalog of zones visitors can check into.  The
// catalog is built once at startup and is read-only afterwards, so a
// Registry can be shared by every request without locking.
package zone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/zone-explorer/internal/model"
)

var (
	ErrEmptyCatalog  = errors.New("zone catalog is empty")
	ErrEmptyCode     = errors.New("zone code is empty")
	ErrDuplicateCode = errors.New("duplicate zone code")
)

// Registry maps zone codes to display names and defines the set of
// zones a visitor must visit to complete the game.
type Registry struct {
	zones []model.Zone
	names map[string]string
}

// NewRegistry validates the catalog and returns a Registry preserving
// the given order.  Codes and names are trimmed; a missing name falls
// back to the code.
func NewRegistry(zones []model.Zone) (*Registry, error) {
	if len(zones) == 0 {
		return nil, ErrEmptyCatalog
	}
	r := &Registry{
		zones: make([]model.Zone, 0, len(zones)),
		names: make(map[string]string, len(zones)),
	}
	for i, z := range zones {
		code := strings.TrimSpace(z.Code)
		if code == "" {
			return nil, fmt.Errorf("zone #%d: %w", i+1, ErrEmptyCode)
		}
		if _, ok := r.names[code]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
		}
		name := strings.TrimSpace(z.Name)
		if name == "" {
			name = code
		}
		r.names[code] = name
		r.zones = append(r.zones, model.Zone{Code: code, Name: name})
	}
	return r, nil
}

// Resolve returns the display name for code.
func (r *Registry) Resolve(code string) (string, bool) {
	name, ok := r.names[code]
	return name, ok
}

// Contains reports whether code is part of the catalog.  Matching is
// exact: QR payloads carry the bare code.
func (r *Registry) Contains(code string) bool {
	_, ok := r.names[code]
	return ok
}

// AllCodes returns every registered code in catalog order.
func (r *Registry) AllCodes() []string {
	codes := make([]string, len(r.zones))
	for i, z := range r.zones {
		codes[i] = z.Code
	}
	return codes
}

// Zones returns a copy of the catalog.
func (r *Registry) Zones() []model.Zone {
	out := make([]model.Zone, len(r.zones))
	copy(out, r.zones)
	return out
}

func (r *Registry) Size() int { return len(r.zones) }
