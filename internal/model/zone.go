package model

// Zone is a physical location at the venue.  Each zone has a QR code
// poster whose payload is the bare Code.  The full set of zones loaded at
// startup is the catalog against which completion is measured.
//
// Fields:
//  Code – opaque identifier printed into the QR code (e.g. zone123abc).
//  Name – human readable name shown to visitors.
type Zone struct {
    Code string `json:"code" toml:"code"` // zones[].code
    Name string `json:"name" toml:"name"` // zones[].name
}
