package zone

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/iliyamo/zone-explorer/internal/model"
)

// DefaultCatalog is used when no catalog file is configured.
var DefaultCatalog = []model.Zone{
	{Code: "zone123abc", Name: "Zone 1"},
	{Code: "zone456def", Name: "Zone 2"},
	{Code: "zone789ghi", Name: "Zone 3"},
	{Code: "zone012jkl", Name: "Zone 4"},
	{Code: "zone345mno", Name: "Zone 5"},
	{Code: "zone678pqr", Name: "Zone 6"},
}

// catalogFile is the TOML layout of a zone catalog:
//
//	[[zone]]
//	code = "zone123abc"
//	name = "Engineering Mission"
type catalogFile struct {
	Zones []model.Zone `toml:"zone"`
}

// Load builds a Registry from the TOML file at path, or from
// DefaultCatalog when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(DefaultCatalog)
	}
	var f catalogFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode zone catalog %s: %w", path, err)
	}
	return NewRegistry(f.Zones)
}

// Parse builds a Registry from TOML text.
func Parse(data string) (*Registry, error) {
	var f catalogFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("decode zone catalog: %w", err)
	}
	return NewRegistry(f.Zones)
}
