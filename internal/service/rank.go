package service

// RankTier awards Label to visitors with at most MaxUnique distinct zones.
type RankTier struct {
	MaxUnique int
	Label     string
}

// RankTable is a step function from distinct zones visited to a label.
// Tiers must be sorted by MaxUnique ascending; visitors above the last
// tier get Default and visitors who completed the catalog get Champion.
type RankTable struct {
	Tiers    []RankTier
	Default  string
	Champion string
}

// DefaultRanks is the ladder shown on the visitor page.
var DefaultRanks = RankTable{
	Tiers: []RankTier{
		{MaxUnique: 0, Label: "Novice Explorer"},
		{MaxUnique: 2, Label: "Zone Seeker"},
		{MaxUnique: 4, Label: "Zone Master"},
	},
	Default:  "Zone Expert",
	Champion: "Zone Champion",
}

// Label returns the rank for a visitor.
func (t RankTable) Label(uniqueZones int, complete bool) string {
	if complete {
		return t.Champion
	}
	for _, tier := range t.Tiers {
		if uniqueZones <= tier.MaxUnique {
			return tier.Label
		}
	}
	return t.Default
}
