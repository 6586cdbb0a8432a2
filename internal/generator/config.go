package generator

// Config drives the synthetic structure generator.
type Config struct {
	NumHouseholds       int
	MaxEntitiesPerLevel int
	MaxDepth            int
	PersonsPerHousehold int
	CycleChance         float64
	OverOwnershipChance float64
	Seed                int64
}

// DefaultConfig returns baseline settings producing realistic multi-level structures.
func DefaultConfig() Config {
	return Config{
		NumHouseholds:       100,
		MaxEntitiesPerLevel: 3,
		MaxDepth:            4,
		PersonsPerHousehold: 2,
		CycleChance:         0.02,
		OverOwnershipChance: 0.03,
		Seed:                42,
	}
}
