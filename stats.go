package horde

// Stats is a point in time view of a collection. Fields a collection doesn't have are zero.
type Stats struct {
	Len      uint64
	Capacity uint64
	// Segments is the number of vector segments or table chunks allocated.
	Segments int
	// Generations counts table generations published, the first one included.
	Generations uint64
	// Retired counts generations handed to the Domain.
	Retired uint64
	// Reclaimed counts retired generations whose storage was recycled.
	Reclaimed uint64
	// MaxProbe is the longest probe distance in the current table generation.
	MaxProbe int
}

// StatsSource is implemented by both collections.
type StatsSource interface {
	Stats() Stats
}
