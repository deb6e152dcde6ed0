package shape

// TripletKey identifies one (class, property, object type) combination in
// encoded symbol space.
type TripletKey struct {
	Class      int32
	Property   int32
	ObjectType int32
}

// PropertyKey identifies one (class, property) pair in encoded symbol
// space, used for per-class cardinality bounds.
type PropertyKey struct {
	Class    int32
	Property int32
}

// Statistics holds the per-combination evidence computed from entity
// summaries after the second pass.
type Statistics struct {
	// Counts maps a combination to the number of entities of the class
	// that exhibit the property with that object type. Never exceeds the
	// class instance count.
	Counts map[TripletKey]int

	// MaxCard maps a (class, property) pair to the largest raw
	// occurrence counter observed on any instance of the class. Empty
	// when cardinality tracking is disabled.
	MaxCard map[PropertyKey]int
}

// NewStatistics returns empty statistics maps.
func NewStatistics() Statistics {
	return Statistics{
		Counts:  make(map[TripletKey]int),
		MaxCard: make(map[PropertyKey]int),
	}
}

// Aggregates is the complete aggregate state handed from the extraction
// passes to the Builder. All identifiers are encoded symbols; the Builder
// decodes them at the emission boundary.
type Aggregates struct {
	// Index is the class → property → object types union across all
	// instances of each class. A structural superset: it records which
	// combinations occur, not how often.
	Index map[int32]map[int32]map[int32]struct{}

	// ClassCounts maps a class symbol to its distinct instance count,
	// the denominator for support.
	ClassCounts map[int32]int

	// Datatypes marks the symbols that were issued for literal
	// datatypes; every other object type symbol names a class.
	Datatypes map[int32]struct{}

	// Stats is the per-combination evidence.
	Stats Statistics
}

// Decoder resolves encoded symbols back to their textual identifiers.
// The extraction encoder satisfies it.
type Decoder interface {
	Decode(sym int32) string
}
