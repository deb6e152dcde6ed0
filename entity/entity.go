// Package entity holds the per-entity summaries accumulated across both
// extraction passes and the store that owns them.
//
// A summary records which classes an entity is asserted to belong to,
// which object types have been observed per property, and optionally how
// often each property occurs. Summaries are created lazily, grow
// monotonically, and are never deleted within a run.
package entity

// Data is the summary of everything observed about one entity.
//
// Classes and Constraints are sets of encoded symbols; Cardinality counts
// raw property occurrences and is only populated when cardinality
// tracking is enabled. A Data value is owned by a single goroutine at a
// time; parallel scans aggregate into per-shard Stores and merge.
type Data struct {
	// Classes holds the class symbols asserted for this entity in the
	// membership pass.
	Classes map[int32]struct{}

	// Constraints maps a property symbol to the set of object type
	// symbols observed for that property on this entity.
	Constraints map[int32]map[int32]struct{}

	// Cardinality maps a property symbol to its raw occurrence count,
	// one increment per triple regardless of how many object types the
	// triple contributed.
	Cardinality map[int32]int
}

// NewData returns an empty summary.
func NewData() *Data {
	return &Data{Classes: make(map[int32]struct{}, 2)}
}

// AddClass records class membership and reports whether the class was not
// already present. Callers use the report to count distinct instances per
// class, so duplicate typing assertions stay idempotent.
func (d *Data) AddClass(class int32) bool {
	if _, ok := d.Classes[class]; ok {
		return false
	}
	d.Classes[class] = struct{}{}
	return true
}

// AddConstraint records that property was observed with the given object
// type. Set semantics: re-adding an existing pair is a no-op.
func (d *Data) AddConstraint(property, objectType int32) {
	if d.Constraints == nil {
		d.Constraints = make(map[int32]map[int32]struct{}, 4)
	}
	types, ok := d.Constraints[property]
	if !ok {
		types = make(map[int32]struct{}, 2)
		d.Constraints[property] = types
	}
	types[objectType] = struct{}{}
}

// BumpCardinality increments the raw occurrence counter for property.
func (d *Data) BumpCardinality(property int32) {
	if d.Cardinality == nil {
		d.Cardinality = make(map[int32]int, 4)
	}
	d.Cardinality[property]++
}

// merge folds other into d: class and constraint sets union, cardinality
// counters sum. Commutative, so shard merge order does not matter.
func (d *Data) merge(other *Data) {
	for class := range other.Classes {
		d.Classes[class] = struct{}{}
	}
	for property, types := range other.Constraints {
		for objectType := range types {
			d.AddConstraint(property, objectType)
		}
	}
	for property, n := range other.Cardinality {
		if d.Cardinality == nil {
			d.Cardinality = make(map[int32]int, len(other.Cardinality))
		}
		d.Cardinality[property] += n
	}
}
