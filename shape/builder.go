package shape

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"lukechampine.com/blake3"
)

// DefaultBaseIRI is the namespace minted shape IRIs live under unless the
// caller overrides it.
const DefaultBaseIRI = "http://shaclshapes.org/"

// Policy holds the support thresholds applied during shape construction.
// Both thresholds compare inclusively against support values in (0, 1].
type Policy struct {
	// MinSupport is the minimum support a (property, object type)
	// combination needs to appear in a shape at all. Zero keeps every
	// observed combination.
	MinSupport float64

	// MandatoryThreshold is the support at or above which a constraint
	// is marked mandatory rather than optional.
	MandatoryThreshold float64
}

// DefaultPolicy keeps every observed combination and requires full
// support before marking a constraint mandatory.
func DefaultPolicy() Policy {
	return Policy{MinSupport: 0, MandatoryThreshold: 1.0}
}

// Validate reports whether the thresholds are usable fractions.
func (p Policy) Validate() error {
	if p.MinSupport < 0 || p.MinSupport > 1 {
		return fmt.Errorf("min support %v outside [0, 1]", p.MinSupport)
	}
	if p.MandatoryThreshold < 0 || p.MandatoryThreshold > 1 {
		return fmt.Errorf("mandatory threshold %v outside [0, 1]", p.MandatoryThreshold)
	}
	return nil
}

// Builder turns aggregated observations into class shapes. It is pure:
// the same aggregates and policy always produce the same shapes, in
// deterministic order.
type Builder struct {
	// Policy holds the support thresholds.
	Policy Policy

	// Decoder resolves symbols to IRIs at the emission boundary.
	Decoder Decoder

	// BaseIRI is the namespace for minted shape IRIs.
	BaseIRI string
}

// NewBuilder returns a Builder with the given policy that mints shape
// IRIs under DefaultBaseIRI.
func NewBuilder(policy Policy, dec Decoder) *Builder {
	return &Builder{Policy: policy, Decoder: dec, BaseIRI: DefaultBaseIRI}
}

// Build emits one shape per class present in the aggregate index. Per
// (class, property, object type) combination, support is the statistic
// count over the class instance count; combinations below MinSupport are
// dropped, and surviving ones are marked mandatory when support reaches
// MandatoryThreshold. Classes and properties are sorted by IRI so output
// is reproducible across runs.
func (b *Builder) Build(agg Aggregates) []NodeShape {
	classes := b.sortedClasses(agg)
	ids := b.mintShapeIDs(classes)

	shapes := make([]NodeShape, 0, len(classes))
	for _, class := range classes {
		instances := agg.ClassCounts[class.sym]
		if instances < 0 {
			panic(fmt.Sprintf("shape: negative instance count %d for class %s", instances, class.iri))
		}
		if instances == 0 {
			continue
		}

		ns := NodeShape{
			ID:          ids[class.sym],
			TargetClass: class.iri,
			Instances:   instances,
		}
		for _, prop := range b.sortedProperties(agg.Index[class.sym]) {
			ps := b.buildProperty(agg, class.sym, prop.sym, prop.iri, instances)
			if len(ps.Types) == 0 {
				continue
			}
			ns.Properties = append(ns.Properties, ps)
		}
		shapes = append(shapes, ns)
	}
	return shapes
}

func (b *Builder) buildProperty(agg Aggregates, class, property int32, path string, instances int) PropertyShape {
	ps := PropertyShape{Path: path}
	for objectType := range agg.Index[class][property] {
		n := agg.Stats.Counts[TripletKey{Class: class, Property: property, ObjectType: objectType}]
		if n < 0 {
			panic(fmt.Sprintf("shape: negative statistic for %s on class %d", path, class))
		}
		if n == 0 {
			continue
		}
		support := float64(n) / float64(instances)
		if support < b.Policy.MinSupport {
			continue
		}
		tc := TypeConstraint{
			Kind:      KindClass,
			IRI:       b.Decoder.Decode(objectType),
			Entities:  n,
			Support:   support,
			Mandatory: support >= b.Policy.MandatoryThreshold,
		}
		if _, ok := agg.Datatypes[objectType]; ok {
			tc.Kind = KindDatatype
		}
		ps.Types = append(ps.Types, tc)
		if tc.Mandatory {
			ps.Mandatory = true
		}
	}
	sort.Slice(ps.Types, func(i, j int) bool { return ps.Types[i].IRI < ps.Types[j].IRI })
	if len(ps.Types) > 0 {
		ps.MaxCount = agg.Stats.MaxCard[PropertyKey{Class: class, Property: property}]
	}
	return ps
}

// StatRow is one decoded (class, property, object type) support record,
// including combinations the policy dropped from the shapes.
type StatRow struct {
	Class          string  `json:"class"`
	Property       string  `json:"property"`
	ObjectType     string  `json:"object_type"`
	Kind           Kind    `json:"kind"`
	Entities       int     `json:"entities"`
	ClassInstances int     `json:"class_instances"`
	Support        float64 `json:"support"`
	Included       bool    `json:"included"`
	Mandatory      bool    `json:"mandatory"`
	MaxCount       int     `json:"max_count,omitempty"`
}

// StatRows flattens the aggregates into per-combination support records
// for persistence and reporting, sorted by class, property, object type.
func (b *Builder) StatRows(agg Aggregates) []StatRow {
	var rows []StatRow
	for class, props := range agg.Index {
		instances := agg.ClassCounts[class]
		if instances <= 0 {
			continue
		}
		classIRI := b.Decoder.Decode(class)
		for property, objectTypes := range props {
			maxCount := agg.Stats.MaxCard[PropertyKey{Class: class, Property: property}]
			propertyIRI := b.Decoder.Decode(property)
			for objectType := range objectTypes {
				n := agg.Stats.Counts[TripletKey{Class: class, Property: property, ObjectType: objectType}]
				if n <= 0 {
					continue
				}
				support := float64(n) / float64(instances)
				kind := KindClass
				if _, ok := agg.Datatypes[objectType]; ok {
					kind = KindDatatype
				}
				rows = append(rows, StatRow{
					Class:          classIRI,
					Property:       propertyIRI,
					ObjectType:     b.Decoder.Decode(objectType),
					Kind:           kind,
					Entities:       n,
					ClassInstances: instances,
					Support:        support,
					Included:       support >= b.Policy.MinSupport,
					Mandatory:      support >= b.Policy.MandatoryThreshold,
					MaxCount:       maxCount,
				})
			}
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Class != rows[j].Class {
			return rows[i].Class < rows[j].Class
		}
		if rows[i].Property != rows[j].Property {
			return rows[i].Property < rows[j].Property
		}
		return rows[i].ObjectType < rows[j].ObjectType
	})
	return rows
}

type classEntry struct {
	sym int32
	iri string
}

func (b *Builder) sortedClasses(agg Aggregates) []classEntry {
	classes := make([]classEntry, 0, len(agg.Index))
	for sym := range agg.Index {
		classes = append(classes, classEntry{sym: sym, iri: b.Decoder.Decode(sym)})
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].iri < classes[j].iri })
	return classes
}

func (b *Builder) sortedProperties(props map[int32]map[int32]struct{}) []classEntry {
	sorted := make([]classEntry, 0, len(props))
	for sym := range props {
		sorted = append(sorted, classEntry{sym: sym, iri: b.Decoder.Decode(sym)})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].iri < sorted[j].iri })
	return sorted
}

// mintShapeIDs derives one shape IRI per class from the class's local
// name. When two classes share a local name, later ones (in sorted order)
// get a short content hash suffix so IDs stay collision free and stable.
func (b *Builder) mintShapeIDs(classes []classEntry) map[int32]string {
	base := b.BaseIRI
	if base == "" {
		base = DefaultBaseIRI
	}
	ids := make(map[int32]string, len(classes))
	used := make(map[string]bool, len(classes))
	for _, class := range classes {
		token := localName(class.iri)
		if used[token] {
			sum := blake3.Sum256([]byte(class.iri))
			token = token + "-" + hex.EncodeToString(sum[:4])
		}
		used[token] = true
		ids[class.sym] = base + token + "Shape"
	}
	return ids
}

// localName returns the fragment or final path segment of an IRI.
func localName(iri string) string {
	for _, sep := range []byte{'#', '/', ':'} {
		if i := strings.LastIndexByte(iri, sep); i >= 0 && i+1 < len(iri) {
			return iri[i+1:]
		}
	}
	return iri
}
