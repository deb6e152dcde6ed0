// Package shape defines the shape model produced by extraction and the
// builder that derives shapes from aggregated observations under a
// support threshold policy.
package shape

// Kind discriminates what a property's object type refers to.
type Kind string

const (
	// KindClass marks an object type that is a class of referenced
	// entities; it serializes as sh:class.
	KindClass Kind = "class"

	// KindDatatype marks a literal datatype; it serializes as
	// sh:datatype.
	KindDatatype Kind = "datatype"
)

// TypeConstraint is one allowed object type for a property, together with
// the statistical evidence behind it.
type TypeConstraint struct {
	// Kind reports whether IRI names a class or a literal datatype.
	Kind Kind `json:"kind"`

	// IRI is the class or datatype identifier.
	IRI string `json:"iri"`

	// Entities is the number of class instances observed with this
	// property carrying this object type.
	Entities int `json:"entities"`

	// Support is Entities divided by the class instance count, in (0, 1].
	Support float64 `json:"support"`

	// Mandatory reports whether Support met the mandatory threshold.
	Mandatory bool `json:"mandatory"`
}

// PropertyShape groups the surviving object type constraints for one
// property under a class shape.
type PropertyShape struct {
	// Path is the property IRI.
	Path string `json:"path"`

	// Types lists the allowed object types, sorted by IRI.
	Types []TypeConstraint `json:"types"`

	// Mandatory reports whether at least one object type alternative met
	// the mandatory threshold; that fraction of instances is then known
	// to carry the property at all.
	Mandatory bool `json:"mandatory"`

	// MaxCount bounds how often the property occurs per entity, taken
	// from the maximum raw occurrence counter across the class's
	// instances. Zero means cardinality tracking was disabled.
	MaxCount int `json:"max_count,omitempty"`
}

// NodeShape is the inferred shape of one class.
type NodeShape struct {
	// ID is the minted shape IRI.
	ID string `json:"id"`

	// TargetClass is the class the shape describes.
	TargetClass string `json:"target_class"`

	// Instances is the number of distinct entities typed with the class.
	Instances int `json:"instances"`

	// Properties lists the surviving property constraints, sorted by path.
	Properties []PropertyShape `json:"properties"`
}
