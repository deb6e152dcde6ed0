package vocabulary

// Standard W3C vocabulary IRIs used during shape extraction and SHACL
// serialization.
//
// References:
// - RDF: https://www.w3.org/TR/rdf11-concepts/
// - XSD: https://www.w3.org/TR/xmlschema11-2/
// - SHACL: https://www.w3.org/TR/shacl/

// Namespace IRIs for the vocabularies emitted in shape output.
const (
	// RDFNamespace is the RDF syntax namespace.
	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

	// RDFSNamespace is the RDF Schema namespace.
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"

	// XSDNamespace is the XML Schema datatype namespace.
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"

	// SHACLNamespace is the W3C Shapes Constraint Language namespace.
	SHACLNamespace = "http://www.w3.org/ns/shacl#"
)

// RDF core IRIs.
const (
	// RDFType asserts class membership; the default typing predicate.
	RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	// RDFLangString is the datatype of language-tagged literals.
	RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"

	// RDFFirst, RDFRest, and RDFNil encode RDF collections, used when
	// serializing sh:or alternative lists as plain triples.
	RDFFirst = "http://www.w3.org/1999/02/22-rdf-syntax-ns#first"
	RDFRest  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#rest"
	RDFNil   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#nil"
)

// RDFS IRIs.
const (
	// RDFSLabel provides a human-readable name for a resource.
	RDFSLabel = "http://www.w3.org/2000/01/rdf-schema#label"

	// RDFSComment provides a human-readable description.
	RDFSComment = "http://www.w3.org/2000/01/rdf-schema#comment"
)

// XSD datatype IRIs. XSDString is the fallback datatype for plain
// literals that carry neither a datatype tag nor a language tag.
const (
	XSDString   = "http://www.w3.org/2001/XMLSchema#string"
	XSDBoolean  = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDInteger  = "http://www.w3.org/2001/XMLSchema#integer"
	XSDInt      = "http://www.w3.org/2001/XMLSchema#int"
	XSDLong     = "http://www.w3.org/2001/XMLSchema#long"
	XSDDecimal  = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDDouble   = "http://www.w3.org/2001/XMLSchema#double"
	XSDFloat    = "http://www.w3.org/2001/XMLSchema#float"
	XSDDate     = "http://www.w3.org/2001/XMLSchema#date"
	XSDDateTime = "http://www.w3.org/2001/XMLSchema#dateTime"
	XSDAnyURI   = "http://www.w3.org/2001/XMLSchema#anyURI"
)

// SHACL vocabulary IRIs.
const (
	// SHACLNodeShape is the class of shapes that target whole nodes.
	SHACLNodeShape = "http://www.w3.org/ns/shacl#NodeShape"

	// SHACLPropertyShape is the class of shapes scoped to one property path.
	SHACLPropertyShape = "http://www.w3.org/ns/shacl#PropertyShape"

	// SHACLTargetClass binds a node shape to the class it describes.
	SHACLTargetClass = "http://www.w3.org/ns/shacl#targetClass"

	// SHACLProperty attaches a property shape to a node shape.
	SHACLProperty = "http://www.w3.org/ns/shacl#property"

	// SHACLPath names the property a property shape constrains.
	SHACLPath = "http://www.w3.org/ns/shacl#path"

	// SHACLClass constrains object values to instances of a class.
	SHACLClass = "http://www.w3.org/ns/shacl#class"

	// SHACLDatatype constrains literal values to one datatype.
	SHACLDatatype = "http://www.w3.org/ns/shacl#datatype"

	// SHACLNodeKind constrains the kind of node a value may be.
	SHACLNodeKind = "http://www.w3.org/ns/shacl#nodeKind"

	// SHACLNodeKindIRI and SHACLNodeKindLiteral are the node kinds
	// produced by extraction: entity references and literals.
	SHACLNodeKindIRI     = "http://www.w3.org/ns/shacl#IRI"
	SHACLNodeKindLiteral = "http://www.w3.org/ns/shacl#Literal"

	// SHACLMinCount and SHACLMaxCount bound property cardinality.
	SHACLMinCount = "http://www.w3.org/ns/shacl#minCount"
	SHACLMaxCount = "http://www.w3.org/ns/shacl#maxCount"

	// SHACLOr lists alternative constraints for one property path.
	SHACLOr = "http://www.w3.org/ns/shacl#or"

	// SHACLDescription carries human-readable support annotations.
	SHACLDescription = "http://www.w3.org/ns/shacl#description"
)
