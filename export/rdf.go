package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360studio/semshape/shape"
	"github.com/c360studio/semshape/vocabulary"
)

// SHACLExporter serializes node shapes as SHACL with a configurable
// annotation profile.
type SHACLExporter struct {
	profile  ProfileConfig
	shapes   []shape.NodeShape
	prefixes map[string]string
}

// NewSHACLExporter creates a new exporter with the specified profile.
func NewSHACLExporter(profile Profile) *SHACLExporter {
	return &SHACLExporter{
		profile:  GetProfileConfig(profile),
		shapes:   make([]shape.NodeShape, 0),
		prefixes: defaultPrefixes(),
	}
}

// defaultPrefixes returns the standard namespace prefixes for SHACL output.
func defaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":  vocabulary.RDFNamespace,
		"rdfs": vocabulary.RDFSNamespace,
		"xsd":  vocabulary.XSDNamespace,
		"sh":   vocabulary.SHACLNamespace,
	}
}

// SetPrefix declares an additional namespace prefix for Turtle and
// JSON-LD output.
func (e *SHACLExporter) SetPrefix(prefix, iri string) {
	e.prefixes[prefix] = iri
}

// AddShapes appends shapes to be exported.
func (e *SHACLExporter) AddShapes(shapes ...shape.NodeShape) {
	e.shapes = append(e.shapes, shapes...)
}

// Export serializes all added shapes to the specified format.
func (e *SHACLExporter) Export(format Format) (string, error) {
	switch format {
	case FormatTurtle:
		return e.toTurtle(), nil
	case FormatNTriples:
		return e.toNTriples(), nil
	case FormatJSONLD:
		return e.toJSONLD()
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// toTurtle serializes to Turtle format.
func (e *SHACLExporter) toTurtle() string {
	w := newTurtleWriter(e.prefixes)
	w.writePrefixes()
	for _, ns := range e.shapes {
		w.writeSubject(ns.ID, e.shapeItems(w, ns))
	}
	return w.String()
}

// shapeItems renders one node shape as a Turtle predicate-object list.
func (e *SHACLExporter) shapeItems(w *turtleWriter, ns shape.NodeShape) []string {
	items := []string{
		"a sh:NodeShape",
		"sh:targetClass " + w.ref(ns.TargetClass),
	}
	for _, ps := range ns.Properties {
		items = append(items, e.propertyBlock(w, ns, ps))
	}
	return items
}

// propertyBlock renders one property shape as an anonymous blank node
// block. A single allowed object type is constrained inline; alternatives
// go through sh:or.
func (e *SHACLExporter) propertyBlock(w *turtleWriter, ns shape.NodeShape, ps shape.PropertyShape) string {
	lines := []string{"sh:path " + w.ref(ps.Path)}
	if len(ps.Types) == 1 {
		lines = append(lines, e.constraintItems(w, ps.Types[0])...)
		if e.profile.IncludeDescriptions {
			lines = append(lines, "sh:description "+q(supportDescription(ps.Types[0], ns.Instances)))
		}
	} else {
		lines = append(lines, e.orBlock(w, ns, ps))
	}
	if ps.Mandatory {
		lines = append(lines, "sh:minCount 1")
	}
	if ps.MaxCount > 0 {
		lines = append(lines, fmt.Sprintf("sh:maxCount %d", ps.MaxCount))
	}
	return "sh:property [\n        " + strings.Join(lines, " ;\n        ") + "\n    ]"
}

// orBlock renders the alternative type constraints of one property as a
// SHACL or-list.
func (e *SHACLExporter) orBlock(w *turtleWriter, ns shape.NodeShape, ps shape.PropertyShape) string {
	var sb strings.Builder
	sb.WriteString("sh:or (\n")
	for _, tc := range ps.Types {
		branch := e.constraintItems(w, tc)
		if e.profile.IncludeDescriptions {
			branch = append(branch, "sh:description "+q(supportDescription(tc, ns.Instances)))
		}
		sb.WriteString("            [ " + strings.Join(branch, " ; ") + " ]\n")
	}
	sb.WriteString("        )")
	return sb.String()
}

// constraintItems renders the Turtle constraint terms for one allowed
// object type.
func (e *SHACLExporter) constraintItems(w *turtleWriter, tc shape.TypeConstraint) []string {
	var items []string
	if tc.Kind == shape.KindDatatype {
		items = append(items, "sh:datatype "+w.ref(tc.IRI))
		if e.profile.IncludeNodeKind {
			items = append(items, "sh:nodeKind sh:Literal")
		}
	} else {
		items = append(items, "sh:class "+w.ref(tc.IRI))
		if e.profile.IncludeNodeKind {
			items = append(items, "sh:nodeKind sh:IRI")
		}
	}
	return items
}

// toNTriples serializes to N-Triples format.
func (e *SHACLExporter) toNTriples() string {
	w := &ntriplesWriter{}
	for _, ns := range e.shapes {
		e.writeShapeNTriples(w, ns)
	}
	return w.String()
}

func (e *SHACLExporter) writeShapeNTriples(w *ntriplesWriter, ns shape.NodeShape) {
	subject := iriRef(ns.ID)
	w.writeTriple(subject, iriRef(vocabulary.RDFType), iriRef(vocabulary.SHACLNodeShape))
	w.writeTriple(subject, iriRef(vocabulary.SHACLTargetClass), iriRef(ns.TargetClass))

	for _, ps := range ns.Properties {
		prop := w.nextBlank()
		w.writeTriple(subject, iriRef(vocabulary.SHACLProperty), prop)
		w.writeTriple(prop, iriRef(vocabulary.SHACLPath), iriRef(ps.Path))

		if len(ps.Types) == 1 {
			e.writeConstraintNTriples(w, prop, ps.Types[0], ns.Instances)
		} else {
			// sh:or takes an RDF collection of alternative shapes.
			cell := w.nextBlank()
			w.writeTriple(prop, iriRef(vocabulary.SHACLOr), cell)
			for i, tc := range ps.Types {
				branch := w.nextBlank()
				w.writeTriple(cell, iriRef(vocabulary.RDFFirst), branch)
				e.writeConstraintNTriples(w, branch, tc, ns.Instances)
				if i == len(ps.Types)-1 {
					w.writeTriple(cell, iriRef(vocabulary.RDFRest), iriRef(vocabulary.RDFNil))
				} else {
					next := w.nextBlank()
					w.writeTriple(cell, iriRef(vocabulary.RDFRest), next)
					cell = next
				}
			}
		}

		if ps.Mandatory {
			w.writeTriple(prop, iriRef(vocabulary.SHACLMinCount), intLiteral(1))
		}
		if ps.MaxCount > 0 {
			w.writeTriple(prop, iriRef(vocabulary.SHACLMaxCount), intLiteral(ps.MaxCount))
		}
	}
}

func (e *SHACLExporter) writeConstraintNTriples(w *ntriplesWriter, subject string, tc shape.TypeConstraint, instances int) {
	if tc.Kind == shape.KindDatatype {
		w.writeTriple(subject, iriRef(vocabulary.SHACLDatatype), iriRef(tc.IRI))
		if e.profile.IncludeNodeKind {
			w.writeTriple(subject, iriRef(vocabulary.SHACLNodeKind), iriRef(vocabulary.SHACLNodeKindLiteral))
		}
	} else {
		w.writeTriple(subject, iriRef(vocabulary.SHACLClass), iriRef(tc.IRI))
		if e.profile.IncludeNodeKind {
			w.writeTriple(subject, iriRef(vocabulary.SHACLNodeKind), iriRef(vocabulary.SHACLNodeKindIRI))
		}
	}
	if e.profile.IncludeDescriptions {
		w.writeTriple(subject, iriRef(vocabulary.SHACLDescription), q(supportDescription(tc, instances)))
	}
}

// JSONLDDocument represents a JSON-LD document structure.
type JSONLDDocument struct {
	Context map[string]string `json:"@context"`
	Graph   []JSONLDNode      `json:"@graph"`
}

// JSONLDNode represents a node in a JSON-LD graph.
type JSONLDNode struct {
	ID         string
	Types      []string
	Properties map[string]any
}

// MarshalJSON flattens the node's properties next to its @id and @type.
func (n JSONLDNode) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(n.Properties)+2)
	m["@id"] = n.ID
	if len(n.Types) > 0 {
		m["@type"] = n.Types
	}
	for k, v := range n.Properties {
		m[k] = v
	}
	return json.Marshal(m)
}

// toJSONLD serializes to JSON-LD format.
func (e *SHACLExporter) toJSONLD() (string, error) {
	doc := JSONLDDocument{
		Context: e.prefixes,
		Graph:   make([]JSONLDNode, 0, len(e.shapes)),
	}
	for _, ns := range e.shapes {
		node := JSONLDNode{
			ID:    ns.ID,
			Types: []string{"sh:NodeShape"},
			Properties: map[string]any{
				"sh:targetClass": idRef(ns.TargetClass),
			},
		}
		if len(ns.Properties) > 0 {
			properties := make([]any, 0, len(ns.Properties))
			for _, ps := range ns.Properties {
				properties = append(properties, e.propertyJSONLD(ns, ps))
			}
			node.Properties["sh:property"] = properties
		}
		doc.Graph = append(doc.Graph, node)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal JSON-LD: %w", err)
	}
	return string(data) + "\n", nil
}

func (e *SHACLExporter) propertyJSONLD(ns shape.NodeShape, ps shape.PropertyShape) map[string]any {
	m := map[string]any{"sh:path": idRef(ps.Path)}
	if len(ps.Types) == 1 {
		e.constraintJSONLD(m, ps.Types[0], ns.Instances)
	} else {
		branches := make([]any, 0, len(ps.Types))
		for _, tc := range ps.Types {
			branch := make(map[string]any, 3)
			e.constraintJSONLD(branch, tc, ns.Instances)
			branches = append(branches, branch)
		}
		m["sh:or"] = map[string]any{"@list": branches}
	}
	if ps.Mandatory {
		m["sh:minCount"] = 1
	}
	if ps.MaxCount > 0 {
		m["sh:maxCount"] = ps.MaxCount
	}
	return m
}

func (e *SHACLExporter) constraintJSONLD(m map[string]any, tc shape.TypeConstraint, instances int) {
	if tc.Kind == shape.KindDatatype {
		m["sh:datatype"] = idRef(tc.IRI)
		if e.profile.IncludeNodeKind {
			m["sh:nodeKind"] = idRef(vocabulary.SHACLNodeKindLiteral)
		}
	} else {
		m["sh:class"] = idRef(tc.IRI)
		if e.profile.IncludeNodeKind {
			m["sh:nodeKind"] = idRef(vocabulary.SHACLNodeKindIRI)
		}
	}
	if e.profile.IncludeDescriptions {
		m["sh:description"] = supportDescription(tc, instances)
	}
}

// idRef wraps an IRI as a JSON-LD node reference.
func idRef(iri string) map[string]string {
	return map[string]string{"@id": iri}
}

// supportDescription summarizes the evidence behind one type constraint.
func supportDescription(tc shape.TypeConstraint, instances int) string {
	return fmt.Sprintf("observed on %d of %d instances (support %.2f)", tc.Entities, instances, tc.Support)
}

func iriRef(iri string) string {
	return "<" + iri + ">"
}

func intLiteral(n int) string {
	return fmt.Sprintf(`"%d"^^<%s>`, n, vocabulary.XSDInteger)
}

func q(s string) string {
	return `"` + escapeString(s) + `"`
}

// escapeString escapes special characters in strings for RDF serialization.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
