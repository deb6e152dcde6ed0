// Package graph publishes inferred shapes to the knowledge graph.
package graph

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	"lukechampine.com/blake3"

	"github.com/c360studio/semshape/extractor"
	"github.com/c360studio/semshape/shape"
)

// ShapeIngestSubjectPrefix is the stream subject prefix for shape
// ingestion. The full subject carries the class token as its final part.
const ShapeIngestSubjectPrefix = "shapes.extracted"

// publishSource identifies this component in triple provenance.
const publishSource = "semshape.extract"

// Dotted predicates for the shape ingest vocabulary.
const (
	PredicateShapeIRI      = "shapes.shape.iri"
	PredicateTargetClass   = "shapes.shape.target_class"
	PredicateInstanceCount = "shapes.shape.instance_count"
	PredicateRun           = "shapes.shape.run"
	PredicateProperty      = "shapes.shape.property"
)

// ShapeIngestMessage is the message format for graph ingestion. The
// triples carry the shape's headline facts; the full constraint detail
// rides along as the typed shape.
type ShapeIngestMessage struct {
	ID        string           `json:"id"`
	RunID     string           `json:"run_id"`
	Class     string           `json:"class"`
	Shape     shape.NodeShape  `json:"shape"`
	Triples   []message.Triple `json:"triples"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Publisher publishes extraction results to the shape ingest stream.
type Publisher struct {
	nc     *natsclient.Client
	logger *slog.Logger
}

// NewPublisher creates a publisher. A nil client disables publishing.
func NewPublisher(nc *natsclient.Client, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{nc: nc, logger: logger}
}

// PublishShapes publishes one message per extracted shape, keyed by the
// target class token.
func (p *Publisher) PublishShapes(ctx context.Context, res *extractor.Result) error {
	if p == nil || p.nc == nil {
		return nil // Skip publishing if no NATS client (graceful degradation)
	}

	now := time.Now()
	for _, ns := range res.Shapes {
		msg := ShapeIngestMessage{
			ID:        ShapeEntityID(ns.TargetClass),
			RunID:     res.RunID,
			Class:     ns.TargetClass,
			Shape:     ns,
			Triples:   ShapeTriples(ns, res.RunID, now),
			UpdatedAt: now,
		}

		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal shape entity: %w", err)
		}

		subject := ShapeIngestSubjectPrefix + "." + ClassToken(ns.TargetClass)
		if err := p.nc.PublishToStream(ctx, subject, data); err != nil {
			return fmt.Errorf("publish shape %s: %w", ns.ID, err)
		}
	}

	p.logger.Info("Published shapes", "count", len(res.Shapes), "run_id", res.RunID)
	return nil
}

// ShapeTriples flattens a shape's headline facts into semantic triples.
// Per-property triples carry the best observed support as their
// confidence; the run ID rides in the context field for batch correlation.
func ShapeTriples(ns shape.NodeShape, runID string, now time.Time) []message.Triple {
	entityID := ShapeEntityID(ns.TargetClass)
	triples := []message.Triple{
		{
			Subject:    entityID,
			Predicate:  PredicateShapeIRI,
			Object:     ns.ID,
			Source:     publishSource,
			Timestamp:  now,
			Confidence: 1.0,
			Context:    runID,
			Datatype:   "xsd:anyURI",
		},
		{
			Subject:    entityID,
			Predicate:  PredicateTargetClass,
			Object:     ns.TargetClass,
			Source:     publishSource,
			Timestamp:  now,
			Confidence: 1.0,
			Context:    runID,
			Datatype:   "xsd:anyURI",
		},
		{
			Subject:    entityID,
			Predicate:  PredicateInstanceCount,
			Object:     ns.Instances,
			Source:     publishSource,
			Timestamp:  now,
			Confidence: 1.0,
			Context:    runID,
			Datatype:   "xsd:integer",
		},
		{
			Subject:    entityID,
			Predicate:  PredicateRun,
			Object:     runID,
			Source:     publishSource,
			Timestamp:  now,
			Confidence: 1.0,
			Context:    runID,
		},
	}

	for _, ps := range ns.Properties {
		confidence := 0.0
		for _, tc := range ps.Types {
			if tc.Support > confidence {
				confidence = tc.Support
			}
		}
		triples = append(triples, message.Triple{
			Subject:    entityID,
			Predicate:  PredicateProperty,
			Object:     ps.Path,
			Source:     publishSource,
			Timestamp:  now,
			Confidence: confidence,
			Context:    runID,
			Datatype:   "xsd:anyURI",
		})
	}

	return triples
}

// ClassToken derives a stable, subject-safe token for a class IRI. IRIs
// carry dots and slashes that would splinter a NATS subject, so the token
// is a short content hash instead.
func ClassToken(classIRI string) string {
	sum := blake3.Sum256([]byte(classIRI))
	return hex.EncodeToString(sum[:8])
}

// ShapeEntityID generates a consistent entity ID for a class's shape.
// Format: semshape.local.extract.shapes.shape.<token>
func ShapeEntityID(classIRI string) string {
	return fmt.Sprintf("semshape.local.extract.shapes.shape.%s", ClassToken(classIRI))
}
