// Package storage persists extraction runs and inferred shapes using NATS KV.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semshape/extractor"
	"github.com/c360studio/semshape/graph"
	"github.com/c360studio/semshape/shape"
)

// EntityType represents the type of entity stored in KV.
type EntityType string

const (
	EntityTypeShape EntityType = "shape"
	EntityTypeRun   EntityType = "run"
)

// Bucket names for each entity type.
const (
	BucketShapes = "SEMSHAPE_SHAPES"
	BucketRuns   = "SEMSHAPE_RUNS"
)

// EntityID represents a typed entity identifier.
type EntityID struct {
	Type EntityType
	ID   string
}

// String returns the string representation of the entity ID.
func (e EntityID) String() string {
	return fmt.Sprintf("%s:%s", e.Type, e.ID)
}

// ParseEntityID parses an entity ID string into its components.
func ParseEntityID(s string) (EntityID, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return EntityID{}, fmt.Errorf("invalid entity ID format: %s", s)
	}
	entityType := EntityType(parts[0])
	switch entityType {
	case EntityTypeShape, EntityTypeRun:
		return EntityID{Type: entityType, ID: parts[1]}, nil
	default:
		return EntityID{}, fmt.Errorf("unknown entity type: %s", parts[0])
	}
}

// ShapeEntityKey derives the entity ID for a class's stored shape. The
// class IRI is hashed to a token because IRIs carry characters that NATS
// KV keys cannot.
func ShapeEntityKey(classIRI string) EntityID {
	return EntityID{Type: EntityTypeShape, ID: graph.ClassToken(classIRI)}
}

// RunEntityKey derives the entity ID for an extraction run.
func RunEntityKey(runID string) EntityID {
	return EntityID{Type: EntityTypeRun, ID: runID}
}

// ShapeRecord is a stored node shape together with its run provenance.
// One record per target class; later runs supersede earlier ones and the
// bucket history keeps recent revisions.
type ShapeRecord struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	Class     string          `json:"class"`
	Shape     shape.NodeShape `json:"shape"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RunRecord summarizes one completed extraction run.
type RunRecord struct {
	ID            string            `json:"id"`
	RunID         string            `json:"run_id"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    time.Time         `json:"finished_at"`
	TypePredicate string            `json:"type_predicate"`
	Inputs        []string          `json:"inputs"`
	Fingerprints  map[string]string `json:"fingerprints,omitempty"`
	Policy        shape.Policy      `json:"policy"`
	Triples       int64             `json:"triples"`
	ParseErrors   int64             `json:"parse_errors"`
	Classes       int               `json:"classes"`
	Entities      int               `json:"entities"`
	Shapes        int               `json:"shapes"`
}

// NewRunRecord builds a run record from an extraction result.
func NewRunRecord(res *extractor.Result) *RunRecord {
	rec := &RunRecord{
		ID:            RunEntityKey(res.RunID).String(),
		RunID:         res.RunID,
		StartedAt:     res.StartedAt,
		FinishedAt:    res.FinishedAt,
		TypePredicate: res.TypePredicate,
		Inputs:        res.Inputs,
		Fingerprints:  res.Fingerprints,
		Policy:        res.Policy,
		ParseErrors:   res.ParseErrors(),
		Classes:       len(res.ClassCounts),
		Entities:      res.Entities,
		Shapes:        len(res.Shapes),
	}
	if res.FirstPass != nil {
		rec.Triples += res.FirstPass.Triples
	}
	if res.SecondPass != nil {
		rec.Triples += res.SecondPass.Triples
	}
	return rec
}

// Store provides entity storage operations backed by NATS KV.
type Store struct {
	shapes jetstream.KeyValue
	runs   jetstream.KeyValue
}

// NewStore creates a new Store with the given JetStream context.
// It creates the necessary KV buckets if they don't exist.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	shapes, err := getOrCreateBucket(ctx, js, BucketShapes)
	if err != nil {
		return nil, fmt.Errorf("create shapes bucket: %w", err)
	}

	runs, err := getOrCreateBucket(ctx, js, BucketRuns)
	if err != nil {
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}

	return &Store{
		shapes: shapes,
		runs:   runs,
	}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Semshape %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

// SaveResult persists the run record and every shape the run produced.
// Shapes are keyed by target class so the latest run wins; the run record
// itself is immutable once written.
func (s *Store) SaveResult(ctx context.Context, res *extractor.Result) (EntityID, error) {
	now := time.Now()
	for _, ns := range res.Shapes {
		key := ShapeEntityKey(ns.TargetClass)
		rec := ShapeRecord{
			ID:        key.String(),
			RunID:     res.RunID,
			Class:     ns.TargetClass,
			Shape:     ns,
			UpdatedAt: now,
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return EntityID{}, fmt.Errorf("marshal shape record: %w", err)
		}

		if _, err := s.shapes.Put(ctx, key.ID, data); err != nil {
			return EntityID{}, fmt.Errorf("store shape %s: %w", ns.ID, err)
		}
	}

	id := RunEntityKey(res.RunID)
	data, err := json.Marshal(NewRunRecord(res))
	if err != nil {
		return EntityID{}, fmt.Errorf("marshal run record: %w", err)
	}

	if _, err := s.runs.Create(ctx, id.ID, data); err != nil {
		return EntityID{}, fmt.Errorf("store run: %w", err)
	}

	return id, nil
}

// GetShape retrieves the stored shape for a target class IRI.
func (s *Store) GetShape(ctx context.Context, classIRI string) (*ShapeRecord, error) {
	entry, err := s.shapes.Get(ctx, ShapeEntityKey(classIRI).ID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get shape: %w", err)
	}

	var rec ShapeRecord
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal shape record: %w", err)
	}

	return &rec, nil
}

// ListShapes returns all stored shapes.
func (s *Store) ListShapes(ctx context.Context) ([]*ShapeRecord, error) {
	keys, err := s.shapes.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list shape keys: %w", err)
	}

	records := make([]*ShapeRecord, 0, len(keys))
	for _, key := range keys {
		entry, err := s.shapes.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var rec ShapeRecord
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}

	return records, nil
}

// GetRun retrieves a run record by run ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	entry, err := s.runs.Get(ctx, RunEntityKey(runID).ID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	var rec RunRecord
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal run record: %w", err)
	}

	return &rec, nil
}

// ListRuns returns all stored run records.
func (s *Store) ListRuns(ctx context.Context) ([]*RunRecord, error) {
	keys, err := s.runs.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list run keys: %w", err)
	}

	records := make([]*RunRecord, 0, len(keys))
	for _, key := range keys {
		entry, err := s.runs.Get(ctx, key)
		if err != nil {
			continue
		}
		var rec RunRecord
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}

	return records, nil
}

// RunsByRecency returns run records sorted newest first.
func RunsByRecency(records []*RunRecord) []*RunRecord {
	sorted := make([]*RunRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartedAt.After(sorted[j].StartedAt) })
	return sorted
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
