package graph

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "shapes",
		Category:    "shape",
		Version:     "v1",
		Description: "Inferred node shape payload for graph ingestion",
		Factory:     func() any { return &ShapePayload{} },
	})
	if err != nil {
		panic("failed to register ShapePayload: " + err.Error())
	}
}

// ShapeType is the message type for shape payloads.
var ShapeType = message.Type{Domain: "shapes", Category: "shape", Version: "v1"}

// ShapePayload implements message.Payload and graph.Graphable for shape
// ingestion.
type ShapePayload struct {
	ShapeID_   string           `json:"id"`
	RunID      string           `json:"run_id"`
	TripleData []message.Triple `json:"triples"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (s *ShapePayload) EntityID() string          { return s.ShapeID_ }
func (s *ShapePayload) Triples() []message.Triple { return s.TripleData }
func (s *ShapePayload) Schema() message.Type      { return ShapeType }

func (s *ShapePayload) Validate() error {
	if s.ShapeID_ == "" {
		return errors.New("shape ID is required")
	}
	return nil
}

func (s *ShapePayload) MarshalJSON() ([]byte, error) {
	type Alias ShapePayload
	return json.Marshal((*Alias)(s))
}

func (s *ShapePayload) UnmarshalJSON(data []byte) error {
	type Alias ShapePayload
	return json.Unmarshal(data, (*Alias)(s))
}
