// Package invoice is the seam to the document rendering collaborator.
// It consumes a finalized order snapshot and never mutates anything.
package invoice

import (
	"encoding/json"
	"fmt"

	"shopfront/internal/model"
)

// Renderer renders an invoice document for an order snapshot.
type Renderer interface {
	Render(order *model.Order) ([]byte, error)
}

// jsonRenderer is the default renderer: a machine-readable snapshot
// the real document pipeline consumes downstream.
type jsonRenderer struct{}

// NewJSONRenderer creates the default renderer.
func NewJSONRenderer() Renderer {
	return jsonRenderer{}
}

// Render serialises the order snapshot.
func (jsonRenderer) Render(order *model.Order) ([]byte, error) {
	data, err := json.MarshalIndent(order, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render invoice: %w", err)
	}
	return data, nil
}
