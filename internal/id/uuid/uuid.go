// Package uuid mints the run identifiers stamped on every notification of a
// run. IDs are UUID v7, so consecutive runs sort by start time.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator mints run IDs.
type Generator struct {
	mint func() (uuid.UUID, error)
}

// New returns a Generator backed by uuid.NewV7.
func New() Generator {
	return Generator{mint: uuid.NewV7}
}

// NewID returns a fresh run ID in canonical text form.
func (g Generator) NewID() (string, error) {
	mint := g.mint
	if mint == nil {
		mint = uuid.NewV7
	}
	id, err := mint()
	if err != nil {
		return "", fmt.Errorf("mint run id: %w", err)
	}
	return id.String(), nil
}
