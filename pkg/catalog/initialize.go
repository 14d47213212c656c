// ABOUTME: Seeds a fresh catalog with units and documents
// ABOUTME: Stops at the first failure and reports which item failed

package catalog

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// Initialize writes seed.Units, each indexed in its given state, and
// then seed.Documents. It stops at the first failure. A unit without a
// state is indexed in StartState.
func (c *Catalog) Initialize(ctx context.Context, seed Initialization) (err error) {
	ctx, done := c.begin(ctx, "Initialize",
		attribute.Int("units", len(seed.Units)),
		attribute.Int("documents", len(seed.Documents)))
	defer done(&err)

	for i, su := range seed.Units {
		state := su.State
		if state == "" {
			state = StartState
		}
		if _, err := c.createUnit(ctx, su.Unit, state); err != nil {
			return fmt.Errorf("initialize unit %d (%s): %w", i, su.Unit.PathString(), err)
		}
	}
	for i, d := range seed.Documents {
		if _, err := c.CreateDocument(ctx, d); err != nil {
			return fmt.Errorf("initialize document %d (%s): %w", i, d.Path, err)
		}
	}
	c.log.Info().Int("units", len(seed.Units)).Int("documents", len(seed.Documents)).Msg("catalog initialized")
	return nil
}
