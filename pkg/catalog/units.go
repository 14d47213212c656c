// ABOUTME: Unit operations of the catalog: create, list, read and advance state
// ABOUTME: Units are indexed at the units anchor and at every tree path they derive

package catalog

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nainya/howcatalog/pkg/signal"
	"github.com/nainya/howcatalog/pkg/substrate"
)

// CreateUnit writes u, announces it and indexes it in StartState under
// the units collection and every one of its tree paths. It returns the
// unit's entry address.
//
// Once the entry is written the address is returned even on error: a
// failed notification or indexing step leaves the entry in place and
// only the indexing needs to be retried.
func (c *Catalog) CreateUnit(ctx context.Context, u Unit) (substrate.Address, error) {
	return c.createUnit(ctx, u, StartState)
}

func (c *Catalog) createUnit(ctx context.Context, u Unit, state string) (hash substrate.Address, err error) {
	ctx, done := c.begin(ctx, "CreateUnit", attribute.String("state", state))
	defer done(&err)

	if err := CheckState(state); err != nil {
		return substrate.Address{}, err
	}
	action, err := c.entries.CreateEntry(ctx, EntryTypeUnit, u)
	if err != nil {
		return substrate.Address{}, fmt.Errorf("create unit entry: %w", err)
	}
	hash, err = c.entries.HashEntry(u)
	if err != nil {
		return substrate.Address{}, fmt.Errorf("hash unit entry: %w", err)
	}
	paths := u.TreePaths()

	rec, ok, err := c.entries.Get(ctx, action)
	if err != nil {
		return hash, fmt.Errorf("confirm unit %s: %w", hash, err)
	}
	if !ok {
		return hash, fmt.Errorf("%w: unit %s not readable after write", ErrDocumentNotFound, hash)
	}

	sig := signal.Signal{Hash: hash, Message: signal.Message{Type: signal.NewUnit, Record: rec}}
	if err := c.emitter.Emit(ctx, sig); err != nil {
		return hash, fmt.Errorf("emit %s for %s: %w", signal.NewUnit, hash, err)
	}

	if err := c.CreateUnitLinks(ctx, hash, paths, state, u.Version); err != nil {
		return hash, err
	}
	return hash, nil
}

// CreateUnitLinks indexes hash under the units collection and every
// path with the tag "state-version", ensuring each anchor first.
func (c *Catalog) CreateUnitLinks(ctx context.Context, hash substrate.Address, paths []substrate.Path, state, version string) (err error) {
	ctx, done := c.begin(ctx, "CreateUnitLinks")
	defer done(&err)

	if err := CheckState(state); err != nil {
		return err
	}
	for _, p := range append([]substrate.Path{UnitsAnchor()}, paths...) {
		anchor, err := c.anchors.Ensure(ctx, p)
		if err != nil {
			return err
		}
		if err := c.units.Index(ctx, anchor, hash, state, version); err != nil {
			return err
		}
	}
	return nil
}

// DeleteUnitLinks removes every unit link to hash at the units
// collection and at each of paths, whatever its tag. The entry itself
// stays retrievable by address.
func (c *Catalog) DeleteUnitLinks(ctx context.Context, hash substrate.Address, paths []substrate.Path) (err error) {
	ctx, done := c.begin(ctx, "DeleteUnitLinks")
	defer done(&err)

	return c.units.Deindex(ctx, hash, AddressesOf(paths))
}

// AdvanceState re-indexes the unit at hash under newState. The unit's
// links are removed first and then recreated, so the call can be
// repeated after a partial failure. No transition rules are checked.
func (c *Catalog) AdvanceState(ctx context.Context, hash substrate.Address, newState string) (err error) {
	ctx, done := c.begin(ctx, "AdvanceState", attribute.String("state", newState))
	defer done(&err)

	if err := CheckState(newState); err != nil {
		return err
	}
	u, _, err := c.GetUnit(ctx, hash)
	if err != nil {
		return err
	}
	paths := u.TreePaths()
	if err := c.DeleteUnitLinks(ctx, hash, paths); err != nil {
		return err
	}
	return c.CreateUnitLinks(ctx, hash, paths, newState, u.Version)
}

// GetUnits returns the records of all indexed units in link order.
// Each unit appears once however many links point at it; units that
// cannot be fetched are left out.
func (c *Catalog) GetUnits(ctx context.Context) (recs []*substrate.Record, err error) {
	ctx, done := c.begin(ctx, "GetUnits")
	defer done(&err)

	found, err := c.listUnits(ctx, UnitsAnchor().Address())
	if err != nil {
		return nil, err
	}
	recs = make([]*substrate.Record, len(found))
	for i, r := range found {
		recs[i] = r.Record
	}
	return recs, nil
}

// GetUnitOutputs is GetUnits with each unit decoded and its index state
// attached.
func (c *Catalog) GetUnitOutputs(ctx context.Context) (out []UnitOutput, err error) {
	ctx, done := c.begin(ctx, "GetUnitOutputs")
	defer done(&err)

	return c.unitOutputs(ctx, UnitsAnchor().Address())
}

// GetUnit fetches and decodes the unit at hash.
func (c *Catalog) GetUnit(ctx context.Context, hash substrate.Address) (*Unit, *substrate.Record, error) {
	rec, ok, err := c.entries.Get(ctx, hash)
	if err != nil {
		return nil, nil, fmt.Errorf("get unit %s: %w", hash, err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: unit %s", ErrDocumentNotFound, hash)
	}
	if rec.EntryType != EntryTypeUnit {
		return nil, nil, fmt.Errorf("%w: %s is a %s entry", ErrDocumentNotFound, hash, rec.EntryType)
	}
	var u Unit
	if err := rec.Decode(&u); err != nil {
		return nil, nil, err
	}
	return &u, rec, nil
}

func (c *Catalog) listUnits(ctx context.Context, anchor substrate.Address) ([]resolved, error) {
	entries, err := c.units.Targets(ctx, anchor)
	if err != nil {
		return nil, err
	}
	return c.resolve(ctx, entries)
}

func (c *Catalog) unitOutputs(ctx context.Context, anchor substrate.Address) ([]UnitOutput, error) {
	found, err := c.listUnits(ctx, anchor)
	if err != nil {
		return nil, err
	}
	out := make([]UnitOutput, 0, len(found))
	for _, r := range found {
		if r.Record.EntryType != EntryTypeUnit {
			return nil, fmt.Errorf("unit index at %s links to a %s entry", anchor, r.Record.EntryType)
		}
		var u Unit
		if err := r.Record.Decode(&u); err != nil {
			return nil, err
		}
		state, version := ParseTag(r.Tag)
		out = append(out, UnitOutput{
			Hash:    r.Target,
			Unit:    u,
			State:   state,
			Version: version,
			Path:    u.PathString(),
			Record:  r.Record,
		})
	}
	return out, nil
}
