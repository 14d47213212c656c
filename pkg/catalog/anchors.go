// ABOUTME: Registry of path nodes that links hang off
// ABOUTME: Ensuring a path twice yields the same address

package catalog

import (
	"context"
	"fmt"

	"github.com/nainya/howcatalog/pkg/substrate"
)

// Anchors registers path nodes so links can hang off them.
type Anchors struct {
	paths PathStore
	rec   Recorder
}

// NewAnchors creates an anchor store over paths.
func NewAnchors(paths PathStore, rec Recorder) *Anchors {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Anchors{paths: paths, rec: rec}
}

// Ensure registers p, its ancestors and the tree links between them,
// and returns the address of p. Repeated calls are harmless.
func (a *Anchors) Ensure(ctx context.Context, p substrate.Path) (substrate.Address, error) {
	if err := a.paths.EnsurePath(ctx, p, substrate.LinkTree); err != nil {
		return substrate.Address{}, fmt.Errorf("ensure anchor %q: %w", p.String(), err)
	}
	a.rec.AnchorEnsured()
	return p.Address(), nil
}

// Exists reports whether p has been ensured, without registering it.
func (a *Anchors) Exists(ctx context.Context, p substrate.Path) (bool, error) {
	ok, err := a.paths.PathExists(ctx, p)
	if err != nil {
		return false, fmt.Errorf("lookup anchor %q: %w", p.String(), err)
	}
	return ok, nil
}

// AddressOf computes the address of p without registering it.
func AddressOf(p substrate.Path) substrate.Address {
	return p.Address()
}

// AddressesOf maps AddressOf over paths.
func AddressesOf(paths []substrate.Path) []substrate.Address {
	out := make([]substrate.Address, len(paths))
	for i, p := range paths {
		out[i] = p.Address()
	}
	return out
}
