// ABOUTME: Secondary index of tagged links from anchors to entries
// ABOUTME: Removal scans each anchor and filters by target since tags are not tracked

package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/nainya/howcatalog/pkg/substrate"
)

// Tag encodes an index tag.
func Tag(state, version string) string {
	return state + "-" + version
}

// ParseTag splits a tag at its first "-". A tag without a separator is
// all state.
func ParseTag(tag string) (state, version string) {
	state, version, _ = strings.Cut(tag, "-")
	return state, version
}

// CheckState rejects states containing the tag separator. Such a state
// would be split by ParseTag and read back wrong.
func CheckState(state string) error {
	if strings.Contains(state, "-") {
		return fmt.Errorf("%w: %q contains \"-\"", ErrInvalidState, state)
	}
	return nil
}

// IndexEntry is one distinct target seen at an anchor.
type IndexEntry struct {
	Target substrate.Address
	Tag    string
}

// Indexer maintains links of one type between anchors and targets.
type Indexer struct {
	links    LinkStore
	linkType substrate.LinkType
	roots    []substrate.Address
	rec      Recorder
}

// NewIndexer creates an indexer for links of linkType. Deindex always
// scans roots in addition to the anchors it is given.
func NewIndexer(links LinkStore, linkType substrate.LinkType, rec Recorder, roots ...substrate.Address) *Indexer {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Indexer{links: links, linkType: linkType, roots: roots, rec: rec}
}

// Index links anchor to target with the tag "state-version". Each call
// adds a link, even when an identical one exists.
func (ix *Indexer) Index(ctx context.Context, anchor, target substrate.Address, state, version string) error {
	return ix.Link(ctx, anchor, target, Tag(state, version))
}

// Link links anchor to target with a raw tag.
func (ix *Indexer) Link(ctx context.Context, anchor, target substrate.Address, tag string) error {
	if _, err := ix.links.CreateLink(ctx, anchor, target, ix.linkType, []byte(tag)); err != nil {
		return fmt.Errorf("index %s at %s: %w", target, anchor, err)
	}
	ix.rec.LinksCreated(1)
	return nil
}

// Deindex deletes every link to target at the roots and at anchors,
// whatever its tag. The first failed enumeration or deletion aborts the
// call. Deindexing a target without links is a no-op.
func (ix *Indexer) Deindex(ctx context.Context, target substrate.Address, anchors []substrate.Address) error {
	bases := make([]substrate.Address, 0, len(ix.roots)+len(anchors))
	bases = append(bases, ix.roots...)
	bases = append(bases, anchors...)

	seen := make(map[substrate.Address]struct{})
	var handles []substrate.Address
	for _, base := range bases {
		links, err := ix.links.GetLinks(ctx, base, ix.linkType, nil)
		if err != nil {
			return fmt.Errorf("deindex %s: %w", target, err)
		}
		for _, l := range links {
			if l.Target != target {
				continue
			}
			if _, dup := seen[l.Handle]; dup {
				continue
			}
			seen[l.Handle] = struct{}{}
			handles = append(handles, l.Handle)
		}
	}

	for i, h := range handles {
		if err := ix.links.DeleteLink(ctx, h); err != nil {
			ix.rec.LinksDeleted(i)
			return fmt.Errorf("deindex %s: %w", target, err)
		}
	}
	ix.rec.LinksDeleted(len(handles))
	return nil
}

// Targets lists the distinct targets linked from anchor in order of
// first appearance. Each carries the tag of its newest link.
func (ix *Indexer) Targets(ctx context.Context, anchor substrate.Address) ([]IndexEntry, error) {
	links, err := ix.links.GetLinks(ctx, anchor, ix.linkType, nil)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s index at %s: %w", ix.linkType, anchor, err)
	}

	pos := make(map[substrate.Address]int, len(links))
	var entries []IndexEntry
	for _, l := range links {
		if i, ok := pos[l.Target]; ok {
			entries[i].Tag = string(l.Tag)
			continue
		}
		pos[l.Target] = len(entries)
		entries = append(entries, IndexEntry{Target: l.Target, Tag: string(l.Tag)})
	}
	return entries, nil
}
