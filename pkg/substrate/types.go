// ABOUTME: Substrate data model: records, links, paths and link types
// ABOUTME: Also the sentinel errors shared with the catalog layer

package substrate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nainya/howcatalog/pkg/storage"
)

var (
	// ErrEncoding indicates a payload that cannot be encoded or decoded
	ErrEncoding = errors.New("substrate: encoding failed")

	// ErrAgentTag indicates a malformed agent key reference
	ErrAgentTag = errors.New("substrate: malformed agent key")

	// ErrInvalidAddress indicates a malformed address string
	ErrInvalidAddress = errors.New("substrate: invalid address")

	// ErrEmptyPath indicates an attempt to ensure a path with no components
	ErrEmptyPath = errors.New("substrate: empty path")
)

// LinkType scopes links: enumeration only ever returns links of one type.
type LinkType uint8

const (
	LinkDocument LinkType = iota
	LinkUnit
	LinkTree
)

func (t LinkType) String() string {
	switch t {
	case LinkDocument:
		return "document"
	case LinkUnit:
		return "unit"
	case LinkTree:
		return "tree"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// Record is the materialized form of a created entry.
type Record struct {
	Action    Address   `json:"action"`
	EntryHash Address   `json:"entryHash"`
	EntryType string    `json:"entryType"`
	Author    AgentKey  `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Entry     []byte    `json:"entry"`
}

// Decode unmarshals the entry payload into v.
func (r *Record) Decode(v any) error {
	if err := Unmarshal(r.Entry, v); err != nil {
		return fmt.Errorf("decode %s entry %s: %w", r.EntryType, r.EntryHash, err)
	}
	return nil
}

// Link is one directed, tagged edge as seen by an enumeration.
type Link struct {
	Handle    Address
	Base      Address
	Target    Address
	Type      LinkType
	Tag       []byte
	Author    AgentKey
	Timestamp time.Time
}

// Path is a sequence of components naming a node in the anchor tree.
type Path []string

// NewPath builds a path from components as given.
func NewPath(components ...string) Path {
	return append(Path{}, components...)
}

// PathFromString splits a "."-separated path, dropping empty components.
func PathFromString(s string) Path {
	p := Path{}
	for _, c := range strings.Split(s, ".") {
		if c != "" {
			p = append(p, c)
		}
	}
	return p
}

// String joins the components with ".".
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Append returns a new path with components added; p is not modified.
func (p Path) Append(components ...string) Path {
	out := make(Path, 0, len(p)+len(components))
	out = append(out, p...)
	return append(out, components...)
}

// Leaf returns the last component, or "" for the empty path.
func (p Path) Leaf() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Address is the deterministic address of the path node. It does not
// register the node.
func (p Path) Address() Address {
	vals := make([]storage.Value, len(p))
	for i, c := range p {
		vals[i] = storage.NewStringValue(c)
	}
	return keyedHash(pathDomainKey, storage.EncodeValues(vals))
}
