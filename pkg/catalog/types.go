// ABOUTME: Catalog data model: units, documents and the read projections
// ABOUTME: Field names follow the camelCase wire form used by every client

package catalog

import (
	"github.com/nainya/howcatalog/pkg/substrate"
)

// Entry types as stored in the substrate
const (
	EntryTypeUnit     = "unit"
	EntryTypeDocument = "document"
)

// Document types with a conventional meaning. Any other string is
// accepted as well.
const (
	DocTemplate = "_template"
	DocDocument = "_document"
	DocComment  = "_comment"
)

// Process is one (type, name) pair of a unit's process list.
type Process struct {
	_    struct{} `cbor:",toarray"`
	Type string   `json:"type"`
	Name string   `json:"name"`
}

// Unit is a node of the taxonomy. A unit may have several parents.
type Unit struct {
	Parents          []string                     `cbor:"parents" json:"parents"`
	Version          string                       `cbor:"version" json:"version"`
	ShortName        string                       `cbor:"shortName" json:"shortName"`
	PathAbbreviation string                       `cbor:"pathAbbreviation" json:"pathAbbreviation"`
	Stewards         []substrate.AgentKey         `cbor:"stewards" json:"stewards"`
	Processes        []Process                    `cbor:"processes" json:"processes"`
	History          map[string]substrate.Address `cbor:"history" json:"history"`
	Meta             map[string]string            `cbor:"meta" json:"meta"`
}

// TreePaths returns every anchor path the unit is indexed under.
func (u Unit) TreePaths() []substrate.Path {
	return TreePaths(u.Parents, u.PathAbbreviation)
}

// CanonicalPath is the path used for display. With several parents it
// is the one derived from the parent that sorts first; indexing always
// uses all of TreePaths.
func (u Unit) CanonicalPath() substrate.Path {
	paths := u.TreePaths()
	best := 0
	for i := 1; i < len(u.Parents); i++ {
		if u.Parents[i] < u.Parents[best] {
			best = i
		}
	}
	return paths[best]
}

// PathString renders CanonicalPath without the tree root.
func (u Unit) PathString() string {
	return u.CanonicalPath()[1:].String()
}

// Section is one typed content block of a document.
type Section struct {
	Name        string             `cbor:"name" json:"name"`
	SectionType string             `cbor:"sectionType" json:"sectionType"`
	ContentType string             `cbor:"contentType" json:"contentType"`
	SourcePath  string             `cbor:"sourcePath" json:"sourcePath"`
	SourceUnit  *substrate.Address `cbor:"sourceUnit" json:"sourceUnit,omitempty"`
	Content     string             `cbor:"content" json:"content"`
}

// Document is content attached to a unit by reference.
type Document struct {
	UnitHash     substrate.Address    `cbor:"unitHash" json:"unitHash"`
	DocumentType string               `cbor:"documentType" json:"documentType"`
	State        string               `cbor:"state" json:"state"`
	Editors      []substrate.AgentKey `cbor:"editors" json:"editors"`
	Content      []Section            `cbor:"content" json:"content"`
	Meta         map[string]string    `cbor:"meta" json:"meta"`
}

// DocumentInput places a document under a unit path.
type DocumentInput struct {
	Path     string   `json:"path"`
	Document Document `json:"document"`
}

// StatefulUnit is a unit together with the state it is indexed in.
type StatefulUnit struct {
	State string `json:"state"`
	Unit  Unit   `json:"unit"`
}

// Initialization seeds a catalog in one call.
type Initialization struct {
	Units     []StatefulUnit  `json:"units"`
	Documents []DocumentInput `json:"documents"`
}

// UnitOutput is a listed unit with its index state.
type UnitOutput struct {
	Hash    substrate.Address `json:"hash"`
	Unit    Unit              `json:"unit"`
	State   string            `json:"state"`
	Version string            `json:"version"`
	Path    string            `json:"path"`
	Record  *substrate.Record `json:"record"`
}

// DocumentOutput is a listed document.
type DocumentOutput struct {
	Hash     substrate.Address `json:"hash"`
	Document Document          `json:"document"`
	Record   *substrate.Record `json:"record"`
}

// TreeNode is one anchor of the unit tree.
type TreeNode struct {
	Path     string       `json:"path"`
	Segment  string       `json:"segment"`
	Units    []UnitOutput `json:"units"`
	Children []*TreeNode  `json:"children"`
}
