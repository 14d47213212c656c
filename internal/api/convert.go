package api

import (
	"fmt"
	"time"

	"github.com/nainya/howcatalog/pkg/catalog"
	"github.com/nainya/howcatalog/pkg/substrate"
)

// ToUnit converts a validated DTO into a catalog unit
func (d UnitDTO) ToUnit() (catalog.Unit, error) {
	u := catalog.Unit{
		Parents:          d.Parents,
		Version:          d.Version,
		ShortName:        d.ShortName,
		PathAbbreviation: d.PathAbbreviation,
		Meta:             d.Meta,
	}

	stewards, err := parseAgents(d.Stewards)
	if err != nil {
		return catalog.Unit{}, fmt.Errorf("stewards: %w", err)
	}
	u.Stewards = stewards

	if d.Processes != nil {
		u.Processes = make([]catalog.Process, len(d.Processes))
		for i, p := range d.Processes {
			u.Processes[i] = catalog.Process{Type: p.Type, Name: p.Name}
		}
	}

	if d.History != nil {
		u.History = make(map[string]substrate.Address, len(d.History))
		for label, s := range d.History {
			addr, err := substrate.ParseAddress(s)
			if err != nil {
				return catalog.Unit{}, fmt.Errorf("history %q: %w", label, err)
			}
			u.History[label] = addr
		}
	}
	return u, nil
}

// UnitFromCatalog converts a catalog unit into its DTO
func UnitFromCatalog(u catalog.Unit) UnitDTO {
	d := UnitDTO{
		Parents:          u.Parents,
		Version:          u.Version,
		ShortName:        u.ShortName,
		PathAbbreviation: u.PathAbbreviation,
		Stewards:         formatAgents(u.Stewards),
		Meta:             u.Meta,
	}
	if u.Processes != nil {
		d.Processes = make([]ProcessDTO, len(u.Processes))
		for i, p := range u.Processes {
			d.Processes[i] = ProcessDTO{Type: p.Type, Name: p.Name}
		}
	}
	if u.History != nil {
		d.History = make(map[string]string, len(u.History))
		for label, addr := range u.History {
			d.History[label] = addr.String()
		}
	}
	return d
}

// ToDocument converts a validated DTO into a catalog document. An empty
// unit hash is left zero for the catalog to resolve.
func (d DocumentDTO) ToDocument() (catalog.Document, error) {
	doc := catalog.Document{
		DocumentType: d.DocumentType,
		State:        d.State,
		Meta:         d.Meta,
	}
	if d.UnitHash != "" {
		h, err := substrate.ParseAddress(d.UnitHash)
		if err != nil {
			return catalog.Document{}, fmt.Errorf("unitHash: %w", err)
		}
		doc.UnitHash = h
	}

	editors, err := parseAgents(d.Editors)
	if err != nil {
		return catalog.Document{}, fmt.Errorf("editors: %w", err)
	}
	doc.Editors = editors

	if d.Content != nil {
		doc.Content = make([]catalog.Section, len(d.Content))
		for i, s := range d.Content {
			sec := catalog.Section{
				Name:        s.Name,
				SectionType: s.SectionType,
				ContentType: s.ContentType,
				SourcePath:  s.SourcePath,
				Content:     s.Content,
			}
			if s.SourceUnit != "" {
				src, err := substrate.ParseAddress(s.SourceUnit)
				if err != nil {
					return catalog.Document{}, fmt.Errorf("section %q sourceUnit: %w", s.Name, err)
				}
				sec.SourceUnit = &src
			}
			doc.Content[i] = sec
		}
	}
	return doc, nil
}

// DocumentFromCatalog converts a catalog document into its DTO
func DocumentFromCatalog(doc catalog.Document) DocumentDTO {
	d := DocumentDTO{
		UnitHash:     doc.UnitHash.String(),
		DocumentType: doc.DocumentType,
		State:        doc.State,
		Editors:      formatAgents(doc.Editors),
		Meta:         doc.Meta,
	}
	if doc.Content != nil {
		d.Content = make([]SectionDTO, len(doc.Content))
		for i, s := range doc.Content {
			sec := SectionDTO{
				Name:        s.Name,
				SectionType: s.SectionType,
				ContentType: s.ContentType,
				SourcePath:  s.SourcePath,
				Content:     s.Content,
			}
			if s.SourceUnit != nil {
				sec.SourceUnit = s.SourceUnit.String()
			}
			d.Content[i] = sec
		}
	}
	return d
}

// UnitViewFromOutput converts a listed unit
func UnitViewFromOutput(o catalog.UnitOutput) UnitView {
	v := UnitView{
		Hash:    o.Hash.String(),
		Unit:    UnitFromCatalog(o.Unit),
		State:   o.State,
		Version: o.Version,
		Path:    o.Path,
	}
	if o.Record != nil {
		v.Author = o.Record.Author.String()
		v.Timestamp = o.Record.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return v
}

// UnitViewFromRecord converts a directly fetched unit. It carries no
// index state.
func UnitViewFromRecord(u catalog.Unit, rec *substrate.Record) UnitView {
	return UnitViewFromOutput(catalog.UnitOutput{
		Hash:   rec.EntryHash,
		Unit:   u,
		Path:   u.PathString(),
		Record: rec,
	})
}

// DocumentViewFromOutput converts a listed document
func DocumentViewFromOutput(o catalog.DocumentOutput) DocumentView {
	v := DocumentView{
		Hash:     o.Hash.String(),
		Document: DocumentFromCatalog(o.Document),
	}
	if o.Record != nil {
		v.Author = o.Record.Author.String()
		v.Timestamp = o.Record.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return v
}

// TreeViewFromNode converts a tree recursively
func TreeViewFromNode(n *catalog.TreeNode) TreeView {
	v := TreeView{
		Path:     n.Path,
		Segment:  n.Segment,
		Units:    make([]UnitView, len(n.Units)),
		Children: make([]TreeView, len(n.Children)),
	}
	for i, u := range n.Units {
		v.Units[i] = UnitViewFromOutput(u)
	}
	for i, c := range n.Children {
		v.Children[i] = TreeViewFromNode(c)
	}
	return v
}

// ToInitialization validates and converts a seed file
func (f SeedFile) ToInitialization() (catalog.Initialization, error) {
	if err := Validate(f); err != nil {
		return catalog.Initialization{}, err
	}
	var seed catalog.Initialization
	for i, su := range f.Units {
		u, err := su.Unit.ToUnit()
		if err != nil {
			return catalog.Initialization{}, fmt.Errorf("unit %d: %w", i, err)
		}
		seed.Units = append(seed.Units, catalog.StatefulUnit{State: su.State, Unit: u})
	}
	for i, d := range f.Documents {
		doc, err := d.Document.ToDocument()
		if err != nil {
			return catalog.Initialization{}, fmt.Errorf("document %d: %w", i, err)
		}
		seed.Documents = append(seed.Documents, catalog.DocumentInput{Path: d.Path, Document: doc})
	}
	return seed, nil
}

// ParseHash parses an entry address from a request
func ParseHash(s string) (substrate.Address, error) {
	h, err := substrate.ParseAddress(s)
	if err != nil {
		return substrate.Address{}, fmt.Errorf("hash: %w", err)
	}
	return h, nil
}

func parseAgents(keys []string) ([]substrate.AgentKey, error) {
	if keys == nil {
		return nil, nil
	}
	out := make([]substrate.AgentKey, len(keys))
	for i, s := range keys {
		k, err := substrate.ParseAgentKey(s)
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}

func formatAgents(keys []substrate.AgentKey) []string {
	if keys == nil {
		return nil
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
