// ABOUTME: Document operations of the catalog
// ABOUTME: Documents are indexed at the tree path of the unit they belong to

package catalog

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nainya/howcatalog/pkg/signal"
	"github.com/nainya/howcatalog/pkg/substrate"
)

// CreateDocument writes in.Document and links it from the tree anchor
// of in.Path, tagged with its document type. The anchor must already
// exist, which it does once a unit has been indexed there. A document
// without a unit hash is attached to the first unit indexed at the
// anchor.
func (c *Catalog) CreateDocument(ctx context.Context, in DocumentInput) (hash substrate.Address, err error) {
	ctx, done := c.begin(ctx, "CreateDocument",
		attribute.String("path", in.Path),
		attribute.String("document_type", in.Document.DocumentType))
	defer done(&err)

	anchorPath := TreePath(in.Path)
	exists, err := c.anchors.Exists(ctx, anchorPath)
	if err != nil {
		return substrate.Address{}, err
	}
	if !exists {
		return substrate.Address{}, fmt.Errorf("%w: %q", ErrMissingPath, in.Path)
	}

	if in.Document.UnitHash.IsZero() {
		owner, err := c.unitAt(ctx, anchorPath)
		if err != nil {
			return substrate.Address{}, err
		}
		in.Document.UnitHash = owner
	}

	action, err := c.entries.CreateEntry(ctx, EntryTypeDocument, in.Document)
	if err != nil {
		return substrate.Address{}, fmt.Errorf("create document entry: %w", err)
	}
	hash, err = c.entries.HashEntry(in.Document)
	if err != nil {
		return substrate.Address{}, fmt.Errorf("hash document entry: %w", err)
	}

	rec, ok, err := c.entries.Get(ctx, action)
	if err != nil {
		return hash, fmt.Errorf("confirm document %s: %w", hash, err)
	}
	if !ok {
		return hash, fmt.Errorf("%w: document %s not readable after write", ErrDocumentNotFound, hash)
	}

	sig := signal.Signal{Hash: hash, Message: signal.Message{Type: signal.NewDocument, Record: rec}}
	if err := c.emitter.Emit(ctx, sig); err != nil {
		return hash, fmt.Errorf("emit %s for %s: %w", signal.NewDocument, hash, err)
	}

	if err := c.documents.Link(ctx, anchorPath.Address(), hash, in.Document.DocumentType); err != nil {
		return hash, err
	}
	return hash, nil
}

// GetDocuments lists the documents linked from the tree anchor of path.
// Documents that cannot be fetched are left out.
func (c *Catalog) GetDocuments(ctx context.Context, path string) (out []DocumentOutput, err error) {
	ctx, done := c.begin(ctx, "GetDocuments", attribute.String("path", path))
	defer done(&err)

	anchorPath := TreePath(path)
	exists, err := c.anchors.Exists(ctx, anchorPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrMissingPath, path)
	}

	entries, err := c.documents.Targets(ctx, anchorPath.Address())
	if err != nil {
		return nil, err
	}
	found, err := c.resolve(ctx, entries)
	if err != nil {
		return nil, err
	}

	out = make([]DocumentOutput, 0, len(found))
	for _, r := range found {
		var d Document
		if err := r.Record.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, DocumentOutput{Hash: r.Target, Document: d, Record: r.Record})
	}
	return out, nil
}

func (c *Catalog) unitAt(ctx context.Context, p substrate.Path) (substrate.Address, error) {
	entries, err := c.units.Targets(ctx, p.Address())
	if err != nil {
		return substrate.Address{}, err
	}
	if len(entries) == 0 {
		return substrate.Address{}, fmt.Errorf("%w: no unit indexed at %q", ErrDocumentNotFound, p[1:].String())
	}
	return entries[0].Target, nil
}
