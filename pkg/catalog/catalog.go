// ABOUTME: Tree-indexed catalog of units and documents over a content-addressed substrate
// ABOUTME: Writers persist, confirm, notify and index; readers enumerate anchors and batch-fetch

package catalog

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nainya/howcatalog/pkg/signal"
	"github.com/nainya/howcatalog/pkg/substrate"
)

const tracerName = "github.com/nainya/howcatalog/pkg/catalog"

// EntryStore persists and fetches content-addressed entries.
type EntryStore interface {
	HashEntry(v any) (substrate.Address, error)
	CreateEntry(ctx context.Context, entryType string, v any) (substrate.Address, error)
	Get(ctx context.Context, addr substrate.Address) (*substrate.Record, bool, error)
	GetMany(ctx context.Context, addrs []substrate.Address) ([]*substrate.Record, error)
}

// LinkStore creates, deletes and enumerates typed links.
type LinkStore interface {
	CreateLink(ctx context.Context, base, target substrate.Address, linkType substrate.LinkType, tag []byte) (substrate.Address, error)
	DeleteLink(ctx context.Context, handle substrate.Address) error
	GetLinks(ctx context.Context, base substrate.Address, linkType substrate.LinkType, tagPrefix []byte) ([]substrate.Link, error)
}

// PathStore registers path nodes.
type PathStore interface {
	EnsurePath(ctx context.Context, p substrate.Path, linkType substrate.LinkType) error
	PathExists(ctx context.Context, p substrate.Path) (bool, error)
}

// Substrate is everything the catalog needs from storage.
type Substrate interface {
	EntryStore
	LinkStore
	PathStore
}

// Recorder receives catalog measurements.
type Recorder interface {
	RecordCatalogOperation(operation, status string, duration time.Duration)
	LinksCreated(n int)
	LinksDeleted(n int)
	AnchorEnsured()
	UnresolvedDropped(n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordCatalogOperation(string, string, time.Duration) {}
func (nopRecorder) LinksCreated(int)                                      {}
func (nopRecorder) LinksDeleted(int)                                      {}
func (nopRecorder) AnchorEnsured()                                        {}
func (nopRecorder) UnresolvedDropped(int)                                 {}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Catalog) { c.log = log }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(c *Catalog) {
		if rec != nil {
			c.rec = rec
		}
	}
}

// WithTracer sets the tracer. The default comes from the global
// provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Catalog) { c.tracer = t }
}

// Catalog implements unit and document operations.
type Catalog struct {
	entries   EntryStore
	anchors   *Anchors
	units     *Indexer
	documents *Indexer
	trees     LinkStore
	emitter   signal.Emitter

	log    zerolog.Logger
	rec    Recorder
	tracer trace.Tracer
}

// New creates a catalog over sub. Signals go to emitter; a nil emitter
// discards them.
func New(sub Substrate, emitter signal.Emitter, opts ...Option) *Catalog {
	if emitter == nil {
		emitter = signal.Nop{}
	}
	c := &Catalog{
		entries: sub,
		trees:   sub,
		emitter: emitter,
		log:     zerolog.Nop(),
		rec:     nopRecorder{},
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "catalog").Logger()
	c.anchors = NewAnchors(sub, c.rec)
	c.units = NewIndexer(sub, substrate.LinkUnit, c.rec, UnitsAnchor().Address())
	c.documents = NewIndexer(sub, substrate.LinkDocument, c.rec)
	return c
}

// begin opens a span for op and returns a function that ends it and
// records the outcome held in *errp.
func (c *Catalog) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(errp *error)) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "catalog."+op, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		duration := time.Since(start)
		status := "success"
		if err := *errp; err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.log.Warn().Str("operation", op).Dur("duration_ms", duration).Err(err).Msg("catalog operation failed")
		} else {
			c.log.Debug().Str("operation", op).Dur("duration_ms", duration).Msg("catalog operation completed")
		}
		span.End()
		c.rec.RecordCatalogOperation(op, status, duration)
	}
}

// resolved is an index entry with its fetched record.
type resolved struct {
	IndexEntry
	Record *substrate.Record
}

// resolve batch-fetches the targets of entries. Targets that resolve to
// nothing are dropped.
func (c *Catalog) resolve(ctx context.Context, entries []IndexEntry) ([]resolved, error) {
	addrs := make([]substrate.Address, len(entries))
	for i, e := range entries {
		addrs[i] = e.Target
	}
	recs, err := c.entries.GetMany(ctx, addrs)
	if err != nil {
		return nil, err
	}

	out := make([]resolved, 0, len(recs))
	for i, rec := range recs {
		if rec == nil {
			continue
		}
		out = append(out, resolved{IndexEntry: entries[i], Record: rec})
	}
	if dropped := len(entries) - len(out); dropped > 0 {
		c.rec.UnresolvedDropped(dropped)
		c.log.Debug().Int("dropped", dropped).Msg("unresolved index targets skipped")
	}
	return out, nil
}
