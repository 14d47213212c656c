package api

import (
	"context"
	"fmt"
	"time"

	"github.com/nainya/howcatalog/internal/logger"
	"github.com/nainya/howcatalog/pkg/catalog"
	"github.com/nainya/howcatalog/pkg/substrate"
)

// Catalog is the part of catalog.Catalog the transports use
type Catalog interface {
	CreateUnit(ctx context.Context, u catalog.Unit) (substrate.Address, error)
	GetUnitOutputs(ctx context.Context) ([]catalog.UnitOutput, error)
	GetUnit(ctx context.Context, hash substrate.Address) (*catalog.Unit, *substrate.Record, error)
	AdvanceState(ctx context.Context, hash substrate.Address, newState string) error
	DeleteUnitLinks(ctx context.Context, hash substrate.Address, paths []substrate.Path) error
	CreateDocument(ctx context.Context, in catalog.DocumentInput) (substrate.Address, error)
	GetDocuments(ctx context.Context, path string) ([]catalog.DocumentOutput, error)
	GetTree(ctx context.Context) (*catalog.TreeNode, error)
}

// PartialWriteError reports an entry that was written but whose
// notification or indexing failed. Hash addresses the entry so that only
// the indexing needs to be retried.
type PartialWriteError struct {
	Hash string
	Err  error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("entry %s written but not indexed: %v", e.Hash, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// partial wraps err in a PartialWriteError when hash addresses a written entry
func partial(hash substrate.Address, err error) error {
	if hash.IsZero() {
		return err
	}
	return &PartialWriteError{Hash: hash.String(), Err: err}
}

// Service validates requests, converts them and calls the catalog
type Service struct {
	cat Catalog
	log *logger.Logger
}

// NewService creates a service over cat. log may be nil.
func NewService(cat Catalog, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{cat: cat, log: log}
}

// logged records one completed call. count reports the number of items
// returned; nil counts a successful call as one.
func (s *Service) logged(op string, start time.Time, count func() int, errp *error) {
	n := 0
	if *errp == nil {
		n = 1
		if count != nil {
			n = count()
		}
	}
	s.log.LogCatalogOperation(op, time.Since(start), n, *errp)
}

func (s *Service) CreateUnit(ctx context.Context, req *CreateUnitRequest) (resp *CreateUnitResponse, err error) {
	defer s.logged("CreateUnit", time.Now(), nil, &err)

	if err := Validate(req); err != nil {
		return nil, err
	}
	u, err := req.Unit.ToUnit()
	if err != nil {
		return nil, err
	}
	hash, err := s.cat.CreateUnit(ctx, u)
	if err != nil {
		return nil, partial(hash, err)
	}
	return &CreateUnitResponse{Hash: hash.String()}, nil
}

func (s *Service) GetUnits(ctx context.Context, _ *GetUnitsRequest) (resp *GetUnitsResponse, err error) {
	defer s.logged("GetUnits", time.Now(), func() int { return len(resp.Units) }, &err)

	out, err := s.cat.GetUnitOutputs(ctx)
	if err != nil {
		return nil, err
	}
	resp = &GetUnitsResponse{Units: make([]UnitView, len(out))}
	for i, o := range out {
		resp.Units[i] = UnitViewFromOutput(o)
	}
	return resp, nil
}

func (s *Service) GetUnit(ctx context.Context, req *GetUnitRequest) (resp *GetUnitResponse, err error) {
	defer s.logged("GetUnit", time.Now(), nil, &err)

	if err := Validate(req); err != nil {
		return nil, err
	}
	hash, err := ParseHash(req.Hash)
	if err != nil {
		return nil, err
	}
	u, rec, err := s.cat.GetUnit(ctx, hash)
	if err != nil {
		return nil, err
	}
	return &GetUnitResponse{Unit: UnitViewFromRecord(*u, rec)}, nil
}

func (s *Service) AdvanceState(ctx context.Context, req *AdvanceStateRequest) (resp *AdvanceStateResponse, err error) {
	defer s.logged("AdvanceState", time.Now(), nil, &err)

	if err := Validate(req); err != nil {
		return nil, err
	}
	hash, err := ParseHash(req.Hash)
	if err != nil {
		return nil, err
	}
	if err := s.cat.AdvanceState(ctx, hash, req.State); err != nil {
		return nil, err
	}
	return &AdvanceStateResponse{}, nil
}

// DeleteUnitLinks unindexes a unit from the units collection and from
// every path derived from its own parents.
func (s *Service) DeleteUnitLinks(ctx context.Context, req *DeleteUnitLinksRequest) (resp *DeleteUnitLinksResponse, err error) {
	defer s.logged("DeleteUnitLinks", time.Now(), nil, &err)

	if err := Validate(req); err != nil {
		return nil, err
	}
	hash, err := ParseHash(req.Hash)
	if err != nil {
		return nil, err
	}
	u, _, err := s.cat.GetUnit(ctx, hash)
	if err != nil {
		return nil, err
	}
	if err := s.cat.DeleteUnitLinks(ctx, hash, u.TreePaths()); err != nil {
		return nil, err
	}
	return &DeleteUnitLinksResponse{}, nil
}

func (s *Service) CreateDocument(ctx context.Context, req *CreateDocumentRequest) (resp *CreateDocumentResponse, err error) {
	defer s.logged("CreateDocument", time.Now(), nil, &err)

	if err := Validate(req); err != nil {
		return nil, err
	}
	doc, err := req.Document.ToDocument()
	if err != nil {
		return nil, err
	}
	hash, err := s.cat.CreateDocument(ctx, catalog.DocumentInput{Path: req.Path, Document: doc})
	if err != nil {
		return nil, partial(hash, err)
	}
	return &CreateDocumentResponse{Hash: hash.String()}, nil
}

func (s *Service) GetDocuments(ctx context.Context, req *GetDocumentsRequest) (resp *GetDocumentsResponse, err error) {
	defer s.logged("GetDocuments", time.Now(), func() int { return len(resp.Documents) }, &err)

	if err := Validate(req); err != nil {
		return nil, err
	}
	out, err := s.cat.GetDocuments(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	resp = &GetDocumentsResponse{Documents: make([]DocumentView, len(out))}
	for i, o := range out {
		resp.Documents[i] = DocumentViewFromOutput(o)
	}
	return resp, nil
}

func (s *Service) GetTree(ctx context.Context, _ *GetTreeRequest) (resp *GetTreeResponse, err error) {
	defer s.logged("GetTree", time.Now(), nil, &err)

	root, err := s.cat.GetTree(ctx)
	if err != nil {
		return nil, err
	}
	return &GetTreeResponse{Root: TreeViewFromNode(root)}, nil
}
