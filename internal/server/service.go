// ABOUTME: Service descriptor and client for how.v1.Catalog
// ABOUTME: Handlers decode with the JSON codec into internal/api types
package server

import (
	"context"

	"google.golang.org/grpc"

	"github.com/nainya/howcatalog/internal/api"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "how.v1.Catalog"

// CatalogServer is the server API for how.v1.Catalog. api.Service
// implements it.
type CatalogServer interface {
	CreateUnit(context.Context, *api.CreateUnitRequest) (*api.CreateUnitResponse, error)
	GetUnits(context.Context, *api.GetUnitsRequest) (*api.GetUnitsResponse, error)
	GetUnit(context.Context, *api.GetUnitRequest) (*api.GetUnitResponse, error)
	AdvanceState(context.Context, *api.AdvanceStateRequest) (*api.AdvanceStateResponse, error)
	DeleteUnitLinks(context.Context, *api.DeleteUnitLinksRequest) (*api.DeleteUnitLinksResponse, error)
	CreateDocument(context.Context, *api.CreateDocumentRequest) (*api.CreateDocumentResponse, error)
	GetDocuments(context.Context, *api.GetDocumentsRequest) (*api.GetDocumentsResponse, error)
	GetTree(context.Context, *api.GetTreeRequest) (*api.GetTreeResponse, error)
}

var _ CatalogServer = (*api.Service)(nil)

func unaryHandler[Req, Resp any](method string, call func(CatalogServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CatalogServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CatalogServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CatalogServiceDesc describes how.v1.Catalog for grpc.Server.RegisterService
var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateUnit", Handler: unaryHandler("CreateUnit", CatalogServer.CreateUnit)},
		{MethodName: "GetUnits", Handler: unaryHandler("GetUnits", CatalogServer.GetUnits)},
		{MethodName: "GetUnit", Handler: unaryHandler("GetUnit", CatalogServer.GetUnit)},
		{MethodName: "AdvanceState", Handler: unaryHandler("AdvanceState", CatalogServer.AdvanceState)},
		{MethodName: "DeleteUnitLinks", Handler: unaryHandler("DeleteUnitLinks", CatalogServer.DeleteUnitLinks)},
		{MethodName: "CreateDocument", Handler: unaryHandler("CreateDocument", CatalogServer.CreateDocument)},
		{MethodName: "GetDocuments", Handler: unaryHandler("GetDocuments", CatalogServer.GetDocuments)},
		{MethodName: "GetTree", Handler: unaryHandler("GetTree", CatalogServer.GetTree)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "how/v1/catalog",
}

// RegisterCatalogServer registers srv on s
func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}

// Client calls how.v1.Catalog over a client connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc. Every call is sent with the JSON content-subtype.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUnit(ctx context.Context, in *api.CreateUnitRequest, opts ...grpc.CallOption) (*api.CreateUnitResponse, error) {
	return invoke[api.CreateUnitResponse](ctx, c, "CreateUnit", in, opts)
}

func (c *Client) GetUnits(ctx context.Context, in *api.GetUnitsRequest, opts ...grpc.CallOption) (*api.GetUnitsResponse, error) {
	return invoke[api.GetUnitsResponse](ctx, c, "GetUnits", in, opts)
}

func (c *Client) GetUnit(ctx context.Context, in *api.GetUnitRequest, opts ...grpc.CallOption) (*api.GetUnitResponse, error) {
	return invoke[api.GetUnitResponse](ctx, c, "GetUnit", in, opts)
}

func (c *Client) AdvanceState(ctx context.Context, in *api.AdvanceStateRequest, opts ...grpc.CallOption) (*api.AdvanceStateResponse, error) {
	return invoke[api.AdvanceStateResponse](ctx, c, "AdvanceState", in, opts)
}

func (c *Client) DeleteUnitLinks(ctx context.Context, in *api.DeleteUnitLinksRequest, opts ...grpc.CallOption) (*api.DeleteUnitLinksResponse, error) {
	return invoke[api.DeleteUnitLinksResponse](ctx, c, "DeleteUnitLinks", in, opts)
}

func (c *Client) CreateDocument(ctx context.Context, in *api.CreateDocumentRequest, opts ...grpc.CallOption) (*api.CreateDocumentResponse, error) {
	return invoke[api.CreateDocumentResponse](ctx, c, "CreateDocument", in, opts)
}

func (c *Client) GetDocuments(ctx context.Context, in *api.GetDocumentsRequest, opts ...grpc.CallOption) (*api.GetDocumentsResponse, error) {
	return invoke[api.GetDocumentsResponse](ctx, c, "GetDocuments", in, opts)
}

func (c *Client) GetTree(ctx context.Context, in *api.GetTreeRequest, opts ...grpc.CallOption) (*api.GetTreeResponse, error) {
	return invoke[api.GetTreeResponse](ctx, c, "GetTree", in, opts)
}
