// Integration tests for the catalog gRPC server
package server

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/nainya/howcatalog/internal/api"
	"github.com/nainya/howcatalog/internal/logger"
	"github.com/nainya/howcatalog/internal/metrics"
	"github.com/nainya/howcatalog/pkg/catalog"
	"github.com/nainya/howcatalog/pkg/signal"
	"github.com/nainya/howcatalog/pkg/substrate"
)

const bufSize = 1024 * 1024

func setupTestServer(t *testing.T) (*Client, *metrics.Metrics) {
	t.Helper()

	node, err := substrate.Open(substrate.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = node.Close() })

	m := metrics.NewMetrics(prometheus.NewRegistry())
	cat := catalog.New(node, signal.Nop{}, catalog.WithRecorder(m))

	lis := bufconn.Listen(bufSize)
	s := NewGRPCServer(api.NewService(cat, logger.Nop()), m, logger.Nop())
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewClient(conn), m
}

func conductorRequest() *api.CreateUnitRequest {
	return &api.CreateUnitRequest{Unit: api.UnitDTO{
		Version:          "vidx1",
		ShortName:        "Holochain Conductor",
		PathAbbreviation: "conductor",
	}}
}

func TestCreateAndGetUnit(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()

	created, err := client.CreateUnit(ctx, conductorRequest())
	require.NoError(t, err)
	require.NotEmpty(t, created.Hash)

	got, err := client.GetUnit(ctx, &api.GetUnitRequest{Hash: created.Hash})
	require.NoError(t, err)
	assert.Equal(t, created.Hash, got.Unit.Hash)
	assert.Equal(t, "conductor", got.Unit.Path)
	assert.Equal(t, "Holochain Conductor", got.Unit.Unit.ShortName)
	assert.NotEmpty(t, got.Unit.Author)

	list, err := client.GetUnits(ctx, &api.GetUnitsRequest{})
	require.NoError(t, err)
	require.Len(t, list.Units, 1)
	assert.Equal(t, catalog.StartState, list.Units[0].State)
	assert.Equal(t, "vidx1", list.Units[0].Version)
}

func TestAdvanceStateAndDeleteLinks(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()

	created, err := client.CreateUnit(ctx, conductorRequest())
	require.NoError(t, err)

	_, err = client.AdvanceState(ctx, &api.AdvanceStateRequest{Hash: created.Hash, State: catalog.AliveState})
	require.NoError(t, err)

	list, err := client.GetUnits(ctx, &api.GetUnitsRequest{})
	require.NoError(t, err)
	require.Len(t, list.Units, 1)
	assert.Equal(t, catalog.AliveState, list.Units[0].State)

	_, err = client.DeleteUnitLinks(ctx, &api.DeleteUnitLinksRequest{Hash: created.Hash})
	require.NoError(t, err)

	list, err = client.GetUnits(ctx, &api.GetUnitsRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Units)
}

func TestDocumentsAndTree(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()

	unit, err := client.CreateUnit(ctx, conductorRequest())
	require.NoError(t, err)

	doc, err := client.CreateDocument(ctx, &api.CreateDocumentRequest{
		Path: "conductor",
		Document: api.DocumentDTO{
			DocumentType: catalog.DocTemplate,
			Content:      []api.SectionDTO{{Name: "purpose", Content: "runs apps"}},
		},
	})
	require.NoError(t, err)

	docs, err := client.GetDocuments(ctx, &api.GetDocumentsRequest{Path: "conductor"})
	require.NoError(t, err)
	require.Len(t, docs.Documents, 1)
	assert.Equal(t, doc.Hash, docs.Documents[0].Hash)
	assert.Equal(t, unit.Hash, docs.Documents[0].Document.UnitHash)

	tree, err := client.GetTree(ctx, &api.GetTreeRequest{})
	require.NoError(t, err)
	require.Len(t, tree.Root.Children, 1)
	assert.Equal(t, "conductor", tree.Root.Children[0].Segment)
	require.Len(t, tree.Root.Children[0].Units, 1)
	assert.Equal(t, unit.Hash, tree.Root.Children[0].Units[0].Hash)
}

func TestStatusCodes(t *testing.T) {
	client, m := setupTestServer(t)
	ctx := context.Background()

	_, err := client.CreateUnit(ctx, &api.CreateUnitRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GetUnit(ctx, &api.GetUnitRequest{Hash: "garbage"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GetUnit(ctx, &api.GetUnitRequest{Hash: substrate.Address{9}.String()})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetDocuments(ctx, &api.GetDocumentsRequest{Path: "nowhere"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	method := "/" + ServiceName + "/GetUnit"
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GrpcRequestsTotal.WithLabelValues(method, codes.NotFound.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GrpcRequestsTotal.WithLabelValues(method, codes.InvalidArgument.String())))
}

func TestToStatus(t *testing.T) {
	assert.NoError(t, ToStatus(nil))
	assert.Equal(t, codes.Internal, status.Code(ToStatus(errors.New("boom"))))
	assert.Equal(t, codes.Canceled, status.Code(ToStatus(context.Canceled)))
	assert.Equal(t, codes.NotFound, status.Code(ToStatus(catalog.ErrMissingPath)))

	already := status.Error(codes.Unavailable, "busy")
	assert.Equal(t, already, ToStatus(already))

	_, ok := PartialWriteHash(already)
	assert.False(t, ok)
}

func TestToStatusCarriesPartialWriteHash(t *testing.T) {
	hash := substrate.Address{8}.String()
	err := ToStatus(&api.PartialWriteError{Hash: hash, Err: errors.New("index unavailable")})
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), hash)

	got, ok := PartialWriteHash(err)
	require.True(t, ok)
	assert.Equal(t, hash, got)

	_, ok = PartialWriteHash(ToStatus(errors.New("boom")))
	assert.False(t, ok)
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(logger.Nop())
	info := &grpc.UnaryServerInfo{FullMethod: "/" + ServiceName + "/GetTree"}
	_, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("bad")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}
