package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/howcatalog/internal/api"
	"github.com/nainya/howcatalog/internal/logger"
	"github.com/nainya/howcatalog/internal/metrics"
	"github.com/nainya/howcatalog/pkg/catalog"
	"github.com/nainya/howcatalog/pkg/signal"
	"github.com/nainya/howcatalog/pkg/substrate"
)

func newTestServer(t *testing.T) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	node, err := substrate.Open(substrate.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = node.Close() })

	m := metrics.NewMetrics(prometheus.NewRegistry())
	svc := api.NewService(catalog.New(node, signal.Nop{}), logger.Nop())
	srv := httptest.NewServer(New(svc, logger.Nop(), m).Router())
	t.Cleanup(srv.Close)
	return srv, m
}

func do(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createConductor(t *testing.T, base string) string {
	t.Helper()
	var created api.CreateUnitResponse
	resp := do(t, http.MethodPost, base+"/v1/units", api.CreateUnitRequest{Unit: api.UnitDTO{
		Version:          "vidx1",
		PathAbbreviation: "conductor",
	}}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, created.Hash)
	return created.Hash
}

func TestUnitLifecycle(t *testing.T) {
	srv, m := newTestServer(t)
	hash := createConductor(t, srv.URL)

	var got api.GetUnitResponse
	resp := do(t, http.MethodGet, srv.URL+"/v1/units/"+hash, nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "conductor", got.Unit.Path)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	resp = do(t, http.MethodPost, srv.URL+"/v1/units/"+hash+"/state", map[string]string{"state": catalog.AliveState}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list api.GetUnitsResponse
	do(t, http.MethodGet, srv.URL+"/v1/units", nil, &list)
	require.Len(t, list.Units, 1)
	assert.Equal(t, catalog.AliveState, list.Units[0].State)

	resp = do(t, http.MethodDelete, srv.URL+"/v1/units/"+hash+"/links", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list = api.GetUnitsResponse{}
	do(t, http.MethodGet, srv.URL+"/v1/units", nil, &list)
	assert.Empty(t, list.Units)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/v1/units/{hash}", "200")))
}

func TestDocumentsAndTree(t *testing.T) {
	srv, _ := newTestServer(t)
	hash := createConductor(t, srv.URL)

	var created api.CreateDocumentResponse
	resp := do(t, http.MethodPost, srv.URL+"/v1/documents", api.CreateDocumentRequest{
		Path:     "conductor",
		Document: api.DocumentDTO{DocumentType: catalog.DocDocument},
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var docs api.GetDocumentsResponse
	resp = do(t, http.MethodGet, srv.URL+"/v1/documents?path=conductor", nil, &docs)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, docs.Documents, 1)
	assert.Equal(t, created.Hash, docs.Documents[0].Hash)
	assert.Equal(t, hash, docs.Documents[0].Document.UnitHash)

	var tree api.GetTreeResponse
	do(t, http.MethodGet, srv.URL+"/v1/tree", nil, &tree)
	require.Len(t, tree.Root.Children, 1)
	assert.Equal(t, "conductor", tree.Root.Children[0].Path)
}

func TestErrorResponses(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"invalid unit", http.MethodPost, "/v1/units", api.CreateUnitRequest{}, http.StatusBadRequest, "invalid_argument"},
		{"unknown field", http.MethodPost, "/v1/units", map[string]int{"bogus": 1}, http.StatusBadRequest, "invalid_argument"},
		{"bad hash", http.MethodGet, "/v1/units/nope", nil, http.StatusBadRequest, "invalid_argument"},
		{"missing unit", http.MethodGet, "/v1/units/" + substrate.Address{7}.String(), nil, http.StatusNotFound, "not_found"},
		{"missing path", http.MethodGet, "/v1/documents?path=nowhere", nil, http.StatusNotFound, "not_found"},
		{"document on missing path", http.MethodPost, "/v1/documents", api.CreateDocumentRequest{
			Path:     "nowhere",
			Document: api.DocumentDTO{DocumentType: catalog.DocDocument},
		}, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body api.ErrorResponse
			resp := do(t, tt.method, srv.URL+tt.path, tt.body, &body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

// partialService fails CreateUnit after the entry was written
type partialService struct {
	Service
	hash string
}

func (s partialService) CreateUnit(context.Context, *api.CreateUnitRequest) (*api.CreateUnitResponse, error) {
	return nil, &api.PartialWriteError{Hash: s.hash, Err: errors.New("index unavailable")}
}

func TestCreateUnitPartialWriteReturnsHash(t *testing.T) {
	hash := substrate.Address{5}.String()
	srv := httptest.NewServer(New(partialService{hash: hash}, logger.Nop(), nil).Router())
	t.Cleanup(srv.Close)

	var body api.ErrorResponse
	resp := do(t, http.MethodPost, srv.URL+"/v1/units", api.CreateUnitRequest{Unit: api.UnitDTO{
		Version:          "vidx1",
		PathAbbreviation: "conductor",
	}}, &body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal", body.Code)
	assert.Equal(t, hash, body.Hash)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
	assert.Equal(t, http.StatusNotFound, StatusFor(catalog.ErrDocumentNotFound))
	assert.Equal(t, http.StatusBadRequest, StatusFor(api.ErrInvalidRequest))
}
