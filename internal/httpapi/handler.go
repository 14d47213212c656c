// ABOUTME: REST transport for the catalog built on chi
// ABOUTME: Routes decode into internal/api requests and call api.Service
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nainya/howcatalog/internal/api"
	"github.com/nainya/howcatalog/internal/logger"
	"github.com/nainya/howcatalog/internal/metrics"
)

// RequestIDHeader carries the request id on every response
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 1 << 20

// Service is the request-level catalog API the handlers call
type Service interface {
	CreateUnit(context.Context, *api.CreateUnitRequest) (*api.CreateUnitResponse, error)
	GetUnits(context.Context, *api.GetUnitsRequest) (*api.GetUnitsResponse, error)
	GetUnit(context.Context, *api.GetUnitRequest) (*api.GetUnitResponse, error)
	AdvanceState(context.Context, *api.AdvanceStateRequest) (*api.AdvanceStateResponse, error)
	DeleteUnitLinks(context.Context, *api.DeleteUnitLinksRequest) (*api.DeleteUnitLinksResponse, error)
	CreateDocument(context.Context, *api.CreateDocumentRequest) (*api.CreateDocumentResponse, error)
	GetDocuments(context.Context, *api.GetDocumentsRequest) (*api.GetDocumentsResponse, error)
	GetTree(context.Context, *api.GetTreeRequest) (*api.GetTreeResponse, error)
}

// Handler serves the catalog over REST
type Handler struct {
	svc     Service
	log     *logger.Logger
	metrics *metrics.Metrics
}

// New creates a Handler. m may be nil.
func New(svc Service, log *logger.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Router returns the routes mounted under /v1
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/units", h.handleCreateUnit)
		r.Get("/units", h.handleGetUnits)
		r.Get("/units/{hash}", h.handleGetUnit)
		r.Post("/units/{hash}/state", h.handleAdvanceState)
		r.Delete("/units/{hash}/links", h.handleDeleteUnitLinks)
		r.Post("/documents", h.handleCreateDocument)
		r.Get("/documents", h.handleGetDocuments)
		r.Get("/tree", h.handleGetTree)
	})
	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// observe logs and measures each request by its route pattern
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		duration := time.Since(start)
		if h.metrics != nil {
			h.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(code), duration)
		}
		h.log.LogHTTPRequest(r.Method, route, code, duration)
	})
}

func (h *Handler) handleCreateUnit(w http.ResponseWriter, r *http.Request) {
	var req api.CreateUnitRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.CreateUnit(r.Context(), &req)
	h.respond(w, http.StatusCreated, resp, err)
}

func (h *Handler) handleGetUnits(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.GetUnits(r.Context(), &api.GetUnitsRequest{})
	h.respond(w, http.StatusOK, resp, err)
}

func (h *Handler) handleGetUnit(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.GetUnit(r.Context(), &api.GetUnitRequest{Hash: chi.URLParam(r, "hash")})
	h.respond(w, http.StatusOK, resp, err)
}

func (h *Handler) handleAdvanceState(w http.ResponseWriter, r *http.Request) {
	var req api.AdvanceStateRequest
	if !decode(w, r, &req) {
		return
	}
	req.Hash = chi.URLParam(r, "hash")
	resp, err := h.svc.AdvanceState(r.Context(), &req)
	h.respond(w, http.StatusOK, resp, err)
}

func (h *Handler) handleDeleteUnitLinks(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.DeleteUnitLinks(r.Context(), &api.DeleteUnitLinksRequest{Hash: chi.URLParam(r, "hash")})
	h.respond(w, http.StatusOK, resp, err)
}

func (h *Handler) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req api.CreateDocumentRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.CreateDocument(r.Context(), &req)
	h.respond(w, http.StatusCreated, resp, err)
}

func (h *Handler) handleGetDocuments(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.GetDocuments(r.Context(), &api.GetDocumentsRequest{Path: r.URL.Query().Get("path")})
	h.respond(w, http.StatusOK, resp, err)
}

func (h *Handler) handleGetTree(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.GetTree(r.Context(), &api.GetTreeRequest{})
	h.respond(w, http.StatusOK, resp, err)
}

// decode reads a JSON body into v, writing a 400 on failure
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{
			Error: fmt.Sprintf("decode body: %v", err),
			Code:  api.KindInvalid.String(),
		})
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, ok int, resp any, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, ok, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := api.Classify(err)
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		h.log.Error("catalog request failed").Err(err).Send()
	}
	body := api.ErrorResponse{Error: err.Error(), Code: kind.String()}
	var partial *api.PartialWriteError
	if errors.As(err, &partial) {
		body.Hash = partial.Hash
	}
	writeJSON(w, code, body)
}

// StatusFor maps an error onto an HTTP status code
func StatusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch api.Classify(err) {
	case api.KindInvalid:
		return http.StatusBadRequest
	case api.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
