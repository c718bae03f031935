package api

import (
	"fmt"
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/api/middleware"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/discovery"
	"github.com/rs/zerolog"
)

type Handler struct {
	service *discovery.Service
	logger  *zerolog.Logger
}

func NewHandler(service *discovery.Service, logger *zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Health handles GET /
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	healthResponse := HealthResponse{
		Status:  "ok",
		Message: "API Discovery RAG backend is running",
	}

	resp.WriteHeaderAndEntity(http.StatusOK, healthResponse)
}

// Query handles POST /query
func (h *Handler) Query(req *restful.Request, resp *restful.Response) {
	var queryRequest QueryRequest
	if err := readJSON(req, &queryRequest); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		middleware.HandleError(resp, fmt.Errorf("%w: %v", middleware.ErrMalformedBody, err), http.StatusBadRequest)
		return
	}

	h.logger.Info().Str("query", queryRequest.Query).Msg("Process Query")

	answer, err := h.service.Answer(req.Request.Context(), queryRequest.Query)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to answer query")
		middleware.HandleError(resp, err, middleware.StatusFor(err))
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, QueryResponse{
		Query:    queryRequest.Query,
		Response: answer,
	})
}

// TopAPIs handles POST /top_apis
func (h *Handler) TopAPIs(req *restful.Request, resp *restful.Response) {
	var topRequest TopAPIsRequest
	if err := readJSON(req, &topRequest); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		middleware.HandleError(resp, fmt.Errorf("%w: %v", middleware.ErrMalformedBody, err), http.StatusBadRequest)
		return
	}

	topK := discovery.DefaultTopK
	if topRequest.TopK != nil {
		topK = *topRequest.TopK
	}

	h.logger.Info().
		Str("query", topRequest.Query).
		Int("top_k", topK).
		Msg("Process Top APIs")

	results, err := h.service.TopAPIs(req.Request.Context(), topRequest.Query, topK)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to retrieve top APIs")
		middleware.HandleError(resp, err, middleware.StatusFor(err))
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, TopAPIsResponse{
		Query:      topRequest.Query,
		TopMatches: results,
	})
}

// readJSON decodes the body as JSON when the client sent no Content-Type
func readJSON(req *restful.Request, entity any) error {
	if req.Request.Header.Get(restful.HEADER_ContentType) == "" {
		req.Request.Header.Set(restful.HEADER_ContentType, restful.MIME_JSON)
	}
	return req.ReadEntity(entity)
}
