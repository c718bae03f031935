package api

import (
	"net/http"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/api/middleware"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.GET("/").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.POST("/query").
			To(handler.Query).
			AllowedMethodsWithoutContentType([]string{http.MethodPost}).
			Doc("Ask whether an API exists for a use case").
			Metadata(restfulspec.KeyOpenAPITags, []string{"discovery"}).
			Reads(QueryRequest{}).
			Writes(QueryResponse{}).
			Returns(200, "OK", QueryResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}).
			Returns(502, "Bad Gateway", middleware.ErrorResponse{}).
			Returns(503, "Service Unavailable", middleware.ErrorResponse{}))

	ws.
		Route(ws.POST("/top_apis").
			To(handler.TopAPIs).
			AllowedMethodsWithoutContentType([]string{http.MethodPost}).
			Doc("Rank indexed APIs by similarity without calling the LLM").
			Metadata(restfulspec.KeyOpenAPITags, []string{"discovery"}).
			Reads(TopAPIsRequest{}).
			Writes(TopAPIsResponse{}).
			Returns(200, "OK", TopAPIsResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	container.Add(ws)
}
