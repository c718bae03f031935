package middleware

import (
	"errors"
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/discovery"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/llm"
	"github.com/rs/zerolog/log"
)

var ErrMalformedBody = errors.New("request body is not valid JSON")

type ErrorResponse struct {
	Error   string `json:"error" description:"Error message"`
	Code    int    `json:"code" description:"HTTP status code"`
	Details string `json:"details" description:"Additional error details"`
}

// HandleError writes err as an ErrorResponse with the given status
func HandleError(resp *restful.Response, err error, status int) {
	errorResponse := ErrorResponse{
		Error:   http.StatusText(status),
		Code:    status,
		Details: err.Error(),
	}

	if writeErr := resp.WriteHeaderAndEntity(status, errorResponse); writeErr != nil {
		log.Error().Err(writeErr).Msg("Failed to write error response")
	}
}

// StatusFor maps service and provider errors to HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrMalformedBody),
		errors.Is(err, discovery.ErrEmptyQuery),
		errors.Is(err, discovery.ErrInvalidTopK):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrAuthenticationMissing):
		return http.StatusInternalServerError
	case errors.Is(err, llm.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, llm.ErrInvalidResponseShape):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
