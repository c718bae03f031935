package ingestion

import (
	"fmt"
	"strings"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
)

// BuildDocument renders the text that gets embedded for one API: title,
// description, then one "METHOD path - summary" line per endpoint.
func BuildDocument(spec models.ApiSpec) string {
	lines := make([]string, 0, len(spec.Endpoints)+2)
	lines = append(lines, spec.Title, spec.Description)
	for _, e := range spec.Endpoints {
		lines = append(lines, fmt.Sprintf("%s %s - %s", e.Method, e.Path, e.Summary))
	}
	return strings.Join(lines, "\n")
}

// NewIndexedDocument builds the metadata row stored next to vector id
func NewIndexedDocument(id int, spec models.ApiSpec) models.IndexedDocument {
	endpoints := spec.Endpoints
	if endpoints == nil {
		endpoints = []models.Endpoint{}
	}
	return models.IndexedDocument{
		ID:          id,
		Title:       spec.Title,
		Description: spec.Description,
		Endpoints:   endpoints,
		Raw:         spec,
	}
}
