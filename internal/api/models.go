package api

import "github.com/povarna/generative-ai-agents/api-discovery/internal/models"

type QueryRequest struct {
	Query string `json:"query" description:"What the developer wants to do"`
}

type QueryResponse struct {
	Query    string `json:"query" description:"The query as received"`
	Response string `json:"response" description:"Markdown answer from the LLM"`
}

type TopAPIsRequest struct {
	Query string `json:"query" description:"What the developer wants to do"`
	TopK  *int   `json:"top_k,omitempty" description:"Number of APIs to return (default: 3, max: 50)"`
}

type TopAPIsResponse struct {
	Query      string               `json:"query" description:"The query as received"`
	TopMatches []models.QueryResult `json:"top_matches" description:"Ranked APIs, one per title"`
}

type HealthResponse struct {
	Status  string `json:"status" description:"Service status"`
	Message string `json:"message" description:"Human readable status"`
}
