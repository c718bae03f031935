package mcpadapter

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/discovery"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
)

// Discoverer is the part of discovery.Service the tools need
type Discoverer interface {
	TopAPIs(ctx context.Context, query string, topK int) ([]models.QueryResult, error)
	Answer(ctx context.Context, query string) (string, error)
}

// FindAPIsInput is the MCP tool input schema (matches the /top_apis body).
type FindAPIsInput struct {
	Query string `json:"query" jsonschema:"what the API should do"`
	TopK  *int   `json:"top_k,omitempty" jsonschema:"number of APIs to return (0-50, default: 3)"`
}

type FindAPIsOutput struct {
	Query      string               `json:"query"`
	TopMatches []models.QueryResult `json:"top_matches"`
}

// AskInput is the MCP tool input schema (matches the /query body).
type AskInput struct {
	Query string `json:"query" jsonschema:"question about whether an API already exists"`
}

type AskOutput struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// NewFindAPIsHandler returns a tool handler that ranks indexed APIs.
// Pass the returned function to mcp.AddTool.
func NewFindAPIsHandler(service Discoverer) func(context.Context, *mcp.CallToolRequest, FindAPIsInput) (*mcp.CallToolResult, FindAPIsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input FindAPIsInput) (*mcp.CallToolResult, FindAPIsOutput, error) {
		return FindAPIs(ctx, service, input)
	}
}

func FindAPIs(ctx context.Context, service Discoverer, input FindAPIsInput) (*mcp.CallToolResult, FindAPIsOutput, error) {
	topK := discovery.DefaultTopK
	if input.TopK != nil {
		topK = *input.TopK
	}

	results, err := service.TopAPIs(ctx, input.Query, topK)
	if err != nil {
		return nil, FindAPIsOutput{}, err
	}

	return nil, FindAPIsOutput{Query: input.Query, TopMatches: results}, nil
}

// NewAskHandler returns a tool handler that answers with the LLM.
// Pass the returned function to mcp.AddTool.
func NewAskHandler(service Discoverer) func(context.Context, *mcp.CallToolRequest, AskInput) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
		return Ask(ctx, service, input)
	}
}

func Ask(ctx context.Context, service Discoverer, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := service.Answer(ctx, input.Query)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{Query: input.Query, Response: answer}, nil
}

// NewServer registers find_apis and ask_api_discovery on a new MCP server
func NewServer(service Discoverer, version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "api-discovery",
			Version: version,
		}, nil,
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_apis",
		Description: "Find existing APIs whose purpose matches a query. Returns ranked APIs with scores (0-100), base URLs and example endpoints.",
	}, NewFindAPIsHandler(service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_api_discovery",
		Description: "Ask whether an API for a use case already exists. Returns a markdown answer grounded in the indexed APIs.",
	}, NewAskHandler(service))

	return server
}
