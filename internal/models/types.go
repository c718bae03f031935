package models

const (
	DefaultTitle       = "Untitled API"
	DefaultDescription = "No description available."
)

// Endpoint is one path/method pair of an API document
type Endpoint struct {
	Path       string   `json:"path" description:"Route template as declared in the document"`
	Method     string   `json:"method" description:"Upper-cased HTTP method"`
	Summary    string   `json:"summary" description:"Operation summary"`
	Parameters []string `json:"parameters" description:"Parameter names"`
	Responses  []string `json:"responses" description:"Declared response keys"`
}

// ApiSpec is the normalized summary of one OpenAPI document
type ApiSpec struct {
	Title       string     `json:"title"`
	Version     string     `json:"version"`
	Description string     `json:"description"`
	BaseURLs    []string   `json:"base_urls"`
	Endpoints   []Endpoint `json:"endpoints"`
}

// IndexedDocument is the metadata row stored next to vector i
type IndexedDocument struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Endpoints   []Endpoint `json:"endpoints"`
	Raw         ApiSpec    `json:"raw"`
}

// QueryResult is one ranked, deduplicated API returned to callers
type QueryResult struct {
	Title          string     `json:"title" description:"API title"`
	Description    string     `json:"description" description:"API description"`
	Score          float64    `json:"score" description:"Cosine similarity scaled to 0-100"`
	BaseURLs       []string   `json:"base_urls" description:"Server URLs merged across duplicates"`
	Endpoints      []Endpoint `json:"endpoints" description:"First endpoints of the API"`
	TotalEndpoints int        `json:"total_endpoints" description:"Number of endpoints before truncation"`
}
