package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-openapi/spec"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
	"github.com/rs/zerolog"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyDocument       = errors.New("document is empty")
	ErrNotAnObject         = errors.New("document root must be an object")
)

var httpMethods = map[string]bool{
	"get":     true,
	"put":     true,
	"post":    true,
	"delete":  true,
	"options": true,
	"head":    true,
	"patch":   true,
	"trace":   true,
}

// document holds the top-level keys the extractor reads. Paths stay raw so
// key order can be recovered.
type document struct {
	Swagger  string          `json:"swagger"`
	Info     json.RawMessage `json:"info"`
	Servers  []server        `json:"servers"`
	Host     string          `json:"host"`
	BasePath string          `json:"basePath"`
	Schemes  []string        `json:"schemes"`
	Paths    json.RawMessage `json:"paths"`
}

type server struct {
	URL string `json:"url"`
}

type operation struct {
	Summary    string          `json:"summary"`
	Parameters []parameter     `json:"parameters"`
	Responses  json.RawMessage `json:"responses"`
}

type parameter struct {
	Name string `json:"name"`
}

// FileError records a document that could not be extracted
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

type Parser struct {
	logger *zerolog.Logger
}

func NewParser(logger *zerolog.Logger) *Parser {
	return &Parser{
		logger: logger,
	}
}

// ParseFile reads one OpenAPI or Swagger document (.json, .yaml, .yml)
func (p *Parser) ParseFile(path string) (*models.ApiSpec, error) {
	path = strings.TrimSpace(path)

	ext := strings.ToLower(filepath.Ext(path))
	if !isSupported(ext) {
		return nil, fmt.Errorf("%w %s (expected .json, .yaml or .yml)", ErrUnsupportedFileType, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	if ext != ".json" {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to convert yaml %s: %w", path, err)
		}
	}

	return Parse(data)
}

// ParseDir extracts every supported document directly under dir. A document
// that fails is logged and reported in the returned errors; the rest are
// still extracted. Paths listed in skip are ignored.
func (p *Parser) ParseDir(dir string, skip ...string) ([]models.ApiSpec, []FileError, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		if abs, err := filepath.Abs(s); err == nil {
			skipped[abs] = true
		}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isSupported(strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	specs := []models.ApiSpec{}
	var failures []FileError

	for _, name := range names {
		path := filepath.Join(dir, name)
		if abs, err := filepath.Abs(path); err == nil && skipped[abs] {
			continue
		}

		apiSpec, err := p.ParseFile(path)
		if err != nil {
			p.logger.Error().Err(err).Str("file", name).Msg("Failed to parse API document, skipping")
			failures = append(failures, FileError{Path: path, Err: err})
			continue
		}

		p.logger.Debug().
			Str("file", name).
			Str("title", apiSpec.Title).
			Int("endpoints", len(apiSpec.Endpoints)).
			Msg("API document parsed")

		specs = append(specs, *apiSpec)
	}

	p.logger.Info().
		Int("parsed", len(specs)).
		Int("failed", len(failures)).
		Str("dir", dir).
		Msg("Extraction complete")

	return specs, failures, nil
}

// Parse normalizes a JSON encoded OpenAPI 3 or Swagger 2.0 document
func Parse(data []byte) (*models.ApiSpec, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	if data[0] != '{' {
		return nil, ErrNotAnObject
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}

	apiSpec := &models.ApiSpec{
		BaseURLs:  baseURLs(doc),
		Endpoints: []models.Endpoint{},
	}
	if info := decodeInfo(doc.Info); info != nil {
		apiSpec.Title = info.Title
		apiSpec.Version = info.Version
		apiSpec.Description = info.Description
	}

	endpoints, err := parsePaths(doc.Paths)
	if err != nil {
		return nil, err
	}
	apiSpec.Endpoints = append(apiSpec.Endpoints, endpoints...)

	return apiSpec, nil
}

func parsePaths(raw json.RawMessage) ([]models.Endpoint, error) {
	if isNull(raw) {
		return nil, nil
	}

	paths, err := orderedObject(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid paths: %w", err)
	}

	var endpoints []models.Endpoint
	for _, path := range paths {
		if isNull(path.Value) {
			continue
		}
		methods, err := orderedObject(path.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid path item %s: %w", path.Key, err)
		}

		for _, method := range methods {
			if !httpMethods[strings.ToLower(method.Key)] {
				continue
			}

			endpoint, err := parseOperation(path.Key, method.Key, method.Value)
			if err != nil {
				return nil, err
			}
			endpoints = append(endpoints, endpoint)
		}
	}

	return endpoints, nil
}

func parseOperation(path, method string, raw json.RawMessage) (models.Endpoint, error) {
	endpoint := models.Endpoint{
		Path:       path,
		Method:     strings.ToUpper(method),
		Parameters: []string{},
		Responses:  []string{},
	}
	if isNull(raw) {
		return endpoint, nil
	}

	var op operation
	if err := json.Unmarshal(raw, &op); err != nil {
		return endpoint, fmt.Errorf("invalid operation %s %s: %w", endpoint.Method, path, err)
	}

	endpoint.Summary = op.Summary
	for _, param := range op.Parameters {
		if param.Name == "" {
			continue
		}
		endpoint.Parameters = append(endpoint.Parameters, param.Name)
	}

	if !isNull(op.Responses) {
		responses, err := orderedObject(op.Responses)
		if err != nil {
			return endpoint, fmt.Errorf("invalid responses for %s %s: %w", endpoint.Method, path, err)
		}
		for _, response := range responses {
			endpoint.Responses = append(endpoint.Responses, response.Key)
		}
	}

	return endpoint, nil
}

// decodeInfo reads the info object. Non-string scalars (version: 1.0) keep
// their source text.
func decodeInfo(raw json.RawMessage) *spec.InfoProps {
	if isNull(raw) {
		return nil
	}

	var info spec.Info
	if err := json.Unmarshal(raw, &info); err == nil {
		return &info.InfoProps
	}

	var loose map[string]json.RawMessage
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil
	}

	return &spec.InfoProps{
		Title:       scalarString(loose["title"]),
		Version:     scalarString(loose["version"]),
		Description: scalarString(loose["description"]),
	}
}

func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return ""
		}
		return value
	case '{', '[', 'n':
		return ""
	}

	// numbers and booleans
	return string(raw)
}

func baseURLs(doc document) []string {
	urls := []string{}

	for _, s := range doc.Servers {
		if s.URL != "" {
			urls = append(urls, s.URL)
		}
	}
	if len(urls) > 0 || doc.Swagger == "" {
		return urls
	}

	// Swagger 2.0 has no servers block
	if doc.Host == "" {
		if doc.BasePath != "" {
			urls = append(urls, doc.BasePath)
		}
		return urls
	}

	schemes := doc.Schemes
	if len(schemes) == 0 {
		schemes = []string{"https"}
	}
	for _, scheme := range schemes {
		urls = append(urls, fmt.Sprintf("%s://%s%s", scheme, doc.Host, doc.BasePath))
	}

	return urls
}

func isSupported(ext string) bool {
	return ext == ".json" || ext == ".yaml" || ext == ".yml"
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
