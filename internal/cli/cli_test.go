package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/setup"
	"github.com/rs/zerolog"
)

const paymentsSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "Payments API", "description": "Charge cards and issue refunds"},
  "servers": [{"url": "https://api.pay.example/v1"}],
  "paths": {
    "/charges": {"post": {"summary": "Create a charge"}},
    "/refunds": {"post": {"summary": "Refund a charge"}}
  }
}`

const weatherSpec = `openapi: 3.0.3
info:
  title: Weather API
  description: Daily forecasts and historical weather
paths:
  /forecast:
    get:
      summary: Daily forecast
`

func run(t *testing.T, cfg *setup.Config, args ...string) (string, error) {
	t.Helper()

	logger := zerolog.Nop()
	cmd := NewRootCommand(cfg, &logger)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func testConfig(t *testing.T) *setup.Config {
	t.Helper()
	dir := t.TempDir()

	specs := filepath.Join(dir, "specs")
	if err := os.MkdirAll(specs, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"payments.json": paymentsSpec,
		"weather.yaml":  weatherSpec,
		"broken.json":   `{"openapi": `,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(specs, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	return &setup.Config{
		EmbedProvider:    "hashing",
		SpecsDir:         specs,
		CatalogPath:      filepath.Join(dir, "api_docs_clean.json"),
		IndexDir:         filepath.Join(dir, "faiss_index"),
		VectorBackend:    setup.BackendFlat,
		SearchMultiplier: 3,
	}
}

func TestExtractIndexQuery(t *testing.T) {
	cfg := testConfig(t)

	out, err := run(t, cfg, "extract")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if !strings.Contains(out, "Extracted 2 APIs") {
		t.Errorf("unexpected extract output:\n%s", out)
	}
	if !strings.Contains(out, "broken.json") {
		t.Errorf("expected the broken file to be reported:\n%s", out)
	}

	out, err = run(t, cfg, "index")
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if !strings.Contains(out, "Indexed 2 APIs") {
		t.Errorf("unexpected index output:\n%s", out)
	}
	for _, name := range []string{"api_faiss.index", "metadata.json", "manifest.json"} {
		if _, err := os.Stat(filepath.Join(cfg.IndexDir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	out, err = run(t, cfg, "query", "-q", "refund a card charge", "-k", "1")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !strings.Contains(out, "1. Payments API") {
		t.Errorf("expected Payments API first:\n%s", out)
	}
	if !strings.Contains(out, "endpoints: [POST /charges, POST /refunds]") {
		t.Errorf("expected endpoint listing:\n%s", out)
	}
	if strings.Contains(out, "Weather API") {
		t.Errorf("expected only one result with -k 1:\n%s", out)
	}
}

func TestQuery_Raw(t *testing.T) {
	cfg := testConfig(t)
	if _, err := run(t, cfg, "extract"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, cfg, "index"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, cfg, "query", "--q", "weather forecast", "--raw")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !strings.Contains(out, "1. Weather API (score=0.") {
		t.Errorf("expected raw cosine score for Weather API:\n%s", out)
	}
}

const storageSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "Storage API", "description": "Store objects in buckets"},
  "paths": {
    "/buckets": {"get": {"summary": "List buckets"}},
    "/buckets/{id}": {"delete": {"summary": "Delete a bucket"}},
    "/objects": {"post": {"summary": "Upload an object"}},
    "/objects/{key}": {"get": {"summary": "Download an object"}},
    "/objects/{key}/acl": {"put": {"summary": "Set object permissions"}},
    "/objects/{key}/tags": {"patch": {"summary": "Tag an object"}}
  }
}`

func TestQuery_EndpointListing(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.SpecsDir, "storage.json"), []byte(storageSpec), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, cfg, "extract"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, cfg, "index"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "merged results show three endpoints",
			args: []string{"query", "-q", "store objects in buckets", "-k", "1"},
			want: "endpoints: [GET /buckets, DELETE /buckets/{id}, POST /objects]",
		},
		{
			name: "raw rows show five endpoints",
			args: []string{"query", "-q", "store objects in buckets", "-k", "1", "--raw"},
			want: "endpoints: [GET /buckets, DELETE /buckets/{id}, POST /objects, GET /objects/{key}, PUT /objects/{key}/acl]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, cfg, tt.args...)
			if err != nil {
				t.Fatalf("query failed: %v", err)
			}
			if !strings.Contains(out, "1. Storage API") {
				t.Errorf("expected Storage API first:\n%s", out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected %q in:\n%s", tt.want, out)
			}
		})
	}
}

func TestQuery_RequiresQ(t *testing.T) {
	if _, err := run(t, testConfig(t), "query"); err == nil {
		t.Error("expected error without --q")
	}
}

func TestQuery_MissingIndex(t *testing.T) {
	if _, err := run(t, testConfig(t), "query", "-q", "payments"); err == nil {
		t.Error("expected error before the index is built")
	}
}

func TestIndex_MissingCatalog(t *testing.T) {
	if _, err := run(t, testConfig(t), "index"); err == nil {
		t.Error("expected error without a catalog")
	}
}

func TestTruncateDescription(t *testing.T) {
	long := strings.Repeat("a", 250)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "line one\nline two", "line one line two..."},
		{"empty", "", "..."},
		{"long", long, strings.Repeat("a", 200) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateDescription(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatEndpoints(t *testing.T) {
	endpoints := make([]models.Endpoint, 7)
	for i := range endpoints {
		endpoints[i] = models.Endpoint{Method: "GET", Path: "/r" + string(rune('a'+i))}
	}

	got := formatEndpoints(endpoints)
	if got != "[GET /ra, GET /rb, GET /rc, GET /rd, GET /re]" {
		t.Errorf("unexpected endpoints %s", got)
	}
	if formatEndpoints(nil) != "[]" {
		t.Error("expected empty brackets")
	}
}
