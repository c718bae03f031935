package ingestion

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/embedding"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/retrieval"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/vectorindex"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func testSpecs() []models.ApiSpec {
	return []models.ApiSpec{
		{
			Title:       "Payments API",
			Description: "Charge cards and issue refunds",
			Endpoints: []models.Endpoint{
				{Path: "/charges", Method: "POST", Summary: "Create a charge"},
				{Path: "/refunds", Method: "POST", Summary: "Refund a charge"},
			},
		},
		{
			Title:       "Weather API",
			Description: "Forecasts and historical temperature",
			Endpoints: []models.Endpoint{
				{Path: "/forecast", Method: "GET", Summary: "Daily forecast"},
			},
		},
		{
			Title:       "Shipping API",
			Description: "Track parcels and print labels",
		},
	}
}

func TestBuildDocument(t *testing.T) {
	got := BuildDocument(testSpecs()[0])
	want := "Payments API\nCharge cards and issue refunds\nPOST /charges - Create a charge\nPOST /refunds - Refund a charge"

	if got != want {
		t.Errorf("unexpected document:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildDocument_NoEndpoints(t *testing.T) {
	got := BuildDocument(models.ApiSpec{Title: "Empty"})
	if got != "Empty\n" {
		t.Errorf("expected title and empty description line, got %q", got)
	}
}

func TestPipeline_Build(t *testing.T) {
	pipeline := NewPipeline(embedding.NewHashingEmbedder(256), newTestLogger())

	store, err := pipeline.Build(context.Background(), testSpecs())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if store.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", store.Len())
	}

	for i, doc := range store.Documents() {
		if doc.ID != i {
			t.Errorf("expected id %d, got %d", i, doc.ID)
		}
		if doc.Raw.Title != testSpecs()[i].Title {
			t.Errorf("row %d: expected %s, got %s", i, testSpecs()[i].Title, doc.Raw.Title)
		}
	}

	if store.Documents()[2].Endpoints == nil {
		t.Error("expected empty endpoints slice, got nil")
	}

	for i, v := range store.Vectors() {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if math.Abs(sum-1) > 1e-4 {
			t.Errorf("row %d is not unit length: %f", i, sum)
		}
	}
}

func TestPipeline_SaveLoadQueryOwnDocument(t *testing.T) {
	embedder := embedding.NewHashingEmbedder(1024)
	pipeline := NewPipeline(embedder, newTestLogger())
	ctx := context.Background()

	store, err := pipeline.Build(ctx, testSpecs())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "faiss_index")
	if err := store.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := vectorindex.Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	query, _ := embedder.Embed(ctx, BuildDocument(testSpecs()[1]))
	hits, err := loaded.Search(ctx, vectorindex.NormalizeL2(query), 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if hits[0].Document.Title != "Weather API" {
		t.Fatalf("expected Weather API first, got %s", hits[0].Document.Title)
	}
	if score := math.Round(float64(hits[0].Score)*1000) / 10; score < 90 {
		t.Errorf("expected score >= 90, got %.1f", score)
	}
}

func TestPipeline_TitleQueryRanksOwnAPIFirst(t *testing.T) {
	embedder := embedding.NewHashingEmbedder(1024)
	ctx := context.Background()

	store, err := NewPipeline(embedder, newTestLogger()).Build(ctx, testSpecs())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	engine := retrieval.NewEngine(embedder, store, nil, retrieval.DefaultMultiplier, newTestLogger())

	for _, spec := range testSpecs() {
		t.Run(spec.Title, func(t *testing.T) {
			results, err := engine.TopAPIs(ctx, spec.Title, 3)
			if err != nil {
				t.Fatalf("TopAPIs failed: %v", err)
			}
			if len(results) == 0 {
				t.Fatal("expected results")
			}
			if results[0].Title != spec.Title {
				t.Errorf("expected %s first, got %s", spec.Title, results[0].Title)
			}
			// a bag-of-words embedder only shares the title tokens, so the
			// score stays well below what a sentence embedder reaches
			if results[0].Score <= 0 {
				t.Errorf("expected a positive score, got %.1f", results[0].Score)
			}
		})
	}
}

func TestPipeline_NoSpecs(t *testing.T) {
	pipeline := NewPipeline(embedding.NewHashingEmbedder(8), newTestLogger())

	if _, err := pipeline.Build(context.Background(), nil); !errors.Is(err, ErrNoSpecs) {
		t.Errorf("expected ErrNoSpecs, got %v", err)
	}
}

type shortEmbedder struct {
	*embedding.HashingEmbedder
}

func (s shortEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1, 0}}, nil
}

func TestPipeline_CountMismatch(t *testing.T) {
	pipeline := NewPipeline(shortEmbedder{embedding.NewHashingEmbedder(2)}, newTestLogger())

	_, err := pipeline.Build(context.Background(), testSpecs())
	if !errors.Is(err, vectorindex.ErrCountMismatch) {
		t.Errorf("expected ErrCountMismatch, got %v", err)
	}
}

type ragged struct {
	*embedding.HashingEmbedder
}

func (r ragged) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, 2+i)
		out[i][0] = 1
	}
	return out, nil
}

func TestPipeline_DimensionChange(t *testing.T) {
	pipeline := NewPipeline(ragged{embedding.NewHashingEmbedder(2)}, newTestLogger())

	_, err := pipeline.Build(context.Background(), testSpecs())
	if !errors.Is(err, vectorindex.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

type recordingWriter struct {
	documents []models.IndexedDocument
	vectors   [][]float32
	err       error
}

func (r *recordingWriter) ReplaceDocuments(ctx context.Context, documents []models.IndexedDocument, vectors [][]float32) error {
	r.documents = documents
	r.vectors = vectors
	return r.err
}

func TestPipeline_Sync(t *testing.T) {
	pipeline := NewPipeline(embedding.NewHashingEmbedder(16), newTestLogger())
	store, err := pipeline.Build(context.Background(), testSpecs())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	writer := &recordingWriter{}
	if err := pipeline.Sync(context.Background(), store, writer); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if len(writer.documents) != 3 || len(writer.vectors) != 3 {
		t.Errorf("expected 3 documents and vectors, got %d/%d", len(writer.documents), len(writer.vectors))
	}

	writer.err = errors.New("connection refused")
	if err := pipeline.Sync(context.Background(), store, writer); err == nil {
		t.Error("expected sync error")
	}
}
