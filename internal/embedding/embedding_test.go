package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

func TestOllamaEmbedder_EmbedBatch(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		var payload struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload.Model != "all-minilm" {
			t.Errorf("expected model all-minilm, got %s", payload.Model)
		}

		embeddings := make([][]float32, len(payload.Input))
		for i := range payload.Input {
			embeddings[i] = []float32{float32(i + 1), 0, 0}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(OllamaConfig{BaseURL: server.URL, Token: "secret"})

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if vectors[1][0] != 2 {
		t.Errorf("expected order to be preserved, got %v", vectors[1])
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
}

func TestOllamaEmbedder_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(OllamaConfig{BaseURL: server.URL})

	if _, err := embedder.Embed(context.Background(), "hello"); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestOllamaEmbedder_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings": [[0.1, 0.2]]}`))
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(OllamaConfig{BaseURL: server.URL})

	if _, err := embedder.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("expected count mismatch error")
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	embedders := map[string]Embedder{
		"ollama":  NewOllamaEmbedder(OllamaConfig{}),
		"hashing": NewHashingEmbedder(16),
		"bedrock": NewBedrockEmbedder(&stubInvoker{}, "", 0),
	}

	for name, e := range embedders {
		t.Run(name, func(t *testing.T) {
			_, err := e.EmbedBatch(context.Background(), nil)
			if !errors.Is(err, ErrEmptyInput) {
				t.Errorf("expected ErrEmptyInput, got %v", err)
			}
		})
	}
}

func TestHashingEmbedder_Deterministic(t *testing.T) {
	embedder := NewHashingEmbedder(64)

	a, err := embedder.Embed(context.Background(), "Payments API for card charges")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, _ := embedder.Embed(context.Background(), "payments api for CARD charges")

	if len(a) != 64 {
		t.Fatalf("expected dimension 64, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected identical vectors, differ at %d", i)
		}
	}
}

func TestHashingEmbedder_StopwordsOnly(t *testing.T) {
	embedder := NewHashingEmbedder(8)

	v, err := embedder.Embed(context.Background(), "the and of")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	for _, x := range v {
		if x != 0 {
			t.Fatalf("expected zero vector, got %v", v)
		}
	}
}

func TestHashingEmbedder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewHashingEmbedder(8).Embed(ctx, "text"); err == nil {
		t.Error("expected context error")
	}
}

type stubInvoker struct {
	calls  int
	inputs []string
	err    error
}

func (s *stubInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}

	var req titanRequest
	if err := json.Unmarshal(params.Body, &req); err != nil {
		return nil, err
	}
	s.inputs = append(s.inputs, req.InputText)

	body, _ := json.Marshal(titanResponse{
		Embedding:           []float64{float64(len(req.InputText)), 1},
		InputTextTokenCount: 1,
	})
	return &bedrockruntime.InvokeModelOutput{Body: body}, nil
}

func TestBedrockEmbedder_EmbedBatch(t *testing.T) {
	invoker := &stubInvoker{}
	embedder := NewBedrockEmbedder(invoker, "", 0)

	if embedder.ModelID() != DefaultTitanModel {
		t.Errorf("expected default model, got %s", embedder.ModelID())
	}

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"ab", "abcd"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if invoker.calls != 2 {
		t.Errorf("expected one call per text, got %d", invoker.calls)
	}
	if vectors[0][0] != 2 || vectors[1][0] != 4 {
		t.Errorf("unexpected vectors %v", vectors)
	}
}

func TestBedrockEmbedder_InvokeError(t *testing.T) {
	embedder := NewBedrockEmbedder(&stubInvoker{err: errors.New("throttled")}, "", 0)

	if _, err := embedder.Embed(context.Background(), "hello"); err == nil {
		t.Error("expected error from invoke")
	}
}

type countingEmbedder struct {
	*HashingEmbedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.HashingEmbedder.Embed(ctx, text)
}

func TestCachedEmbedder_HitAndEvict(t *testing.T) {
	inner := &countingEmbedder{HashingEmbedder: NewHashingEmbedder(8)}
	cached := NewCachedEmbedder(inner, 2)
	ctx := context.Background()

	_, _ = cached.Embed(ctx, "alpha")
	_, _ = cached.Embed(ctx, "beta")
	_, _ = cached.Embed(ctx, "alpha")

	if inner.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", inner.calls)
	}

	// beta is least recently used and gets evicted
	_, _ = cached.Embed(ctx, "gamma")
	if cached.Len() != 2 {
		t.Errorf("expected 2 cached entries, got %d", cached.Len())
	}

	_, _ = cached.Embed(ctx, "alpha")
	if inner.calls != 3 {
		t.Errorf("expected alpha to stay cached, calls=%d", inner.calls)
	}

	_, _ = cached.Embed(ctx, "beta")
	if inner.calls != 4 {
		t.Errorf("expected beta to be evicted, calls=%d", inner.calls)
	}
}

func TestCachedEmbedder_ReturnsCopy(t *testing.T) {
	cached := NewCachedEmbedder(NewHashingEmbedder(8), 4)
	ctx := context.Background()

	first, _ := cached.Embed(ctx, "orders api")
	for i := range first {
		first[i] = 42
	}

	second, _ := cached.Embed(ctx, "orders api")
	for _, x := range second {
		if x == 42 {
			t.Fatal("cached vector was mutated through a returned slice")
		}
	}
}

func TestRateLimitedEmbedder(t *testing.T) {
	inner := NewHashingEmbedder(8)

	if got := NewRateLimitedEmbedder(inner, 0); got != Embedder(inner) {
		t.Error("expected embedder unchanged for zero limit")
	}

	limited := NewRateLimitedEmbedder(inner, 100)
	if _, err := limited.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := limited.EmbedBatch(ctx, []string{"hello"}); err == nil {
		t.Error("expected error for cancelled context")
	}
}
