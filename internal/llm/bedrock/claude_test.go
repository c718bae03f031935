package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/povarna/generative-ai-agents/api-discovery/internal/llm"
)

type stubRuntime struct {
	responses [][]byte
	errs      []error
	calls     int
	lastBody  []byte
}

func (s *stubRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	i := s.calls
	s.calls++
	s.lastBody = params.Body

	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	body := s.responses[len(s.responses)-1]
	if i < len(s.responses) {
		body = s.responses[i]
	}
	return &bedrockruntime.InvokeModelOutput{Body: body}, nil
}

func testPolicy() llm.RetryPolicy {
	return llm.RetryPolicy{MaxAttempts: 2, Timeout: time.Second, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

const okBody = `{"content":[{"type":"text","text":"The Orders API is the closest match."}],"stop_reason":"end_turn"}`

func TestNewClient_RequiresModel(t *testing.T) {
	if _, err := NewClient(&stubRuntime{}, "", testPolicy()); err == nil {
		t.Error("expected error for empty model id")
	}
}

func TestClient_InvokeModel(t *testing.T) {
	runtime := &stubRuntime{responses: [][]byte{[]byte(okBody)}}
	client, _ := NewClient(runtime, "anthropic.claude-3-haiku", testPolicy())

	response, err := client.InvokeModel(context.Background(), llm.LLMRequest{Prompt: "orders?", MaxTokens: 300})
	if err != nil {
		t.Fatalf("InvokeModel failed: %v", err)
	}
	if response.Content != "The Orders API is the closest match." {
		t.Errorf("unexpected content %q", response.Content)
	}
	if response.StopReason != "end_turn" {
		t.Errorf("expected end_turn, got %s", response.StopReason)
	}

	var sent claudeMessageRequest
	if err := json.Unmarshal(runtime.lastBody, &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent.AnthropicVersion != anthropicVersion || sent.MaxTokens != 300 {
		t.Errorf("unexpected request %+v", sent)
	}
}

func TestClient_InvokeModel_EmptyContent(t *testing.T) {
	runtime := &stubRuntime{responses: [][]byte{[]byte(`{"content":[],"stop_reason":"end_turn"}`)}}
	client, _ := NewClient(runtime, "model", testPolicy())

	_, err := client.InvokeModel(context.Background(), llm.LLMRequest{Prompt: "hi"})
	if !errors.Is(err, llm.ErrInvalidResponseShape) {
		t.Errorf("expected ErrInvalidResponseShape, got %v", err)
	}
}

func TestClient_InvokeModelWithRetry_Throttled(t *testing.T) {
	throttled := &smithy.GenericAPIError{Code: "ThrottlingException", Message: "Rate exceeded"}
	runtime := &stubRuntime{
		responses: [][]byte{[]byte(okBody)},
		errs:      []error{throttled},
	}
	client, _ := NewClient(runtime, "model", testPolicy())

	if _, err := client.InvokeModelWithRetry(context.Background(), llm.LLMRequest{Prompt: "hi"}); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if runtime.calls != 2 {
		t.Errorf("expected 2 calls, got %d", runtime.calls)
	}
}

func TestClient_AccessDenied(t *testing.T) {
	denied := &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "no access"}
	runtime := &stubRuntime{
		responses: [][]byte{[]byte(okBody)},
		errs:      []error{denied, denied},
	}
	client, _ := NewClient(runtime, "model", testPolicy())

	_, err := client.InvokeModelWithRetry(context.Background(), llm.LLMRequest{Prompt: "hi"})
	if !errors.Is(err, llm.ErrAuthenticationMissing) {
		t.Errorf("expected ErrAuthenticationMissing, got %v", err)
	}
	if runtime.calls != 1 {
		t.Errorf("expected no retry, got %d calls", runtime.calls)
	}
}
