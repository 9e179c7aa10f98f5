package gemini

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"sync"
	"testing"

	"google.golang.org/genai"

	"github.com/spigell/hh-interviewer/internal/ai"
)

type fakeModels struct {
	mu     sync.Mutex
	calls  []modelCallRecord
	resp   *genai.GenerateContentResponse
	chunks []*genai.GenerateContentResponse
	err    error
}

type modelCallRecord struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) record(model string, contents []*genai.Content, config *genai.GenerateContentConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, modelCallRecord{model: model, contents: contents, config: config})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.record(model, contents, config)
	return f.resp, f.err
}

func (f *fakeModels) GenerateContentStream(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.record(model, contents, config)
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, chunk := range f.chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: roleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func transcript() []ai.Message {
	return []ai.Message{
		{Role: ai.RoleSystem, Content: "You are an HR executive"},
		{Role: ai.RoleUser, Content: "Hello"},
		{Role: ai.RoleAssistant, Content: "Tell me about yourself"},
		{Role: ai.RoleUser, Content: "I am Ana"},
	}
}

func TestCompleteMovesSystemTurnsToInstruction(t *testing.T) {
	models := &fakeModels{resp: textResponse("  Overall Score: 8 ", "Feedback: good")}
	c := &Client{models: models, model: "gemini-pro"}

	output, err := c.Complete(context.Background(), ai.Request{Messages: transcript()})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "Overall Score: 8 \nFeedback: good" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.calls))
	}

	call := models.calls[0]
	if call.model != "gemini-pro" {
		t.Fatalf("unexpected model: %s", call.model)
	}

	if call.config == nil || call.config.SystemInstruction == nil {
		t.Fatalf("expected system instruction to be set")
	}

	if got := call.config.SystemInstruction.Parts[0].Text; got != "You are an HR executive" {
		t.Fatalf("unexpected system instruction: %q", got)
	}

	if len(call.contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(call.contents))
	}

	wantRoles := []string{roleUser, roleModel, roleUser}
	for i, content := range call.contents {
		if content.Role != wantRoles[i] {
			t.Fatalf("content %d: expected role %s, got %s", i, wantRoles[i], content.Role)
		}
	}
}

func TestCompleteEmptyResponse(t *testing.T) {
	c := &Client{models: &fakeModels{resp: textResponse("   ")}, model: "gemini-pro"}

	_, err := c.Complete(context.Background(), ai.Request{Messages: transcript()})
	if ai.KindOf(err) != ai.KindEmptyResponse {
		t.Fatalf("expected empty response error, got %v", err)
	}
}

func TestCompleteClassifiesAPIErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ai.ErrorKind
	}{
		{"quota", genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}, ai.KindRateLimit},
		{"auth", genai.APIError{Code: http.StatusForbidden, Status: "PERMISSION_DENIED"}, ai.KindAuth},
		{"internal", genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}, ai.KindTransport},
		{"network", errors.New("dial tcp: connection refused"), ai.KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := &Client{models: &fakeModels{err: tt.err}, model: "gemini-pro"}

			_, err := c.Complete(context.Background(), ai.Request{Messages: transcript()})
			if !errors.Is(err, ai.ErrModelRequestFailed) {
				t.Fatalf("expected model request error, got %v", err)
			}
			if got := ai.KindOf(err); got != tt.want {
				t.Fatalf("expected kind %s, got %s", tt.want, got)
			}
		})
	}
}

func TestStreamYieldsChunksInOrder(t *testing.T) {
	models := &fakeModels{chunks: []*genai.GenerateContentResponse{
		textResponse("Tell me "),
		textResponse("about "),
		textResponse("SQL."),
	}}
	c := &Client{models: models, model: "gemini-pro"}

	stream, err := c.Stream(context.Background(), ai.Request{Messages: transcript()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var fragments []string
	text, err := stream.Collect(func(f string) { fragments = append(fragments, f) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text != "Tell me about SQL." {
		t.Fatalf("unexpected text: %q", text)
	}

	if len(fragments) != 3 {
		t.Fatalf("expected 3 fragments, got %d", len(fragments))
	}
}

func TestStreamSurfacesMidStreamError(t *testing.T) {
	models := &fakeModels{
		chunks: []*genai.GenerateContentResponse{textResponse("Tell me ")},
		err:    genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"},
	}
	c := &Client{models: models, model: "gemini-pro"}

	stream, err := c.Stream(context.Background(), ai.Request{Messages: transcript()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, err := stream.Collect(nil)
	if ai.KindOf(err) != ai.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}

	if text != "Tell me " {
		t.Fatalf("unexpected partial text: %q", text)
	}
}

func TestConvertMessagesRejectsSystemOnly(t *testing.T) {
	_, _, err := convertMessages([]ai.Message{{Role: ai.RoleSystem, Content: "only system"}})
	if err == nil {
		t.Fatal("expected error for conversation without user turns")
	}

	if _, _, err := convertMessages(nil); err == nil {
		t.Fatal("expected error for empty conversation")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), "   ", ""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
