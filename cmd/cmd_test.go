package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spigell/hh-interviewer/internal/interview"
)

func TestNewClient(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	client, err := newClient(context.Background(), &AIConfig{Provider: "Mock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Provider() != "mock" || client.Model() == "" {
		t.Fatalf("unexpected client: %s/%s", client.Provider(), client.Model())
	}

	if _, err := newClient(context.Background(), &AIConfig{Provider: "claude"}); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported provider error, got %v", err)
	}

	_, err = newClient(context.Background(), &AIConfig{Provider: "openai"})
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected missing key hint, got %v", err)
	}
}

func TestNewClientUsesKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("sk-test\n"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	client, err := newClient(context.Background(), &AIConfig{Provider: "openai", APIKeyFile: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Provider() != "openai" || client.Model() != "gpt-4o" {
		t.Fatalf("unexpected client: %s/%s", client.Provider(), client.Model())
	}
}

func TestReplyValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"ok", "I am Ana", false},
		{"empty", "  ", true},
		{"at limit", strings.Repeat("я", interview.MaxReplyLength), false},
		{"over limit", strings.Repeat("a", interview.MaxReplyLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := reply(tt.text); (err != nil) != tt.wantErr {
				t.Fatalf("reply(%d runes) error = %v, wantErr %v", len([]rune(tt.text)), err, tt.wantErr)
			}
		})
	}
}

func TestMaxRunes(t *testing.T) {
	t.Parallel()

	validate := maxRunes("Name", interview.MaxNameLength)
	if err := validate(strings.Repeat("a", interview.MaxNameLength)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validate(strings.Repeat("a", interview.MaxNameLength+1)); err == nil || !strings.Contains(err.Error(), "name") {
		t.Fatalf("expected length error, got %v", err)
	}
}
