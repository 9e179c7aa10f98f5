package report

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/interview"
)

func TestParseScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		feedback string
		want     float64
		wantOK   bool
	}{
		{"integer", "Overall Score: 7\nFeedback: good", 7, true},
		{"decimal", "Overall Score: 8.5", 8.5, true},
		{"case and spacing", "overall score :9", 9, true},
		{"inside text", "Here it is.\nOverall Score: 3\n", 3, true},
		{"placeholder", "Overall Score: //Your Score", 0, false},
		{"missing", "Nice interview.", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseScore(tt.feedback)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("ParseScore(%q) = %v, %v; want %v, %v", tt.feedback, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNewSkipsSystemTurns(t *testing.T) {
	t.Parallel()

	s := interview.NewState()
	s.Transcript = []interview.Turn{
		{Role: ai.RoleSystem, Content: "instructions"},
		{Role: ai.RoleUser, Content: "hi"},
		{Role: ai.RoleAssistant, Content: "hello"},
	}
	s.Feedback = "Overall Score: 7\nFeedback: fine"

	r := New(s)

	if r.SessionID != s.ID || len(r.Transcript) != 2 {
		t.Fatalf("unexpected report: %+v", r)
	}
	if r.Score == nil || *r.Score != 7 {
		t.Fatalf("expected score 7, got %v", r.Score)
	}
}

func TestNewWithoutScore(t *testing.T) {
	t.Parallel()

	r := New(interview.NewState())
	if r.Score != nil {
		t.Fatalf("expected no score, got %v", *r.Score)
	}
}

func TestWrite(t *testing.T) {
	t.Parallel()

	s := interview.NewState()
	s.Profile.Name = "Ana"
	s.Transcript = []interview.Turn{{Role: ai.RoleUser, Content: "hi"}}
	s.Feedback = "Overall Score: 7"

	dir := filepath.Join(t.TempDir(), "reports")
	path, err := Write(dir, New(s))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Fatalf("report written to %q, expected dir %q", path, dir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var got Report
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode report: %v", err)
	}

	if got.SessionID != s.ID || got.Profile.Name != "Ana" || got.Score == nil || *got.Score != 7 {
		t.Fatalf("unexpected report: %+v", got)
	}
	if len(got.Transcript) != 1 || got.Transcript[0].Role != ai.RoleUser {
		t.Fatalf("unexpected transcript: %+v", got.Transcript)
	}
}
