// Package report exports a finished interview to a YAML file.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spigell/hh-interviewer/internal/interview"
)

var scorePattern = regexp.MustCompile(`(?i)overall\s+score\s*:\s*([0-9]+(?:\.[0-9]+)?)`)

type Report struct {
	SessionID   string            `yaml:"session_id"`
	Profile     interview.Profile `yaml:"profile"`
	Transcript  []interview.Turn  `yaml:"transcript"`
	Feedback    string            `yaml:"feedback,omitempty"`
	Score       *float64          `yaml:"score,omitempty"`
	GeneratedAt time.Time         `yaml:"generated_at"`
}

// ParseScore extracts the number after "Overall Score:". The model may skip
// the format, so ok is false when nothing usable is found.
func ParseScore(feedback string) (float64, bool) {
	m := scorePattern.FindStringSubmatch(feedback)
	if m == nil {
		return 0, false
	}

	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return score, true
}

// New builds a report from the session. System turns are left out.
func New(s *interview.State) *Report {
	r := &Report{
		SessionID:   s.ID,
		Profile:     s.Profile,
		Transcript:  s.VisibleTurns(),
		Feedback:    s.Feedback,
		GeneratedAt: time.Now().UTC(),
	}

	if score, ok := ParseScore(s.Feedback); ok {
		r.Score = &score
	}
	return r
}

// Write dumps the report to dir, or to the system temp directory when dir is
// empty, and returns the file name.
func Write(dir string, r *Report) (string, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create report dir: %w", err)
		}
	}

	file, err := os.CreateTemp(dir, "interview_*.yaml")
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer file.Close()

	enc := yaml.NewEncoder(file)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	return filepath.Clean(file.Name()), nil
}
