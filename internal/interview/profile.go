package interview

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
)

const (
	MaxNameLength       = 40
	MaxExperienceLength = 200
	MaxSkillsLength     = 200
	MaxReplyLength      = 1000
)

var (
	Levels    = []string{"Junior", "Mid-Level", "Senior"}
	Positions = []string{"Data Scientist", "Data Engineer", "ML Engineer", "BI Analyst", "Financial Analyst"}
	Companies = []string{"Amazon", "Meta", "Udemy", "365 Company", "Nestle", "LinkedIn", "Spotify"}
)

// Profile holds the candidate data the interviewer prompt is built from.
type Profile struct {
	Name       string `mapstructure:"name" json:"name" yaml:"name"`
	Experience string `mapstructure:"experience" json:"experience" yaml:"experience"`
	Skills     string `mapstructure:"skills" json:"skills" yaml:"skills"`
	Level      string `mapstructure:"level" json:"level" yaml:"level"`
	Position   string `mapstructure:"position" json:"position" yaml:"position"`
	Company    string `mapstructure:"company" json:"company" yaml:"company"`
}

func DefaultProfile() Profile {
	return Profile{
		Level:    Levels[0],
		Position: Positions[0],
		Company:  Companies[0],
	}
}

// Validate checks the text length limits and the enumerated choices.
func (p Profile) Validate() error {
	limits := []struct {
		field string
		value string
		limit int
	}{
		{"name", p.Name, MaxNameLength},
		{"experience", p.Experience, MaxExperienceLength},
		{"skills", p.Skills, MaxSkillsLength},
	}
	for _, l := range limits {
		if err := checkLength(l.field, l.value, l.limit); err != nil {
			return err
		}
	}

	choices := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"level", p.Level, Levels},
		{"position", p.Position, Positions},
		{"company", p.Company, Companies},
	}
	for _, c := range choices {
		if !slices.Contains(c.allowed, c.value) {
			return &ValidationError{Field: c.field, Value: c.value, Allowed: c.allowed}
		}
	}

	return nil
}

// DecodeProfile decodes a profile preset (for example the "profile" section
// of the configuration file) on top of the defaults. Unknown keys are rejected.
func DecodeProfile(raw map[string]any) (Profile, error) {
	profile := DefaultProfile()
	if len(raw) == 0 {
		return profile, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &profile,
	})
	if err != nil {
		return profile, fmt.Errorf("create profile decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return profile, fmt.Errorf("decode profile: %w", err)
	}

	if err := profile.Validate(); err != nil {
		return profile, err
	}

	return profile, nil
}

func checkLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return &ValidationError{Field: field, Limit: limit, Value: value}
	}
	return nil
}
