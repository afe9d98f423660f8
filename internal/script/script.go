package script

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Script is an ordered list of slides plus publishing metadata.
type Script struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Slides      []Slide  `json:"slides" yaml:"slides"`
}

// Load reads a script from path. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON.
func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Script{}, errors.New("script file is empty")
	}
	if isYAML(path) {
		return ParseYAML(data)
	}
	return ParseJSON(data)
}

// ParseJSON decodes a JSON script.
func ParseJSON(data []byte) (Script, error) {
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parse JSON script: %w", err)
	}
	s.normalize()
	return s, nil
}

// ParseYAML decodes a YAML script.
func ParseYAML(data []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parse YAML script: %w", err)
	}
	s.normalize()
	return s, nil
}

// Save writes the script to path using the format implied by its extension.
func (s Script) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(&s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode script: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure script dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	return nil
}

// Validate reports every structural problem in the script. Unknown slide
// kinds are reported as warnings because they render with the fallback
// layout.
func (s Script) Validate() ValidationErrors {
	var errs ValidationErrors
	if len(s.Slides) == 0 {
		errs = append(errs, ValidationError{Slide: -1, Field: "slides", Message: "script has no slides"})
	}
	for i, slide := range s.Slides {
		if strings.TrimSpace(slide.Narration) == "" {
			errs = append(errs, ValidationError{Slide: i, Field: "narration", Message: "is required"})
		}
		if !slide.Kind.Known() {
			errs = append(errs, ValidationError{
				Slide:   i,
				Field:   "type",
				Message: fmt.Sprintf("unknown type %q renders with the fallback layout", slide.Kind),
				Warning: true,
			})
		}
		switch slide.Variant() {
		case VariantMatchup:
			if len(slide.Points) < 2 {
				errs = append(errs, ValidationError{Slide: i, Field: "points", Message: "matchup slides show two sides; fewer than 2 points leaves the boxes empty", Warning: true})
			}
		case VariantMatchupPlayers:
			if len(slide.PlayerImages) < 2 {
				errs = append(errs, ValidationError{Slide: i, Field: "playerImages", Message: "matchup_players slides expect 2 players", Warning: true})
			}
		case VariantOutro, VariantTitle:
		default:
			if strings.TrimSpace(slide.Heading) == "" && strings.TrimSpace(slide.PlayerName) == "" {
				errs = append(errs, ValidationError{Slide: i, Field: "heading", Message: "is empty", Warning: true})
			}
		}
	}
	return errs
}

// PlayerRefs returns every distinct player referenced by the script, keyed by
// id when present and by name otherwise, in first-seen order.
func (s Script) PlayerRefs() []PlayerRef {
	seen := map[string]bool{}
	var out []PlayerRef
	for _, slide := range s.Slides {
		for _, ref := range slide.Players() {
			key := string(ref.MLBID)
			if key == "" {
				key = "name:" + strings.ToLower(strings.TrimSpace(ref.Name))
			}
			if key == "name:" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, ref)
		}
	}
	return out
}

func (s *Script) normalize() {
	for i := range s.Slides {
		s.Slides[i].Kind = Kind(strings.ToLower(strings.TrimSpace(string(s.Slides[i].Kind))))
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
