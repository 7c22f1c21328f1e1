package checklist

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

type Cadence string

const (
	CadenceWeekly   Cadence = "weekly"
	CadenceBiweekly Cadence = "biweekly"
	CadenceOther    Cadence = "other"
	CadenceGeneric  Cadence = "generic"
)

// Templates holds the default item titles per cadence.
type Templates struct {
	Weekly   []string `yaml:"weekly"`
	Biweekly []string `yaml:"biweekly"`
	Other    []string `yaml:"other"`
	Generic  []string `yaml:"generic"`
}

// DefaultTemplates returns the embedded templates.
func DefaultTemplates() Templates {
	var t Templates
	if err := yaml.Unmarshal(defaultTemplatesYAML, &t); err != nil {
		panic(fmt.Sprintf("checklist: embedded templates.yaml: %v", err))
	}
	return t
}

// LoadTemplates reads templates from path. Sections missing from the file keep their
// embedded defaults; an empty path returns the defaults unchanged.
func LoadTemplates(path string) (Templates, error) {
	t := DefaultTemplates()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Templates{}, fmt.Errorf("read checklist templates: %w", err)
	}
	var override Templates
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Templates{}, fmt.Errorf("parse checklist templates %s: %w", path, err)
	}
	if len(override.Weekly) > 0 {
		t.Weekly = override.Weekly
	}
	if len(override.Biweekly) > 0 {
		t.Biweekly = override.Biweekly
	}
	if len(override.Other) > 0 {
		t.Other = override.Other
	}
	if len(override.Generic) > 0 {
		t.Generic = override.Generic
	}
	return t, nil
}

// CadenceFor classifies a free-text service type.
func CadenceFor(serviceType string) Cadence {
	s := strings.ToLower(strings.TrimSpace(serviceType))
	switch {
	case s == "":
		return CadenceGeneric
	case strings.Contains(s, "biweek"), strings.Contains(s, "bi-week"),
		strings.Contains(s, "every 2"), strings.Contains(s, "every two"),
		strings.Contains(s, "every other"), strings.Contains(s, "fortnight"):
		return CadenceBiweekly
	case strings.Contains(s, "week"):
		return CadenceWeekly
	default:
		return CadenceOther
	}
}

func (t Templates) For(c Cadence) []string {
	switch c {
	case CadenceWeekly:
		return t.Weekly
	case CadenceBiweekly:
		return t.Biweekly
	case CadenceOther:
		return t.Other
	default:
		return t.Generic
	}
}
