package xbrl

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Concept is one entry of the concept dictionary.
type Concept struct {
	Name          string         `yaml:"name" json:"name"`
	Tags          []string       `yaml:"tags" json:"tags"`
	Kind          PeriodKind     `yaml:"period" json:"period"`
	SkipUnitCheck bool           `yaml:"skip_unit_check" json:"skip_unit_check,omitempty"`
	AnyScope      bool           `yaml:"any_scope" json:"any_scope,omitempty"`
	Composite     *CompositeSpec `yaml:"composite,omitempty" json:"composite,omitempty"`
}

func (c Concept) query(scope *Scope) Query {
	if c.AnyScope {
		scope = nil
	}
	return Query{Tags: c.Tags, Kind: c.Kind, Scope: scope, CheckUnit: !c.SkipUnitCheck}
}

// LoadConcepts reads a concept dictionary from a YAML file with a top-level
// "concepts" list. Composite concepts without total_tags fall back to tags.
func LoadConcepts(path string) ([]Concept, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xbrl: read concepts %s", path)
	}

	var wrapper struct {
		Concepts []Concept `yaml:"concepts"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "xbrl: parse concepts")
	}

	for i, c := range wrapper.Concepts {
		if c.Composite != nil && len(c.Composite.TotalTags) == 0 {
			c.Composite.TotalTags = c.Tags
		}
		wrapper.Concepts[i] = c
	}

	if err := ValidateConcepts(wrapper.Concepts); err != nil {
		return nil, err
	}
	return wrapper.Concepts, nil
}

// ValidateConcepts checks names are present and unique, period kinds are set
// and every concept has something to look up.
func ValidateConcepts(concepts []Concept) error {
	if len(concepts) == 0 {
		return eris.New("xbrl: concept dictionary is empty")
	}

	var problems []string
	seen := make(map[string]bool, len(concepts))
	for i, c := range concepts {
		name := strings.TrimSpace(c.Name)
		switch {
		case name == "":
			problems = append(problems, eris.Errorf("concept #%d has no name", i+1).Error())
			continue
		case seen[name]:
			problems = append(problems, "duplicate concept "+name)
		}
		seen[name] = true

		if c.Kind != Instant && c.Kind != Duration {
			problems = append(problems, name+": period must be instant or duration")
		}
		if c.Composite == nil && len(c.Tags) == 0 {
			problems = append(problems, name+": no tags")
		}
		for _, t := range c.Tags {
			if strings.TrimSpace(t) == "" {
				problems = append(problems, name+": empty tag")
				break
			}
		}
		if c.Composite != nil && len(c.Composite.TotalTags) == 0 && len(c.Composite.Groups) == 0 {
			problems = append(problems, name+": composite has no total tags or groups")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("xbrl: invalid concepts: %s", strings.Join(problems, "; "))
	}
	return nil
}
