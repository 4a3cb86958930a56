package lake

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// QuerySpec is the declarative YAML form of a derivation query, used by
// services that load queries from config and by the tarn CLI:
//
//	stages:
//	  - column: image
//	    filter:
//	      metadata.kind: image
//	  - column: label
//	    derived_from: image
//	    strategy: latest
//	    filter:
//	      metadata.score: {$gte: 0.5}
//	limit: 3
//	transpose: true
type QuerySpec struct {
	Stages    []StageSpecFile `yaml:"stages"`
	Limit     int             `yaml:"limit,omitempty"`
	Transpose bool            `yaml:"transpose,omitempty"`
}

// StageSpecFile is one stage in the YAML form. Filters use the
// document-database map shape accepted by PredicateFromMap.
type StageSpecFile struct {
	Column      string         `yaml:"column"`
	Strategy    string         `yaml:"strategy,omitempty"`
	DerivedFrom string         `yaml:"derived_from,omitempty"`
	Filter      map[string]any `yaml:"filter,omitempty"`
}

// LoadQuerySpec reads and parses a query spec YAML file.
func LoadQuerySpec(path string) (*QuerySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query spec: %w", err)
	}
	var spec QuerySpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse query spec: %w", err)
	}
	return &spec, nil
}

// CompileStages converts the YAML stage list into validated StageSpecs.
// Every configuration problem (bad strategy token, malformed filter,
// dangling derived_from) surfaces here, before any I/O.
func (s *QuerySpec) CompileStages() ([]StageSpec, error) {
	stages := make([]StageSpec, 0, len(s.Stages))
	for i, fs := range s.Stages {
		strat, err := ParseStrategy(fs.Strategy)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, fs.Column, err)
		}

		stage := StageSpec{
			Column:      fs.Column,
			Strategy:    strat,
			DerivedFrom: fs.DerivedFrom,
		}
		if fs.Filter != nil {
			p, err := PredicateFromMap(normalizeYAMLMap(fs.Filter))
			if err != nil {
				return nil, fmt.Errorf("stage %d (%s): %w", i, fs.Column, err)
			}
			stage.Filter = p
		}
		stages = append(stages, stage)
	}

	// Run the engine's own validation now so a bad spec file fails at load
	// time, not at query time.
	if _, err := normalizeStages(stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// normalizeYAMLMap rewrites the map[any]any values yaml.v3 can produce for
// nested mappings into the map[string]any shape predicates expect.
func normalizeYAMLMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeYAMLValue(v)
	}
	return out
}

func normalizeYAMLValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeYAMLMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAMLValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAMLValue(val)
		}
		return out
	default:
		return v
	}
}
