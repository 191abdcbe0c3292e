package stages

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/crm-cli/internal/model"
)

// File is the on-disk pipeline definition.
type File struct {
	Name      string        `yaml:"name"`
	IsDefault *bool         `yaml:"default"`
	Stages    []model.Stage `yaml:"stages"`
}

// LoadFile reads a pipeline definition from a YAML file.
//
//	pipeline:
//	  name: Sales Pipeline
//	  stages:
//	    - {name: Prospecting, probability: 10}
//	    - {name: Closed Won, probability: 100}
//
// Stages without an explicit order take their position in the list.
func LoadFile(path string) (*model.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "stages: read pipeline %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML pipeline definition.
func Parse(data []byte) (*model.Pipeline, error) {
	var wrapper struct {
		Pipeline File `yaml:"pipeline"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "stages: parse pipeline")
	}

	f := wrapper.Pipeline
	p := &model.Pipeline{
		Name:      strings.TrimSpace(f.Name),
		IsDefault: true,
		Stages:    f.Stages,
	}
	if p.Name == "" {
		p.Name = DefaultName
	}
	if f.IsDefault != nil {
		p.IsDefault = *f.IsDefault
	}
	for i := range p.Stages {
		p.Stages[i].Name = strings.TrimSpace(p.Stages[i].Name)
		if p.Stages[i].Order == 0 {
			p.Stages[i].Order = i + 1
		}
	}
	sort.SliceStable(p.Stages, func(i, j int) bool { return p.Stages[i].Order < p.Stages[j].Order })

	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that p has at least one stage, unique non-empty names and
// probabilities within 0..100.
func Validate(p *model.Pipeline) error {
	if len(p.Stages) == 0 {
		return eris.New("stages: pipeline has no stages")
	}
	seen := make(map[string]bool, len(p.Stages))
	for _, s := range p.Stages {
		if s.Name == "" {
			return eris.New("stages: stage name is required")
		}
		if seen[s.Name] {
			return eris.Errorf("stages: duplicate stage %q", s.Name)
		}
		seen[s.Name] = true
		if s.Probability < 0 || s.Probability > 100 {
			return eris.Errorf("stages: stage %q probability %d out of range 0..100", s.Name, s.Probability)
		}
	}
	return nil
}

// Marshal encodes p in the format Parse reads.
func Marshal(p *model.Pipeline) ([]byte, error) {
	isDefault := p.IsDefault
	out, err := yaml.Marshal(struct {
		Pipeline File `yaml:"pipeline"`
	}{File{Name: p.Name, IsDefault: &isDefault, Stages: Ordered(p)}})
	if err != nil {
		return nil, eris.Wrap(err, "stages: marshal pipeline")
	}
	return out, nil
}
