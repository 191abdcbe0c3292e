package model

import "time"

// Stage is one step of a sales pipeline.
type Stage struct {
	Order       int    `json:"order" yaml:"order"`
	Name        string `json:"name" yaml:"name"`
	Probability int    `json:"probability" yaml:"probability"`
}

// Pipeline is an ordered list of stages used by opportunities.
type Pipeline struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Stages    []Stage   `json:"stages"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageNames returns the stage names in pipeline order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		names[i] = s.Name
	}
	return names
}
