// Package stages holds sales pipeline stage definitions and the rules that
// derive opportunity probability from them.
package stages

import (
	"sort"

	"github.com/sells-group/crm-cli/internal/model"
)

// Closed stage names.
const (
	ClosedWon  = "Closed Won"
	ClosedLost = "Closed Lost"
)

// FallbackStage and FallbackProbability are used when no pipeline defines
// the stage an opportunity starts in.
const (
	FallbackStage       = "Prospecting"
	FallbackProbability = 10
)

// DefaultName is the name of the built-in pipeline.
const DefaultName = "Sales Pipeline"

// Default returns the built-in Salesforce-style pipeline.
func Default() *model.Pipeline {
	return &model.Pipeline{
		Name:      DefaultName,
		IsDefault: true,
		Stages: []model.Stage{
			{Order: 1, Name: "Prospecting", Probability: 10},
			{Order: 2, Name: "Qualification", Probability: 20},
			{Order: 3, Name: "Proposal/Quote", Probability: 50},
			{Order: 4, Name: "Negotiation/Review", Probability: 75},
			{Order: 5, Name: ClosedWon, Probability: 100},
			{Order: 6, Name: ClosedLost, Probability: 0},
		},
	}
}

// Ordered returns the pipeline's stages sorted by order.
func Ordered(p *model.Pipeline) []model.Stage {
	if p == nil {
		return nil
	}
	out := make([]model.Stage, len(p.Stages))
	copy(out, p.Stages)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Initial returns the first stage of p, or the fallback stage when p is nil
// or empty.
func Initial(p *model.Pipeline) model.Stage {
	ordered := Ordered(p)
	if len(ordered) == 0 {
		return model.Stage{Order: 1, Name: FallbackStage, Probability: FallbackProbability}
	}
	return ordered[0]
}

// Lookup finds a stage by name.
func Lookup(p *model.Pipeline, name string) (model.Stage, bool) {
	if p == nil {
		return model.Stage{}, false
	}
	for _, s := range p.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return model.Stage{}, false
}

// Probability returns the probability defined for stage in p. Unknown stages
// get FallbackProbability.
func Probability(p *model.Pipeline, stage string) int {
	if s, ok := Lookup(p, stage); ok {
		return s.Probability
	}
	return FallbackProbability
}

// IsClosed reports whether stage is a terminal stage.
func IsClosed(stage string) bool {
	return stage == ClosedWon || stage == ClosedLost
}

// Names returns the stage names of p in order, falling back to the default
// pipeline when p is nil.
func Names(p *model.Pipeline) []string {
	if p == nil || len(p.Stages) == 0 {
		p = Default()
	}
	ordered := Ordered(p)
	names := make([]string, len(ordered))
	for i, s := range ordered {
		names[i] = s.Name
	}
	return names
}
