package crm

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/stages"
	"github.com/sells-group/crm-cli/internal/store"
)

// DefaultPipeline returns the actor's default pipeline, or the built-in
// stages when none has been saved.
func (s *Service) DefaultPipeline(ctx context.Context) (*model.Pipeline, error) {
	p, err := loadPipeline(ctx, s.store)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return stages.Default(), nil
	}
	return p, nil
}

// SavePipeline validates p and stores it as the actor's default pipeline.
func (s *Service) SavePipeline(ctx context.Context, p *model.Pipeline) error {
	if p.Name == "" {
		p.Name = stages.DefaultName
	}
	if err := stages.Validate(p); err != nil {
		return rejected(err)
	}
	p.Stages = stages.Ordered(p)
	p.IsDefault = true
	if err := s.store.SavePipeline(ctx, p); err != nil {
		return eris.Wrap(err, "crm: save pipeline")
	}
	return nil
}

// loadPipeline returns the stored default pipeline, or nil when there is
// none.
func loadPipeline(ctx context.Context, st store.Store) (*model.Pipeline, error) {
	p, err := st.GetDefaultPipeline(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "crm: load pipeline")
	}
	return p, nil
}
