package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/stages"
	"github.com/sells-group/crm-cli/internal/store"
)

var amountPrinter = message.NewPrinter(language.English)

// pipelineFor returns the stored default pipeline or the built-in one.
func pipelineFor(ctx context.Context, st store.Store) (*model.Pipeline, error) {
	p, err := loadPipeline(ctx, st)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return stages.Default(), nil
	}
	return p, nil
}

func checkStage(p *model.Pipeline, stage string) error {
	if _, ok := stages.Lookup(p, stage); !ok {
		return invalid("unknown stage %q", stage)
	}
	return nil
}

// markClosed stamps won_at or lost_at when an opportunity moves into a
// closed stage from a different one.
func (s *Service) markClosed(opp *model.Opportunity, from string) {
	if opp.Stage == from {
		return
	}
	now := s.now()
	switch opp.Stage {
	case stages.ClosedWon:
		opp.WonAt = &now
	case stages.ClosedLost:
		opp.LostAt = &now
	}
}

// CreateOpportunity stores a new opportunity in the default pipeline. The
// stage defaults to the pipeline's first stage and the probability is
// taken from the stage definition.
func (s *Service) CreateOpportunity(ctx context.Context, opp *model.Opportunity) error {
	opp.Name = strings.TrimSpace(opp.Name)
	if opp.Name == "" {
		return invalid("name is required")
	}

	return s.store.WithTx(ctx, func(tx store.Store) error {
		p, err := pipelineFor(ctx, tx)
		if err != nil {
			return err
		}
		if opp.Stage == "" {
			opp.Stage = stages.Initial(p).Name
		}
		if err := checkStage(p, opp.Stage); err != nil {
			return err
		}
		opp.Probability = stages.Probability(p, opp.Stage)
		if p.ID != "" {
			opp.PipelineID = &p.ID
		}
		if opp.PrimaryContactID == nil {
			opp.PrimaryContactID = opp.ContactID
		}
		opp.WonAt, opp.LostAt = nil, nil
		s.markClosed(opp, "")

		if err := tx.CreateOpportunity(ctx, opp); err != nil {
			return eris.Wrap(err, "crm: create opportunity")
		}
		return logCreated(ctx, tx, model.EntityOpportunity, opp.ID, "Created opportunity "+opp.Name)
	})
}

// ChangeStage moves an opportunity to stage. The probability follows the
// stage definition. Moving to the current stage is a no-op.
func (s *Service) ChangeStage(ctx context.Context, id, stage string) (*model.Opportunity, error) {
	var opp *model.Opportunity
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		opp, err = tx.GetOpportunity(ctx, id)
		if err != nil {
			return eris.Wrap(err, "crm: load opportunity")
		}
		p, err := pipelineFor(ctx, tx)
		if err != nil {
			return err
		}
		if err := checkStage(p, stage); err != nil {
			return err
		}
		from := opp.Stage
		if from == stage {
			return nil
		}

		opp.Stage = stage
		opp.Probability = stages.Probability(p, stage)
		s.markClosed(opp, from)
		if err := tx.UpdateOpportunity(ctx, opp); err != nil {
			return eris.Wrap(err, "crm: update opportunity")
		}

		desc := fmt.Sprintf("Moved opportunity from %s to %s", from, stage)
		return tx.LogActivity(ctx, &model.Activity{
			Type:        model.ActivityStageChange,
			Description: &desc,
			LinkedType:  model.EntityOpportunity,
			LinkedID:    opp.ID,
			Metadata:    map[string]any{"from": from, "to": stage},
		})
	})
	if err != nil {
		return nil, err
	}
	return opp, nil
}

// UpdateOpportunity saves a full edit of an opportunity. Unlike
// ChangeStage the caller's probability is kept. Changes to name, amount or
// stage are logged.
func (s *Service) UpdateOpportunity(ctx context.Context, opp *model.Opportunity) error {
	opp.Name = strings.TrimSpace(opp.Name)
	if opp.Name == "" {
		return invalid("name is required")
	}
	if opp.Probability < 0 || opp.Probability > 100 {
		return invalid("probability %d out of range 0..100", opp.Probability)
	}

	return s.store.WithTx(ctx, func(tx store.Store) error {
		prev, err := tx.GetOpportunity(ctx, opp.ID)
		if err != nil {
			return eris.Wrap(err, "crm: load opportunity")
		}
		p, err := pipelineFor(ctx, tx)
		if err != nil {
			return err
		}
		if opp.Stage == "" {
			opp.Stage = prev.Stage
		}
		if err := checkStage(p, opp.Stage); err != nil {
			return err
		}
		if opp.PipelineID == nil {
			opp.PipelineID = prev.PipelineID
		}
		opp.WonAt, opp.LostAt = prev.WonAt, prev.LostAt
		opp.CreatedAt = prev.CreatedAt
		s.markClosed(opp, prev.Stage)

		if err := tx.UpdateOpportunity(ctx, opp); err != nil {
			return eris.Wrap(err, "crm: update opportunity")
		}

		changes := opportunityChanges(prev, opp)
		if len(changes) == 0 {
			return nil
		}
		desc := "Updated opportunity: " + strings.Join(changes, ", ")
		return tx.LogActivity(ctx, &model.Activity{
			Type:        model.ActivityUpdated,
			Description: &desc,
			LinkedType:  model.EntityOpportunity,
			LinkedID:    opp.ID,
			Metadata:    map[string]any{"changes": changes},
		})
	})
}

func opportunityChanges(prev, next *model.Opportunity) []string {
	var changes []string
	if prev.Name != next.Name {
		changes = append(changes, fmt.Sprintf(`name to "%s"`, next.Name))
	}
	if prev.AmountOrZero() != next.AmountOrZero() {
		changes = append(changes, amountPrinter.Sprintf("amount to $%v", next.AmountOrZero()))
	}
	if prev.Stage != next.Stage {
		changes = append(changes, fmt.Sprintf("stage from %s to %s", prev.Stage, next.Stage))
	}
	return changes
}

// DeleteOpportunity removes an opportunity.
func (s *Service) DeleteOpportunity(ctx context.Context, id string) error {
	return s.store.DeleteOpportunity(ctx, id)
}
