package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/store"
)

func validateLead(l *model.Lead) error {
	l.FirstName = strings.TrimSpace(l.FirstName)
	if l.FirstName == "" {
		return invalid("first_name is required")
	}
	if l.Status == "" {
		l.Status = model.LeadStatusNew
	}
	if !l.Status.Valid() {
		return invalid("unknown lead status %q", l.Status)
	}
	return nil
}

// CreateLead stores a new lead and logs its creation. Conversion fields
// on the input are ignored.
func (s *Service) CreateLead(ctx context.Context, lead *model.Lead) error {
	if err := validateLead(lead); err != nil {
		return err
	}
	lead.ID = ""
	lead.ConvertedAccountID, lead.ConvertedContactID, lead.ConvertedOpportunityID = nil, nil, nil
	lead.ConvertedAt = nil

	return s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.CreateLead(ctx, lead); err != nil {
			return eris.Wrap(err, "crm: create lead")
		}
		return logCreated(ctx, tx, model.EntityLead, lead.ID, "Created lead "+lead.FullName())
	})
}

// UpdateLead saves an edited lead. A status change is logged as
// status_change, any other edit as updated. The conversion fields are
// never written here.
func (s *Service) UpdateLead(ctx context.Context, lead *model.Lead) error {
	if err := validateLead(lead); err != nil {
		return err
	}

	return s.store.WithTx(ctx, func(tx store.Store) error {
		prev, err := tx.GetLead(ctx, lead.ID)
		if err != nil {
			return eris.Wrap(err, "crm: load lead")
		}
		if err := tx.UpdateLead(ctx, lead); err != nil {
			return eris.Wrap(err, "crm: update lead")
		}
		lead.ConvertedAccountID = prev.ConvertedAccountID
		lead.ConvertedContactID = prev.ConvertedContactID
		lead.ConvertedOpportunityID = prev.ConvertedOpportunityID
		lead.ConvertedAt = prev.ConvertedAt
		lead.CreatedAt = prev.CreatedAt

		a := &model.Activity{
			Type:       model.ActivityUpdated,
			LinkedType: model.EntityLead,
			LinkedID:   lead.ID,
		}
		desc := "Updated lead " + lead.FullName()
		if prev.Status != lead.Status {
			a.Type = model.ActivityStatusChange
			desc = fmt.Sprintf("Changed status from %s to %s", prev.Status, lead.Status)
			a.Metadata = map[string]any{"from": string(prev.Status), "to": string(lead.Status)}
		}
		a.Description = &desc
		return tx.LogActivity(ctx, a)
	})
}

// DeleteLead removes a lead.
func (s *Service) DeleteLead(ctx context.Context, id string) error {
	return s.store.DeleteLead(ctx, id)
}
