// Package sfsync pushes converted leads to Salesforce.
package sfsync

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/store"
	"github.com/sells-group/crm-cli/pkg/salesforce"
)

// DefaultCloseWindow is added to today when an opportunity has no close
// date.
const DefaultCloseWindow = 30 * 24 * time.Hour

// ErrNotConverted is returned when pushing a lead that has not been
// converted.
var ErrNotConverted = eris.New("sfsync: lead has not been converted")

// Result holds the Salesforce ids written by a push.
type Result struct {
	LeadID         string `json:"lead_id"`
	AccountID      string `json:"sf_account_id"`
	AccountExisted bool   `json:"account_existed"`
	ContactID      string `json:"sf_contact_id"`
	OpportunityID  string `json:"sf_opportunity_id,omitempty"`
}

// Pusher copies the records a lead converted into to Salesforce.
type Pusher struct {
	store store.Store
	sf    salesforce.Client
	now   func() time.Time
}

// New creates a Pusher.
func New(st store.Store, sf salesforce.Client) *Pusher {
	return &Pusher{store: st, sf: sf, now: time.Now}
}

// Push creates the lead's contact and opportunity in Salesforce under an
// Account with the same name, reusing an existing Account when one
// matches. The Salesforce ids are recorded in an "updated" activity on the
// lead.
func (p *Pusher) Push(ctx context.Context, leadID string) (*Result, error) {
	lead, err := p.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "sfsync: load lead")
	}
	if !lead.IsConverted() || lead.ConvertedAccountID == nil || lead.ConvertedContactID == nil {
		return nil, eris.Wrapf(ErrNotConverted, "sfsync: lead %s", leadID)
	}

	account, err := p.store.GetAccount(ctx, *lead.ConvertedAccountID)
	if err != nil {
		return nil, eris.Wrap(err, "sfsync: load account")
	}
	contact, err := p.store.GetContact(ctx, *lead.ConvertedContactID)
	if err != nil {
		return nil, eris.Wrap(err, "sfsync: load contact")
	}
	var opp *model.Opportunity
	if lead.ConvertedOpportunityID != nil {
		opp, err = p.store.GetOpportunity(ctx, *lead.ConvertedOpportunityID)
		if err != nil {
			return nil, eris.Wrap(err, "sfsync: load opportunity")
		}
	}

	res := &Result{LeadID: lead.ID}

	existing, err := salesforce.FindAccountByName(ctx, p.sf, account.Name)
	if err != nil {
		return nil, eris.Wrap(err, "sfsync: find account")
	}
	if existing != nil {
		res.AccountID, res.AccountExisted = existing.ID, true
		if fields := fillBlanks(existing, account); len(fields) > 0 {
			if err := salesforce.UpdateAccount(ctx, p.sf, existing.ID, fields); err != nil {
				return nil, eris.Wrap(err, "sfsync: update account")
			}
		}
	} else {
		res.AccountID, err = salesforce.CreateAccount(ctx, p.sf, AccountFields(account))
		if err != nil {
			return nil, eris.Wrap(err, "sfsync: create account")
		}
	}

	res.ContactID, err = salesforce.CreateContact(ctx, p.sf, res.AccountID, ContactFields(contact))
	if err != nil {
		return nil, eris.Wrap(err, "sfsync: create contact")
	}

	if opp != nil {
		closeDate := p.now().Add(DefaultCloseWindow)
		if opp.CloseDate != nil {
			closeDate = *opp.CloseDate
		}
		res.OpportunityID, err = salesforce.CreateOpportunity(ctx, p.sf, res.AccountID, closeDate, OpportunityFields(opp))
		if err != nil {
			return nil, eris.Wrap(err, "sfsync: create opportunity")
		}
	}

	if err := p.store.LogActivity(ctx, activity(lead, res)); err != nil {
		return nil, eris.Wrap(err, "sfsync: log activity")
	}

	zap.L().Info("sfsync: lead pushed",
		zap.String("lead_id", lead.ID),
		zap.String("sf_account_id", res.AccountID),
		zap.Bool("account_existed", res.AccountExisted),
		zap.String("sf_contact_id", res.ContactID),
		zap.String("sf_opportunity_id", res.OpportunityID),
	)
	return res, nil
}

func activity(lead *model.Lead, res *Result) *model.Activity {
	desc := "Pushed to Salesforce"
	meta := map[string]any{
		"sf_account_id": res.AccountID,
		"sf_contact_id": res.ContactID,
	}
	if res.OpportunityID != "" {
		meta["sf_opportunity_id"] = res.OpportunityID
	}
	return &model.Activity{
		Type:        model.ActivityUpdated,
		Description: &desc,
		LinkedType:  model.EntityLead,
		LinkedID:    lead.ID,
		Metadata:    meta,
		Owner:       lead.Owner,
	}
}
