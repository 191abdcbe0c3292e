// Package convert promotes a lead into an account, a contact and optionally
// an opportunity.
package convert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/stages"
	"github.com/sells-group/crm-cli/internal/store"
)

// Options controls a conversion.
type Options struct {
	CreateOpportunity bool `json:"create_opportunity"`
}

// Result holds the records written by a conversion.
type Result struct {
	Lead        *model.Lead        `json:"lead"`
	Account     *model.Account     `json:"account"`
	Contact     *model.Contact     `json:"contact"`
	Opportunity *model.Opportunity `json:"opportunity,omitempty"`
}

// Converter runs lead conversions against a store.
type Converter struct {
	store store.Store
	now   func() time.Time
}

// New creates a Converter.
func New(st store.Store) *Converter {
	return &Converter{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// Convert creates an account and a contact from the lead, optionally an
// opportunity, marks the lead Qualified with back-references to the new
// records, and logs a "converted" activity. All writes share one
// transaction: on any failure nothing is written and the lead is unchanged.
//
// Convert does not check whether the lead was converted before. Calling it
// again creates a second account and contact; callers hide the action once
// ConvertedAt is set.
func (c *Converter) Convert(ctx context.Context, leadID string, opts Options) (*Result, error) {
	var res *Result
	err := c.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		res, err = c.convert(ctx, tx, leadID, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("lead_id", leadID),
		zap.String("account_id", res.Account.ID),
		zap.String("contact_id", res.Contact.ID),
	}
	if res.Opportunity != nil {
		fields = append(fields, zap.String("opportunity_id", res.Opportunity.ID))
	}
	zap.L().Info("convert: lead converted", fields...)
	return res, nil
}

func (c *Converter) convert(ctx context.Context, tx store.Store, leadID string, opts Options) (*Result, error) {
	lead, err := tx.GetLead(ctx, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "convert: load lead")
	}

	account := AccountFromLead(lead)
	if err := tx.CreateAccount(ctx, account); err != nil {
		return nil, eris.Wrap(err, "convert: create account")
	}

	contact := ContactFromLead(lead, account.ID)
	if err := tx.CreateContact(ctx, contact); err != nil {
		return nil, eris.Wrap(err, "convert: create contact")
	}

	var opp *model.Opportunity
	if opts.CreateOpportunity {
		pipeline, err := tx.GetDefaultPipeline(ctx)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, eris.Wrap(err, "convert: load pipeline")
		}
		opp = OpportunityFromLead(lead, account, contact, pipeline)
		if err := tx.CreateOpportunity(ctx, opp); err != nil {
			return nil, eris.Wrap(err, "convert: create opportunity")
		}
	}

	conv := model.Conversion{
		AccountID:   account.ID,
		ContactID:   contact.ID,
		ConvertedAt: c.now(),
	}
	if opp != nil {
		conv.OpportunityID = &opp.ID
	}
	if err := tx.MarkLeadConverted(ctx, lead.ID, conv); err != nil {
		return nil, eris.Wrap(err, "convert: update lead")
	}
	lead.Status = model.LeadStatusQualified
	lead.ConvertedAccountID = &conv.AccountID
	lead.ConvertedContactID = &conv.ContactID
	lead.ConvertedOpportunityID = conv.OpportunityID
	lead.ConvertedAt = &conv.ConvertedAt

	if err := tx.LogActivity(ctx, activity(lead, account, contact, opp)); err != nil {
		return nil, eris.Wrap(err, "convert: log activity")
	}

	return &Result{Lead: lead, Account: account, Contact: contact, Opportunity: opp}, nil
}

// AccountFromLead builds the account a lead converts into. The name is the
// company name, else the lead's full name.
func AccountFromLead(lead *model.Lead) *model.Account {
	name := model.Deref(lead.CompanyName)
	if name == "" {
		name = lead.FullName()
	}
	return &model.Account{
		Name:     name,
		Industry: lead.Industry,
		Size:     lead.CompanySize,
		Region:   lead.Region,
		Type:     model.AccountTypeProspect,
		Stage:    model.AccountStageProspecting,
		Owner:    lead.Owner,
	}
}

// ContactFromLead builds the contact a lead converts into.
func ContactFromLead(lead *model.Lead, accountID string) *model.Contact {
	return &model.Contact{
		FirstName:   lead.FirstName,
		LastName:    lead.LastName,
		Email:       lead.Email,
		Phone:       lead.Phone,
		Title:       lead.Title,
		Source:      lead.Source,
		LinkedInURL: lead.LinkedInURL,
		AccountID:   &accountID,
		Status:      model.ContactStatusProspect,
		Owner:       lead.Owner,
	}
}

// OpportunityFromLead builds the opportunity created on request. It starts
// in the first stage of pipeline, or Prospecting/10 when pipeline is nil.
func OpportunityFromLead(lead *model.Lead, account *model.Account, contact *model.Contact, pipeline *model.Pipeline) *model.Opportunity {
	stage := stages.Initial(pipeline)
	oppType := model.OpportunityTypeNewBusiness
	opp := &model.Opportunity{
		Name:             "Opportunity - " + account.Name,
		Currency:         model.DefaultCurrency,
		Stage:            stage.Name,
		Probability:      stage.Probability,
		AccountID:        &account.ID,
		ContactID:        &contact.ID,
		PrimaryContactID: &contact.ID,
		Source:           lead.Source,
		Type:             &oppType,
		Owner:            lead.Owner,
	}
	if pipeline != nil && pipeline.ID != "" {
		opp.PipelineID = &pipeline.ID
	}
	return opp
}

func activity(lead *model.Lead, account *model.Account, contact *model.Contact, opp *model.Opportunity) *model.Activity {
	desc := fmt.Sprintf(`Converted lead to Account "%s", Contact "%s"`, account.Name, contact.FullName())
	meta := map[string]any{
		"account_id":     account.ID,
		"contact_id":     contact.ID,
		"opportunity_id": nil,
	}
	if opp != nil {
		desc += ", and Opportunity"
		meta["opportunity_id"] = opp.ID
	}
	return &model.Activity{
		Type:        model.ActivityConverted,
		Description: &desc,
		LinkedType:  model.EntityLead,
		LinkedID:    lead.ID,
		Metadata:    meta,
		Owner:       lead.Owner,
	}
}
