package sfsync

import (
	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/pkg/salesforce"
)

// setIf adds key to m when v is non-empty.
func setIf(m map[string]any, key string, v *string) {
	if s := model.Deref(v); s != "" {
		m[key] = s
	}
}

// AccountFields maps an account to Salesforce Account fields.
func AccountFields(a *model.Account) map[string]any {
	m := map[string]any{"Name": a.Name}
	if a.Type != "" {
		m["Type"] = string(a.Type)
	}
	setIf(m, "Website", a.Website)
	setIf(m, "Industry", a.Industry)
	setIf(m, "Phone", a.Phone)
	setIf(m, "BillingStreet", a.Address)
	return m
}

// fillBlanks returns the account fields that are empty on the existing
// Salesforce record but known locally. Populated Salesforce values are
// never overwritten.
func fillBlanks(sf *salesforce.Account, a *model.Account) map[string]any {
	m := map[string]any{}
	if sf.Website == "" {
		setIf(m, "Website", a.Website)
	}
	if sf.Industry == "" {
		setIf(m, "Industry", a.Industry)
	}
	if sf.Phone == "" {
		setIf(m, "Phone", a.Phone)
	}
	return m
}

// ContactFields maps a contact to Salesforce Contact fields. Salesforce
// requires LastName, so a contact without one is sent with its first name
// as the last name.
func ContactFields(c *model.Contact) map[string]any {
	m := map[string]any{}
	if last := model.Deref(c.LastName); last != "" {
		m["FirstName"] = c.FirstName
		m["LastName"] = last
	} else {
		m["LastName"] = c.FirstName
	}
	setIf(m, "Email", c.Email)
	setIf(m, "Phone", c.Phone)
	setIf(m, "Title", c.Title)
	setIf(m, "LeadSource", c.Source)
	return m
}

// OpportunityFields maps an opportunity to Salesforce Opportunity fields.
// CloseDate and AccountId are added by the caller.
func OpportunityFields(o *model.Opportunity) map[string]any {
	m := map[string]any{
		"Name":        o.Name,
		"StageName":   o.Stage,
		"Probability": o.Probability,
	}
	if o.Amount != nil {
		m["Amount"] = *o.Amount
	}
	setIf(m, "Type", o.Type)
	setIf(m, "LeadSource", o.Source)
	setIf(m, "NextStep", o.NextStep)
	return m
}
