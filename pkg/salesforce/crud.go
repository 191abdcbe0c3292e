package salesforce

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// DateLayout is the format Salesforce expects for date fields.
const DateLayout = "2006-01-02"

// UpdateAccount updates an Account record with the given fields.
func UpdateAccount(ctx context.Context, c Client, accountID string, fields map[string]any) error {
	if accountID == "" {
		return eris.New("sf: account id is required")
	}
	if len(fields) == 0 {
		return eris.New("sf: no fields to update")
	}
	if err := c.UpdateOne(ctx, "Account", accountID, fields); err != nil {
		return eris.Wrap(err, fmt.Sprintf("sf: update account %s", accountID))
	}
	return nil
}

// CreateAccount creates a new Account record and returns the new Salesforce ID.
func CreateAccount(ctx context.Context, c Client, fields map[string]any) (string, error) {
	if fields["Name"] == nil || fields["Name"] == "" {
		return "", eris.New("sf: account Name is required")
	}
	id, err := c.InsertOne(ctx, "Account", fields)
	if err != nil {
		return "", eris.Wrap(err, "sf: create account")
	}
	return id, nil
}

// CreateContact creates a new Contact record linked to the given Account and
// returns the new Salesforce ID.
func CreateContact(ctx context.Context, c Client, accountID string, fields map[string]any) (string, error) {
	if accountID == "" {
		return "", eris.New("sf: account id is required for contact")
	}
	if fields["LastName"] == nil || fields["LastName"] == "" {
		return "", eris.New("sf: contact LastName is required")
	}
	fields["AccountId"] = accountID
	id, err := c.InsertOne(ctx, "Contact", fields)
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("sf: create contact for account %s", accountID))
	}
	return id, nil
}

// CreateOpportunity creates an Opportunity under the given Account. Name,
// StageName and a CloseDate are required by Salesforce; closeDate is sent
// as a date.
func CreateOpportunity(ctx context.Context, c Client, accountID string, closeDate time.Time, fields map[string]any) (string, error) {
	if accountID == "" {
		return "", eris.New("sf: account id is required for opportunity")
	}
	for _, key := range []string{"Name", "StageName"} {
		if fields[key] == nil || fields[key] == "" {
			return "", eris.Errorf("sf: opportunity %s is required", key)
		}
	}
	fields["AccountId"] = accountID
	fields["CloseDate"] = closeDate.Format(DateLayout)
	id, err := c.InsertOne(ctx, "Opportunity", fields)
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("sf: create opportunity for account %s", accountID))
	}
	return id, nil
}
