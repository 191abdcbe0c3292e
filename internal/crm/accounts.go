package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/store"
)

// CreateAccount stores a new account and logs its creation.
func (s *Service) CreateAccount(ctx context.Context, account *model.Account) error {
	account.Name = strings.TrimSpace(account.Name)
	if account.Name == "" {
		return invalid("name is required")
	}
	if account.Type == "" {
		account.Type = model.AccountTypeProspect
	}
	if account.Stage == "" {
		account.Stage = model.AccountStageProspecting
	}
	if err := checkAccountKind(account); err != nil {
		return err
	}

	return s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.CreateAccount(ctx, account); err != nil {
			return eris.Wrap(err, "crm: create account")
		}
		return logCreated(ctx, tx, model.EntityAccount, account.ID, "Created account "+account.Name)
	})
}

// UpdateAccount saves the editable fields of an account. A blank type or
// stage keeps the stored value. Changes to name, type or stage are logged as
// an updated activity.
func (s *Service) UpdateAccount(ctx context.Context, account *model.Account) error {
	account.Name = strings.TrimSpace(account.Name)
	if account.Name == "" {
		return invalid("name is required")
	}

	return s.store.WithTx(ctx, func(tx store.Store) error {
		prev, err := tx.GetAccount(ctx, account.ID)
		if err != nil {
			return eris.Wrap(err, "crm: load account")
		}
		if account.Type == "" {
			account.Type = prev.Type
		}
		if account.Stage == "" {
			account.Stage = prev.Stage
		}
		if err := checkAccountKind(account); err != nil {
			return err
		}
		account.UserID, account.Owner, account.CreatedAt = prev.UserID, prev.Owner, prev.CreatedAt

		if err := tx.UpdateAccount(ctx, account); err != nil {
			return eris.Wrap(err, "crm: update account")
		}

		changes := accountChanges(prev, account)
		if len(changes) == 0 {
			return nil
		}
		desc := "Updated account: " + strings.Join(changes, ", ")
		return tx.LogActivity(ctx, &model.Activity{
			Type:        model.ActivityUpdated,
			Description: &desc,
			LinkedType:  model.EntityAccount,
			LinkedID:    account.ID,
			Metadata:    map[string]any{"changes": changes},
		})
	})
}

func accountChanges(prev, next *model.Account) []string {
	var changes []string
	if prev.Name != next.Name {
		changes = append(changes, fmt.Sprintf(`name to "%s"`, next.Name))
	}
	if prev.Type != next.Type {
		changes = append(changes, fmt.Sprintf("type to %s", next.Type))
	}
	if prev.Stage != next.Stage {
		changes = append(changes, fmt.Sprintf("stage to %s", next.Stage))
	}
	return changes
}

func checkAccountKind(account *model.Account) error {
	if !account.Type.Valid() {
		return invalid("unknown account type %q", account.Type)
	}
	if !account.Stage.Valid() {
		return invalid("unknown account stage %q", account.Stage)
	}
	return nil
}

// DeleteAccount removes an account. Its contacts and opportunities keep
// existing with the account reference cleared.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	return s.store.DeleteAccount(ctx, id)
}

// CreateContact stores a new contact and logs its creation.
func (s *Service) CreateContact(ctx context.Context, contact *model.Contact) error {
	contact.FirstName = strings.TrimSpace(contact.FirstName)
	if contact.FirstName == "" {
		return invalid("first_name is required")
	}
	if contact.Status == "" {
		contact.Status = model.ContactStatusLead
	}

	return s.store.WithTx(ctx, func(tx store.Store) error {
		if contact.AccountID != nil {
			if _, err := tx.GetAccount(ctx, *contact.AccountID); err != nil {
				return eris.Wrap(err, "crm: load account")
			}
		}
		if err := tx.CreateContact(ctx, contact); err != nil {
			return eris.Wrap(err, "crm: create contact")
		}
		return logCreated(ctx, tx, model.EntityContact, contact.ID, "Created contact "+contact.FullName())
	})
}

// DeleteContact removes a contact.
func (s *Service) DeleteContact(ctx context.Context, id string) error {
	return s.store.DeleteContact(ctx, id)
}
