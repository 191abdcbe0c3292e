// Package store persists CRM records in Postgres or SQLite. Every read and
// write is scoped to the actor carried by the context.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-cli/internal/actor"
	"github.com/sells-group/crm-cli/internal/model"
)

// ErrNotFound is returned when a row does not exist for the current actor.
var ErrNotFound = eris.New("store: not found")

// LeadFilter specifies criteria for listing leads. A zero Limit returns
// every matching row.
type LeadFilter struct {
	Status model.LeadStatus `json:"status,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// ContactFilter specifies criteria for listing contacts.
type ContactFilter struct {
	AccountID string `json:"account_id,omitempty"`
}

// OpportunityFilter specifies criteria for listing opportunities.
type OpportunityFilter struct {
	Stage     string `json:"stage,omitempty"`
	AccountID string `json:"account_id,omitempty"`
}

// ActivityFilter specifies criteria for listing activities.
type ActivityFilter struct {
	LinkedType model.EntityType `json:"linked_type,omitempty"`
	LinkedID   string           `json:"linked_id,omitempty"`
	Limit      int              `json:"limit,omitempty"`
}

// TaskFilter specifies criteria for listing tasks.
type TaskFilter struct {
	Statuses   []model.TaskStatus `json:"statuses,omitempty"`
	LinkedType model.EntityType   `json:"linked_type,omitempty"`
	LinkedID   string             `json:"linked_id,omitempty"`
	Limit      int                `json:"limit,omitempty"`
}

// NoteFilter specifies the record whose notes are listed.
type NoteFilter struct {
	LinkedType model.EntityType `json:"linked_type,omitempty"`
	LinkedID   string           `json:"linked_id,omitempty"`
}

// Store defines the persistence interface for the CRM.
type Store interface {
	// Leads
	CreateLead(ctx context.Context, lead *model.Lead) error
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	UpdateLead(ctx context.Context, lead *model.Lead) error
	DeleteLead(ctx context.Context, id string) error
	ExistingLeadEmails(ctx context.Context, emails []string) (map[string]bool, error)
	InsertLeads(ctx context.Context, leads []model.Lead) (int, error)
	MarkLeadConverted(ctx context.Context, id string, conv model.Conversion) error

	// Accounts
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	UpdateAccount(ctx context.Context, account *model.Account) error
	DeleteAccount(ctx context.Context, id string) error

	// Contacts
	CreateContact(ctx context.Context, contact *model.Contact) error
	GetContact(ctx context.Context, id string) (*model.Contact, error)
	ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error)
	DeleteContact(ctx context.Context, id string) error

	// Opportunities
	CreateOpportunity(ctx context.Context, opp *model.Opportunity) error
	GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error)
	ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]model.Opportunity, error)
	UpdateOpportunity(ctx context.Context, opp *model.Opportunity) error
	DeleteOpportunity(ctx context.Context, id string) error

	// Pipelines
	GetDefaultPipeline(ctx context.Context) (*model.Pipeline, error)
	SavePipeline(ctx context.Context, p *model.Pipeline) error

	// Activities
	LogActivity(ctx context.Context, a *model.Activity) error
	ListActivities(ctx context.Context, filter ActivityFilter) ([]model.Activity, error)

	// Tasks
	CreateTask(ctx context.Context, task *model.Task) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	CompleteTask(ctx context.Context, id string) error
	DeleteTask(ctx context.Context, id string) error

	// Notes
	CreateNote(ctx context.Context, note *model.Note) error
	ListNotes(ctx context.Context, filter NoteFilter) ([]model.Note, error)
	DeleteNote(ctx context.Context, id string) error

	// Projects
	CreateProject(ctx context.Context, project *model.Project) error
	ListProjects(ctx context.Context) ([]model.Project, error)
	DeleteProject(ctx context.Context, id string) error

	// WithTx runs fn against a Store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Calling WithTx on a Store already inside a transaction reuses it.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

func userID(ctx context.Context) (string, error) {
	id, err := actor.FromContext(ctx)
	if err != nil {
		return "", eris.Wrap(err, "store: resolve actor")
	}
	return id, nil
}
