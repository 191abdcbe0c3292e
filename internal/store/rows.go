package store

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-cli/internal/model"
)

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const leadColumns = `id, user_id, first_name, last_name, company_name, email, phone, title, source, status, owner, industry, company_size, region, linkedin_url, notes, converted_account_id, converted_contact_id, converted_opportunity_id, converted_at, created_at, updated_at`

// leadInsertColumns is the column order used by InsertLeads and CreateLead.
var leadInsertColumns = []string{
	"id", "user_id", "first_name", "last_name", "company_name", "email", "phone", "title",
	"source", "status", "owner", "industry", "company_size", "region", "linkedin_url", "notes",
	"created_at", "updated_at",
}

func scanLead(r rowScanner) (*model.Lead, error) {
	var l model.Lead
	err := r.Scan(&l.ID, &l.UserID, &l.FirstName, &l.LastName, &l.CompanyName, &l.Email, &l.Phone,
		&l.Title, &l.Source, &l.Status, &l.Owner, &l.Industry, &l.CompanySize, &l.Region,
		&l.LinkedInURL, &l.Notes, &l.ConvertedAccountID, &l.ConvertedContactID,
		&l.ConvertedOpportunityID, &l.ConvertedAt, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// prepareLead stamps identity and timestamps on a new lead and returns its
// values in leadInsertColumns order.
func prepareLead(l *model.Lead, uid string, now time.Time) []any {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	l.UserID = uid
	if l.Status == "" {
		l.Status = model.LeadStatusNew
	}
	l.CreatedAt, l.UpdatedAt = now, now
	return []any{
		l.ID, l.UserID, l.FirstName, l.LastName, l.CompanyName, l.Email, l.Phone, l.Title,
		l.Source, string(l.Status), l.Owner, l.Industry, l.CompanySize, l.Region, l.LinkedInURL, l.Notes,
		l.CreatedAt, l.UpdatedAt,
	}
}

const accountColumns = `id, user_id, name, website, industry, size, phone, email, address, type, region, stage, owner, created_at, updated_at`

func scanAccount(r rowScanner) (*model.Account, error) {
	var a model.Account
	err := r.Scan(&a.ID, &a.UserID, &a.Name, &a.Website, &a.Industry, &a.Size, &a.Phone, &a.Email,
		&a.Address, &a.Type, &a.Region, &a.Stage, &a.Owner, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func prepareAccount(a *model.Account, uid string, now time.Time) []any {
	a.ID = uuid.New().String()
	a.UserID = uid
	if a.Type == "" {
		a.Type = model.AccountTypeProspect
	}
	if a.Stage == "" {
		a.Stage = model.AccountStageProspecting
	}
	a.CreatedAt, a.UpdatedAt = now, now
	return []any{
		a.ID, a.UserID, a.Name, a.Website, a.Industry, a.Size, a.Phone, a.Email, a.Address,
		string(a.Type), a.Region, string(a.Stage), a.Owner, a.CreatedAt, a.UpdatedAt,
	}
}

// accountUpdateArgs returns the fields the account edit form may change.
func accountUpdateArgs(a *model.Account, now time.Time) []any {
	a.UpdatedAt = now
	return []any{
		a.Name, a.Website, a.Industry, a.Size, a.Phone, a.Email, a.Address,
		string(a.Type), string(a.Stage), a.Region, a.UpdatedAt,
	}
}

const contactColumns = `id, user_id, first_name, last_name, email, phone, account_id, title, source, status, owner, linkedin_url, last_contacted_at, created_at, updated_at`

func scanContact(r rowScanner) (*model.Contact, error) {
	var c model.Contact
	err := r.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.AccountID,
		&c.Title, &c.Source, &c.Status, &c.Owner, &c.LinkedInURL, &c.LastContactedAt,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func prepareContact(c *model.Contact, uid string, now time.Time) []any {
	c.ID = uuid.New().String()
	c.UserID = uid
	if c.Status == "" {
		c.Status = model.ContactStatusLead
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return []any{
		c.ID, c.UserID, c.FirstName, c.LastName, c.Email, c.Phone, c.AccountID, c.Title, c.Source,
		string(c.Status), c.Owner, c.LinkedInURL, c.LastContactedAt, c.CreatedAt, c.UpdatedAt,
	}
}

const opportunityColumns = `id, user_id, name, amount, currency, pipeline_id, stage, probability, contact_id, primary_contact_id, account_id, owner, close_date, source, type, next_step, proposal_notes, won_at, lost_at, lost_reason, created_at, updated_at`

func scanOpportunity(r rowScanner) (*model.Opportunity, error) {
	var o model.Opportunity
	err := r.Scan(&o.ID, &o.UserID, &o.Name, &o.Amount, &o.Currency, &o.PipelineID, &o.Stage,
		&o.Probability, &o.ContactID, &o.PrimaryContactID, &o.AccountID, &o.Owner, &o.CloseDate,
		&o.Source, &o.Type, &o.NextStep, &o.ProposalNotes, &o.WonAt, &o.LostAt, &o.LostReason,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func prepareOpportunity(o *model.Opportunity, uid string, now time.Time) []any {
	o.ID = uuid.New().String()
	o.UserID = uid
	if o.Currency == "" {
		o.Currency = model.DefaultCurrency
	}
	o.CreatedAt, o.UpdatedAt = now, now
	return []any{
		o.ID, o.UserID, o.Name, o.Amount, o.Currency, o.PipelineID, o.Stage, o.Probability,
		o.ContactID, o.PrimaryContactID, o.AccountID, o.Owner, o.CloseDate, o.Source, o.Type,
		o.NextStep, o.ProposalNotes, o.WonAt, o.LostAt, o.LostReason, o.CreatedAt, o.UpdatedAt,
	}
}

// opportunityUpdateArgs returns the editable fields in the order used by
// the UPDATE statements, followed by updated_at.
func opportunityUpdateArgs(o *model.Opportunity, now time.Time) []any {
	o.UpdatedAt = now
	if o.Currency == "" {
		o.Currency = model.DefaultCurrency
	}
	return []any{
		o.Name, o.Amount, o.Currency, o.PipelineID, o.Stage, o.Probability, o.ContactID,
		o.PrimaryContactID, o.AccountID, o.Owner, o.CloseDate, o.Source, o.Type, o.NextStep,
		o.ProposalNotes, o.WonAt, o.LostAt, o.LostReason, o.UpdatedAt,
	}
}

// leadUpdateArgs returns the fields the lead edit form may change. The
// converted_* columns are deliberately absent.
func leadUpdateArgs(l *model.Lead, now time.Time) []any {
	l.UpdatedAt = now
	return []any{
		l.FirstName, l.LastName, l.CompanyName, l.Email, l.Phone, l.Title, l.Source,
		string(l.Status), l.Owner, l.Industry, l.CompanySize, l.Region, l.LinkedInURL, l.Notes,
		l.UpdatedAt,
	}
}

const pipelineColumns = `id, user_id, name, stages, is_default, created_at, updated_at`

func scanPipeline(r rowScanner) (*model.Pipeline, error) {
	var p model.Pipeline
	var stagesJSON []byte
	if err := r.Scan(&p.ID, &p.UserID, &p.Name, &stagesJSON, &p.IsDefault, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stagesJSON, &p.Stages); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal pipeline stages")
	}
	return &p, nil
}

const activityColumns = `id, user_id, type, description, linked_type, linked_id, metadata, scheduled_at, completed_at, owner, created_at`

func scanActivity(r rowScanner) (*model.Activity, error) {
	var a model.Activity
	var metaJSON []byte
	err := r.Scan(&a.ID, &a.UserID, &a.Type, &a.Description, &a.LinkedType, &a.LinkedID, &metaJSON,
		&a.ScheduledAt, &a.CompletedAt, &a.Owner, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &a.Metadata); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal activity metadata")
		}
	}
	return &a, nil
}

func prepareActivity(a *model.Activity, uid string, now time.Time) ([]any, error) {
	a.ID = uuid.New().String()
	a.UserID = uid
	a.CreatedAt = now
	meta := a.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal activity metadata")
	}
	return []any{
		a.ID, a.UserID, string(a.Type), a.Description, string(a.LinkedType), a.LinkedID,
		string(metaJSON), a.ScheduledAt, a.CompletedAt, a.Owner, a.CreatedAt,
	}, nil
}

const taskColumns = `id, user_id, title, description, linked_type, linked_id, due_date, priority, status, assigned_to, completed_at, created_at, updated_at`

func scanTask(r rowScanner) (*model.Task, error) {
	var t model.Task
	err := r.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.LinkedType, &t.LinkedID, &t.DueDate,
		&t.Priority, &t.Status, &t.AssignedTo, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func prepareTask(t *model.Task, uid string, now time.Time) []any {
	t.ID = uuid.New().String()
	t.UserID = uid
	if t.Priority == "" {
		t.Priority = model.TaskPriorityMedium
	}
	if t.Status == "" {
		t.Status = model.TaskStatusPending
	}
	t.CreatedAt, t.UpdatedAt = now, now
	var linkedType *string
	if t.LinkedType != nil {
		s := string(*t.LinkedType)
		linkedType = &s
	}
	return []any{
		t.ID, t.UserID, t.Title, t.Description, linkedType, t.LinkedID, t.DueDate,
		string(t.Priority), string(t.Status), t.AssignedTo, t.CompletedAt, t.CreatedAt, t.UpdatedAt,
	}
}

const noteColumns = `id, user_id, content, linked_type, linked_id, author, pinned, created_at, updated_at`

func scanNote(r rowScanner) (*model.Note, error) {
	var n model.Note
	err := r.Scan(&n.ID, &n.UserID, &n.Content, &n.LinkedType, &n.LinkedID, &n.Author, &n.Pinned,
		&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func prepareNote(n *model.Note, uid string, now time.Time) []any {
	n.ID = uuid.New().String()
	n.UserID = uid
	n.CreatedAt, n.UpdatedAt = now, now
	return []any{
		n.ID, n.UserID, n.Content, string(n.LinkedType), n.LinkedID, n.Author, n.Pinned,
		n.CreatedAt, n.UpdatedAt,
	}
}

// lowerEmails returns the distinct, lower-cased, non-blank emails.
func lowerEmails(emails []string) []string {
	seen := make(map[string]bool, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func taskStatusStrings(statuses []model.TaskStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

const projectColumns = `id, user_id, name, description, status, start_date, end_date, budget, created_at, updated_at`

func scanProject(r rowScanner) (*model.Project, error) {
	var p model.Project
	err := r.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Status, &p.StartDate, &p.EndDate,
		&p.Budget, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func prepareProject(p *model.Project, uid string, now time.Time) []any {
	p.ID = uuid.New().String()
	p.UserID = uid
	if p.Status == "" {
		p.Status = model.ProjectStatusPlanning
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return []any{
		p.ID, p.UserID, p.Name, p.Description, string(p.Status), p.StartDate, p.EndDate, p.Budget,
		p.CreatedAt, p.UpdatedAt,
	}
}
