package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-cli/internal/actor"
	"github.com/sells-group/crm-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Ping(context.Background()))
}

// --- Leads ---

func TestSQLite_Lead_CreateGetUpdate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	lead := &model.Lead{
		FirstName:   "Jane",
		LastName:    model.NullString("Doe"),
		CompanyName: model.NullString("Acme"),
		Email:       model.NullString("jane@acme.com"),
	}
	require.NoError(t, st.CreateLead(ctx, lead))
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, model.LeadStatusNew, lead.Status)

	got, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.FullName())
	assert.Equal(t, "Acme", model.Deref(got.CompanyName))
	assert.Nil(t, got.Phone)
	assert.False(t, got.IsConverted())

	got.Status = model.LeadStatusWorking
	got.Phone = model.NullString("555-0100")
	require.NoError(t, st.UpdateLead(ctx, got))

	got, err = st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusWorking, got.Status)
	assert.Equal(t, "555-0100", model.Deref(got.Phone))
}

func TestSQLite_Lead_UpdateNeverWritesConversion(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	lead := &model.Lead{FirstName: "Jane"}
	require.NoError(t, st.CreateLead(ctx, lead))

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, st.MarkLeadConverted(ctx, lead.ID, model.Conversion{
		AccountID: "acct-1", ContactID: "contact-1", ConvertedAt: at,
	}))

	// An edit carrying stale converted_* values must not clear them.
	lead.ConvertedAccountID = nil
	lead.ConvertedAt = nil
	lead.FirstName = "Janet"
	require.NoError(t, st.UpdateLead(ctx, lead))

	got, err := st.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Janet", got.FirstName)
	assert.Equal(t, "acct-1", model.Deref(got.ConvertedAccountID))
	assert.Equal(t, "contact-1", model.Deref(got.ConvertedContactID))
	assert.Nil(t, got.ConvertedOpportunityID)
	require.NotNil(t, got.ConvertedAt)
	assert.True(t, at.Equal(*got.ConvertedAt))
}

func TestSQLite_Lead_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	_, err := st.GetLead(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = st.DeleteLead(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = st.UpdateLead(ctx, &model.Lead{ID: "missing", FirstName: "X", Status: model.LeadStatusNew})
	assert.True(t, errors.Is(err, ErrNotFound))

	err = st.MarkLeadConverted(ctx, "missing", model.Conversion{ConvertedAt: time.Now()})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_Lead_ScopedToActor(t *testing.T) {
	st := newTestSQLiteStore(t)
	alice := actor.WithActor(context.Background(), "alice")
	bob := actor.WithActor(context.Background(), "bob")

	lead := &model.Lead{FirstName: "Jane", Email: model.NullString("jane@acme.com")}
	require.NoError(t, st.CreateLead(alice, lead))

	_, err := st.GetLead(bob, lead.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	leads, err := st.ListLeads(bob, LeadFilter{})
	require.NoError(t, err)
	assert.Empty(t, leads)

	existing, err := st.ExistingLeadEmails(bob, []string{"jane@acme.com"})
	require.NoError(t, err)
	assert.Empty(t, existing)

	assert.True(t, errors.Is(st.DeleteLead(bob, lead.ID), ErrNotFound))
	require.NoError(t, st.DeleteLead(alice, lead.ID))
}

func TestSQLite_ListLeads_Filter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	for i, status := range []model.LeadStatus{model.LeadStatusNew, model.LeadStatusWorking, model.LeadStatusNew} {
		require.NoError(t, st.CreateLead(ctx, &model.Lead{FirstName: fmt.Sprintf("L%d", i), Status: status}))
	}

	all, err := st.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	newOnly, err := st.ListLeads(ctx, LeadFilter{Status: model.LeadStatusNew})
	require.NoError(t, err)
	assert.Len(t, newOnly, 2)

	page, err := st.ListLeads(ctx, LeadFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := st.ListLeads(ctx, LeadFilter{Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestSQLite_ExistingLeadEmails_CaseInsensitive(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	require.NoError(t, st.CreateLead(ctx, &model.Lead{FirstName: "Jane", Email: model.NullString("Jane@Acme.com")}))
	require.NoError(t, st.CreateLead(ctx, &model.Lead{FirstName: "NoEmail"}))

	existing, err := st.ExistingLeadEmails(ctx, []string{"JANE@ACME.COM", "new@acme.com"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"jane@acme.com": true}, existing)
}

func TestSQLite_ExistingLeadEmails_ChunksLargeInput(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	require.NoError(t, st.CreateLead(ctx, &model.Lead{FirstName: "Last", Email: model.NullString("user1199@example.com")}))

	emails := make([]string, 1200)
	for i := range emails {
		emails[i] = fmt.Sprintf("user%d@example.com", i)
	}
	existing, err := st.ExistingLeadEmails(ctx, emails)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"user1199@example.com": true}, existing)
}

func TestSQLite_InsertLeads_Atomic(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	n, err := st.InsertLeads(ctx, []model.Lead{{FirstName: "A"}, {FirstName: "B"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The duplicate primary key on the second row fails the whole batch.
	dupID := "fixed-id"
	require.NoError(t, st.CreateLead(ctx, &model.Lead{ID: dupID, FirstName: "Existing"}))
	n, err = st.InsertLeads(ctx, []model.Lead{{FirstName: "C"}, {ID: dupID, FirstName: "D"}})
	require.Error(t, err)
	assert.Zero(t, n)

	leads, err := st.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, leads, 3)
	for _, l := range leads {
		assert.NotEqual(t, "C", l.FirstName)
	}
}

// --- Accounts, contacts, opportunities ---

func TestSQLite_AccountContactOpportunity(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	acct := &model.Account{Name: "Acme", Industry: model.NullString("SaaS")}
	require.NoError(t, st.CreateAccount(ctx, acct))
	assert.Equal(t, model.AccountTypeProspect, acct.Type)
	assert.Equal(t, model.AccountStageProspecting, acct.Stage)

	contact := &model.Contact{FirstName: "Jane", AccountID: &acct.ID}
	require.NoError(t, st.CreateContact(ctx, contact))
	require.NoError(t, st.CreateContact(ctx, &model.Contact{FirstName: "Solo"}))

	linked, err := st.ListContacts(ctx, ContactFilter{AccountID: acct.ID})
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "Jane", linked[0].FirstName)
	assert.Equal(t, model.ContactStatusLead, linked[0].Status)

	amount := 12500.0
	closeDate := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	opp := &model.Opportunity{
		Name: "Opportunity - Acme", Amount: &amount, Stage: "Prospecting", Probability: 10,
		AccountID: &acct.ID, ContactID: &contact.ID, CloseDate: &closeDate,
	}
	require.NoError(t, st.CreateOpportunity(ctx, opp))
	assert.Equal(t, model.DefaultCurrency, opp.Currency)

	got, err := st.GetOpportunity(ctx, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, 12500.0, got.AmountOrZero())
	assert.Equal(t, acct.ID, model.Deref(got.AccountID))
	require.NotNil(t, got.CloseDate)
	assert.True(t, closeDate.Equal(*got.CloseDate))

	now := time.Now().UTC()
	got.Stage = "Closed Won"
	got.Probability = 100
	got.WonAt = &now
	require.NoError(t, st.UpdateOpportunity(ctx, got))

	won, err := st.ListOpportunities(ctx, OpportunityFilter{Stage: "Closed Won"})
	require.NoError(t, err)
	require.Len(t, won, 1)
	assert.NotNil(t, won[0].WonAt)

	byAccount, err := st.ListOpportunities(ctx, OpportunityFilter{AccountID: acct.ID})
	require.NoError(t, err)
	assert.Len(t, byAccount, 1)

	accounts, err := st.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, st.DeleteOpportunity(ctx, opp.ID))
	require.NoError(t, st.DeleteContact(ctx, contact.ID))
	require.NoError(t, st.DeleteAccount(ctx, acct.ID))
	_, err = st.GetAccount(ctx, acct.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_UpdateAccount(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	acct := &model.Account{Name: "Acme", Owner: model.NullString("sam")}
	require.NoError(t, st.CreateAccount(ctx, acct))

	acct.Name = "Acme Corp"
	acct.Stage = model.AccountStageActive
	acct.Region = model.NullString("EMEA")
	acct.Website = nil
	require.NoError(t, st.UpdateAccount(ctx, acct))

	got, err := st.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.Equal(t, model.AccountStageActive, got.Stage)
	assert.Equal(t, "EMEA", model.Deref(got.Region))
	assert.Equal(t, "sam", model.Deref(got.Owner))

	missing := &model.Account{ID: "nope", Name: "x", Type: model.AccountTypeOther, Stage: model.AccountStageDormant}
	assert.True(t, errors.Is(st.UpdateAccount(ctx, missing), ErrNotFound))

	other := actor.WithActor(context.Background(), "user-2")
	assert.True(t, errors.Is(st.UpdateAccount(other, got), ErrNotFound))
}

func TestSQLite_DeleteDetachesReferences(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	acct := &model.Account{Name: "Acme"}
	require.NoError(t, st.CreateAccount(ctx, acct))
	contact := &model.Contact{FirstName: "Jane", AccountID: &acct.ID}
	require.NoError(t, st.CreateContact(ctx, contact))
	opp := &model.Opportunity{Name: "Deal", Stage: "Prospecting", AccountID: &acct.ID, ContactID: &contact.ID, PrimaryContactID: &contact.ID}
	require.NoError(t, st.CreateOpportunity(ctx, opp))

	require.NoError(t, st.DeleteContact(ctx, contact.ID))
	got, err := st.GetOpportunity(ctx, opp.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ContactID)
	assert.Nil(t, got.PrimaryContactID)
	assert.Equal(t, acct.ID, model.Deref(got.AccountID))

	require.NoError(t, st.DeleteAccount(ctx, acct.ID))
	got, err = st.GetOpportunity(ctx, opp.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AccountID)

	err = st.DeleteAccount(ctx, acct.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

// --- Pipelines ---

func TestSQLite_Pipeline(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	_, err := st.GetDefaultPipeline(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	first := &model.Pipeline{Name: "First", IsDefault: true, Stages: []model.Stage{{Order: 1, Name: "A", Probability: 5}}}
	require.NoError(t, st.SavePipeline(ctx, first))

	got, err := st.GetDefaultPipeline(ctx)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Name)
	assert.Equal(t, []model.Stage{{Order: 1, Name: "A", Probability: 5}}, got.Stages)

	second := &model.Pipeline{Name: "Second", IsDefault: true, Stages: []model.Stage{{Order: 1, Name: "B", Probability: 15}}}
	require.NoError(t, st.SavePipeline(ctx, second))

	got, err = st.GetDefaultPipeline(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	// Saving again with the same id replaces the stages.
	second.Stages = append(second.Stages, model.Stage{Order: 2, Name: "C", Probability: 60})
	require.NoError(t, st.SavePipeline(ctx, second))
	got, err = st.GetDefaultPipeline(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Stages, 2)
}

// --- Activities, tasks, notes ---

func TestSQLite_Activities(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	require.NoError(t, st.LogActivity(ctx, &model.Activity{
		Type: model.ActivityConverted, LinkedType: model.EntityLead, LinkedID: "lead-1",
		Description: model.NullString("Converted"), Metadata: map[string]any{"account_id": "acct-1"},
	}))
	require.NoError(t, st.LogActivity(ctx, &model.Activity{
		Type: model.ActivityCreated, LinkedType: model.EntityAccount, LinkedID: "acct-1",
	}))

	forLead, err := st.ListActivities(ctx, ActivityFilter{LinkedType: model.EntityLead, LinkedID: "lead-1"})
	require.NoError(t, err)
	require.Len(t, forLead, 1)
	assert.Equal(t, model.ActivityConverted, forLead[0].Type)
	assert.Equal(t, "acct-1", forLead[0].Metadata["account_id"])

	all, err := st.ListActivities(ctx, ActivityFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_Tasks(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	later := time.Now().UTC().Add(48 * time.Hour)
	sooner := time.Now().UTC().Add(time.Hour)
	require.NoError(t, st.CreateTask(ctx, &model.Task{Title: "no due date"}))
	require.NoError(t, st.CreateTask(ctx, &model.Task{Title: "later", DueDate: &later}))
	soonTask := &model.Task{Title: "sooner", DueDate: &sooner}
	require.NoError(t, st.CreateTask(ctx, soonTask))
	assert.Equal(t, model.TaskPriorityMedium, soonTask.Priority)
	assert.Equal(t, model.TaskStatusPending, soonTask.Status)

	tasks, err := st.ListTasks(ctx, TaskFilter{Statuses: model.ActiveTaskStatuses})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "sooner", tasks[0].Title)
	assert.Equal(t, "later", tasks[1].Title)
	assert.Equal(t, "no due date", tasks[2].Title)

	require.NoError(t, st.CompleteTask(ctx, soonTask.ID))
	active, err := st.ListTasks(ctx, TaskFilter{Statuses: model.ActiveTaskStatuses})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	done, err := st.ListTasks(ctx, TaskFilter{Statuses: []model.TaskStatus{model.TaskStatusCompleted}})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.NotNil(t, done[0].CompletedAt)

	require.NoError(t, st.DeleteTask(ctx, soonTask.ID))
	assert.True(t, errors.Is(st.CompleteTask(ctx, soonTask.ID), ErrNotFound))
}

func TestSQLite_Notes_PinnedFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	require.NoError(t, st.CreateNote(ctx, &model.Note{Content: "plain", LinkedType: model.EntityAccount, LinkedID: "a1"}))
	require.NoError(t, st.CreateNote(ctx, &model.Note{Content: "pinned", Pinned: true, LinkedType: model.EntityAccount, LinkedID: "a1"}))
	require.NoError(t, st.CreateNote(ctx, &model.Note{Content: "other", LinkedType: model.EntityAccount, LinkedID: "a2"}))

	notes, err := st.ListNotes(ctx, NoteFilter{LinkedType: model.EntityAccount, LinkedID: "a1"})
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "pinned", notes[0].Content)
	assert.True(t, notes[0].Pinned)

	require.NoError(t, st.DeleteNote(ctx, notes[1].ID))
	assert.True(t, errors.Is(st.DeleteNote(ctx, notes[1].ID), ErrNotFound))
}

// --- Projects ---

func TestSQLite_Projects(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	budget := 25000.0
	start := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	first := &model.Project{Name: "Rollout", Budget: &budget, StartDate: &start}
	require.NoError(t, st.CreateProject(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, model.ProjectStatusPlanning, first.Status)

	second := &model.Project{Name: "Migration", Status: model.ProjectStatusActive}
	require.NoError(t, st.CreateProject(ctx, second))
	require.NoError(t, st.CreateProject(actor.WithActor(context.Background(), "user-2"), &model.Project{Name: "Theirs"}))

	projects, err := st.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "Migration", projects[0].Name)
	assert.Equal(t, "Rollout", projects[1].Name)
	require.NotNil(t, projects[1].Budget)
	assert.Equal(t, 25000.0, *projects[1].Budget)
	require.NotNil(t, projects[1].StartDate)
	assert.True(t, start.Equal(*projects[1].StartDate))
	assert.Nil(t, projects[1].EndDate)
	assert.Nil(t, projects[1].Description)

	require.NoError(t, st.DeleteProject(ctx, first.ID))
	assert.True(t, errors.Is(st.DeleteProject(ctx, first.ID), ErrNotFound))
	projects, err = st.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

// --- Transactions ---

func TestSQLite_WithTx_Rollback(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx Store) error {
		if err := tx.CreateAccount(ctx, &model.Account{Name: "Acme"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	accounts, err := st.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestSQLite_WithTx_CommitAndNested(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := actorCtx()

	err := st.WithTx(ctx, func(tx Store) error {
		if err := tx.CreateAccount(ctx, &model.Account{Name: "Acme"}); err != nil {
			return err
		}
		// InsertLeads opens its own transaction outside WithTx; inside it
		// joins the outer one.
		_, err := tx.InsertLeads(ctx, []model.Lead{{FirstName: "Jane"}})
		return err
	})
	require.NoError(t, err)

	accounts, err := st.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
	leads, err := st.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}
