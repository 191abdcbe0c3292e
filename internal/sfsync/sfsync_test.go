package sfsync

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-cli/internal/actor"
	"github.com/sells-group/crm-cli/internal/convert"
	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/store"
	"github.com/sells-group/crm-cli/pkg/salesforce"
)

type insert struct {
	object string
	fields map[string]any
}

// mockClient records inserts and answers account lookups.
type mockClient struct {
	existing *salesforce.Account
	queryErr error
	failOn   string
	inserts  []insert
	updates  []map[string]any
}

func (m *mockClient) Query(_ context.Context, _ string, out any) error {
	if m.queryErr != nil {
		return m.queryErr
	}
	if m.existing != nil {
		*out.(*[]salesforce.Account) = []salesforce.Account{*m.existing}
	}
	return nil
}

func (m *mockClient) InsertOne(_ context.Context, object string, record map[string]any) (string, error) {
	if object == m.failOn {
		return "", errors.New("FIELD_CUSTOM_VALIDATION_EXCEPTION")
	}
	m.inserts = append(m.inserts, insert{object: object, fields: record})
	return strings.ToLower(object[:3]) + "-sf-1", nil
}

func (m *mockClient) UpdateOne(_ context.Context, _ string, _ string, fields map[string]any) error {
	m.updates = append(m.updates, fields)
	return nil
}

func (m *mockClient) inserted(object string) map[string]any {
	for _, in := range m.inserts {
		if in.object == object {
			return in.fields
		}
	}
	return nil
}

func setup(t *testing.T, withOpp bool) (store.Store, context.Context, *convert.Result) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "crm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	ctx := actor.WithActor(context.Background(), "user-1")
	require.NoError(t, st.Migrate(ctx))

	lead := &model.Lead{
		FirstName:   "Jane",
		LastName:    model.NullString("Doe"),
		CompanyName: model.NullString("Acme"),
		Email:       model.NullString("jane@acme.com"),
		Industry:    model.NullString("Software"),
		Source:      model.NullString("Apollo"),
	}
	require.NoError(t, st.CreateLead(ctx, lead))
	res, err := convert.New(st).Convert(ctx, lead.ID, convert.Options{CreateOpportunity: withOpp})
	require.NoError(t, err)
	return st, ctx, res
}

func TestPush_CreatesRecords(t *testing.T) {
	st, ctx, conv := setup(t, true)
	sf := &mockClient{}
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	p := New(st, sf)
	p.now = func() time.Time { return now }

	res, err := p.Push(ctx, conv.Lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "acc-sf-1", res.AccountID)
	assert.False(t, res.AccountExisted)
	assert.Equal(t, "con-sf-1", res.ContactID)
	assert.Equal(t, "opp-sf-1", res.OpportunityID)

	acct := sf.inserted("Account")
	require.NotNil(t, acct)
	assert.Equal(t, "Acme", acct["Name"])
	assert.Equal(t, "Software", acct["Industry"])

	contact := sf.inserted("Contact")
	assert.Equal(t, "acc-sf-1", contact["AccountId"])
	assert.Equal(t, "Doe", contact["LastName"])
	assert.Equal(t, "jane@acme.com", contact["Email"])

	opp := sf.inserted("Opportunity")
	assert.Equal(t, "acc-sf-1", opp["AccountId"])
	assert.Equal(t, "Prospecting", opp["StageName"])
	assert.Equal(t, 10, opp["Probability"])
	assert.Equal(t, "2026-11-17", opp["CloseDate"])

	acts, err := st.ListActivities(ctx, store.ActivityFilter{LinkedType: model.EntityLead, LinkedID: conv.Lead.ID})
	require.NoError(t, err)
	var pushed *model.Activity
	for i := range acts {
		if acts[i].Type == model.ActivityUpdated {
			pushed = &acts[i]
		}
	}
	require.NotNil(t, pushed)
	assert.Equal(t, "acc-sf-1", pushed.Metadata["sf_account_id"])
	assert.Equal(t, "con-sf-1", pushed.Metadata["sf_contact_id"])
	assert.Equal(t, "opp-sf-1", pushed.Metadata["sf_opportunity_id"])
}

func TestPush_WithoutOpportunity(t *testing.T) {
	st, ctx, conv := setup(t, false)
	sf := &mockClient{}

	res, err := New(st, sf).Push(ctx, conv.Lead.ID)
	require.NoError(t, err)
	assert.Empty(t, res.OpportunityID)
	assert.Nil(t, sf.inserted("Opportunity"))
	assert.Len(t, sf.inserts, 2)
}

func TestPush_ReusesExistingAccount(t *testing.T) {
	st, ctx, conv := setup(t, false)
	sf := &mockClient{existing: &salesforce.Account{ID: "001EXIST", Name: "Acme", Phone: "555-0000"}}

	res, err := New(st, sf).Push(ctx, conv.Lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "001EXIST", res.AccountID)
	assert.True(t, res.AccountExisted)
	assert.Nil(t, sf.inserted("Account"))
	assert.Equal(t, "001EXIST", sf.inserted("Contact")["AccountId"])

	require.Len(t, sf.updates, 1)
	assert.Equal(t, "Software", sf.updates[0]["Industry"])
	assert.NotContains(t, sf.updates[0], "Phone")
}

func TestPush_NotConverted(t *testing.T) {
	st, ctx, _ := setup(t, false)
	lead := &model.Lead{FirstName: "John"}
	require.NoError(t, st.CreateLead(ctx, lead))
	sf := &mockClient{}

	_, err := New(st, sf).Push(ctx, lead.ID)
	assert.ErrorIs(t, err, ErrNotConverted)
	assert.Empty(t, sf.inserts)
}

func TestPush_UnknownLead(t *testing.T) {
	st, ctx, _ := setup(t, false)

	_, err := New(st, &mockClient{}).Push(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPush_SalesforceErrors(t *testing.T) {
	t.Run("lookup", func(t *testing.T) {
		st, ctx, conv := setup(t, true)
		_, err := New(st, &mockClient{queryErr: errors.New("INVALID_SESSION_ID")}).Push(ctx, conv.Lead.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sfsync: find account")
	})

	t.Run("opportunity", func(t *testing.T) {
		st, ctx, conv := setup(t, true)
		_, err := New(st, &mockClient{failOn: "Opportunity"}).Push(ctx, conv.Lead.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sfsync: create opportunity")

		acts, err := st.ListActivities(ctx, store.ActivityFilter{LinkedType: model.EntityLead, LinkedID: conv.Lead.ID})
		require.NoError(t, err)
		for _, a := range acts {
			assert.NotEqual(t, model.ActivityUpdated, a.Type)
		}
	})
}

func TestContactFields_NoLastName(t *testing.T) {
	m := ContactFields(&model.Contact{FirstName: "Cher"})
	assert.Equal(t, "Cher", m["LastName"])
	assert.NotContains(t, m, "FirstName")
}

func TestOpportunityFields(t *testing.T) {
	amount := 5000.0
	oppType := model.OpportunityTypeNewBusiness
	m := OpportunityFields(&model.Opportunity{Name: "Deal", Stage: "Qualification", Probability: 20, Amount: &amount, Type: &oppType})
	assert.Equal(t, "Deal", m["Name"])
	assert.Equal(t, "Qualification", m["StageName"])
	assert.Equal(t, 20, m["Probability"])
	assert.Equal(t, 5000.0, m["Amount"])
	assert.Equal(t, "New Business", m["Type"])
	assert.NotContains(t, m, "CloseDate")
}
