package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-cli/internal/actor"
	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/store"
)

// mockStore mocks the store methods the importer calls. Anything else
// panics through the nil embedded interface.
type mockStore struct {
	store.Store
	mock.Mock
}

func (m *mockStore) ExistingLeadEmails(ctx context.Context, emails []string) (map[string]bool, error) {
	args := m.Called(ctx, emails)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *mockStore) InsertLeads(ctx context.Context, leads []model.Lead) (int, error) {
	args := m.Called(ctx, leads)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) LogActivity(ctx context.Context, a *model.Activity) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func sheetOf(n int, withEmail bool) *Sheet {
	s := &Sheet{Headers: []string{"First Name", "Email"}}
	for i := range n {
		email := ""
		if withEmail {
			email = fmt.Sprintf("lead%d@example.com", i)
		}
		s.Rows = append(s.Rows, []string{fmt.Sprintf("Lead%d", i), email})
	}
	return s
}

func testCtx() context.Context {
	return actor.WithActor(context.Background(), "user-1")
}

func TestChunk(t *testing.T) {
	leads := make([]model.Lead, 120)
	chunks := Chunk(leads, 50)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 50)
	assert.Len(t, chunks[1], 50)
	assert.Len(t, chunks[2], 20)

	assert.Empty(t, Chunk(nil, 50))
	assert.Len(t, Chunk(make([]model.Lead, 50), 50), 1)
	assert.Len(t, Chunk(make([]model.Lead, 51), 0), 2)
}

func TestImport_ChunksOf50(t *testing.T) {
	st := &mockStore{}
	var sizes []int
	st.On("InsertLeads", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sizes = append(sizes, len(args.Get(1).([]model.Lead))) }).
		Return(0, nil)
	st.On("LogActivity", mock.Anything, mock.Anything).Return(nil)

	im := New(st, Options{})
	res, err := im.Import(testCtx(), "apollo.csv", sheetOf(120, false))
	require.NoError(t, err)

	assert.Equal(t, []int{50, 50, 20}, sizes)
	assert.Equal(t, 120, res.Imported)
	assert.Zero(t, res.Duplicates)
	assert.Zero(t, res.Errors)
	st.AssertNotCalled(t, "ExistingLeadEmails", mock.Anything, mock.Anything)
}

func TestImport_ChunkingAfterDedup(t *testing.T) {
	st := &mockStore{}
	existing := map[string]bool{}
	for i := range 30 {
		existing[fmt.Sprintf("lead%d@example.com", i)] = true
	}
	st.On("ExistingLeadEmails", mock.Anything, mock.Anything).Return(existing, nil)
	var sizes []int
	st.On("InsertLeads", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sizes = append(sizes, len(args.Get(1).([]model.Lead))) }).
		Return(0, nil)
	st.On("LogActivity", mock.Anything, mock.Anything).Return(nil)

	res, err := New(st, Options{}).Import(testCtx(), "apollo.csv", sheetOf(150, true))
	require.NoError(t, err)
	assert.Equal(t, []int{50, 50, 20}, sizes)
	assert.Equal(t, 30, res.Duplicates)
	assert.Equal(t, 120, res.Imported)
}

// chunkStore fails the insert of chunk number failOn (1-based).
type chunkStore struct {
	store.Store
	failOn int
	calls  int
	logged int
}

func (s *chunkStore) InsertLeads(_ context.Context, leads []model.Lead) (int, error) {
	s.calls++
	if s.calls == s.failOn {
		return 0, errors.New("insert failed")
	}
	return len(leads), nil
}

func (s *chunkStore) LogActivity(context.Context, *model.Activity) error {
	s.logged++
	return nil
}

func TestImport_FailedChunkCountsAsErrors(t *testing.T) {
	st := &chunkStore{failOn: 2}

	res, err := New(st, Options{ChunkSize: 10}).Import(testCtx(), "apollo.csv", sheetOf(25, false))
	require.NoError(t, err)
	assert.Equal(t, 3, st.calls)
	assert.Equal(t, 10, res.Errors)
	assert.Equal(t, 15, res.Imported)
	assert.Equal(t, res.Rows, res.Imported+res.Duplicates+res.Errors)
	assert.Equal(t, 1, st.logged)
}

func TestImport_AllChunksFail(t *testing.T) {
	st := &chunkStore{failOn: 1}

	res, err := New(st, Options{}).Import(testCtx(), "apollo.csv", sheetOf(5, false))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Errors)
	assert.Zero(t, res.Imported)
	assert.Zero(t, st.logged)
}

func TestImport_DedupQueryFailureAborts(t *testing.T) {
	st := &mockStore{}
	st.On("ExistingLeadEmails", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	_, err := New(st, Options{}).Import(testCtx(), "apollo.csv", sheetOf(3, true))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check existing emails")
	st.AssertNotCalled(t, "InsertLeads", mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "LogActivity", mock.Anything, mock.Anything)
}

func TestImport_AuditFailureIsLogged(t *testing.T) {
	st := &mockStore{}
	st.On("InsertLeads", mock.Anything, mock.Anything).Return(2, nil)
	st.On("LogActivity", mock.Anything, mock.Anything).Return(errors.New("audit down"))

	res, err := New(st, Options{}).Import(testCtx(), "apollo.csv", sheetOf(2, false))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
}

func TestImport_NothingImportedSkipsAudit(t *testing.T) {
	st := &mockStore{}
	st.On("ExistingLeadEmails", mock.Anything, mock.Anything).
		Return(map[string]bool{"lead0@example.com": true, "lead1@example.com": true}, nil)

	res, err := New(st, Options{}).Import(testCtx(), "apollo.csv", sheetOf(2, true))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Duplicates)
	assert.Zero(t, res.Imported)
	st.AssertNotCalled(t, "InsertLeads", mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "LogActivity", mock.Anything, mock.Anything)
}

func TestImport_EmptySheet(t *testing.T) {
	_, err := New(&mockStore{}, Options{}).Import(testCtx(), "x.csv", &Sheet{Headers: []string{"Email"}})
	assert.True(t, errors.Is(err, ErrEmptyFile))
}

func TestImport_AuditEntry(t *testing.T) {
	st := &mockStore{}
	st.On("InsertLeads", mock.Anything, mock.Anything).Return(1, nil)
	var logged *model.Activity
	st.On("LogActivity", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { logged = args.Get(1).(*model.Activity) }).
		Return(nil)

	res, err := New(st, Options{}).Import(testCtx(), "apollo.csv", sheetOf(1, false))
	require.NoError(t, err)
	require.NotNil(t, logged)
	assert.Equal(t, model.ActivityCreated, logged.Type)
	assert.Equal(t, model.EntityLead, logged.LinkedType)
	assert.Equal(t, res.ImportID, logged.LinkedID)
	assert.Equal(t, "Imported 1 leads from Apollo CSV (apollo.csv)", model.Deref(logged.Description))
	assert.Equal(t, "Apollo CSV", logged.Metadata["source"])
	assert.Equal(t, 1, logged.Metadata["imported"])
	assert.Equal(t, 0, logged.Metadata["duplicates"])
	assert.Equal(t, res.ImportID, logged.Metadata["import_id"])
}

func TestPrepare_StampsSourceAndStatus(t *testing.T) {
	im := New(&mockStore{}, Options{Source: "ZoomInfo"})
	leads := im.Prepare(sheetOf(2, false))
	require.Len(t, leads, 2)
	for _, l := range leads {
		assert.Equal(t, "ZoomInfo", model.Deref(l.Source))
		assert.Equal(t, model.LeadStatusNew, l.Status)
	}
	assert.Equal(t, "ZoomInfo CSV", im.opts.SourceLabel)
}

// End to end against a real SQLite store.
func TestImport_SQLite_DuplicatesCaseInsensitive(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "crm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	ctx := testCtx()
	require.NoError(t, st.Migrate(ctx))

	require.NoError(t, st.CreateLead(ctx, &model.Lead{FirstName: "Old", Email: model.NullString("jane@acme.com")}))

	csv := "First Name,Last Name,Email,City,State,Country\n" +
		"Jane,Doe,JANE@ACME.COM,Austin,TX,\n" +
		"Bob,Smith,bob@example.com,Austin,TX,\n" +
		",,,,,\n" +
		"Ann,,,,,\n"
	sheet, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)

	res, err := New(st, Options{}).Import(ctx, "apollo.csv", sheet)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 2, res.Imported)
	assert.Zero(t, res.Errors)

	leads, err := st.ListLeads(ctx, store.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 3)

	byName := map[string]model.Lead{}
	for _, l := range leads {
		byName[l.FirstName] = l
	}
	bob := byName["Bob"]
	assert.Equal(t, "Austin, TX", model.Deref(bob.Region))
	assert.Equal(t, "Apollo", model.Deref(bob.Source))
	assert.Equal(t, model.LeadStatusNew, bob.Status)
	assert.Nil(t, byName["Ann"].Region)

	acts, err := st.ListActivities(ctx, store.ActivityFilter{LinkedType: model.EntityLead, LinkedID: res.ImportID})
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, float64(2), acts[0].Metadata["imported"])
}
