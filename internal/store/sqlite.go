package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/crm-cli/internal/model"
)

// sqliteMaxVars keeps IN lists under SQLite's bound parameter limit.
const sqliteMaxVars = 500

// sqlQuerier is the query surface shared by *sql.DB and *sql.Tx.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) q() sqlQuerier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS crm_leads (
	id                       TEXT PRIMARY KEY,
	user_id                  TEXT NOT NULL,
	first_name               TEXT NOT NULL,
	last_name                TEXT,
	company_name             TEXT,
	email                    TEXT,
	phone                    TEXT,
	title                    TEXT,
	source                   TEXT,
	status                   TEXT NOT NULL DEFAULT 'New',
	owner                    TEXT,
	industry                 TEXT,
	company_size             TEXT,
	region                   TEXT,
	linkedin_url             TEXT,
	notes                    TEXT,
	converted_account_id     TEXT,
	converted_contact_id     TEXT,
	converted_opportunity_id TEXT,
	converted_at             DATETIME,
	created_at               DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at               DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_crm_leads_user ON crm_leads(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_crm_leads_email ON crm_leads(user_id, email COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS crm_accounts (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	website    TEXT,
	industry   TEXT,
	size       TEXT,
	phone      TEXT,
	email      TEXT,
	address    TEXT,
	type       TEXT NOT NULL DEFAULT 'Prospect',
	region     TEXT,
	stage      TEXT NOT NULL DEFAULT 'Prospecting',
	owner      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS crm_contacts (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	first_name        TEXT NOT NULL,
	last_name         TEXT,
	email             TEXT,
	phone             TEXT,
	account_id        TEXT REFERENCES crm_accounts(id) ON DELETE SET NULL,
	title             TEXT,
	source            TEXT,
	status            TEXT NOT NULL DEFAULT 'lead',
	owner             TEXT,
	linkedin_url      TEXT,
	last_contacted_at DATETIME,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_crm_contacts_account ON crm_contacts(account_id);

CREATE TABLE IF NOT EXISTS crm_pipelines (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	stages     TEXT NOT NULL DEFAULT '[]',
	is_default BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS crm_opportunities (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	name               TEXT NOT NULL,
	amount             REAL,
	currency           TEXT NOT NULL DEFAULT 'USD',
	pipeline_id        TEXT,
	stage              TEXT NOT NULL,
	probability        INTEGER NOT NULL DEFAULT 0,
	contact_id         TEXT,
	primary_contact_id TEXT,
	account_id         TEXT,
	owner              TEXT,
	close_date         DATE,
	source             TEXT,
	type               TEXT,
	next_step          TEXT,
	proposal_notes     TEXT,
	won_at             DATETIME,
	lost_at            DATETIME,
	lost_reason        TEXT,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_crm_opportunities_stage ON crm_opportunities(user_id, stage);

CREATE TABLE IF NOT EXISTS crm_activities (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	type         TEXT NOT NULL,
	description  TEXT,
	linked_type  TEXT NOT NULL,
	linked_id    TEXT NOT NULL,
	metadata     TEXT NOT NULL DEFAULT '{}',
	scheduled_at DATETIME,
	completed_at DATETIME,
	owner        TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_crm_activities_linked ON crm_activities(user_id, linked_type, linked_id);

CREATE TABLE IF NOT EXISTS crm_tasks (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT,
	linked_type  TEXT,
	linked_id    TEXT,
	due_date     DATETIME,
	priority     TEXT NOT NULL DEFAULT 'medium',
	status       TEXT NOT NULL DEFAULT 'pending',
	assigned_to  TEXT,
	completed_at DATETIME,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS crm_notes (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	content     TEXT NOT NULL,
	linked_type TEXT NOT NULL,
	linked_id   TEXT NOT NULL,
	author      TEXT,
	pinned      BOOLEAN NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_crm_notes_linked ON crm_notes(user_id, linked_type, linked_id);

CREATE TABLE IF NOT EXISTS crm_projects (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT,
	status      TEXT NOT NULL DEFAULT 'planning',
	start_date  DATE,
	end_date    DATE,
	budget      REAL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.q().ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(&SQLiteStore{db: s.db, tx: tx}); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func sqliteNotFound(err error, msg, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "sqlite: %s %s", msg, id)
	}
	return eris.Wrapf(err, "sqlite: %s %s", msg, id)
}

func (s *SQLiteStore) execOne(ctx context.Context, msg, id, query string, args ...any) error {
	res, err := s.q().ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s %s", msg, id)
	}
	return checkRowsAffected(res, msg, id)
}

func checkRowsAffected(res sql.Result, msg, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: %s %s", msg, id)
	}
	return nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// --- Leads ---

const sqliteInsertLead = `INSERT INTO crm_leads (id, user_id, first_name, last_name, company_name, email, phone, title, source, status, owner, industry, company_size, region, linkedin_url, notes, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) CreateLead(ctx context.Context, lead *model.Lead) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	_, err = s.q().ExecContext(ctx, sqliteInsertLead, prepareLead(lead, uid, time.Now().UTC())...)
	return eris.Wrap(err, "sqlite: insert lead")
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	l, err := scanLead(s.q().QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM crm_leads WHERE id = ? AND user_id = ?`, id, uid))
	if err != nil {
		return nil, sqliteNotFound(err, "get lead", id)
	}
	return l, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + leadColumns + ` FROM crm_leads WHERE user_id = ?`
	args := []any{uid}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) UpdateLead(ctx context.Context, lead *model.Lead) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	args := append(leadUpdateArgs(lead, time.Now().UTC()), lead.ID, uid)
	return s.execOne(ctx, "update lead", lead.ID,
		`UPDATE crm_leads SET first_name = ?, last_name = ?, company_name = ?, email = ?, phone = ?,
		 title = ?, source = ?, status = ?, owner = ?, industry = ?, company_size = ?, region = ?,
		 linkedin_url = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		args...,
	)
}

func (s *SQLiteStore) DeleteLead(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "delete lead", id, `DELETE FROM crm_leads WHERE id = ? AND user_id = ?`, id, uid)
}

func (s *SQLiteStore) ExistingLeadEmails(ctx context.Context, emails []string) (map[string]bool, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool)
	lowered := lowerEmails(emails)

	for start := 0; start < len(lowered); start += sqliteMaxVars {
		end := min(start+sqliteMaxVars, len(lowered))
		chunk := lowered[start:end]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, uid)
		for _, e := range chunk {
			args = append(args, e)
		}
		rows, err := s.q().QueryContext(ctx,
			`SELECT DISTINCT lower(email) FROM crm_leads WHERE user_id = ? AND lower(email) IN (`+placeholders(len(chunk))+`)`,
			args...,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: existing lead emails")
		}
		for rows.Next() {
			var email string
			if err := rows.Scan(&email); err != nil {
				rows.Close() //nolint:errcheck
				return nil, eris.Wrap(err, "sqlite: scan lead email")
			}
			existing[email] = true
		}
		err = rows.Err()
		rows.Close() //nolint:errcheck
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: existing lead emails iterate")
		}
	}
	return existing, nil
}

// InsertLeads writes the batch inside one transaction so a failing row
// leaves none of the batch behind.
func (s *SQLiteStore) InsertLeads(ctx context.Context, leads []model.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}
	uid, err := userID(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	err = s.WithTx(ctx, func(tx Store) error {
		q := tx.(*SQLiteStore).q()
		for i := range leads {
			if _, err := q.ExecContext(ctx, sqliteInsertLead, prepareLead(&leads[i], uid, now)...); err != nil {
				return eris.Wrapf(err, "sqlite: insert lead %d of %d", i+1, len(leads))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(leads), nil
}

func (s *SQLiteStore) MarkLeadConverted(ctx context.Context, id string, conv model.Conversion) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "mark lead converted", id,
		`UPDATE crm_leads SET status = ?, converted_account_id = ?, converted_contact_id = ?,
		 converted_opportunity_id = ?, converted_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		string(model.LeadStatusQualified), conv.AccountID, conv.ContactID, conv.OpportunityID,
		conv.ConvertedAt.UTC(), time.Now().UTC(), id, uid,
	)
}

// --- Accounts ---

func (s *SQLiteStore) CreateAccount(ctx context.Context, account *model.Account) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	_, err = s.q().ExecContext(ctx,
		`INSERT INTO crm_accounts (`+accountColumns+`) VALUES (`+placeholders(15)+`)`,
		prepareAccount(account, uid, time.Now().UTC())...,
	)
	return eris.Wrap(err, "sqlite: insert account")
}

func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(s.q().QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM crm_accounts WHERE id = ? AND user_id = ?`, id, uid))
	if err != nil {
		return nil, sqliteNotFound(err, "get account", id)
	}
	return a, nil
}

func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]model.Account, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.q().QueryContext(ctx,
		`SELECT `+accountColumns+` FROM crm_accounts WHERE user_id = ? ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list accounts")
	}
	defer rows.Close() //nolint:errcheck

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan account")
		}
		accounts = append(accounts, *a)
	}
	return accounts, eris.Wrap(rows.Err(), "sqlite: list accounts iterate")
}

func (s *SQLiteStore) UpdateAccount(ctx context.Context, account *model.Account) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	args := append(accountUpdateArgs(account, time.Now().UTC()), account.ID, uid)
	return s.execOne(ctx, "update account", account.ID,
		`UPDATE crm_accounts SET name = ?, website = ?, industry = ?, size = ?, phone = ?,
		 email = ?, address = ?, type = ?, stage = ?, region = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		args...,
	)
}

func (s *SQLiteStore) DeleteAccount(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	// SQLite only enforces ON DELETE SET NULL with the foreign_keys pragma,
	// which is per connection; clear the references explicitly.
	return s.WithTx(ctx, func(tx Store) error {
		q := tx.(*SQLiteStore).q()
		for _, table := range []string{"crm_contacts", "crm_opportunities"} {
			if _, err := q.ExecContext(ctx,
				`UPDATE `+table+` SET account_id = NULL WHERE account_id = ? AND user_id = ?`, id, uid,
			); err != nil {
				return eris.Wrapf(err, "sqlite: detach account %s from %s", id, table)
			}
		}
		return tx.(*SQLiteStore).execOne(ctx, "delete account", id, `DELETE FROM crm_accounts WHERE id = ? AND user_id = ?`, id, uid)
	})
}

// --- Contacts ---

func (s *SQLiteStore) CreateContact(ctx context.Context, contact *model.Contact) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	_, err = s.q().ExecContext(ctx,
		`INSERT INTO crm_contacts (`+contactColumns+`) VALUES (`+placeholders(15)+`)`,
		prepareContact(contact, uid, time.Now().UTC())...,
	)
	return eris.Wrap(err, "sqlite: insert contact")
}

func (s *SQLiteStore) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	c, err := scanContact(s.q().QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM crm_contacts WHERE id = ? AND user_id = ?`, id, uid))
	if err != nil {
		return nil, sqliteNotFound(err, "get contact", id)
	}
	return c, nil
}

func (s *SQLiteStore) ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + contactColumns + ` FROM crm_contacts WHERE user_id = ?`
	args := []any{uid}
	if filter.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, filter.AccountID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close() //nolint:errcheck

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		contacts = append(contacts, *c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: list contacts iterate")
}

func (s *SQLiteStore) DeleteContact(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.WithTx(ctx, func(tx Store) error {
		st := tx.(*SQLiteStore)
		if _, err := st.q().ExecContext(ctx,
			`UPDATE crm_opportunities SET contact_id = CASE WHEN contact_id = ? THEN NULL ELSE contact_id END, primary_contact_id = CASE WHEN primary_contact_id = ? THEN NULL ELSE primary_contact_id END WHERE (contact_id = ? OR primary_contact_id = ?) AND user_id = ?`,
			id, id, id, id, uid,
		); err != nil {
			return eris.Wrapf(err, "sqlite: detach contact %s", id)
		}
		return st.execOne(ctx, "delete contact", id, `DELETE FROM crm_contacts WHERE id = ? AND user_id = ?`, id, uid)
	})
}

// --- Opportunities ---

func (s *SQLiteStore) CreateOpportunity(ctx context.Context, opp *model.Opportunity) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	_, err = s.q().ExecContext(ctx,
		`INSERT INTO crm_opportunities (`+opportunityColumns+`) VALUES (`+placeholders(22)+`)`,
		prepareOpportunity(opp, uid, time.Now().UTC())...,
	)
	return eris.Wrap(err, "sqlite: insert opportunity")
}

func (s *SQLiteStore) GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	o, err := scanOpportunity(s.q().QueryRowContext(ctx,
		`SELECT `+opportunityColumns+` FROM crm_opportunities WHERE id = ? AND user_id = ?`, id, uid))
	if err != nil {
		return nil, sqliteNotFound(err, "get opportunity", id)
	}
	return o, nil
}

func (s *SQLiteStore) ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]model.Opportunity, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + opportunityColumns + ` FROM crm_opportunities WHERE user_id = ?`
	args := []any{uid}
	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, filter.Stage)
	}
	if filter.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, filter.AccountID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list opportunities")
	}
	defer rows.Close() //nolint:errcheck

	var opps []model.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan opportunity")
		}
		opps = append(opps, *o)
	}
	return opps, eris.Wrap(rows.Err(), "sqlite: list opportunities iterate")
}

func (s *SQLiteStore) UpdateOpportunity(ctx context.Context, opp *model.Opportunity) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	args := append(opportunityUpdateArgs(opp, time.Now().UTC()), opp.ID, uid)
	return s.execOne(ctx, "update opportunity", opp.ID,
		`UPDATE crm_opportunities SET name = ?, amount = ?, currency = ?, pipeline_id = ?, stage = ?,
		 probability = ?, contact_id = ?, primary_contact_id = ?, account_id = ?, owner = ?,
		 close_date = ?, source = ?, type = ?, next_step = ?, proposal_notes = ?,
		 won_at = ?, lost_at = ?, lost_reason = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		args...,
	)
}

func (s *SQLiteStore) DeleteOpportunity(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "delete opportunity", id, `DELETE FROM crm_opportunities WHERE id = ? AND user_id = ?`, id, uid)
}

// --- Pipelines ---

func (s *SQLiteStore) GetDefaultPipeline(ctx context.Context) (*model.Pipeline, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	p, err := scanPipeline(s.q().QueryRowContext(ctx,
		`SELECT `+pipelineColumns+` FROM crm_pipelines WHERE user_id = ? AND is_default
		 ORDER BY updated_at DESC LIMIT 1`, uid))
	if err != nil {
		return nil, sqliteNotFound(err, "get default pipeline", uid)
	}
	return p, nil
}

func (s *SQLiteStore) SavePipeline(ctx context.Context, p *model.Pipeline) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	stagesJSON, err := json.Marshal(p.Stages)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal pipeline stages")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.UserID = uid

	return s.WithTx(ctx, func(tx Store) error {
		q := tx.(*SQLiteStore).q()
		if p.IsDefault {
			if _, err := q.ExecContext(ctx,
				`UPDATE crm_pipelines SET is_default = 0, updated_at = ? WHERE user_id = ? AND id <> ? AND is_default`,
				now, uid, p.ID,
			); err != nil {
				return eris.Wrap(err, "sqlite: clear default pipeline")
			}
		}
		_, err := q.ExecContext(ctx,
			`INSERT INTO crm_pipelines (`+pipelineColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET name = excluded.name, stages = excluded.stages,
			 is_default = excluded.is_default, updated_at = excluded.updated_at
			 WHERE crm_pipelines.user_id = excluded.user_id`,
			p.ID, uid, p.Name, string(stagesJSON), p.IsDefault, p.CreatedAt, p.UpdatedAt,
		)
		return eris.Wrap(err, "sqlite: save pipeline")
	})
}

// --- Activities ---

func (s *SQLiteStore) LogActivity(ctx context.Context, a *model.Activity) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	args, err := prepareActivity(a, uid, time.Now().UTC())
	if err != nil {
		return err
	}
	_, err = s.q().ExecContext(ctx,
		`INSERT INTO crm_activities (`+activityColumns+`) VALUES (`+placeholders(11)+`)`, args...)
	return eris.Wrap(err, "sqlite: insert activity")
}

func (s *SQLiteStore) ListActivities(ctx context.Context, filter ActivityFilter) ([]model.Activity, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + activityColumns + ` FROM crm_activities WHERE user_id = ?`
	args := []any{uid}
	if filter.LinkedType != "" {
		query += ` AND linked_type = ?`
		args = append(args, string(filter.LinkedType))
	}
	if filter.LinkedID != "" {
		query += ` AND linked_id = ?`
		args = append(args, filter.LinkedID)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list activities")
	}
	defer rows.Close() //nolint:errcheck

	var activities []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan activity")
		}
		activities = append(activities, *a)
	}
	return activities, eris.Wrap(rows.Err(), "sqlite: list activities iterate")
}

// --- Tasks ---

func (s *SQLiteStore) CreateTask(ctx context.Context, task *model.Task) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	_, err = s.q().ExecContext(ctx,
		`INSERT INTO crm_tasks (`+taskColumns+`) VALUES (`+placeholders(13)+`)`,
		prepareTask(task, uid, time.Now().UTC())...,
	)
	return eris.Wrap(err, "sqlite: insert task")
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + taskColumns + ` FROM crm_tasks WHERE user_id = ?`
	args := []any{uid}
	if len(filter.Statuses) > 0 {
		query += ` AND status IN (` + placeholders(len(filter.Statuses)) + `)`
		for _, st := range filter.Statuses {
			args = append(args, string(st))
		}
	}
	if filter.LinkedType != "" {
		query += ` AND linked_type = ?`
		args = append(args, string(filter.LinkedType))
	}
	if filter.LinkedID != "" {
		query += ` AND linked_id = ?`
		args = append(args, filter.LinkedID)
	}
	query += ` ORDER BY due_date IS NULL, due_date ASC, created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tasks")
	}
	defer rows.Close() //nolint:errcheck

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan task")
		}
		tasks = append(tasks, *t)
	}
	return tasks, eris.Wrap(rows.Err(), "sqlite: list tasks iterate")
}

func (s *SQLiteStore) CompleteTask(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return s.execOne(ctx, "complete task", id,
		`UPDATE crm_tasks SET status = ?, completed_at = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		string(model.TaskStatusCompleted), now, now, id, uid,
	)
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "delete task", id, `DELETE FROM crm_tasks WHERE id = ? AND user_id = ?`, id, uid)
}

// --- Notes ---

func (s *SQLiteStore) CreateNote(ctx context.Context, note *model.Note) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	_, err = s.q().ExecContext(ctx,
		`INSERT INTO crm_notes (`+noteColumns+`) VALUES (`+placeholders(9)+`)`,
		prepareNote(note, uid, time.Now().UTC())...,
	)
	return eris.Wrap(err, "sqlite: insert note")
}

func (s *SQLiteStore) ListNotes(ctx context.Context, filter NoteFilter) ([]model.Note, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + noteColumns + ` FROM crm_notes WHERE user_id = ?`
	args := []any{uid}
	if filter.LinkedType != "" {
		query += ` AND linked_type = ?`
		args = append(args, string(filter.LinkedType))
	}
	if filter.LinkedID != "" {
		query += ` AND linked_id = ?`
		args = append(args, filter.LinkedID)
	}
	query += ` ORDER BY pinned DESC, created_at DESC`

	rows, err := s.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list notes")
	}
	defer rows.Close() //nolint:errcheck

	var notes []model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan note")
		}
		notes = append(notes, *n)
	}
	return notes, eris.Wrap(rows.Err(), "sqlite: list notes iterate")
}

func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "delete note", id, `DELETE FROM crm_notes WHERE id = ? AND user_id = ?`, id, uid)
}

// --- Projects ---

func (s *SQLiteStore) CreateProject(ctx context.Context, project *model.Project) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	_, err = s.q().ExecContext(ctx,
		`INSERT INTO crm_projects (`+projectColumns+`) VALUES (`+placeholders(10)+`)`,
		prepareProject(project, uid, time.Now().UTC())...,
	)
	return eris.Wrap(err, "sqlite: insert project")
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]model.Project, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.q().QueryContext(ctx,
		`SELECT `+projectColumns+` FROM crm_projects WHERE user_id = ? ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list projects")
	}
	defer rows.Close() //nolint:errcheck

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan project")
		}
		projects = append(projects, *p)
	}
	return projects, eris.Wrap(rows.Err(), "sqlite: list projects iterate")
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "delete project", id, `DELETE FROM crm_projects WHERE id = ? AND user_id = ?`, id, uid)
}
