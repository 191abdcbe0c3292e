package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-cli/internal/db"
	"github.com/sells-group/crm-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	tx      pgx.Tx
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// q returns the open transaction when there is one, else the pool.
func (s *PostgresStore) q() db.Querier {
	if s.tx != nil {
		return s.tx
	}
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS crm_leads (
	id                       TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	converted_at             TIMESTAMPTZ,
	created_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at               TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crm_leads_user ON crm_leads(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_crm_leads_email ON crm_leads(user_id, lower(email));

CREATE TABLE IF NOT EXISTS crm_accounts (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crm_accounts_user ON crm_accounts(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS crm_contacts (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	last_contacted_at TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crm_contacts_user ON crm_contacts(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_crm_contacts_account ON crm_contacts(account_id);

CREATE TABLE IF NOT EXISTS crm_pipelines (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	stages     JSONB NOT NULL DEFAULT '[]',
	is_default BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crm_pipelines_default ON crm_pipelines(user_id, is_default);

CREATE TABLE IF NOT EXISTS crm_opportunities (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id            TEXT NOT NULL,
	name               TEXT NOT NULL,
	amount             NUMERIC(14,2),
	currency           TEXT NOT NULL DEFAULT 'USD',
	pipeline_id        TEXT REFERENCES crm_pipelines(id) ON DELETE SET NULL,
	stage              TEXT NOT NULL,
	probability        INTEGER NOT NULL DEFAULT 0,
	contact_id         TEXT REFERENCES crm_contacts(id) ON DELETE SET NULL,
	primary_contact_id TEXT REFERENCES crm_contacts(id) ON DELETE SET NULL,
	account_id         TEXT REFERENCES crm_accounts(id) ON DELETE SET NULL,
	owner              TEXT,
	close_date         DATE,
	source             TEXT,
	type               TEXT,
	next_step          TEXT,
	proposal_notes     TEXT,
	won_at             TIMESTAMPTZ,
	lost_at            TIMESTAMPTZ,
	lost_reason        TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crm_opportunities_user ON crm_opportunities(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_crm_opportunities_stage ON crm_opportunities(user_id, stage);

CREATE TABLE IF NOT EXISTS crm_activities (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id      TEXT NOT NULL,
	type         TEXT NOT NULL,
	description  TEXT,
	linked_type  TEXT NOT NULL,
	linked_id    TEXT NOT NULL,
	metadata     JSONB NOT NULL DEFAULT '{}',
	scheduled_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	owner        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crm_activities_linked ON crm_activities(user_id, linked_type, linked_id);
CREATE INDEX IF NOT EXISTS idx_crm_activities_created ON crm_activities(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS crm_tasks (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id      TEXT NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT,
	linked_type  TEXT,
	linked_id    TEXT,
	due_date     TIMESTAMPTZ,
	priority     TEXT NOT NULL DEFAULT 'medium',
	status       TEXT NOT NULL DEFAULT 'pending',
	assigned_to  TEXT,
	completed_at TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crm_tasks_status ON crm_tasks(user_id, status, due_date);

CREATE TABLE IF NOT EXISTS crm_notes (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id     TEXT NOT NULL,
	content     TEXT NOT NULL,
	linked_type TEXT NOT NULL,
	linked_id   TEXT NOT NULL,
	author      TEXT,
	pinned      BOOLEAN NOT NULL DEFAULT false,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crm_notes_linked ON crm_notes(user_id, linked_type, linked_id);

CREATE TABLE IF NOT EXISTS crm_projects (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT,
	status      TEXT NOT NULL DEFAULT 'planning',
	start_date  DATE,
	end_date    DATE,
	budget      NUMERIC(14,2),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crm_projects_user ON crm_projects(user_id, created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.q().Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.q().Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&PostgresStore{pool: s.pool, tx: tx}); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit tx")
}

// pgNotFound maps pgx.ErrNoRows to ErrNotFound and wraps anything else.
func pgNotFound(err error, msg string, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "postgres: %s %s", msg, id)
	}
	return eris.Wrapf(err, "postgres: %s %s", msg, id)
}

// pgExecOne runs a single-row mutation and returns ErrNotFound when it
// touched nothing.
func (s *PostgresStore) pgExecOne(ctx context.Context, msg, id, sql string, args ...any) error {
	tag, err := s.q().Exec(ctx, sql, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: %s %s", msg, id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: %s %s", msg, id)
	}
	return nil
}

// --- Leads ---

func (s *PostgresStore) CreateLead(ctx context.Context, lead *model.Lead) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	args := prepareLead(lead, uid, time.Now().UTC())
	_, err = s.q().Exec(ctx,
		`INSERT INTO crm_leads (id, user_id, first_name, last_name, company_name, email, phone, title, source, status, owner, industry, company_size, region, linkedin_url, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		args...,
	)
	return eris.Wrap(err, "postgres: insert lead")
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	l, err := scanLead(s.q().QueryRow(ctx,
		`SELECT `+leadColumns+` FROM crm_leads WHERE id = $1 AND user_id = $2`, id, uid))
	if err != nil {
		return nil, pgNotFound(err, "get lead", id)
	}
	return l, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + leadColumns + ` FROM crm_leads WHERE user_id = $1`
	args := []any{uid}
	argIdx := 2

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.q().Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) UpdateLead(ctx context.Context, lead *model.Lead) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	args := append(leadUpdateArgs(lead, time.Now().UTC()), lead.ID, uid)
	return s.pgExecOne(ctx, "update lead", lead.ID,
		`UPDATE crm_leads SET first_name = $1, last_name = $2, company_name = $3, email = $4, phone = $5,
		 title = $6, source = $7, status = $8, owner = $9, industry = $10, company_size = $11, region = $12,
		 linkedin_url = $13, notes = $14, updated_at = $15
		 WHERE id = $16 AND user_id = $17`,
		args...,
	)
}

func (s *PostgresStore) DeleteLead(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.pgExecOne(ctx, "delete lead", id,
		`DELETE FROM crm_leads WHERE id = $1 AND user_id = $2`, id, uid)
}

func (s *PostgresStore) ExistingLeadEmails(ctx context.Context, emails []string) (map[string]bool, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool)
	lowered := lowerEmails(emails)
	if len(lowered) == 0 {
		return existing, nil
	}

	rows, err := s.q().Query(ctx,
		`SELECT DISTINCT lower(email) FROM crm_leads WHERE user_id = $1 AND lower(email) = ANY($2)`,
		uid, lowered,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: existing lead emails")
	}
	defer rows.Close()

	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead email")
		}
		existing[email] = true
	}
	return existing, eris.Wrap(rows.Err(), "postgres: existing lead emails iterate")
}

// InsertLeads writes the batch with one COPY, which lands every row or none.
func (s *PostgresStore) InsertLeads(ctx context.Context, leads []model.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}
	uid, err := userID(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	rows := make([][]any, len(leads))
	for i := range leads {
		rows[i] = prepareLead(&leads[i], uid, now)
	}

	n, err := db.CopyFrom(ctx, s.q(), "crm_leads", leadInsertColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert leads")
	}
	return int(n), nil
}

func (s *PostgresStore) MarkLeadConverted(ctx context.Context, id string, conv model.Conversion) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.pgExecOne(ctx, "mark lead converted", id,
		`UPDATE crm_leads SET status = $1, converted_account_id = $2, converted_contact_id = $3,
		 converted_opportunity_id = $4, converted_at = $5, updated_at = $6
		 WHERE id = $7 AND user_id = $8`,
		string(model.LeadStatusQualified), conv.AccountID, conv.ContactID, conv.OpportunityID,
		conv.ConvertedAt, time.Now().UTC(), id, uid,
	)
}

// --- Accounts ---

func (s *PostgresStore) CreateAccount(ctx context.Context, account *model.Account) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	_, err = s.q().Exec(ctx,
		`INSERT INTO crm_accounts (`+accountColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		prepareAccount(account, uid, time.Now().UTC())...,
	)
	return eris.Wrap(err, "postgres: insert account")
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(s.q().QueryRow(ctx,
		`SELECT `+accountColumns+` FROM crm_accounts WHERE id = $1 AND user_id = $2`, id, uid))
	if err != nil {
		return nil, pgNotFound(err, "get account", id)
	}
	return a, nil
}

func (s *PostgresStore) ListAccounts(ctx context.Context) ([]model.Account, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.q().Query(ctx,
		`SELECT `+accountColumns+` FROM crm_accounts WHERE user_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list accounts")
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan account")
		}
		accounts = append(accounts, *a)
	}
	return accounts, eris.Wrap(rows.Err(), "postgres: list accounts iterate")
}

func (s *PostgresStore) UpdateAccount(ctx context.Context, account *model.Account) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	args := append(accountUpdateArgs(account, time.Now().UTC()), account.ID, uid)
	return s.pgExecOne(ctx, "update account", account.ID,
		`UPDATE crm_accounts SET name = $1, website = $2, industry = $3, size = $4, phone = $5,
		 email = $6, address = $7, type = $8, stage = $9, region = $10, updated_at = $11
		 WHERE id = $12 AND user_id = $13`,
		args...,
	)
}

func (s *PostgresStore) DeleteAccount(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.pgExecOne(ctx, "delete account", id,
		`DELETE FROM crm_accounts WHERE id = $1 AND user_id = $2`, id, uid)
}

// --- Contacts ---

func (s *PostgresStore) CreateContact(ctx context.Context, contact *model.Contact) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	_, err = s.q().Exec(ctx,
		`INSERT INTO crm_contacts (`+contactColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		prepareContact(contact, uid, time.Now().UTC())...,
	)
	return eris.Wrap(err, "postgres: insert contact")
}

func (s *PostgresStore) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	c, err := scanContact(s.q().QueryRow(ctx,
		`SELECT `+contactColumns+` FROM crm_contacts WHERE id = $1 AND user_id = $2`, id, uid))
	if err != nil {
		return nil, pgNotFound(err, "get contact", id)
	}
	return c, nil
}

func (s *PostgresStore) ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + contactColumns + ` FROM crm_contacts WHERE user_id = $1`
	args := []any{uid}
	if filter.AccountID != "" {
		query += ` AND account_id = $2`
		args = append(args, filter.AccountID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.q().Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		contacts = append(contacts, *c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: list contacts iterate")
}

func (s *PostgresStore) DeleteContact(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.pgExecOne(ctx, "delete contact", id,
		`DELETE FROM crm_contacts WHERE id = $1 AND user_id = $2`, id, uid)
}

// --- Opportunities ---

func (s *PostgresStore) CreateOpportunity(ctx context.Context, opp *model.Opportunity) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	_, err = s.q().Exec(ctx,
		`INSERT INTO crm_opportunities (`+opportunityColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		prepareOpportunity(opp, uid, time.Now().UTC())...,
	)
	return eris.Wrap(err, "postgres: insert opportunity")
}

func (s *PostgresStore) GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	o, err := scanOpportunity(s.q().QueryRow(ctx,
		`SELECT `+opportunityColumns+` FROM crm_opportunities WHERE id = $1 AND user_id = $2`, id, uid))
	if err != nil {
		return nil, pgNotFound(err, "get opportunity", id)
	}
	return o, nil
}

func (s *PostgresStore) ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]model.Opportunity, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + opportunityColumns + ` FROM crm_opportunities WHERE user_id = $1`
	args := []any{uid}
	argIdx := 2
	if filter.Stage != "" {
		query += fmt.Sprintf(` AND stage = $%d`, argIdx)
		args = append(args, filter.Stage)
		argIdx++
	}
	if filter.AccountID != "" {
		query += fmt.Sprintf(` AND account_id = $%d`, argIdx)
		args = append(args, filter.AccountID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.q().Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list opportunities")
	}
	defer rows.Close()

	var opps []model.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan opportunity")
		}
		opps = append(opps, *o)
	}
	return opps, eris.Wrap(rows.Err(), "postgres: list opportunities iterate")
}

func (s *PostgresStore) UpdateOpportunity(ctx context.Context, opp *model.Opportunity) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	args := append(opportunityUpdateArgs(opp, time.Now().UTC()), opp.ID, uid)
	return s.pgExecOne(ctx, "update opportunity", opp.ID,
		`UPDATE crm_opportunities SET name = $1, amount = $2, currency = $3, pipeline_id = $4, stage = $5,
		 probability = $6, contact_id = $7, primary_contact_id = $8, account_id = $9, owner = $10,
		 close_date = $11, source = $12, type = $13, next_step = $14, proposal_notes = $15,
		 won_at = $16, lost_at = $17, lost_reason = $18, updated_at = $19
		 WHERE id = $20 AND user_id = $21`,
		args...,
	)
}

func (s *PostgresStore) DeleteOpportunity(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.pgExecOne(ctx, "delete opportunity", id,
		`DELETE FROM crm_opportunities WHERE id = $1 AND user_id = $2`, id, uid)
}

// --- Pipelines ---

func (s *PostgresStore) GetDefaultPipeline(ctx context.Context) (*model.Pipeline, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	p, err := scanPipeline(s.q().QueryRow(ctx,
		`SELECT `+pipelineColumns+` FROM crm_pipelines WHERE user_id = $1 AND is_default
		 ORDER BY updated_at DESC LIMIT 1`, uid))
	if err != nil {
		return nil, pgNotFound(err, "get default pipeline", uid)
	}
	return p, nil
}

// SavePipeline inserts or replaces p. Saving a default pipeline clears the
// default flag on every other pipeline of the actor.
func (s *PostgresStore) SavePipeline(ctx context.Context, p *model.Pipeline) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	stagesJSON, err := json.Marshal(p.Stages)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal pipeline stages")
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
		q := tx.(*PostgresStore).q()
		if p.IsDefault {
			if _, err := q.Exec(ctx,
				`UPDATE crm_pipelines SET is_default = false, updated_at = $1 WHERE user_id = $2 AND id <> $3 AND is_default`,
				now, uid, p.ID,
			); err != nil {
				return eris.Wrap(err, "postgres: clear default pipeline")
			}
		}
		_, err := q.Exec(ctx,
			`INSERT INTO crm_pipelines (`+pipelineColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, stages = EXCLUDED.stages,
			 is_default = EXCLUDED.is_default, updated_at = EXCLUDED.updated_at
			 WHERE crm_pipelines.user_id = EXCLUDED.user_id`,
			p.ID, uid, p.Name, string(stagesJSON), p.IsDefault, p.CreatedAt, p.UpdatedAt,
		)
		return eris.Wrap(err, "postgres: save pipeline")
	})
}

// --- Activities ---

func (s *PostgresStore) LogActivity(ctx context.Context, a *model.Activity) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	args, err := prepareActivity(a, uid, time.Now().UTC())
	if err != nil {
		return err
	}
	_, err = s.q().Exec(ctx,
		`INSERT INTO crm_activities (`+activityColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		args...,
	)
	return eris.Wrap(err, "postgres: insert activity")
}

func (s *PostgresStore) ListActivities(ctx context.Context, filter ActivityFilter) ([]model.Activity, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + activityColumns + ` FROM crm_activities WHERE user_id = $1`
	args := []any{uid}
	argIdx := 2
	if filter.LinkedType != "" {
		query += fmt.Sprintf(` AND linked_type = $%d`, argIdx)
		args = append(args, string(filter.LinkedType))
		argIdx++
	}
	if filter.LinkedID != "" {
		query += fmt.Sprintf(` AND linked_id = $%d`, argIdx)
		args = append(args, filter.LinkedID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.q().Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list activities")
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan activity")
		}
		activities = append(activities, *a)
	}
	return activities, eris.Wrap(rows.Err(), "postgres: list activities iterate")
}

// --- Tasks ---

func (s *PostgresStore) CreateTask(ctx context.Context, task *model.Task) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	_, err = s.q().Exec(ctx,
		`INSERT INTO crm_tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		prepareTask(task, uid, time.Now().UTC())...,
	)
	return eris.Wrap(err, "postgres: insert task")
}

func (s *PostgresStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + taskColumns + ` FROM crm_tasks WHERE user_id = $1`
	args := []any{uid}
	argIdx := 2
	if len(filter.Statuses) > 0 {
		query += fmt.Sprintf(` AND status = ANY($%d)`, argIdx)
		args = append(args, taskStatusStrings(filter.Statuses))
		argIdx++
	}
	if filter.LinkedType != "" {
		query += fmt.Sprintf(` AND linked_type = $%d`, argIdx)
		args = append(args, string(filter.LinkedType))
		argIdx++
	}
	if filter.LinkedID != "" {
		query += fmt.Sprintf(` AND linked_id = $%d`, argIdx)
		args = append(args, filter.LinkedID)
		argIdx++
	}
	query += ` ORDER BY due_date ASC NULLS LAST, created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.q().Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tasks")
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan task")
		}
		tasks = append(tasks, *t)
	}
	return tasks, eris.Wrap(rows.Err(), "postgres: list tasks iterate")
}

func (s *PostgresStore) CompleteTask(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return s.pgExecOne(ctx, "complete task", id,
		`UPDATE crm_tasks SET status = $1, completed_at = $2, updated_at = $3 WHERE id = $4 AND user_id = $5`,
		string(model.TaskStatusCompleted), now, now, id, uid,
	)
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.pgExecOne(ctx, "delete task", id,
		`DELETE FROM crm_tasks WHERE id = $1 AND user_id = $2`, id, uid)
}

// --- Notes ---

func (s *PostgresStore) CreateNote(ctx context.Context, note *model.Note) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	_, err = s.q().Exec(ctx,
		`INSERT INTO crm_notes (`+noteColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		prepareNote(note, uid, time.Now().UTC())...,
	)
	return eris.Wrap(err, "postgres: insert note")
}

func (s *PostgresStore) ListNotes(ctx context.Context, filter NoteFilter) ([]model.Note, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + noteColumns + ` FROM crm_notes WHERE user_id = $1`
	args := []any{uid}
	argIdx := 2
	if filter.LinkedType != "" {
		query += fmt.Sprintf(` AND linked_type = $%d`, argIdx)
		args = append(args, string(filter.LinkedType))
		argIdx++
	}
	if filter.LinkedID != "" {
		query += fmt.Sprintf(` AND linked_id = $%d`, argIdx)
		args = append(args, filter.LinkedID)
	}
	query += ` ORDER BY pinned DESC, created_at DESC`

	rows, err := s.q().Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list notes")
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan note")
		}
		notes = append(notes, *n)
	}
	return notes, eris.Wrap(rows.Err(), "postgres: list notes iterate")
}

func (s *PostgresStore) DeleteNote(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.pgExecOne(ctx, "delete note", id,
		`DELETE FROM crm_notes WHERE id = $1 AND user_id = $2`, id, uid)
}

// --- Projects ---

func (s *PostgresStore) CreateProject(ctx context.Context, project *model.Project) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	_, err = s.q().Exec(ctx,
		`INSERT INTO crm_projects (`+projectColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		prepareProject(project, uid, time.Now().UTC())...,
	)
	return eris.Wrap(err, "postgres: insert project")
}

func (s *PostgresStore) ListProjects(ctx context.Context) ([]model.Project, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.q().Query(ctx,
		`SELECT `+projectColumns+` FROM crm_projects WHERE user_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list projects")
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan project")
		}
		projects = append(projects, *p)
	}
	return projects, eris.Wrap(rows.Err(), "postgres: list projects iterate")
}

func (s *PostgresStore) DeleteProject(ctx context.Context, id string) error {
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	return s.pgExecOne(ctx, "delete project", id,
		`DELETE FROM crm_projects WHERE id = $1 AND user_id = $2`, id, uid)
}
