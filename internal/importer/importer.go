package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/store"
)

// DefaultChunkSize is the number of leads written per insert.
const DefaultChunkSize = 50

// Options configures an Importer.
type Options struct {
	ChunkSize   int
	Source      string // stored on each lead, e.g. "Apollo"
	SourceLabel string // used in the audit entry, e.g. "Apollo CSV"
}

// Result summarizes one import. Imported+Duplicates+Errors equals Rows.
type Result struct {
	ImportID   string `json:"import_id"`
	File       string `json:"file"`
	Rows       int    `json:"rows"`
	Imported   int    `json:"imported"`
	Duplicates int    `json:"duplicates"`
	Errors     int    `json:"errors"`
	Plan       Plan   `json:"columns"`
}

// Importer maps parsed sheets to leads and writes them in chunks.
type Importer struct {
	store store.Store
	opts  Options
}

// New creates an Importer. Zero option values fall back to the defaults.
func New(st store.Store, opts Options) *Importer {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Source == "" {
		opts.Source = "Apollo"
	}
	if opts.SourceLabel == "" {
		opts.SourceLabel = opts.Source + " CSV"
	}
	return &Importer{store: st, opts: opts}
}

// Prepare maps every row of sheet to a lead stamped with the import source.
func (im *Importer) Prepare(sheet *Sheet) []model.Lead {
	leads := make([]model.Lead, len(sheet.Rows))
	for i, rec := range sheet.Rows {
		l := MapRow(sheet.Headers, rec)
		l.Source = model.NullString(im.opts.Source)
		l.Status = model.LeadStatusNew
		leads[i] = l
	}
	return leads
}

// Import writes the sheet's rows as leads for the actor in ctx.
//
// Rows whose email already exists (case-insensitively) are counted as
// duplicates and skipped. The rest are inserted in chunks; a failed chunk
// adds its size to Errors and the remaining chunks still run. An audit
// activity is logged when at least one lead was imported.
func (im *Importer) Import(ctx context.Context, fileName string, sheet *Sheet) (*Result, error) {
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil, ErrEmptyFile
	}

	res := &Result{
		ImportID: uuid.New().String(),
		File:     fileName,
		Rows:     len(sheet.Rows),
		Plan:     PlanColumns(sheet.Headers),
	}
	log := zap.L().With(zap.String("import_id", res.ImportID), zap.String("file", fileName))

	leads := im.Prepare(sheet)

	fresh, err := im.dedup(ctx, leads)
	if err != nil {
		return nil, err
	}
	res.Duplicates = len(leads) - len(fresh)

	for i, chunk := range Chunk(fresh, im.opts.ChunkSize) {
		if _, err := im.store.InsertLeads(ctx, chunk); err != nil {
			res.Errors += len(chunk)
			log.Warn("importer: chunk insert failed",
				zap.Int("chunk", i),
				zap.Int("size", len(chunk)),
				zap.Error(err),
			)
			continue
		}
		res.Imported += len(chunk)
	}

	log.Info("importer: import complete",
		zap.Int("rows", res.Rows),
		zap.Int("imported", res.Imported),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("errors", res.Errors),
		zap.Strings("skipped_columns", res.Plan.Skipped),
	)

	if res.Imported > 0 {
		if err := im.store.LogActivity(ctx, im.auditEntry(res)); err != nil {
			log.Warn("importer: audit log failed", zap.Error(err))
		}
	}
	return res, nil
}

// dedup drops leads whose email already belongs to one of the actor's leads.
func (im *Importer) dedup(ctx context.Context, leads []model.Lead) ([]model.Lead, error) {
	var emails []string
	for _, l := range leads {
		if l.Email != nil {
			emails = append(emails, *l.Email)
		}
	}
	if len(emails) == 0 {
		return leads, nil
	}

	existing, err := im.store.ExistingLeadEmails(ctx, emails)
	if err != nil {
		return nil, eris.Wrap(err, "importer: check existing emails")
	}

	fresh := make([]model.Lead, 0, len(leads))
	for _, l := range leads {
		if l.Email != nil && existing[strings.ToLower(*l.Email)] {
			continue
		}
		fresh = append(fresh, l)
	}
	return fresh, nil
}

func (im *Importer) auditEntry(res *Result) *model.Activity {
	desc := fmt.Sprintf("Imported %d leads from %s (%s)", res.Imported, im.opts.SourceLabel, res.File)
	return &model.Activity{
		Type:        model.ActivityCreated,
		Description: &desc,
		LinkedType:  model.EntityLead,
		LinkedID:    res.ImportID,
		Metadata: map[string]any{
			"source":     im.opts.SourceLabel,
			"file":       res.File,
			"imported":   res.Imported,
			"duplicates": res.Duplicates,
			"errors":     res.Errors,
			"import_id":  res.ImportID,
		},
	}
}

// Chunk splits leads into consecutive slices of at most size elements.
func Chunk(leads []model.Lead, size int) [][]model.Lead {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks [][]model.Lead
	for start := 0; start < len(leads); start += size {
		end := min(start+size, len(leads))
		chunks = append(chunks, leads[start:end])
	}
	return chunks
}
