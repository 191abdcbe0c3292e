// Package crm implements the record-editing operations behind the API:
// validation, defaults and the activity entries each change leaves behind.
package crm

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-cli/internal/convert"
	"github.com/sells-group/crm-cli/internal/importer"
	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/store"
)

// ErrValidation marks input rejected before any store call.
var ErrValidation = eris.New("validation failed")

func invalid(format string, args ...any) error {
	return eris.Wrapf(ErrValidation, format, args...)
}

// validationError reports a rejected input while keeping the cause in the
// chain, so callers can match both ErrValidation and the underlying error.
type validationError struct {
	cause error
}

func rejected(cause error) error {
	return &validationError{cause: cause}
}

func (e *validationError) Error() string { return "validation failed: " + e.cause.Error() }

func (e *validationError) Unwrap() error { return e.cause }

func (e *validationError) Is(target error) bool { return target == ErrValidation }

// Service applies CRM operations for the actor in the context.
type Service struct {
	store     store.Store
	importer  *importer.Importer
	converter *convert.Converter
	now       func() time.Time
}

// New creates a Service. importOpts configures lead imports.
func New(st store.Store, importOpts importer.Options) *Service {
	return &Service{
		store:     st,
		importer:  importer.New(st, importOpts),
		converter: convert.New(st),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Store returns the underlying store for read-only queries.
func (s *Service) Store() store.Store {
	return s.store
}

// ImportLeads parses a CSV or XLSX upload and imports its rows as leads.
func (s *Service) ImportLeads(ctx context.Context, fileName string, r io.Reader) (*importer.Result, error) {
	sheet, err := importer.Parse(fileName, r)
	if err != nil {
		return nil, rejected(err)
	}
	return s.importer.Import(ctx, fileName, sheet)
}

// ConvertLead converts a lead into an account, a contact and optionally an
// opportunity.
func (s *Service) ConvertLead(ctx context.Context, leadID string, opts convert.Options) (*convert.Result, error) {
	return s.converter.Convert(ctx, leadID, opts)
}

// logCreated records a "created" activity for a new record.
func logCreated(ctx context.Context, st store.Store, linkedType model.EntityType, id, desc string) error {
	return st.LogActivity(ctx, &model.Activity{
		Type:        model.ActivityCreated,
		Description: &desc,
		LinkedType:  linkedType,
		LinkedID:    id,
	})
}
