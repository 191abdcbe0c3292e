package crm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/store"
)

// CreateProject stores a new project and logs its creation.
func (s *Service) CreateProject(ctx context.Context, project *model.Project) error {
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return invalid("name is required")
	}
	if project.Status == "" {
		project.Status = model.ProjectStatusPlanning
	}
	if !project.Status.Valid() {
		return invalid("unknown project status %q", project.Status)
	}
	if project.Budget != nil && *project.Budget < 0 {
		return invalid("budget must not be negative")
	}
	if project.StartDate != nil && project.EndDate != nil && project.EndDate.Before(*project.StartDate) {
		return invalid("end_date is before start_date")
	}
	if project.Description != nil {
		project.Description = model.NullString(*project.Description)
	}

	return s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.CreateProject(ctx, project); err != nil {
			return eris.Wrap(err, "crm: create project")
		}
		return logCreated(ctx, tx, model.EntityProject, project.ID, "Created project "+project.Name)
	})
}

// DeleteProject removes a project.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	return s.store.DeleteProject(ctx, id)
}
