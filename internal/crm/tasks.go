package crm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-cli/internal/model"
)

// DefaultNoteAuthor is stored on notes created without an author.
const DefaultNoteAuthor = "CRM"

func checkLink(linkedType *model.EntityType, linkedID *string) error {
	if linkedType == nil && linkedID == nil {
		return nil
	}
	if linkedType == nil || !linkedType.Valid() {
		return invalid("linked_type must be one of lead, account, contact, opportunity")
	}
	if linkedID == nil || *linkedID == "" {
		return invalid("linked_id is required with linked_type")
	}
	return nil
}

// CreateTask stores a new task. Priority defaults to medium and status to
// pending.
func (s *Service) CreateTask(ctx context.Context, task *model.Task) error {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return invalid("title is required")
	}
	if err := checkLink(task.LinkedType, task.LinkedID); err != nil {
		return err
	}
	if task.Priority == "" {
		task.Priority = model.TaskPriorityMedium
	}
	if task.Status == "" {
		task.Status = model.TaskStatusPending
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return eris.Wrap(err, "crm: create task")
	}
	return nil
}

// CompleteTask marks a task completed now.
func (s *Service) CompleteTask(ctx context.Context, id string) error {
	return s.store.CompleteTask(ctx, id)
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	return s.store.DeleteTask(ctx, id)
}

// AddNote pins free text to a record.
func (s *Service) AddNote(ctx context.Context, note *model.Note) error {
	note.Content = strings.TrimSpace(note.Content)
	if note.Content == "" {
		return invalid("content is required")
	}
	if err := checkLink(&note.LinkedType, &note.LinkedID); err != nil {
		return err
	}
	if model.Deref(note.Author) == "" {
		author := DefaultNoteAuthor
		note.Author = &author
	}
	if err := s.store.CreateNote(ctx, note); err != nil {
		return eris.Wrap(err, "crm: create note")
	}
	return nil
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	return s.store.DeleteNote(ctx, id)
}
