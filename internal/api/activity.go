package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/store"
)

const defaultActivityLimit = 100

func linkQuery(r *http.Request) (model.EntityType, string, error) {
	q := r.URL.Query()
	linkedType := model.EntityType(q.Get("linked_type"))
	if linkedType != "" && !linkedType.Valid() {
		return "", "", badRequest("unknown linked_type %q", linkedType)
	}
	return linkedType, q.Get("linked_id"), nil
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	linkedType, linkedID, err := linkQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultActivityLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	acts, err := s.store.ListActivities(r.Context(), store.ActivityFilter{
		LinkedType: linkedType,
		LinkedID:   linkedID,
		Limit:      limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(acts))
}

// listTasks accepts a comma separated status list, e.g.
// ?status=pending,in_progress.
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	linkedType, linkedID, err := linkQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var statuses []model.TaskStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, st := range strings.Split(raw, ",") {
			if st = strings.TrimSpace(st); st != "" {
				statuses = append(statuses, model.TaskStatus(st))
			}
		}
	}
	tasks, err := s.store.ListTasks(r.Context(), store.TaskFilter{
		Statuses:   statuses,
		LinkedType: linkedType,
		LinkedID:   linkedID,
		Limit:      limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tasks))
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var task model.Task
	if err := decode(r, &task); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.CreateTask(r.Context(), &task); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.CompleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	linkedType, linkedID, err := linkQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if linkedType == "" || linkedID == "" {
		writeError(w, r, badRequest("linked_type and linked_id are required"))
		return
	}
	notes, err := s.store.ListNotes(r.Context(), store.NoteFilter{LinkedType: linkedType, LinkedID: linkedID})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(notes))
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request) {
	var note model.Note
	if err := decode(r, &note); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.AddNote(r.Context(), &note); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
