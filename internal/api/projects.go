package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/crm-cli/internal/model"
)

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(projects))
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var project model.Project
	if err := decode(r, &project); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.CreateProject(r.Context(), &project); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
