package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/crm-cli/internal/convert"
	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/store"
)

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	leads, err := s.store.ListLeads(r.Context(), store.LeadFilter{
		Status: model.LeadStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(leads))
}

func (s *Server) createLead(w http.ResponseWriter, r *http.Request) {
	var lead model.Lead
	if err := decode(r, &lead); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.CreateLead(r.Context(), &lead); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (s *Server) getLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.store.GetLead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// updateLead applies the fields present in the body to the stored lead.
func (s *Server) updateLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lead, err := s.store.GetLead(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := decode(r, lead); err != nil {
		writeError(w, r, err)
		return
	}
	lead.ID = id
	if err := s.svc.UpdateLead(r.Context(), lead); err != nil {
		writeError(w, r, err)
		return
	}
	// Respond with the stored row, not the decoded body.
	stored, err := s.store.GetLead(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) deleteLead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteLead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) importLeads(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeError(w, r, badRequest("invalid upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, badRequest("file is required"))
		return
	}
	defer file.Close() //nolint:errcheck

	res, err := s.svc.ImportLeads(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) convertLead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CreateOpportunity *bool `json:"create_opportunity"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	opts := convert.Options{CreateOpportunity: true}
	if req.CreateOpportunity != nil {
		opts.CreateOpportunity = *req.CreateOpportunity
	}

	res, err := s.svc.ConvertLead(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
