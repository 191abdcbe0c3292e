package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/crm-cli/internal/dashboard"
	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/store"
)

func (s *Server) listOpportunities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opps, err := s.store.ListOpportunities(r.Context(), store.OpportunityFilter{
		Stage:     q.Get("stage"),
		AccountID: q.Get("account_id"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(opps))
}

func (s *Server) createOpportunity(w http.ResponseWriter, r *http.Request) {
	var opp model.Opportunity
	if err := decode(r, &opp); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.CreateOpportunity(r.Context(), &opp); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, opp)
}

func (s *Server) getOpportunity(w http.ResponseWriter, r *http.Request) {
	opp, err := s.store.GetOpportunity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opp)
}

func (s *Server) updateOpportunity(w http.ResponseWriter, r *http.Request) {
	var opp model.Opportunity
	if err := decode(r, &opp); err != nil {
		writeError(w, r, err)
		return
	}
	opp.ID = chi.URLParam(r, "id")
	if err := s.svc.UpdateOpportunity(r.Context(), &opp); err != nil {
		writeError(w, r, err)
		return
	}
	stored, err := s.store.GetOpportunity(r.Context(), opp.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) deleteOpportunity(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteOpportunity(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) changeStage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stage string `json:"stage"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Stage == "" {
		writeError(w, r, badRequest("stage is required"))
		return
	}
	opp, err := s.svc.ChangeStage(r.Context(), chi.URLParam(r, "id"), req.Stage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opp)
}

func (s *Server) getPipeline(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.DefaultPipeline(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) savePipeline(w http.ResponseWriter, r *http.Request) {
	var p model.Pipeline
	if err := decode(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.SavePipeline(r.Context(), &p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := dashboard.Load(r.Context(), s.store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
