package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/store"
)

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(accounts))
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var account model.Account
	if err := decode(r, &account); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.CreateAccount(r.Context(), &account); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

type accountDetail struct {
	*model.Account
	Contacts      []model.Contact     `json:"contacts"`
	Opportunities []model.Opportunity `json:"opportunities"`
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	account, err := s.store.GetAccount(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	contacts, err := s.store.ListContacts(ctx, store.ContactFilter{AccountID: id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	opps, err := s.store.ListOpportunities(ctx, store.OpportunityFilter{AccountID: id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountDetail{Account: account, Contacts: nonNil(contacts), Opportunities: nonNil(opps)})
}

// updateAccount saves the account edit form. Owner and timestamps are not
// editable here.
func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	var account model.Account
	if err := decode(r, &account); err != nil {
		writeError(w, r, err)
		return
	}
	account.ID = chi.URLParam(r, "id")
	if err := s.svc.UpdateAccount(r.Context(), &account); err != nil {
		writeError(w, r, err)
		return
	}
	stored, err := s.store.GetAccount(r.Context(), account.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.store.ListContacts(r.Context(), store.ContactFilter{
		AccountID: r.URL.Query().Get("account_id"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(contacts))
}

func (s *Server) createContact(w http.ResponseWriter, r *http.Request) {
	var contact model.Contact
	if err := decode(r, &contact); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.CreateContact(r.Context(), &contact); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contact)
}

func (s *Server) getContact(w http.ResponseWriter, r *http.Request) {
	contact, err := s.store.GetContact(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (s *Server) deleteContact(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteContact(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
