package http

import (
	"net/http"
)

type categoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	names, err := s.categories.List(r.Context(), s.account(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	name := sanitizeInput(req.Name)
	if err := s.categories.Add(r.Context(), s.account(r), name); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryRequest{Name: name})
}

// handleRenameCategory renames the category and re-tags its expenses. The
// response lists any transactions that kept the old name.
func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	report, err := s.ledger.RenameCategory(r.Context(), s.account(r), r.PathValue("name"), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.categories.Delete(r.Context(), s.account(r), r.PathValue("name")); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCategoryTransactions(w http.ResponseWriter, r *http.Request) {
	shiftID := sanitizeInput(r.URL.Query().Get("shift_id"))
	txs, err := s.ledger.TransactionsForCategory(r.Context(), s.account(r), shiftID, r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}
