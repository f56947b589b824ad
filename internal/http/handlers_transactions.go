package http

import (
	"net/http"
	"strings"

	"kassa/internal/core"
	"kassa/internal/services"
)

// addTransactionRequest targets the open shift when ShiftID is empty.
type addTransactionRequest struct {
	ShiftID     string     `json:"shift_id"`
	Amount      core.Money `json:"amount"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
}

type editTransactionRequest struct {
	ShiftID     string     `json:"shift_id"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	session, err := s.shifts.SessionFor(r.Context(), s.account(r), sanitizeInput(req.ShiftID))
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.ledger.AddTransaction(r.Context(), session, services.NewTransaction{
		Amount:      req.Amount,
		Type:        core.PaymentType(strings.ToLower(sanitizeInput(req.Type))),
		Description: sanitizeInput(req.Description),
		Category:    sanitizeInput(req.Category),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	var req editTransactionRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	session, err := s.shifts.SessionFor(r.Context(), s.account(r), sanitizeInput(req.ShiftID))
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.ledger.EditTransaction(r.Context(), session, r.PathValue("id"), req.Amount, sanitizeInput(req.Description))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	shiftID := sanitizeInput(r.URL.Query().Get("shift_id"))
	session, err := s.shifts.SessionFor(r.Context(), s.account(r), shiftID)
	if err != nil {
		if shiftID == "" && core.IsNotFound(err) {
			if gone, gerr := s.ledger.TransactionGone(r.Context(), r.PathValue("id")); gerr == nil && gone {
				NewJSONResponse().Status(http.StatusNoContent).Write(w)
				return
			}
		}
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), session, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
