package http

import (
	"net/http"

	"kassa/internal/core"
)

type openShiftRequest struct {
	StartingBalance core.Money `json:"starting_balance"`
	Name            string     `json:"name"`
}

type renameShiftRequest struct {
	Name string `json:"name"`
}

// closeShiftRequest leaves EndingBalance nil to close with the computed net.
type closeShiftRequest struct {
	EndingBalance *core.Money `json:"ending_balance"`
}

func (s *Server) handleListShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := s.shifts.ListShifts(r.Context(), s.account(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if shifts == nil {
		shifts = []core.Shift{}
	}
	writeJSON(w, http.StatusOK, shifts)
}

func (s *Server) handleOpenShift(w http.ResponseWriter, r *http.Request) {
	var req openShiftRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	shift, err := s.shifts.OpenShift(r.Context(), s.account(r), req.StartingBalance, sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/shifts/"+shift.ID).
		Data(shift).
		Write(w)
}

func (s *Server) handleOpenShiftGet(w http.ResponseWriter, r *http.Request) {
	open, err := s.shifts.GetOpenShift(r.Context(), s.account(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if open == nil {
		NotFoundError("no open shift").Write(w)
		return
	}
	writeJSON(w, http.StatusOK, open)
}

func (s *Server) handleGetShift(w http.ResponseWriter, r *http.Request) {
	shift, err := s.shifts.GetShift(r.Context(), s.account(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shift)
}

func (s *Server) handleRenameShift(w http.ResponseWriter, r *http.Request) {
	var req renameShiftRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	shift, err := s.shifts.RenameShift(r.Context(), s.account(r), r.PathValue("id"), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shift)
}

func (s *Server) handleCloseShift(w http.ResponseWriter, r *http.Request) {
	var req closeShiftRequest
	if err := decodeJSON(w, r, &req); err != nil && err != errEmptyBody {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var (
		shift core.Shift
		err   error
	)
	account, id := s.account(r), r.PathValue("id")
	if req.EndingBalance != nil {
		shift, err = s.shifts.CloseShift(r.Context(), account, id, *req.EndingBalance)
	} else {
		shift, err = s.shifts.CloseShiftComputed(r.Context(), account, id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shift)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.ListTransactions(r.Context(), s.account(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

func (s *Server) handleDeleteExpenses(w http.ResponseWriter, r *http.Request) {
	session, err := s.shifts.SessionFor(r.Context(), s.account(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.ledger.DeleteAllExpenses(r.Context(), session)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handleShiftSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.dash.ShiftSummary(r.Context(), s.account(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.dash.Receipt(r.Context(), s.account(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
