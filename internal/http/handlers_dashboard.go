package http

import (
	"net/http"

	"kassa/internal/core"
	"kassa/internal/localstore"
)

type salesRequest struct {
	ShiftID  string     `json:"shift_id"`
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
}

func (s *Server) handleSetSales(w http.ResponseWriter, r *http.Request) {
	var req salesRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	err := s.dash.SetSales(r.Context(), s.account(r), sanitizeInput(req.ShiftID), sanitizeInput(req.Category), req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r, s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	points, err := s.dash.YearSeries(r.Context(), s.account(r), p.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": p.Year, "months": points})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r, s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	trend, err := s.dash.MonthTrend(r.Context(), s.account(r), p.Year, p.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.local.Preferences(s.account(r)))
}

func (s *Server) handleSetPreferences(w http.ResponseWriter, r *http.Request) {
	var req localstore.Preferences
	if !decodeOrFail(w, r, &req) {
		return
	}
	account := s.account(r)
	if err := s.local.SetPreferences(account, req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.local.Preferences(account))
}
