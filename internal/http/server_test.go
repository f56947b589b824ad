package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kassa/internal/cache"
	"kassa/internal/core"
	"kassa/internal/localstore"
	"kassa/internal/services"
	"kassa/internal/storage/memory"
)

type fakePinger struct {
	PingFunc func(ctx context.Context) error
}

func (f fakePinger) Ping(ctx context.Context) error { return f.PingFunc(ctx) }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.New(memory.WithCategories("shop", "Tabaka", "Ijara"))
	local, err := localstore.Open("")
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	cats := services.NewCategoryService(store, local)
	dash := services.NewDashboardService(store, cats, local, cache.NewLRUCache[[]core.MonthlyPoint](16, time.Hour))
	hook := services.WithChangeHook(dash.Invalidate)

	srv := NewServer(":0", Deps{
		Shifts:             services.NewShiftManager(store, hook),
		Ledger:             services.NewLedger(store, cats, hook),
		Categories:         cats,
		Dashboard:          dash,
		Local:              local,
		Store:              store,
		DefaultAccountID:   "shop",
		RateLimitPerMinute: 1000,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s missing security headers", path)
		}
	}

	srv.store = fakePinger{PingFunc: func(context.Context) error { return errors.New("db down") }}
	if rr := do(t, srv, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store status=%d", rr.Code)
	}
}

func TestShiftLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/shifts", `{"starting_balance": 1000, "name": "Morning"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("open status=%d body=%s", rr.Code, rr.Body)
	}
	shift := decode[core.Shift](t, rr)
	if shift.Status != core.ShiftOpen || shift.StartingBalance.Cents != 100000 || shift.AccountID != "shop" {
		t.Fatalf("opened shift %+v", shift)
	}

	if rr := do(t, srv, http.MethodPost, "/api/shifts", `{"starting_balance": 0}`); rr.Code != http.StatusConflict {
		t.Fatalf("second open status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/shifts/open", "")
	if rr.Code != http.StatusOK || decode[core.Shift](t, rr).ID != shift.ID {
		t.Fatalf("open shift status=%d body=%s", rr.Code, rr.Body)
	}

	for _, body := range []string{
		`{"amount": 1000, "type": "kassa"}`,
		`{"amount": "500", "type": "Click", "description": "card"}`,
		`{"amount": 300, "type": "xarajat", "category": "Tabaka", "description": "cigarettes"}`,
		`{"amount": 130, "type": "xarajat", "category": "Ijara"}`,
	} {
		if rr := do(t, srv, http.MethodPost, "/api/transactions", body); rr.Code != http.StatusCreated {
			t.Fatalf("add %s status=%d body=%s", body, rr.Code, rr.Body)
		}
	}

	rr = do(t, srv, http.MethodGet, "/api/shifts/"+shift.ID+"/transactions", "")
	txs := decode[[]TransactionResponse](t, rr)
	if len(txs) != 4 || txs[2].Category != "Tabaka" || txs[2].CategorySource != "structured" {
		t.Fatalf("transactions %+v", txs)
	}

	rr = do(t, srv, http.MethodGet, "/api/shifts/"+shift.ID+"/summary", "")
	summary := decode[core.ShiftSummary](t, rr)
	if summary.NetProfit.Cents != 107000 || summary.Expenses.Cents != 43000 {
		t.Fatalf("summary %+v", summary)
	}

	rr = do(t, srv, http.MethodPost, "/api/shifts/"+shift.ID+"/close", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("close status=%d body=%s", rr.Code, rr.Body)
	}
	closed := decode[core.Shift](t, rr)
	if closed.Status != core.ShiftClosed || closed.EndingBalance == nil || closed.EndingBalance.Cents != 107000 {
		t.Fatalf("closed shift %+v", closed)
	}

	// closed shifts are read-only, except for their name
	body := `{"shift_id": "` + shift.ID + `", "amount": 1, "type": "kassa"}`
	if rr := do(t, srv, http.MethodPost, "/api/transactions", body); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("write to closed shift status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/shifts/"+shift.ID+"/expenses", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("clear expenses on closed shift status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodPatch, "/api/shifts/"+shift.ID, `{"name": "Monday"}`)
	if rr.Code != http.StatusOK || decode[core.Shift](t, rr).Name != "Monday" {
		t.Fatalf("rename status=%d body=%s", rr.Code, rr.Body)
	}

	if rr := do(t, srv, http.MethodGet, "/api/shifts/open", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("open shift after close status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodGet, "/api/shifts/"+shift.ID+"/receipt", "")
	if rr.Code != http.StatusOK || len(decode[core.Receipt](t, rr).Lines) != 4 {
		t.Fatalf("receipt status=%d body=%s", rr.Code, rr.Body)
	}
}

func TestCloseWithExplicitBalance(t *testing.T) {
	srv := newTestServer(t)
	shift := decode[core.Shift](t, do(t, srv, http.MethodPost, "/api/shifts", `{"starting_balance": 0}`))

	rr := do(t, srv, http.MethodPost, "/api/shifts/"+shift.ID+"/close", `{"ending_balance": "250.50"}`)
	if rr.Code != http.StatusOK || decode[core.Shift](t, rr).EndingBalance.Cents != 25050 {
		t.Fatalf("close status=%d body=%s", rr.Code, rr.Body)
	}
	if rr := do(t, srv, http.MethodPost, "/api/shifts/"+shift.ID+"/close", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second close status=%d", rr.Code)
	}
}

func TestTransactionEditAndDelete(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/shifts", `{"starting_balance": 0}`)
	tx := decode[TransactionResponse](t, do(t, srv, http.MethodPost, "/api/transactions",
		`{"amount": 300, "type": "xarajat", "category": "Tabaka", "description": "cigarettes"}`))

	rr := do(t, srv, http.MethodPatch, "/api/transactions/"+tx.ID, `{"amount": 250, "description": "cigars"}`)
	edited := decode[TransactionResponse](t, rr)
	if rr.Code != http.StatusOK || edited.Amount.Cents != 25000 || edited.Category != "Tabaka" || edited.Description != "cigars" {
		t.Fatalf("edit status=%d body=%s", rr.Code, rr.Body)
	}

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodDelete, "/api/transactions/"+tx.ID, ""); rr.Code != http.StatusNoContent {
			t.Fatalf("delete #%d status=%d", i, rr.Code)
		}
	}
}

func TestDeleteAfterShiftClosedIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	shift := decode[core.Shift](t, do(t, srv, http.MethodPost, "/api/shifts", `{"starting_balance": 0}`))
	tx := decode[TransactionResponse](t, do(t, srv, http.MethodPost, "/api/transactions", `{"amount": 10, "type": "kassa"}`))
	if rr := do(t, srv, http.MethodPost, "/api/shifts/"+shift.ID+"/close", ""); rr.Code != http.StatusOK {
		t.Fatalf("close status=%d", rr.Code)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/transactions/does-not-exist", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete of a missing id with no open shift status=%d body=%s", rr.Code, rr.Body)
	}
	// an existing row of a closed shift still needs an open shift
	if rr := do(t, srv, http.MethodDelete, "/api/transactions/"+tx.ID, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("delete of a closed shift's row status=%d body=%s", rr.Code, rr.Body)
	}
}

func TestValidationAndMalformedBodies(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/shifts", `{"starting_balance": 0}`)

	tests := []struct {
		name  string
		body  string
		want  int
		field string
	}{
		{"zero amount", `{"amount": 0, "type": "kassa"}`, http.StatusUnprocessableEntity, "amount"},
		{"unknown type", `{"amount": 1, "type": "cash"}`, http.StatusUnprocessableEntity, "type"},
		{"long description", `{"amount": 1, "type": "kassa", "description": "` + strings.Repeat("x", 201) + `"}`, http.StatusUnprocessableEntity, "description"},
		{"bad amount", `{"amount": "abc", "type": "kassa"}`, http.StatusBadRequest, ""},
		{"unknown field", `{"amount": 1, "type": "kassa", "note": "x"}`, http.StatusBadRequest, ""},
		{"not json", `amount=1`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body)
			}
			if body := decode[ErrorBody](t, rr); body.Field != tt.field || body.Error == "" {
				t.Fatalf("error body %+v", body)
			}
		})
	}
}

func TestCategoriesAPI(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/shifts", `{"starting_balance": 0}`)
	do(t, srv, http.MethodPost, "/api/transactions", `{"amount": 10, "type": "xarajat", "category": "Tabaka"}`)

	if rr := do(t, srv, http.MethodPost, "/api/categories", `{"name": "Ichimliklar"}`); rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body)
	}
	if rr := do(t, srv, http.MethodPost, "/api/categories", `{"name": "tabaka"}`); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate add status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPut, "/api/categories/Tabaka", `{"name": "Ijara"}`); rr.Code != http.StatusConflict {
		t.Fatalf("rename onto existing status=%d", rr.Code)
	}

	rr := do(t, srv, http.MethodPut, "/api/categories/Tabaka", `{"name": "Tobacco"}`)
	report := decode[services.RenameReport](t, rr)
	if rr.Code != http.StatusOK || report.Retagged != 1 || len(report.Failed) != 0 {
		t.Fatalf("rename status=%d report=%+v", rr.Code, report)
	}

	rr = do(t, srv, http.MethodGet, "/api/categories/Tobacco/transactions", "")
	if txs := decode[[]TransactionResponse](t, rr); len(txs) != 1 || txs[0].Category != "Tobacco" {
		t.Fatalf("category transactions %+v", txs)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/categories/Ichimliklar", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	names := decode[[]string](t, do(t, srv, http.MethodGet, "/api/categories", ""))
	if len(names) != 2 || names[0] != "Tobacco" {
		t.Fatalf("categories %v", names)
	}
}

func TestAccountHeaderIsolation(t *testing.T) {
	srv := newTestServer(t)
	shift := decode[core.Shift](t, do(t, srv, http.MethodPost, "/api/shifts", `{"starting_balance": 0}`))

	req := httptest.NewRequest(http.MethodGet, "/api/shifts/"+shift.ID, nil)
	req.Header.Set(HeaderAccountID, "other-shop")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("foreign shift status=%d", rr.Code)
	}
}

func TestStatsAndPreferences(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/shifts", `{"starting_balance": 0}`)
	do(t, srv, http.MethodPost, "/api/transactions", `{"amount": 100, "type": "kassa"}`)

	year := time.Now().UTC().Year()
	rr := do(t, srv, http.MethodGet, "/api/stats/monthly", "")
	stats := decode[struct {
		Year   int                 `json:"year"`
		Months []core.MonthlyPoint `json:"months"`
	}](t, rr)
	if stats.Year != year || len(stats.Months) != 12 {
		t.Fatalf("monthly stats %+v", stats)
	}

	if rr := do(t, srv, http.MethodGet, "/api/stats/trend?month=13", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad month status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/stats/monthly?year=abc", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad year status=%d", rr.Code)
	}

	prefs := decode[localstore.Preferences](t, do(t, srv, http.MethodGet, "/api/preferences", ""))
	if prefs != localstore.DefaultPreferences() {
		t.Fatalf("default preferences %+v", prefs)
	}
	rr = do(t, srv, http.MethodPut, "/api/preferences", `{"currency": "usd", "theme": "Dark"}`)
	if got := decode[localstore.Preferences](t, rr); got.Currency != "USD" || got.Theme != "dark" {
		t.Fatalf("updated preferences %+v", got)
	}
	if rr := do(t, srv, http.MethodPut, "/api/preferences", `{"currency": "dollars", "theme": "dark"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid currency status=%d", rr.Code)
	}
}

func TestSalesFeedSummary(t *testing.T) {
	srv := newTestServer(t)
	shift := decode[core.Shift](t, do(t, srv, http.MethodPost, "/api/shifts", `{"starting_balance": 0}`))
	do(t, srv, http.MethodPost, "/api/transactions", `{"amount": 300, "type": "xarajat", "category": "Tabaka"}`)

	body := `{"shift_id": "` + shift.ID + `", "category": "Tabaka", "amount": 450}`
	if rr := do(t, srv, http.MethodPut, "/api/sales", body); rr.Code != http.StatusNoContent {
		t.Fatalf("set sales status=%d body=%s", rr.Code, rr.Body)
	}

	summary := decode[core.ShiftSummary](t, do(t, srv, http.MethodGet, "/api/shifts/"+shift.ID+"/summary", ""))
	for _, c := range summary.Categories {
		if c.Name == "Tabaka" {
			if c.ProfitOrLoss.Cents != 15000 || c.Outcome != core.OutcomeProfit {
				t.Fatalf("breakdown %+v", c)
			}
			return
		}
	}
	t.Fatalf("Tabaka missing from %+v", summary.Categories)
}

func TestRateLimitReturnsJSON(t *testing.T) {
	srv := newTestServer(t)
	srv.Handler = srv.limiter.Middleware(func(*http.Request) string { return "c" }, nil, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})(http.NotFoundHandler())
	for i := 0; i < 1000; i++ {
		do(t, srv, http.MethodGet, "/", "")
	}
	rr := do(t, srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("status=%d content-type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)
	if rr := do(t, srv, http.MethodGet, "/api/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPut, "/api/shifts", `{}`); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method status=%d", rr.Code)
	}
}
