package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"kassa/internal/core"
	"kassa/internal/localstore"
	klog "kassa/internal/log"
	"kassa/internal/middleware/ratelimit"
	"kassa/internal/middleware/security"
	"kassa/internal/middleware/trace"
	"kassa/internal/services"
)

// Pinger reports whether the persistent store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the API.
type Deps struct {
	Shifts     *services.ShiftManager
	Ledger     *services.Ledger
	Categories *services.CategoryService
	Dashboard  *services.DashboardService
	Local      *localstore.Store
	Store      Pinger

	DefaultAccountID   string
	RateLimitPerMinute int
	Logger             *klog.Logger
}

type Server struct {
	http.Server

	shifts     *services.ShiftManager
	ledger     *services.Ledger
	categories *services.CategoryService
	dash       *services.DashboardService
	local      *localstore.Store
	store      Pinger

	defaultAccount string
	limiter        *ratelimit.Limiter
	tracer         *trace.Middleware
	started        time.Time
	now            func() time.Time
	shutdownOnce   sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, d Deps) *Server {
	if d.DefaultAccountID == "" {
		d.DefaultAccountID = "default"
	}
	if d.Logger == nil {
		d.Logger = klog.FromContext(context.Background())
	}
	if d.Local == nil {
		d.Local, _ = localstore.Open("")
	}

	detector := security.NewDetector()
	s := &Server{
		shifts:         d.Shifts,
		ledger:         d.Ledger,
		categories:     d.Categories,
		dash:           d.Dashboard,
		local:          d.Local,
		store:          d.Store,
		defaultAccount: d.DefaultAccountID,
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: d.RateLimitPerMinute}),
		tracer:         trace.NewMiddleware(detector.ExtractClientIP),
		started:        time.Now(),
		now:            func() time.Time { return time.Now().UTC() },
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, ratelimit.MutatingOnly, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = detector.Middleware(h)
	h = klog.Middleware(d.Logger, trace.RequestIDFromRequest)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/shifts", s.handleListShifts)
	mux.HandleFunc("POST /api/shifts", s.handleOpenShift)
	mux.HandleFunc("GET /api/shifts/open", s.handleOpenShiftGet)
	mux.HandleFunc("GET /api/shifts/{id}", s.handleGetShift)
	mux.HandleFunc("PATCH /api/shifts/{id}", s.handleRenameShift)
	mux.HandleFunc("POST /api/shifts/{id}/close", s.handleCloseShift)
	mux.HandleFunc("GET /api/shifts/{id}/transactions", s.handleListTransactions)
	mux.HandleFunc("DELETE /api/shifts/{id}/expenses", s.handleDeleteExpenses)
	mux.HandleFunc("GET /api/shifts/{id}/summary", s.handleShiftSummary)
	mux.HandleFunc("GET /api/shifts/{id}/receipt", s.handleReceipt)

	mux.HandleFunc("POST /api/transactions", s.handleAddTransaction)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handleEditTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleAddCategory)
	mux.HandleFunc("PUT /api/categories/{name}", s.handleRenameCategory)
	mux.HandleFunc("DELETE /api/categories/{name}", s.handleDeleteCategory)
	mux.HandleFunc("GET /api/categories/{name}/transactions", s.handleCategoryTransactions)

	mux.HandleFunc("PUT /api/sales", s.handleSetSales)
	mux.HandleFunc("GET /api/stats/monthly", s.handleMonthlyStats)
	mux.HandleFunc("GET /api/stats/trend", s.handleTrend)
	mux.HandleFunc("GET /api/preferences", s.handleGetPreferences)
	mux.HandleFunc("PUT /api/preferences", s.handleSetPreferences)
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) account(r *http.Request) string {
	return accountID(r, s.defaultAccount)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"requests":  s.tracer.GetMetrics().TotalRequests,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	status, code := "ready", http.StatusOK
	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}

// TransactionResponse is the wire form of a transaction. Description has
// any embedded category tag removed.
type TransactionResponse struct {
	ID             string           `json:"id"`
	ShiftID        string           `json:"shift_id"`
	Amount         core.Money       `json:"amount"`
	Type           core.PaymentType `json:"type"`
	Category       string           `json:"category,omitempty"`
	CategorySource string           `json:"category_source"`
	Description    string           `json:"description"`
	Date           time.Time        `json:"date"`
}

func toTransactionResponse(t core.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:             t.ID,
		ShiftID:        t.ShiftID,
		Amount:         t.Amount,
		Type:           t.Type,
		Category:       t.CategoryName(),
		CategorySource: t.Category.Source.String(),
		Description:    t.DisplayDescription(),
		Date:           t.Date,
	}
}

func toTransactionResponses(txs []core.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

// decodeOrFail decodes the body into v and writes a 400 on failure.
func decodeOrFail(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(w, r, v); err != nil {
		BadRequestError(err.Error()).Write(w)
		return false
	}
	return true
}
