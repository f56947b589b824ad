package cli

import (
	"time"

	"kassa/internal/cache"
	"kassa/internal/core"
	"kassa/internal/localstore"
	"kassa/internal/services"
	"kassa/internal/storage"
)

// DefaultCategories seed an account's list the first time the local
// fallback is used.
var DefaultCategories = []string{"Tabaka", "Ichimliklar", "Ijara"}

// App bundles the services every binary works with.
type App struct {
	Shifts     *services.ShiftManager
	Ledger     *services.Ledger
	Categories *services.CategoryService
	Dashboard  *services.DashboardService
	Local      *localstore.Store
	Caches     *cache.Manager
}

// NewApp wires the services over store and local. events may be nil. The
// dashboard's series cache is invalidated by every ledger mutation.
func NewApp(store storage.Store, local *localstore.Store, events services.EventPublisher, cacheTTL time.Duration) *App {
	series := cache.NewLRUCache[[]core.MonthlyPoint](256, cacheTTL)
	caches := cache.NewManager()
	caches.Register("dashboard_series", series)

	cats := services.NewCategoryService(store, local, DefaultCategories...)
	dash := services.NewDashboardService(store, cats, local, series)

	opts := []services.Option{services.WithChangeHook(dash.Invalidate)}
	if events != nil {
		opts = append(opts, services.WithEvents(events))
	}

	return &App{
		Shifts:     services.NewShiftManager(store, opts...),
		Ledger:     services.NewLedger(store, cats, opts...),
		Categories: cats,
		Dashboard:  dash,
		Local:      local,
		Caches:     caches,
	}
}
