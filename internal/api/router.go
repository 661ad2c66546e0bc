package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/burakozf/splitledger/internal/api/handlers"
	"github.com/burakozf/splitledger/internal/auth"
	"github.com/burakozf/splitledger/internal/config"
	"github.com/burakozf/splitledger/internal/middleware"
	"github.com/burakozf/splitledger/internal/services"
)

type RouterDeps struct {
	Cfg           config.Config
	TokenManager  *auth.TokenManager
	ExpenseSvc    *services.ExpenseService
	SettlementSvc *services.SettlementService
	BalanceSvc    *services.BalanceService
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RateLimit(deps.Cfg.RateRPS), middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.Handler())

	eh := handlers.NewExpenseHandler(deps.ExpenseSvc)
	sh := handlers.NewSettlementHandler(deps.SettlementSvc)
	bh := handlers.NewBalanceHandler(deps.BalanceSvc)
	am := middleware.NewAuthMiddleware(deps.TokenManager, deps.Cfg.Env)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(am.Auth)

		// ---------- expenses ----------
		r.Post("/expenses", eh.Create)
		r.Get("/expenses", eh.ListByUser)
		r.Get("/expenses/{id}", eh.Get)
		r.Delete("/expenses/{id}", eh.Cancel)
		r.Get("/expenses/group/{groupID}", eh.Group)
		r.Get("/expenses/between/{userA}/{userB}", eh.ListBetween)

		// ---------- balances ----------
		r.Get("/balances/user/{userID}", bh.User)
		r.Get("/balances/summary/{userID}", bh.Summary)
		r.Get("/balances/{userA}/{userB}", bh.Pair)

		// ---------- settlements ----------
		r.Post("/settlements", sh.Create)
		r.Get("/settlements/user/{userID}", sh.ListByUser)
		r.Get("/settlements/{id}", sh.Get)
		r.Get("/settlements/{userA}/{userB}", sh.ListBetween)

		// ---------- optimization & stats ----------
		r.Post("/optimize", bh.Optimize)
		r.Get("/stats", bh.Stats)
	})

	return r
}
