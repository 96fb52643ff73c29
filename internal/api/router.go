package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/coin-wallet/internal/api/handlers"
	"github.com/baharkarakas/coin-wallet/internal/auth"
	"github.com/baharkarakas/coin-wallet/internal/config"
	"github.com/baharkarakas/coin-wallet/internal/metrics"
	"github.com/baharkarakas/coin-wallet/internal/middleware"
	"github.com/baharkarakas/coin-wallet/internal/services"
	"github.com/baharkarakas/coin-wallet/internal/web"
)

type RouterDeps struct {
	Cfg      config.Config
	Log      *slog.Logger
	Accounts *services.AccountService
	Ledger   *services.LedgerService
	TM       *auth.TokenManager
	Sessions auth.SessionStore
	Pages    *web.Renderer
}

func NewRouter(d RouterDeps) http.Handler {
	sm := middleware.NewSessionMiddleware(d.TM, d.Sessions, d.Log)
	authH := &handlers.AuthHandler{
		Accounts:     d.Accounts,
		TM:           d.TM,
		Sessions:     d.Sessions,
		Pages:        d.Pages,
		Log:          d.Log,
		CookieSecure: d.Cfg.Session.CookieSecure,
	}
	walletH := &handlers.WalletHandler{
		Accounts:     d.Accounts,
		Ledger:       d.Ledger,
		Log:          d.Log,
		HistoryLimit: d.Cfg.Ledger.HistoryLimit,
	}
	pageH := &handlers.PageHandler{
		Accounts:     d.Accounts,
		Pages:        d.Pages,
		Log:          d.Log,
		TopUpEnabled: d.Cfg.Ledger.TopUpEnabled,
	}

	allowAll := len(d.Cfg.CORS.AllowedOrigins) == 0
	for _, o := range d.Cfg.CORS.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics(d.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !allowAll,
		MaxAge:           300,
	}))
	r.Use(sm.Load)

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", web.Static()))

	// ---------- pages & auth ----------
	r.Get("/", pageH.Home)
	r.Get("/register", authH.RegisterPage)
	r.Post("/register", authH.Register)
	r.Get("/login", authH.LoginPage)
	r.Post("/login", authH.Login)
	r.Get("/logout", authH.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePage)
		r.Get("/dashboard", pageH.Dashboard)
		r.Get("/wallet", pageH.Wallet)
	})

	// ---------- wallet ----------
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Post("/transfer", walletH.Transfer)
		r.Get("/transactions", walletH.Transactions)
		r.Post("/add_coins", walletH.AddCoins)
		r.Get("/balance", walletH.Balance)
	})

	return r
}
