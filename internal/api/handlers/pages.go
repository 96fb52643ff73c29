package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/coin-wallet/internal/middleware"
	"github.com/baharkarakas/coin-wallet/internal/models"
	"github.com/baharkarakas/coin-wallet/internal/services"
	"github.com/baharkarakas/coin-wallet/internal/web"
)

type PageHandler struct {
	Accounts     *services.AccountService
	Pages        *web.Renderer
	Log          *slog.Logger
	TopUpEnabled bool
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := web.PageData{}
	if s, ok := middleware.SessionFrom(r.Context()); ok {
		data.Account = &models.Account{ID: s.AccountID, Username: s.Username}
	}
	h.render(w, "index.html", data)
}

func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.accountPage(w, r, "dashboard.html", "Dashboard")
}

func (h *PageHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	h.accountPage(w, r, "wallet.html", "Wallet")
}

// accountPage renders a page for the session's account with a fresh balance.
func (h *PageHandler) accountPage(w http.ResponseWriter, r *http.Request, page, title string) {
	s, _ := middleware.SessionFrom(r.Context())
	a, err := h.Accounts.Get(r.Context(), s.AccountID)
	if errors.Is(err, services.ErrAccountNotFound) {
		http.Redirect(w, r, "/logout", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.Log.Error("load account", "account_id", s.AccountID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.render(w, page, web.PageData{Title: title, Account: &a, TopUpEnabled: h.TopUpEnabled})
}

func (h *PageHandler) render(w http.ResponseWriter, page string, data web.PageData) {
	if err := h.Pages.Render(w, http.StatusOK, page, data); err != nil {
		h.Log.Error("render", "page", page, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
