// internal/api/handlers/auth.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/baharkarakas/coin-wallet/internal/api/httpx"
	"github.com/baharkarakas/coin-wallet/internal/api/validate"
	"github.com/baharkarakas/coin-wallet/internal/auth"
	"github.com/baharkarakas/coin-wallet/internal/middleware"
	"github.com/baharkarakas/coin-wallet/internal/models"
	"github.com/baharkarakas/coin-wallet/internal/services"
	"github.com/baharkarakas/coin-wallet/internal/web"
)

type AuthHandler struct {
	Accounts     *services.AccountService
	TM           *auth.TokenManager
	Sessions     auth.SessionStore
	Pages        *web.Renderer
	Log          *slog.Logger
	CookieSecure bool
}

type accountResp struct {
	Success bool           `json:"success"`
	Account models.Account `json:"account"`
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register.html", web.PageData{Title: "Register"})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	f, err := httpx.ReadFields(w, r, "username", "email", "password")
	if err != nil {
		h.fail(w, r, "register.html", nil, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	form := map[string]string{"username": f["username"], "email": f["email"]}

	if errs := validate.Collect(
		validate.Required("username", f["username"]),
		validate.Required("email", f["email"]),
		validate.Required("password", f["password"]),
	); errs != nil {
		h.fail(w, r, "register.html", form, http.StatusBadRequest, "invalid_input", errs.Error(), errs)
		return
	}

	a, err := h.Accounts.Register(r.Context(), f["username"], f["email"], f["password"])
	if err != nil {
		status, code := statusFor(err)
		if status == http.StatusInternalServerError {
			h.Log.Error("register", "err", err)
		}
		h.fail(w, r, "register.html", form, status, code, errMessage(status, err), nil)
		return
	}

	if httpx.WantsJSON(r) {
		httpx.WriteJSON(w, http.StatusCreated, accountResp{Success: true, Account: a})
		return
	}
	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := web.PageData{Title: "Log in"}
	if r.URL.Query().Get("registered") != "" {
		data.Notice = "Registration successful. You can now log in."
	}
	h.render(w, r, http.StatusOK, "login.html", data)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	f, err := httpx.ReadFields(w, r, "username", "password")
	if err != nil {
		h.fail(w, r, "login.html", nil, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	form := map[string]string{"username": f["username"]}

	if errs := validate.Collect(
		validate.Required("username", f["username"]),
		validate.Required("password", f["password"]),
	); errs != nil {
		h.fail(w, r, "login.html", form, http.StatusBadRequest, "invalid_input", errs.Error(), errs)
		return
	}

	a, err := h.Accounts.Authenticate(r.Context(), f["username"], f["password"])
	if err != nil {
		status, code := statusFor(err)
		if status == http.StatusInternalServerError {
			h.Log.Error("login", "err", err)
		}
		h.fail(w, r, "login.html", form, status, code, errMessage(status, err), nil)
		return
	}

	if err := h.startSession(w, r, a); err != nil {
		h.Log.Error("start session", "account_id", a.ID, "err", err)
		h.fail(w, r, "login.html", form, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}

	if httpx.WantsJSON(r) {
		httpx.WriteJSON(w, http.StatusOK, accountResp{Success: true, Account: a})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, a models.Account) error {
	s, err := h.Sessions.Create(r.Context(), a.ID, a.Username)
	if err != nil {
		return err
	}
	tok, exp, err := h.TM.Issue(s)
	if err != nil {
		_ = h.Sessions.Delete(r.Context(), s.ID)
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout drops the server-side session and expires the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if s, ok := middleware.SessionFrom(r.Context()); ok {
		if err := h.Sessions.Delete(r.Context(), s.ID); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
			h.Log.Error("delete session", "err", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// fail answers JSON clients with an APIError and re-renders the form page for browsers.
func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, page string, form map[string]string, status int, code, msg string, details interface{}) {
	if httpx.WantsJSON(r) {
		httpx.WriteError(w, status, code, msg, details)
		return
	}
	h.render(w, r, status, page, web.PageData{Error: msg, Form: form})
}

func (h *AuthHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data web.PageData) {
	if s, ok := middleware.SessionFrom(r.Context()); ok {
		data.Account = &models.Account{ID: s.AccountID, Username: s.Username}
	}
	if err := h.Pages.Render(w, status, page, data); err != nil {
		h.Log.Error("render", "page", page, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
