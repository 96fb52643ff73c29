package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/baharkarakas/coin-wallet/internal/api/httpx"
	"github.com/baharkarakas/coin-wallet/internal/api/validate"
	"github.com/baharkarakas/coin-wallet/internal/middleware"
	"github.com/baharkarakas/coin-wallet/internal/services"
)

type WalletHandler struct {
	Accounts     *services.AccountService
	Ledger       *services.LedgerService
	Log          *slog.Logger
	HistoryLimit int
}

type balanceResp struct {
	Success    bool  `json:"success"`
	NewBalance int64 `json:"new_balance"`
}

type txView struct {
	ID        int64  `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
}

// Transfer expects recipient (username) and amount, as a form or a JSON object.
func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())
	f, err := httpx.ReadFields(w, r, "recipient", "amount")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	amount, fe := validate.Int("amount", f["amount"])
	if fe != nil {
		writeServiceError(w, r, h.Log, services.ErrInvalidAmount)
		return
	}

	_, bal, err := h.Ledger.Transfer(r.Context(), s, strings.TrimSpace(f["recipient"]), amount)
	if err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, balanceResp{Success: true, NewBalance: bal})
}

// Transactions lists the caller's history, newest first. ?limit=N overrides the default cap.
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())
	limit := h.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	list, err := h.Ledger.ListTransactions(r.Context(), s.AccountID, limit)
	if err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}
	out := make([]txView, 0, len(list))
	for _, e := range list {
		out = append(out, txView{
			ID:        e.ID,
			Sender:    e.SenderUsername,
			Recipient: e.RecipientUsername,
			Amount:    e.Amount,
			Timestamp: formatTimestamp(e.CreatedAt),
			Type:      string(e.Direction),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *WalletHandler) AddCoins(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())
	f, err := httpx.ReadFields(w, r, "amount")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	amount, fe := validate.Int("amount", f["amount"])
	if fe != nil {
		writeServiceError(w, r, h.Log, services.ErrInvalidAmount)
		return
	}

	bal, err := h.Ledger.CreditAccount(r.Context(), s.AccountID, amount)
	if err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, balanceResp{Success: true, NewBalance: bal})
}

func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())
	bal, err := h.Accounts.GetBalance(r.Context(), s.AccountID)
	if err != nil {
		writeServiceError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"balance": bal})
}

// formatTimestamp renders UTC RFC 3339 keeping sub-second digits, so
// transfers made within the same second stay distinguishable.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
