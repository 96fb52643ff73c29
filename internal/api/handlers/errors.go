package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/coin-wallet/internal/api/httpx"
	"github.com/baharkarakas/coin-wallet/internal/middleware"
	"github.com/baharkarakas/coin-wallet/internal/services"
)

// statusFor maps service errors to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, services.ErrDuplicateAccount):
		return http.StatusConflict, "duplicate_account"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, services.ErrAccountNotFound):
		return http.StatusNotFound, "account_not_found"
	case errors.Is(err, services.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, services.ErrSelfTransferNotAllowed):
		return http.StatusBadRequest, "self_transfer"
	case errors.Is(err, services.ErrRecipientNotFound):
		return http.StatusNotFound, "recipient_not_found"
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusBadRequest, "insufficient_funds"
	case errors.Is(err, services.ErrTopUpDisabled):
		return http.StatusForbidden, "topup_disabled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// errMessage hides internal error text from clients.
func errMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "err", err, "request_id", middleware.RequestIDFrom(r.Context()))
	}
	httpx.WriteError(w, status, code, errMessage(status, err), nil)
}
