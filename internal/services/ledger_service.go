package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/baharkarakas/coin-wallet/internal/auth"
	"github.com/baharkarakas/coin-wallet/internal/metrics"
	"github.com/baharkarakas/coin-wallet/internal/models"
	repo "github.com/baharkarakas/coin-wallet/internal/repository"
)

type LedgerService struct {
	accounts     repo.Accounts
	transfers    repo.Transfers
	log          *slog.Logger
	topUpEnabled bool
}

func NewLedgerService(r repo.Repositories, log *slog.Logger, topUpEnabled bool) *LedgerService {
	return &LedgerService{
		accounts:     r.Accounts,
		transfers:    r.Transfers,
		log:          log,
		topUpEnabled: topUpEnabled,
	}
}

// Transfer moves amount coins from the caller to recipientUsername and returns
// the record and the caller's new balance. Checks run in a fixed order and the
// first failure wins; the balance check is repeated under the debit's lock.
func (s *LedgerService) Transfer(ctx context.Context, caller auth.Session, recipientUsername string, amount int64) (models.Transfer, int64, error) {
	rec, balance, err := s.transfer(ctx, caller, recipientUsername, amount)
	metrics.TransfersTotal.WithLabelValues(transferResult(err)).Inc()
	if err != nil {
		s.log.Warn("transfer rejected",
			"account_id", caller.AccountID, "recipient", recipientUsername, "amount", amount, "err", err)
		return models.Transfer{}, 0, err
	}
	s.log.Info("transfer",
		"account_id", caller.AccountID, "recipient", recipientUsername, "amount", amount, "transfer_id", rec.ID)
	return rec, balance, nil
}

func (s *LedgerService) transfer(ctx context.Context, caller auth.Session, recipientUsername string, amount int64) (models.Transfer, int64, error) {
	if amount <= 0 {
		return models.Transfer{}, 0, ErrInvalidAmount
	}
	if recipientUsername == caller.Username {
		return models.Transfer{}, 0, ErrSelfTransferNotAllowed
	}
	recipient, err := s.accounts.GetByUsername(ctx, recipientUsername)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Transfer{}, 0, ErrRecipientNotFound
	}
	if err != nil {
		return models.Transfer{}, 0, fmt.Errorf("load recipient: %w", err)
	}

	rec, sender, err := s.transfers.Execute(ctx, caller.AccountID, recipient.ID, amount)
	switch {
	case errors.Is(err, repo.ErrInsufficientFunds):
		return models.Transfer{}, 0, ErrInsufficientFunds
	case errors.Is(err, repo.ErrBalanceOverflow):
		return models.Transfer{}, 0, ErrInvalidAmount
	case errors.Is(err, repo.ErrNotFound):
		return models.Transfer{}, 0, ErrAccountNotFound
	case err != nil:
		return models.Transfer{}, 0, fmt.Errorf("execute transfer: %w", err)
	}
	return rec, sender.Balance, nil
}

// ListTransactions returns the account's history newest first, tagged with
// direction. limit <= 0 returns everything.
func (s *LedgerService) ListTransactions(ctx context.Context, accountID int64, limit int) ([]models.TransferEntry, error) {
	list, err := s.transfers.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	for i := range list {
		list[i].Direction = list[i].DirectionFor(accountID)
	}
	return list, nil
}

// CreditAccount adds amount to the account's balance without a counterparty.
func (s *LedgerService) CreditAccount(ctx context.Context, accountID int64, amount int64) (int64, error) {
	if !s.topUpEnabled {
		return 0, ErrTopUpDisabled
	}
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	a, err := s.accounts.Credit(ctx, accountID, amount)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, ErrAccountNotFound
	}
	if errors.Is(err, repo.ErrBalanceOverflow) {
		return 0, ErrInvalidAmount
	}
	if err != nil {
		return 0, fmt.Errorf("credit account: %w", err)
	}
	metrics.CoinsCredited.Add(float64(amount))
	s.log.Info("coins credited", "account_id", accountID, "amount", amount, "balance", a.Balance)
	return a.Balance, nil
}

func transferResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrSelfTransferNotAllowed):
		return "self_transfer"
	case errors.Is(err, ErrRecipientNotFound):
		return "recipient_not_found"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	default:
		return "error"
	}
}
