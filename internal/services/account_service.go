package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/baharkarakas/coin-wallet/internal/auth"
	"github.com/baharkarakas/coin-wallet/internal/models"
	repo "github.com/baharkarakas/coin-wallet/internal/repository"
)

type AccountService struct {
	r               repo.Accounts
	log             *slog.Logger
	startingBalance int64
}

func NewAccountService(r repo.Accounts, log *slog.Logger, startingBalance int64) *AccountService {
	return &AccountService{r: r, log: log, startingBalance: startingBalance}
}

// Register creates an account holding the starting grant.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (models.Account, error) {
	a := models.Account{Username: username, Email: email}
	if err := a.Validate(); err != nil {
		return models.Account{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if password == "" {
		return models.Account{}, fmt.Errorf("%w: password required", ErrInvalidInput)
	}

	exists, err := s.r.ExistsByUsernameOrEmail(ctx, a.Username, a.Email)
	if err != nil {
		return models.Account{}, fmt.Errorf("check existing account: %w", err)
	}
	if exists {
		return models.Account{}, ErrDuplicateAccount
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}
	// a concurrent registration can still win the race; the unique index settles it
	created, err := s.r.Create(ctx, a.Username, a.Email, hash, s.startingBalance)
	if errors.Is(err, repo.ErrDuplicate) {
		return models.Account{}, ErrDuplicateAccount
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.log.Info("account registered", "account_id", created.ID, "username", created.Username)
	return created, nil
}

func (s *AccountService) Authenticate(ctx context.Context, username, password string) (models.Account, error) {
	// usernames are stored trimmed
	a, err := s.r.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repo.ErrNotFound) {
		return models.Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("load account: %w", err)
	}
	if err := auth.VerifyPassword(password, a.PasswordHash); err != nil {
		return models.Account{}, ErrInvalidCredentials
	}
	return a, nil
}

func (s *AccountService) Get(ctx context.Context, accountID int64) (models.Account, error) {
	a, err := s.r.GetByID(ctx, accountID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("load account: %w", err)
	}
	return a, nil
}

func (s *AccountService) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	a, err := s.Get(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}
