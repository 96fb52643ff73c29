package repository

import (
	"context"
	"errors"

	"github.com/baharkarakas/coin-wallet/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate")
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrBalanceOverflow means a credit would push a balance past the int64 range.
	ErrBalanceOverflow = errors.New("balance overflow")
)

type Accounts interface {
	// Create returns ErrDuplicate when the username or email is taken.
	Create(ctx context.Context, username, email, passwordHash string, balance int64) (models.Account, error)
	GetByID(ctx context.Context, id int64) (models.Account, error)
	GetByUsername(ctx context.Context, username string) (models.Account, error)
	// ExistsByUsernameOrEmail is the pre-insert duplicate check.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	// Credit adds amount to the balance and returns the updated account.
	Credit(ctx context.Context, id int64, amount int64) (models.Account, error)
}

type Transfers interface {
	// Execute debits senderID, credits recipientID and appends the record in one
	// unit of work. The balance check is made under the same lock as the debit;
	// ErrInsufficientFunds leaves every row untouched.
	Execute(ctx context.Context, senderID, recipientID, amount int64) (models.Transfer, models.Account, error)
	// ListByAccount returns entries newest first; limit <= 0 means no cap.
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]models.TransferEntry, error)
}

// Repositories bundles one backend's implementations.
type Repositories struct {
	Accounts  Accounts
	Transfers Transfers
}
