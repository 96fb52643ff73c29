// internal/repository/postgres/accounts_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/baharkarakas/coin-wallet/internal/models"
	"github.com/baharkarakas/coin-wallet/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountCols = `id, username, email, password_hash, balance, created_at`

type accountsRepo struct{ pool *pgxpool.Pool }

func NewAccounts(pool *pgxpool.Pool) repository.Accounts {
	return &accountsRepo{pool: pool}
}

// row is satisfied by pgx.Row and pgx.Rows.
type row interface {
	Scan(dest ...any) error
}

func scanAccount(r row) (models.Account, error) {
	var a models.Account
	err := r.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Balance, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Account{}, repository.ErrNotFound
	}
	return a, err
}

func (r *accountsRepo) Create(ctx context.Context, username, email, hash string, balance int64) (models.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`INSERT INTO accounts(username, email, password_hash, balance) VALUES($1,$2,$3,$4)
		 RETURNING `+accountCols,
		username, email, hash, balance,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Account{}, repository.ErrDuplicate
		}
		return models.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

func (r *accountsRepo) GetByID(ctx context.Context, id int64) (models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id=$1`, id,
	))
}

func (r *accountsRepo) GetByUsername(ctx context.Context, username string) (models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE username=$1`, username,
	))
}

func (r *accountsRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE username=$1 OR email=$2)`, username, email,
	).Scan(&exists)
	return exists, err
}

func (r *accountsRepo) Credit(ctx context.Context, id int64, amount int64) (models.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`UPDATE accounts SET balance = balance + $2 WHERE id=$1 RETURNING `+accountCols,
		id, amount,
	))
	if isNumericOverflow(err) {
		return models.Account{}, repository.ErrBalanceOverflow
	}
	return a, err
}

// isNumericOverflow reports whether err is a PostgreSQL out-of-range error (22003).
func isNumericOverflow(err error) bool {
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		return pge.Code == "22003"
	}
	return false
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint violation (23505).
func isUniqueViolation(err error) bool {
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		return pge.Code == "23505"
	}
	return false
}
