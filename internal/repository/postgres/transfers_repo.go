package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/baharkarakas/coin-wallet/internal/models"
	"github.com/baharkarakas/coin-wallet/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type transfersRepo struct{ pool *pgxpool.Pool }

func NewTransfers(pool *pgxpool.Pool) repository.Transfers {
	return &transfersRepo{pool: pool}
}

// Execute locks both account rows in ascending id order, so transfers running
// in opposite directions queue on the same first lock instead of deadlocking.
func (r *transfersRepo) Execute(ctx context.Context, senderID, recipientID, amount int64) (models.Transfer, models.Account, error) {
	var (
		rec    models.Transfer
		sender models.Account
	)
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id, balance FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
			[]int64{senderID, recipientID},
		)
		if err != nil {
			return fmt.Errorf("lock accounts: %w", err)
		}
		balances := make(map[int64]int64, 2)
		for rows.Next() {
			var id, bal int64
			if err := rows.Scan(&id, &bal); err != nil {
				rows.Close()
				return err
			}
			balances[id] = bal
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(balances) != 2 {
			return repository.ErrNotFound
		}
		if balances[senderID] < amount {
			return repository.ErrInsufficientFunds
		}
		if balances[recipientID] > math.MaxInt64-amount {
			return repository.ErrBalanceOverflow
		}

		sender, err = scanAccount(tx.QueryRow(ctx,
			`UPDATE accounts SET balance = balance - $2 WHERE id=$1 RETURNING `+accountCols,
			senderID, amount,
		))
		if err != nil {
			return fmt.Errorf("debit: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET balance = balance + $2 WHERE id=$1`, recipientID, amount,
		); err != nil {
			if isNumericOverflow(err) {
				return repository.ErrBalanceOverflow
			}
			return fmt.Errorf("credit: %w", err)
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO transfers(sender_id, recipient_id, amount) VALUES($1,$2,$3)
			 RETURNING id, sender_id, recipient_id, amount, created_at`,
			senderID, recipientID, amount,
		).Scan(&rec.ID, &rec.SenderID, &rec.RecipientID, &rec.Amount, &rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("append transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Transfer{}, models.Account{}, err
	}
	return rec, sender, nil
}

func (r *transfersRepo) ListByAccount(ctx context.Context, accountID int64, limit int) ([]models.TransferEntry, error) {
	// LIMIT NULL is LIMIT ALL
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.sender_id, t.recipient_id, t.amount, t.created_at, s.username, rc.username
		   FROM transfers t
		   JOIN accounts s  ON s.id  = t.sender_id
		   JOIN accounts rc ON rc.id = t.recipient_id
		  WHERE t.sender_id=$1 OR t.recipient_id=$1
		  ORDER BY t.created_at DESC, t.id DESC
		  LIMIT $2`,
		accountID, lim,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TransferEntry
	for rows.Next() {
		var e models.TransferEntry
		if err := rows.Scan(&e.ID, &e.SenderID, &e.RecipientID, &e.Amount, &e.CreatedAt, &e.SenderUsername, &e.RecipientUsername); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// withTx runs fn in one READ COMMITTED transaction. Row locks taken inside fn
// serialize competing writers; fn's error rolls everything back.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
