package postgres

import (
	repo "github.com/baharkarakas/coin-wallet/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositories(pool *pgxpool.Pool) repo.Repositories {
	return repo.Repositories{
		Accounts:  &accountsRepo{pool},
		Transfers: &transfersRepo{pool},
	}
}
