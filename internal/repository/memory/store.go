// Package memory is an in-process backend for the account and transfer
// repositories. A single mutex serializes every read and write, so a transfer's
// balance check, debit, credit and record append are one critical section.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/baharkarakas/coin-wallet/internal/models"
	repo "github.com/baharkarakas/coin-wallet/internal/repository"
)

type Store struct {
	mu             sync.Mutex
	nextAccountID  int64
	nextTransferID int64
	accounts       map[int64]*models.Account
	byUsername     map[string]int64
	byEmail        map[string]int64
	transfers      []models.Transfer
	now            func() time.Time
}

func NewStore() *Store {
	return &Store{
		accounts:   make(map[int64]*models.Account),
		byUsername: make(map[string]int64),
		byEmail:    make(map[string]int64),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NewRepositories wires one shared Store behind both repository interfaces.
func NewRepositories() repo.Repositories {
	s := NewStore()
	return repo.Repositories{Accounts: s, Transfers: s}
}

func (s *Store) Create(_ context.Context, username, email, passwordHash string, balance int64) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUsername[username]; ok {
		return models.Account{}, repo.ErrDuplicate
	}
	if _, ok := s.byEmail[email]; ok {
		return models.Account{}, repo.ErrDuplicate
	}
	s.nextAccountID++
	a := &models.Account{
		ID:           s.nextAccountID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Balance:      balance,
		CreatedAt:    s.now(),
	}
	s.accounts[a.ID] = a
	s.byUsername[username] = a.ID
	s.byEmail[email] = a.ID
	return *a, nil
}

func (s *Store) GetByID(_ context.Context, id int64) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return models.Account{}, repo.ErrNotFound
	}
	return *a, nil
}

func (s *Store) GetByUsername(_ context.Context, username string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUsername[username]
	if !ok {
		return models.Account{}, repo.ErrNotFound
	}
	return *s.accounts[id], nil
}

func (s *Store) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, u := s.byUsername[username]
	_, e := s.byEmail[email]
	return u || e, nil
}

func (s *Store) Credit(_ context.Context, id int64, amount int64) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return models.Account{}, repo.ErrNotFound
	}
	if amount > 0 && a.Balance > math.MaxInt64-amount {
		return models.Account{}, repo.ErrBalanceOverflow
	}
	a.Balance += amount
	return *a, nil
}

func (s *Store) Execute(_ context.Context, senderID, recipientID, amount int64) (models.Transfer, models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok1 := s.accounts[senderID]
	to, ok2 := s.accounts[recipientID]
	if !ok1 || !ok2 {
		return models.Transfer{}, models.Account{}, repo.ErrNotFound
	}
	if from.Balance < amount {
		return models.Transfer{}, models.Account{}, repo.ErrInsufficientFunds
	}
	if to.Balance > math.MaxInt64-amount {
		return models.Transfer{}, models.Account{}, repo.ErrBalanceOverflow
	}

	from.Balance -= amount
	to.Balance += amount

	s.nextTransferID++
	t := models.Transfer{
		ID:          s.nextTransferID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Amount:      amount,
		CreatedAt:   s.now(),
	}
	s.transfers = append(s.transfers, t)
	return t, *from, nil
}

func (s *Store) ListByAccount(_ context.Context, accountID int64, limit int) ([]models.TransferEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.TransferEntry
	for _, t := range s.transfers {
		if t.SenderID != accountID && t.RecipientID != accountID {
			continue
		}
		out = append(out, models.TransferEntry{
			Transfer:          t,
			SenderUsername:    s.accounts[t.SenderID].Username,
			RecipientUsername: s.accounts[t.RecipientID].Username,
		})
	}
	// newest first; ids break timestamp ties the same way the SQL ORDER BY does
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
