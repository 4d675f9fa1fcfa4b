package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/tcaothien/allbotv3/internal/domain"
)

// Balance returns the user's current balance, creating the account on first
// contact.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	account, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Daily credits a uniform random reward between 1,000 and 20,000 and returns
// the amount granted.
func (s *Service) Daily(ctx context.Context, userID string) (int64, error) {
	reward := dailyRewardMin + s.newRand().Int63n(dailyRewardMax-dailyRewardMin+1)

	unlock := s.locks.Lock(userID)
	defer unlock()

	account, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	account.Balance += reward
	if err := s.repo.SaveAccount(ctx, account); err != nil {
		return 0, fmt.Errorf("save account %s: %w", userID, err)
	}
	return reward, nil
}

// Transfer moves amount from one account to the other. The operation is
// all-or-nothing: an insufficient balance leaves both accounts untouched.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if fromID == toID {
		return domain.ErrSelfTarget
	}

	unlock := s.locks.LockPair(fromID, toID)
	defer unlock()

	from, err := s.getOrCreate(ctx, fromID)
	if err != nil {
		return err
	}
	if from.Balance < amount {
		return domain.ErrInsufficientFunds
	}
	to, err := s.getOrCreate(ctx, toID)
	if err != nil {
		return err
	}

	prev := from.Clone()
	from.Balance -= amount
	to.Balance += amount
	if err := s.saveBoth(ctx, from, to, prev); err != nil {
		return err
	}

	if err := s.repo.CreateTransaction(ctx, fromID, toID, amount); err != nil {
		// The transfer itself committed; the audit row is best-effort.
		log.Printf("record transaction %s -> %s: %v", fromID, toID, err)
	}
	return nil
}

// AdminCredit adds amount to the target's balance. Privileged callers only.
func (s *Service) AdminCredit(ctx context.Context, actorID, targetID string, amount int64) error {
	if !s.auth.IsPrivileged(actorID) {
		return domain.ErrUnauthorized
	}
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	unlock := s.locks.Lock(targetID)
	defer unlock()

	account, err := s.getOrCreate(ctx, targetID)
	if err != nil {
		return err
	}
	account.Balance += amount
	if err := s.repo.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("save account %s: %w", targetID, err)
	}
	if err := s.repo.CreateTransaction(ctx, "", targetID, amount); err != nil {
		log.Printf("record admin credit for %s: %v", targetID, err)
	}
	return nil
}

// AdminDebit removes amount from the target's balance. Fails with
// ErrInsufficientFunds when the target holds less than amount.
func (s *Service) AdminDebit(ctx context.Context, actorID, targetID string, amount int64) error {
	if !s.auth.IsPrivileged(actorID) {
		return domain.ErrUnauthorized
	}
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	unlock := s.locks.Lock(targetID)
	defer unlock()

	account, err := s.getOrCreate(ctx, targetID)
	if err != nil {
		return err
	}
	if account.Balance < amount {
		return domain.ErrInsufficientFunds
	}
	account.Balance -= amount
	if err := s.repo.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("save account %s: %w", targetID, err)
	}
	if err := s.repo.CreateTransaction(ctx, targetID, "", amount); err != nil {
		log.Printf("record admin debit for %s: %v", targetID, err)
	}
	return nil
}

// Leaderboard returns the top accounts by balance, richest first.
func (s *Service) Leaderboard(ctx context.Context) ([]domain.UserAccount, error) {
	return s.repo.TopBalances(ctx, leaderboardSize)
}

// RecentTransactions returns the latest audited balance movements.
// Privileged callers only.
func (s *Service) RecentTransactions(ctx context.Context, actorID string, limit int) ([]domain.CoinTransaction, error) {
	if !s.auth.IsPrivileged(actorID) {
		return nil, domain.ErrUnauthorized
	}
	return s.repo.ListRecentTransactions(ctx, limit)
}

// ResetAll wipes every account, clears the catalog, and reseeds the default
// rings. Privileged callers only.
func (s *Service) ResetAll(ctx context.Context, actorID string) error {
	if !s.auth.IsPrivileged(actorID) {
		return domain.ErrUnauthorized
	}
	if err := s.repo.DeleteAllAccounts(ctx); err != nil {
		return fmt.Errorf("delete accounts: %w", err)
	}
	if err := s.repo.DeleteAllItems(ctx); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	return s.ReseedCatalog(ctx)
}

// saveBoth persists two mutated accounts. aPrev is a's pre-mutation
// snapshot; when the second write fails the first is rolled back so no
// asymmetric state survives the failure.
func (s *Service) saveBoth(ctx context.Context, a, b, aPrev *domain.UserAccount) error {
	if err := s.repo.SaveAccount(ctx, a); err != nil {
		return fmt.Errorf("save account %s: %w", a.ID, err)
	}
	if err := s.repo.SaveAccount(ctx, b); err != nil {
		if rbErr := s.repo.SaveAccount(ctx, aPrev); rbErr != nil {
			log.Printf("rollback account %s: %v", aPrev.ID, rbErr)
		}
		return fmt.Errorf("save account %s: %w", b.ID, err)
	}
	return nil
}
