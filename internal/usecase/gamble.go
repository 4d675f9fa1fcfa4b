package usecase

import (
	"context"
	"fmt"

	"github.com/tcaothien/allbotv3/internal/domain"
	"github.com/tcaothien/allbotv3/internal/game"
)

// JackpotResult reports one resolved jackpot attempt.
type JackpotResult struct {
	Won    bool
	Payout int64
}

// PlayDice resolves one dice round: the bet is added on a win and removed on
// a loss.
func (s *Service) PlayDice(ctx context.Context, userID string, bet int64, call game.Call) (game.DiceResult, error) {
	if bet <= 0 {
		return game.DiceResult{}, fmt.Errorf("bet must be positive")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	account, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return game.DiceResult{}, err
	}
	if account.Balance < bet {
		return game.DiceResult{}, domain.ErrInsufficientFunds
	}

	result := game.PlayDiceRound(s.newRand(), call)
	if result.Won {
		account.Balance += bet
	} else {
		account.Balance -= bet
	}
	if err := s.repo.SaveAccount(ctx, account); err != nil {
		return game.DiceResult{}, fmt.Errorf("save account %s: %w", userID, err)
	}
	return result, nil
}

// PlayJackpot debits the bet unconditionally and credits bet x100 on a win.
// Privileged identities always win; the Authorizer decides who those are.
func (s *Service) PlayJackpot(ctx context.Context, userID string, bet int64) (JackpotResult, error) {
	if bet <= 0 {
		return JackpotResult{}, fmt.Errorf("bet must be positive")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	account, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return JackpotResult{}, err
	}
	if account.Balance < bet {
		return JackpotResult{}, domain.ErrInsufficientFunds
	}

	won := game.PlayJackpot(s.newRand(), s.auth.IsPrivileged(userID))
	account.Balance -= bet
	result := JackpotResult{Won: won}
	if won {
		result.Payout = bet * game.JackpotMultiplier
		account.Balance += result.Payout
	}
	if err := s.repo.SaveAccount(ctx, account); err != nil {
		return JackpotResult{}, fmt.Errorf("save account %s: %w", userID, err)
	}
	return result, nil
}
