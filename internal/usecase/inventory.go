package usecase

import (
	"context"

	"github.com/tcaothien/allbotv3/internal/domain"
)

// Inventory returns the user's owned items in acquisition order. The order
// matters: gift and marry commands select items by 1-based position.
func (s *Service) Inventory(ctx context.Context, userID string) ([]domain.ItemStack, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	account, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append([]domain.ItemStack(nil), account.Inventory...), nil
}

// Gift moves the item at the 1-based index from one inventory to another.
// An out-of-range index leaves both inventories untouched.
func (s *Service) Gift(ctx context.Context, fromID, toID string, index int) (domain.ItemStack, error) {
	if fromID == toID {
		return domain.ItemStack{}, domain.ErrSelfTarget
	}

	unlock := s.locks.LockPair(fromID, toID)
	defer unlock()

	from, err := s.getOrCreate(ctx, fromID)
	if err != nil {
		return domain.ItemStack{}, err
	}
	prev := from.Clone()
	item, err := removeAt(from, index-1)
	if err != nil {
		return domain.ItemStack{}, err
	}
	to, err := s.getOrCreate(ctx, toID)
	if err != nil {
		return domain.ItemStack{}, err
	}
	to.Inventory = append(to.Inventory, item)

	if err := s.saveBoth(ctx, from, to, prev); err != nil {
		return domain.ItemStack{}, err
	}
	return item, nil
}

// removeAt removes and returns the stack at the 0-based index, shifting
// subsequent entries down.
func removeAt(account *domain.UserAccount, index int) (domain.ItemStack, error) {
	if index < 0 || index >= len(account.Inventory) {
		return domain.ItemStack{}, domain.ErrIndexOutOfRange
	}
	item := account.Inventory[index]
	account.Inventory = append(account.Inventory[:index], account.Inventory[index+1:]...)
	return item, nil
}
