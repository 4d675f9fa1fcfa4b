package usecase

import (
	"context"
	"fmt"

	"github.com/tcaothien/allbotv3/internal/domain"
)

// ListItems returns the catalog in its stable, seed-defined order.
func (s *Service) ListItems(ctx context.Context) ([]domain.ShopItem, error) {
	return s.repo.ListItems(ctx)
}

// Purchase debits the item's price and adds a snapshot of the catalog entry
// to the buyer's inventory.
func (s *Service) Purchase(ctx context.Context, userID, itemID string) (domain.ShopItem, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return domain.ShopItem{}, fmt.Errorf("load item %s: %w", itemID, err)
	}
	if item == nil {
		return domain.ShopItem{}, domain.ErrItemNotFound
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	account, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return domain.ShopItem{}, err
	}
	if account.Balance < item.Price {
		return domain.ShopItem{}, domain.ErrInsufficientFunds
	}
	account.Balance -= item.Price
	account.Inventory = append(account.Inventory, item.Stack())
	if err := s.repo.SaveAccount(ctx, account); err != nil {
		return domain.ShopItem{}, fmt.Errorf("save account %s: %w", userID, err)
	}
	return *item, nil
}

// ReseedCatalog idempotently upserts the default ring set by ID. Entries not
// in the default set are left alone.
func (s *Service) ReseedCatalog(ctx context.Context) error {
	for _, ring := range domain.DefaultRings {
		if err := s.repo.UpsertItem(ctx, ring); err != nil {
			return fmt.Errorf("seed item %s: %w", ring.ID, err)
		}
	}
	return nil
}

// SetItemEmoji replaces the emoji of a catalog entry. Privileged callers
// only. Owned snapshots keep the emoji they were bought with.
func (s *Service) SetItemEmoji(ctx context.Context, actorID, itemID, emoji string) (domain.ShopItem, error) {
	if !s.auth.IsPrivileged(actorID) {
		return domain.ShopItem{}, domain.ErrUnauthorized
	}
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return domain.ShopItem{}, fmt.Errorf("load item %s: %w", itemID, err)
	}
	if item == nil {
		return domain.ShopItem{}, domain.ErrItemNotFound
	}
	item.Emoji = emoji
	if err := s.repo.UpsertItem(ctx, *item); err != nil {
		return domain.ShopItem{}, fmt.Errorf("save item %s: %w", itemID, err)
	}
	return *item, nil
}

// ClearItemEmoji removes the emoji from a catalog entry. Privileged callers
// only.
func (s *Service) ClearItemEmoji(ctx context.Context, actorID, itemID string) (domain.ShopItem, error) {
	return s.SetItemEmoji(ctx, actorID, itemID, "")
}
