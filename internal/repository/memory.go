package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tcaothien/allbotv3/internal/domain"
)

// Memory is an in-process store. It backs the service tests and doubles as
// a no-database mode for local runs; nothing survives a restart.
type Memory struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.UserAccount
	items        map[string]domain.ShopItem
	transactions []domain.CoinTransaction
	nextTxID     int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]*domain.UserAccount),
		items:    make(map[string]domain.ShopItem),
	}
}

func (m *Memory) GetAccount(_ context.Context, id string) (*domain.UserAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	return account.Clone(), nil
}

func (m *Memory) CreateAccount(_ context.Context, id string) (*domain.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account := &domain.UserAccount{ID: id, CreatedAt: time.Now()}
	m.accounts[id] = account
	return account.Clone(), nil
}

func (m *Memory) SaveAccount(_ context.Context, account *domain.UserAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account.Clone()
	return nil
}

func (m *Memory) TopBalances(_ context.Context, limit int) ([]domain.UserAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]domain.UserAccount, 0, len(m.accounts))
	for _, account := range m.accounts {
		all = append(all, *account.Clone())
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Balance != all[j].Balance {
			return all[i].Balance > all[j].Balance
		}
		return all[i].ID < all[j].ID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *Memory) DeleteAllAccounts(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = make(map[string]*domain.UserAccount)
	return nil
}

func (m *Memory) ListItems(_ context.Context) ([]domain.ShopItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	items := make([]domain.ShopItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, m.items[id])
	}
	return items, nil
}

func (m *Memory) GetItem(_ context.Context, id string) (*domain.ShopItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *Memory) UpsertItem(_ context.Context, item domain.ShopItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	return nil
}

func (m *Memory) DeleteAllItems(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]domain.ShopItem)
	return nil
}

func (m *Memory) CreateTransaction(_ context.Context, fromID, toID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTxID++
	m.transactions = append(m.transactions, domain.CoinTransaction{
		ID:         m.nextTxID,
		FromUserID: fromID,
		ToUserID:   toID,
		Amount:     amount,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (m *Memory) ListRecentTransactions(_ context.Context, limit int) ([]domain.CoinTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.CoinTransaction, 0, limit)
	for i := len(m.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.transactions[i])
	}
	return out, nil
}
