package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/tcaothien/allbotv3/internal/domain"
	"github.com/tcaothien/allbotv3/internal/game"
)

// Repository is the persistence contract the economy core runs against.
// Accounts are whole documents: load, mutate in memory, save. Serialization
// of concurrent mutations is the Service's job, not the store's.
type Repository interface {
	GetAccount(ctx context.Context, id string) (*domain.UserAccount, error)
	CreateAccount(ctx context.Context, id string) (*domain.UserAccount, error)
	SaveAccount(ctx context.Context, account *domain.UserAccount) error
	TopBalances(ctx context.Context, limit int) ([]domain.UserAccount, error)
	DeleteAllAccounts(ctx context.Context) error

	ListItems(ctx context.Context) ([]domain.ShopItem, error)
	GetItem(ctx context.Context, id string) (*domain.ShopItem, error)
	UpsertItem(ctx context.Context, item domain.ShopItem) error
	DeleteAllItems(ctx context.Context) error

	CreateTransaction(ctx context.Context, fromID, toID string, amount int64) error
	ListRecentTransactions(ctx context.Context, limit int) ([]domain.CoinTransaction, error)
}

// Authorizer decides which identities may run administrative operations and
// which play the jackpot with a guaranteed win.
type Authorizer interface {
	IsPrivileged(userID string) bool
}

// StaticAuthorizer is an Authorizer over a fixed set of identities.
type StaticAuthorizer map[string]struct{}

// NewStaticAuthorizer builds a StaticAuthorizer from a list of user IDs.
func NewStaticAuthorizer(ids []string) StaticAuthorizer {
	a := make(StaticAuthorizer, len(ids))
	for _, id := range ids {
		a[id] = struct{}{}
	}
	return a
}

func (a StaticAuthorizer) IsPrivileged(userID string) bool {
	_, ok := a[userID]
	return ok
}

const (
	defaultProposalWindow   = 60 * time.Second
	defaultAffinityCooldown = time.Hour

	dailyRewardMin = 1000
	dailyRewardMax = 20000

	leaderboardSize = 10
)

// Service implements the economy and relationship operations over a
// Repository. All mutations to an account happen under that account's lock;
// operations touching two accounts take both locks in sorted order.
type Service struct {
	repo  Repository
	auth  Authorizer
	locks *keyedMutex

	proposals   *ProposalCoordinator
	expiredHook func(PendingProposal)

	now     func() time.Time
	newRand func() *rand.Rand

	affinityCooldown time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandSource overrides the random source factory used by the games and
// the daily reward.
func WithRandSource(newRand func() *rand.Rand) Option {
	return func(s *Service) { s.newRand = newRand }
}

// WithProposalWindow overrides the proposal response window.
func WithProposalWindow(d time.Duration) Option {
	return func(s *Service) { s.proposals.window = d }
}

// WithAffinityCooldown overrides the affinity grant cooldown.
func WithAffinityCooldown(d time.Duration) Option {
	return func(s *Service) { s.affinityCooldown = d }
}

// NewService builds the economy core.
func NewService(repo Repository, auth Authorizer, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		auth:  auth,
		locks: newKeyedMutex(),
		now:   time.Now,
		newRand: func() *rand.Rand {
			seed, err := game.NewSeed()
			if err != nil {
				seed = time.Now().UnixNano()
			}
			return rand.New(rand.NewSource(seed))
		},
		affinityCooldown: defaultAffinityCooldown,
	}
	s.proposals = newProposalCoordinator(defaultProposalWindow, s.expireProposal)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorizer exposes the privilege check for collaborator layers.
func (s *Service) Authorizer() Authorizer {
	return s.auth
}

// getOrCreate loads an account, creating it on first contact.
func (s *Service) getOrCreate(ctx context.Context, id string) (*domain.UserAccount, error) {
	account, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", id, err)
	}
	if account == nil {
		account, err = s.repo.CreateAccount(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("create account %s: %w", id, err)
		}
	}
	return account, nil
}
