package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcaothien/allbotv3/internal/domain"
)

// buyRing funds the user and buys the given ring.
func buyRing(t *testing.T, svc *Service, userID, ringID string) {
	t.Helper()
	ctx := context.Background()
	item, err := svc.repo.GetItem(ctx, ringID)
	require.NoError(t, err)
	require.NotNil(t, item)
	fund(t, svc, userID, item.Price)
	_, err = svc.Purchase(ctx, userID, ringID)
	require.NoError(t, err)
}

// marry walks two users through a full propose/accept flow.
func marry(t *testing.T, svc *Service, proposerID, responderID, ringID string) {
	t.Helper()
	ctx := context.Background()
	buyRing(t, svc, proposerID, ringID)
	_, err := svc.ProposeMarriage(ctx, proposerID, responderID, 1)
	require.NoError(t, err)
	_, err = svc.RespondMarriage(ctx, responderID, true)
	require.NoError(t, err)
}

func TestService_ProposeMarriage_Escrow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	buyRing(t, svc, "100", "01")

	p, err := svc.ProposeMarriage(ctx, "100", "200", 1)
	assert.NoError(t, err)
	assert.Equal(t, "01", p.Ring.ItemID)
	assert.False(t, p.ExpiresAt.IsZero())

	// The ring left the proposer's inventory for the window.
	inventory, _ := svc.Inventory(ctx, "100")
	assert.Empty(t, inventory)

	pending, ok := svc.proposals.Pending("200")
	assert.True(t, ok)
	assert.Equal(t, "100", pending.ProposerID)
}

func TestService_ProposeMarriage_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.ProposeMarriage(ctx, "100", "100", 1)
	assert.ErrorIs(t, err, domain.ErrSelfTarget)

	_, err = svc.ProposeMarriage(ctx, "100", "200", 1)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)

	marry(t, svc, "300", "400", "01")
	buyRing(t, svc, "100", "01")
	_, err = svc.ProposeMarriage(ctx, "100", "300", 1)
	assert.ErrorIs(t, err, domain.ErrAlreadyMarried)
}

func TestService_ProposeMarriage_OnePendingPerParty(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	buyRing(t, svc, "100", "01")
	buyRing(t, svc, "300", "01")

	_, err := svc.ProposeMarriage(ctx, "100", "200", 1)
	require.NoError(t, err)

	// The responder is spoken for; the proposer is busy too.
	_, err = svc.ProposeMarriage(ctx, "300", "200", 1)
	assert.ErrorIs(t, err, domain.ErrProposalPending)
	_, err = svc.ProposeMarriage(ctx, "100", "400", 1)
	assert.ErrorIs(t, err, domain.ErrProposalPending)

	// The blocked proposal did not take the ring.
	inventory, _ := svc.Inventory(ctx, "300")
	assert.Len(t, inventory, 1)
}

func TestService_RespondMarriage_Decline(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	buyRing(t, svc, "100", "01")
	_, err := svc.ProposeMarriage(ctx, "100", "200", 1)
	require.NoError(t, err)

	p, err := svc.RespondMarriage(ctx, "200", false)
	assert.NoError(t, err)
	assert.Equal(t, "100", p.ProposerID)

	// The ring comes home and nobody is married.
	inventory, _ := svc.Inventory(ctx, "100")
	require.Len(t, inventory, 1)
	assert.Equal(t, "01", inventory[0].ItemID)

	_, err = svc.MarriageInfo(ctx, "100")
	assert.ErrorIs(t, err, domain.ErrNotMarried)
}

func TestService_RespondMarriage_Accept(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	buyRing(t, svc, "100", "333")
	_, err := svc.ProposeMarriage(ctx, "100", "200", 1)
	require.NoError(t, err)

	_, err = svc.RespondMarriage(ctx, "200", true)
	assert.NoError(t, err)

	a, err := svc.MarriageInfo(ctx, "100")
	require.NoError(t, err)
	b, err := svc.MarriageInfo(ctx, "200")
	require.NoError(t, err)

	assert.Equal(t, "200", a.Record.PartnerID)
	assert.Equal(t, "100", b.Record.PartnerID)
	assert.Equal(t, "333", a.Record.RingItemID)
	assert.Equal(t, a.Record.WeddingDate, b.Record.WeddingDate)

	// The ring's affinity bonus seeds the shared score on both sides.
	assert.Equal(t, int64(333), a.Record.AffinityPoints)
	assert.Equal(t, int64(333), b.Record.AffinityPoints)

	// The escrowed ring is consumed, not returned.
	inventory, _ := svc.Inventory(ctx, "100")
	assert.Empty(t, inventory)
}

func TestService_RespondMarriage_NothingPending(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.RespondMarriage(ctx, "200", true)
	assert.ErrorIs(t, err, domain.ErrNoPendingProposal)
}

func TestService_RespondMarriage_KindMismatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	buyRing(t, svc, "100", "01")
	_, err := svc.ProposeMarriage(ctx, "100", "200", 1)
	require.NoError(t, err)

	// A divorce response cannot claim a marriage proposal.
	_, err = svc.RespondDivorce(ctx, "200", true)
	assert.ErrorIs(t, err, domain.ErrNoPendingProposal)

	// The proposal is still live.
	_, ok := svc.proposals.Pending("200")
	assert.True(t, ok)
}

func TestService_ProposalTimeout_RestoresEscrow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, WithProposalWindow(20*time.Millisecond))

	var (
		mu      sync.Mutex
		expired []PendingProposal
	)
	svc.SetProposalExpiredHook(func(p PendingProposal) {
		mu.Lock()
		defer mu.Unlock()
		expired = append(expired, p)
	})

	buyRing(t, svc, "100", "01")
	_, err := svc.ProposeMarriage(ctx, "100", "200", 1)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		inventory, invErr := svc.Inventory(ctx, "100")
		return invErr == nil && len(inventory) == 1
	}, 2*time.Second, 10*time.Millisecond, "escrow should return on timeout")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, expired, 1)
	assert.Equal(t, ProposalMarriage, expired[0].Kind)

	// The slot is free again.
	_, ok := svc.proposals.Pending("200")
	assert.False(t, ok)
}

func TestService_Respond_BeatsTimeout(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, WithProposalWindow(300*time.Millisecond))

	var expirations int
	var mu sync.Mutex
	svc.SetProposalExpiredHook(func(PendingProposal) {
		mu.Lock()
		expirations++
		mu.Unlock()
	})

	buyRing(t, svc, "100", "01")
	_, err := svc.ProposeMarriage(ctx, "100", "200", 1)
	require.NoError(t, err)

	_, err = svc.RespondMarriage(ctx, "200", true)
	require.NoError(t, err)

	// Give a stale timer every chance to fire; a claimed entry must not
	// produce a second terminal outcome.
	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 0, expirations)
	mu.Unlock()

	// Accepted and stayed accepted; no phantom escrow return.
	inventory, _ := svc.Inventory(ctx, "100")
	assert.Empty(t, inventory)
	_, err = svc.MarriageInfo(ctx, "100")
	assert.NoError(t, err)
}

func TestService_Divorce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.RequestDivorce(ctx, "100")
	assert.ErrorIs(t, err, domain.ErrNotMarried)

	marry(t, svc, "100", "200", "01")

	p, err := svc.RequestDivorce(ctx, "100")
	assert.NoError(t, err)
	assert.Equal(t, "200", p.ResponderID)

	_, err = svc.RespondDivorce(ctx, "200", true)
	assert.NoError(t, err)

	// Both sides are single again.
	_, err = svc.MarriageInfo(ctx, "100")
	assert.ErrorIs(t, err, domain.ErrNotMarried)
	_, err = svc.MarriageInfo(ctx, "200")
	assert.ErrorIs(t, err, domain.ErrNotMarried)
}

func TestService_Divorce_Declined(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	marry(t, svc, "100", "200", "01")

	_, err := svc.RequestDivorce(ctx, "100")
	require.NoError(t, err)
	_, err = svc.RespondDivorce(ctx, "200", false)
	assert.NoError(t, err)

	// Still married.
	info, err := svc.MarriageInfo(ctx, "100")
	assert.NoError(t, err)
	assert.Equal(t, "200", info.Record.PartnerID)
}

func TestService_GrantAffinity(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc, _ := newTestService(t, WithClock(func() time.Time { return now }))

	_, err := svc.GrantAffinity(ctx, "100")
	assert.ErrorIs(t, err, domain.ErrNotMarried)

	marry(t, svc, "100", "200", "01")

	points, err := svc.GrantAffinity(ctx, "100")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), points)

	// The shared score shows on both records.
	info, _ := svc.MarriageInfo(ctx, "200")
	assert.Equal(t, int64(1), info.Record.AffinityPoints)

	// Each partner has an independent cooldown.
	_, err = svc.GrantAffinity(ctx, "100")
	assert.ErrorIs(t, err, domain.ErrCooldownActive)
	points, err = svc.GrantAffinity(ctx, "200")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), points)

	remaining, err := svc.AffinityCooldownRemaining(ctx, "100")
	assert.NoError(t, err)
	assert.Greater(t, remaining, time.Duration(0))

	// After the window the granter may go again.
	now = now.Add(time.Hour)
	points, err = svc.GrantAffinity(ctx, "100")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), points)

	remaining, err = svc.AffinityCooldownRemaining(ctx, "200")
	assert.NoError(t, err)
	assert.Equal(t, time.Duration(0), remaining)
}

func TestService_Decorations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	err := svc.SetDecoration(ctx, "100", DecorationImage, "https://example.com/a.png")
	assert.ErrorIs(t, err, domain.ErrNotMarried)

	marry(t, svc, "100", "200", "01")

	assert.ErrorIs(t, svc.SetDecoration(ctx, "100", DecorationImage, "not a url"),
		domain.ErrInvalidImageURL)
	assert.ErrorIs(t, svc.SetDecoration(ctx, "100", DecorationImage, "https://example.com/a.txt"),
		domain.ErrInvalidImageURL)
	assert.ErrorIs(t, svc.SetDecoration(ctx, "100", DecorationCaption, "   "),
		domain.ErrEmptyCaption)

	assert.NoError(t, svc.SetDecoration(ctx, "100", DecorationImage, "https://example.com/a.png"))
	assert.ErrorIs(t, svc.SetDecoration(ctx, "100", DecorationImage, "https://example.com/b.png"),
		domain.ErrAlreadySet)

	assert.NoError(t, svc.SetDecoration(ctx, "100", DecorationThumbnail, "https://example.com/t.jpg?size=64"))
	assert.NoError(t, svc.SetDecoration(ctx, "100", DecorationCaption, "mãi bên nhau"))

	info, err := svc.MarriageInfo(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", info.Record.Image)
	assert.Equal(t, "mãi bên nhau", info.Record.Caption)

	// Decorations are per account, not shared.
	partner, err := svc.MarriageInfo(ctx, "200")
	require.NoError(t, err)
	assert.Empty(t, partner.Record.Image)

	cleared, err := svc.ClearDecoration(ctx, "100", DecorationImage)
	assert.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", cleared)

	_, err = svc.ClearDecoration(ctx, "100", DecorationImage)
	assert.ErrorIs(t, err, domain.ErrNotSet)
}

func TestService_MarriageInfo_IncludesRing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	marry(t, svc, "100", "200", "07")

	info, err := svc.MarriageInfo(ctx, "100")
	require.NoError(t, err)
	require.NotNil(t, info.Ring)
	assert.Equal(t, "ENZ Ruby", info.Ring.Name)
}
