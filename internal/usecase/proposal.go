package usecase

import (
	"sync"
	"time"

	"github.com/tcaothien/allbotv3/internal/domain"
)

// ProposalKind distinguishes the two interactive flows sharing the
// accept/decline/timeout protocol.
type ProposalKind int

const (
	ProposalMarriage ProposalKind = iota
	ProposalDivorce
)

// PendingProposal is a transient, in-memory record of one open proposal.
// For marriage proposals Ring holds the escrowed item.
type PendingProposal struct {
	Kind        ProposalKind
	ProposerID  string
	ResponderID string
	Ring        domain.ItemStack
	ExpiresAt   time.Time
}

type pendingEntry struct {
	proposal PendingProposal
	timer    *time.Timer
}

// ProposalCoordinator holds at most one pending proposal per responder and
// per proposer. The response and the expiry timer race for the same entry;
// whichever removes it first wins and the loser is a no-op.
type ProposalCoordinator struct {
	mu          sync.Mutex
	window      time.Duration
	byResponder map[string]*pendingEntry
	byProposer  map[string]*pendingEntry
	onTimeout   func(PendingProposal)
}

func newProposalCoordinator(window time.Duration, onTimeout func(PendingProposal)) *ProposalCoordinator {
	return &ProposalCoordinator{
		window:      window,
		byResponder: make(map[string]*pendingEntry),
		byProposer:  make(map[string]*pendingEntry),
		onTimeout:   onTimeout,
	}
}

// Open registers a proposal and starts its expiry timer. It fails with
// ErrProposalPending when either party is already involved in one, in either
// role.
func (c *ProposalCoordinator) Open(p PendingProposal) (PendingProposal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range []string{p.ProposerID, p.ResponderID} {
		if _, ok := c.byResponder[id]; ok {
			return PendingProposal{}, domain.ErrProposalPending
		}
		if _, ok := c.byProposer[id]; ok {
			return PendingProposal{}, domain.ErrProposalPending
		}
	}

	p.ExpiresAt = time.Now().Add(c.window)
	entry := &pendingEntry{proposal: p}
	entry.timer = time.AfterFunc(c.window, func() { c.expire(entry) })
	c.byResponder[p.ResponderID] = entry
	c.byProposer[p.ProposerID] = entry
	return p, nil
}

// Respond atomically claims the responder's pending proposal of the given
// kind. A claim cancels the expiry timer; once claimed, the timeout path can
// no longer fire for this proposal.
func (c *ProposalCoordinator) Respond(responderID string, kind ProposalKind) (PendingProposal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.byResponder[responderID]
	if !ok || entry.proposal.Kind != kind {
		return PendingProposal{}, domain.ErrNoPendingProposal
	}
	entry.timer.Stop()
	c.remove(entry)
	return entry.proposal, nil
}

// Pending returns the responder's open proposal without claiming it.
func (c *ProposalCoordinator) Pending(responderID string) (PendingProposal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.byResponder[responderID]
	if !ok {
		return PendingProposal{}, false
	}
	return entry.proposal, true
}

// expire runs on the timer goroutine. If a response already claimed the
// entry this is a no-op, so exactly one terminal outcome applies.
func (c *ProposalCoordinator) expire(entry *pendingEntry) {
	c.mu.Lock()
	current, ok := c.byResponder[entry.proposal.ResponderID]
	if !ok || current != entry {
		c.mu.Unlock()
		return
	}
	c.remove(entry)
	c.mu.Unlock()

	if c.onTimeout != nil {
		c.onTimeout(entry.proposal)
	}
}

// remove must be called with c.mu held.
func (c *ProposalCoordinator) remove(entry *pendingEntry) {
	delete(c.byResponder, entry.proposal.ResponderID)
	delete(c.byProposer, entry.proposal.ProposerID)
}
