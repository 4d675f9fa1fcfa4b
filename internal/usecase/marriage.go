package usecase

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/tcaothien/allbotv3/internal/domain"
)

// DecorationField selects one of the settable marriage profile fields.
type DecorationField string

const (
	DecorationImage     DecorationField = "image"
	DecorationThumbnail DecorationField = "thumbnail"
	DecorationCaption   DecorationField = "caption"
)

var imageURLPattern = regexp.MustCompile(`(?i)^https?://\S+\.(png|jpe?g|gif|webp)(\?\S*)?$`)

// MarriageInfo bundles a marriage record with the live catalog entry for its
// ring, for display.
type MarriageInfo struct {
	Record domain.MarriageRecord
	Ring   *domain.ShopItem
}

// SetProposalExpiredHook registers a callback invoked after a proposal times
// out and its escrow has been restored. Used by the transport layer to
// update the prompt message.
func (s *Service) SetProposalExpiredHook(hook func(PendingProposal)) {
	s.expiredHook = hook
}

// ProposeMarriage escrows the chosen ring and opens a time-boxed proposal
// addressed to the responder. The ring leaves the proposer's inventory for
// the duration of the window and returns on any non-accept outcome.
func (s *Service) ProposeMarriage(ctx context.Context, proposerID, responderID string, index int) (PendingProposal, error) {
	if proposerID == responderID {
		return PendingProposal{}, domain.ErrSelfTarget
	}

	unlock := s.locks.LockPair(proposerID, responderID)
	defer unlock()

	proposer, err := s.getOrCreate(ctx, proposerID)
	if err != nil {
		return PendingProposal{}, err
	}
	if proposer.Married() {
		return PendingProposal{}, domain.ErrAlreadyMarried
	}
	responder, err := s.getOrCreate(ctx, responderID)
	if err != nil {
		return PendingProposal{}, err
	}
	if responder.Married() {
		return PendingProposal{}, domain.ErrAlreadyMarried
	}
	if index < 1 || index > len(proposer.Inventory) {
		return PendingProposal{}, domain.ErrIndexOutOfRange
	}

	ring := proposer.Inventory[index-1]
	p, err := s.proposals.Open(PendingProposal{
		Kind:        ProposalMarriage,
		ProposerID:  proposerID,
		ResponderID: responderID,
		Ring:        ring,
	})
	if err != nil {
		return PendingProposal{}, err
	}

	if _, err := removeAt(proposer, index-1); err != nil {
		// Unreachable: the index was validated above.
		return PendingProposal{}, err
	}
	if err := s.repo.SaveAccount(ctx, proposer); err != nil {
		// Tear the reservation down so the failed command leaves nothing
		// pending.
		_, _ = s.proposals.Respond(responderID, ProposalMarriage)
		return PendingProposal{}, fmt.Errorf("save account %s: %w", proposerID, err)
	}
	return p, nil
}

// RespondMarriage resolves the responder's pending marriage proposal. On
// accept both accounts get a symmetric MarriageRecord and the escrowed ring
// is consumed; on decline the ring returns to the proposer.
func (s *Service) RespondMarriage(ctx context.Context, responderID string, accept bool) (PendingProposal, error) {
	p, err := s.proposals.Respond(responderID, ProposalMarriage)
	if err != nil {
		return PendingProposal{}, err
	}
	if !accept {
		if err := s.returnEscrow(ctx, p); err != nil {
			return PendingProposal{}, err
		}
		return p, nil
	}

	unlock := s.locks.LockPair(p.ProposerID, p.ResponderID)
	defer unlock()

	proposer, err := s.getOrCreate(ctx, p.ProposerID)
	if err != nil {
		return PendingProposal{}, err
	}
	responder, err := s.getOrCreate(ctx, p.ResponderID)
	if err != nil {
		return PendingProposal{}, err
	}
	if proposer.Married() || responder.Married() {
		// Somebody married through another path while the window was open.
		// The escrow still belongs to the proposer.
		if err := s.returnEscrowLocked(ctx, proposer, p.Ring); err != nil {
			return PendingProposal{}, err
		}
		return PendingProposal{}, domain.ErrAlreadyMarried
	}

	var bonus int64
	if item, err := s.repo.GetItem(ctx, p.Ring.ItemID); err == nil && item != nil {
		bonus = item.AffinityBonus
	}

	wedding := s.now()
	prev := proposer.Clone()
	proposer.Marriage = &domain.MarriageRecord{
		PartnerID:      p.ResponderID,
		RingItemID:     p.Ring.ItemID,
		WeddingDate:    wedding,
		AffinityPoints: bonus,
	}
	responder.Marriage = &domain.MarriageRecord{
		PartnerID:      p.ProposerID,
		RingItemID:     p.Ring.ItemID,
		WeddingDate:    wedding,
		AffinityPoints: bonus,
	}
	if err := s.saveBoth(ctx, proposer, responder, prev); err != nil {
		return PendingProposal{}, err
	}
	return p, nil
}

// RequestDivorce opens a pending divorce request addressed to the partner.
func (s *Service) RequestDivorce(ctx context.Context, requesterID string) (PendingProposal, error) {
	unlock := s.locks.Lock(requesterID)
	defer unlock()

	requester, err := s.getOrCreate(ctx, requesterID)
	if err != nil {
		return PendingProposal{}, err
	}
	if !requester.Married() {
		return PendingProposal{}, domain.ErrNotMarried
	}
	return s.proposals.Open(PendingProposal{
		Kind:        ProposalDivorce,
		ProposerID:  requesterID,
		ResponderID: requester.Marriage.PartnerID,
	})
}

// RespondDivorce resolves the responder's pending divorce request. On accept
// both marriage records are cleared symmetrically; on decline nothing
// changes.
func (s *Service) RespondDivorce(ctx context.Context, responderID string, accept bool) (PendingProposal, error) {
	p, err := s.proposals.Respond(responderID, ProposalDivorce)
	if err != nil {
		return PendingProposal{}, err
	}
	if !accept {
		return p, nil
	}

	unlock := s.locks.LockPair(p.ProposerID, p.ResponderID)
	defer unlock()

	requester, err := s.getOrCreate(ctx, p.ProposerID)
	if err != nil {
		return PendingProposal{}, err
	}
	partner, err := s.getOrCreate(ctx, p.ResponderID)
	if err != nil {
		return PendingProposal{}, err
	}

	prev := requester.Clone()
	requester.Marriage = nil
	partner.Marriage = nil
	if err := s.saveBoth(ctx, requester, partner, prev); err != nil {
		return PendingProposal{}, err
	}
	return p, nil
}

// GrantAffinity adds one affinity point to the marriage. Rate limited to
// one grant per granter per hour; each partner has their own cooldown.
func (s *Service) GrantAffinity(ctx context.Context, userID string) (int64, error) {
	partnerID, err := s.partnerOf(ctx, userID)
	if err != nil {
		return 0, err
	}

	unlock := s.locks.LockPair(userID, partnerID)
	defer unlock()

	account, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !account.Married() || account.Marriage.PartnerID != partnerID {
		return 0, domain.ErrNotMarried
	}
	now := s.now()
	if account.LastAffinityAt != nil && now.Sub(*account.LastAffinityAt) < s.affinityCooldown {
		return 0, domain.ErrCooldownActive
	}

	partner, err := s.getOrCreate(ctx, partnerID)
	if err != nil {
		return 0, err
	}

	prev := account.Clone()
	account.Marriage.AffinityPoints++
	account.LastAffinityAt = &now
	// Keep the shared score in step on both records.
	if partner.Married() && partner.Marriage.PartnerID == userID {
		partner.Marriage.AffinityPoints = account.Marriage.AffinityPoints
	}
	if err := s.saveBoth(ctx, account, partner, prev); err != nil {
		return 0, err
	}
	return account.Marriage.AffinityPoints, nil
}

// AffinityCooldownRemaining reports how long until the user may grant again.
func (s *Service) AffinityCooldownRemaining(ctx context.Context, userID string) (time.Duration, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	account, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	if account.LastAffinityAt == nil {
		return 0, nil
	}
	remaining := s.affinityCooldown - s.now().Sub(*account.LastAffinityAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// MarriageInfo returns the user's marriage record plus the live catalog
// entry for the wedding ring.
func (s *Service) MarriageInfo(ctx context.Context, userID string) (MarriageInfo, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	account, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return MarriageInfo{}, err
	}
	if !account.Married() {
		return MarriageInfo{}, domain.ErrNotMarried
	}
	info := MarriageInfo{Record: *account.Marriage}
	if item, err := s.repo.GetItem(ctx, account.Marriage.RingItemID); err == nil {
		info.Ring = item
	}
	return info, nil
}

// SetDecoration sets one decorative marriage field. A non-empty field must
// be cleared first.
func (s *Service) SetDecoration(ctx context.Context, userID string, field DecorationField, value string) error {
	switch field {
	case DecorationImage, DecorationThumbnail:
		if !imageURLPattern.MatchString(value) {
			return domain.ErrInvalidImageURL
		}
	case DecorationCaption:
		if strings.TrimSpace(value) == "" {
			return domain.ErrEmptyCaption
		}
	default:
		return fmt.Errorf("unknown decoration field %q", field)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	account, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if !account.Married() {
		return domain.ErrNotMarried
	}
	slot := decorationSlot(account.Marriage, field)
	if *slot != "" {
		return domain.ErrAlreadySet
	}
	*slot = value
	if err := s.repo.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("save account %s: %w", userID, err)
	}
	return nil
}

// ClearDecoration clears one decorative marriage field and returns the
// value that was removed.
func (s *Service) ClearDecoration(ctx context.Context, userID string, field DecorationField) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	account, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return "", err
	}
	if !account.Married() {
		return "", domain.ErrNotMarried
	}
	slot := decorationSlot(account.Marriage, field)
	if *slot == "" {
		return "", domain.ErrNotSet
	}
	cleared := *slot
	*slot = ""
	if err := s.repo.SaveAccount(ctx, account); err != nil {
		return "", fmt.Errorf("save account %s: %w", userID, err)
	}
	return cleared, nil
}

func decorationSlot(record *domain.MarriageRecord, field DecorationField) *string {
	switch field {
	case DecorationThumbnail:
		return &record.Thumbnail
	case DecorationCaption:
		return &record.Caption
	default:
		return &record.Image
	}
}

// partnerOf reads the user's current partner under the user's own lock.
func (s *Service) partnerOf(ctx context.Context, userID string) (string, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	account, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return "", err
	}
	if !account.Married() {
		return "", domain.ErrNotMarried
	}
	return account.Marriage.PartnerID, nil
}

// expireProposal is the coordinator's timeout path: a timed-out marriage
// proposal returns its escrowed ring; a timed-out divorce changes nothing.
func (s *Service) expireProposal(p PendingProposal) {
	if p.Kind == ProposalMarriage {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.returnEscrow(ctx, p); err != nil {
			log.Printf("return escrow to %s: %v", p.ProposerID, err)
		}
	}
	if s.expiredHook != nil {
		s.expiredHook(p)
	}
}

// returnEscrow puts the escrowed ring back into the proposer's inventory.
func (s *Service) returnEscrow(ctx context.Context, p PendingProposal) error {
	unlock := s.locks.Lock(p.ProposerID)
	defer unlock()

	proposer, err := s.getOrCreate(ctx, p.ProposerID)
	if err != nil {
		return err
	}
	return s.returnEscrowLocked(ctx, proposer, p.Ring)
}

// returnEscrowLocked appends the ring and persists; the caller holds the
// proposer's lock.
func (s *Service) returnEscrowLocked(ctx context.Context, proposer *domain.UserAccount, ring domain.ItemStack) error {
	proposer.Inventory = append(proposer.Inventory, ring)
	if err := s.repo.SaveAccount(ctx, proposer); err != nil {
		return fmt.Errorf("save account %s: %w", proposer.ID, err)
	}
	return nil
}
