package domain

import "time"

// UserAccount is one economy account per chat identity. Accounts are created
// lazily on first command with a zero balance and an empty inventory.
type UserAccount struct {
	ID             string
	Balance        int64
	Inventory      []ItemStack
	Marriage       *MarriageRecord
	LastAffinityAt *time.Time
	CreatedAt      time.Time
}

// ItemStack is an owned copy of a shop item. Name and emoji are snapshots
// taken at acquisition time; later catalog edits do not touch owned copies.
type ItemStack struct {
	ItemID string `json:"id"`
	Name   string `json:"name"`
	Emoji  string `json:"emoji"`
}

// MarriageRecord is embedded in a UserAccount but describes a relation
// between two accounts: if A's record points at B, B's points back at A.
type MarriageRecord struct {
	PartnerID      string
	RingItemID     string
	WeddingDate    time.Time
	AffinityPoints int64
	Caption        string
	Image          string
	Thumbnail      string
}

// Married reports whether the account currently has a partner.
func (u *UserAccount) Married() bool {
	return u.Marriage != nil && u.Marriage.PartnerID != ""
}

// Clone returns a deep copy, used to snapshot an account before a two-step
// write so a failed second step can roll the first back.
func (u *UserAccount) Clone() *UserAccount {
	c := *u
	c.Inventory = append([]ItemStack(nil), u.Inventory...)
	if u.Marriage != nil {
		m := *u.Marriage
		c.Marriage = &m
	}
	if u.LastAffinityAt != nil {
		t := *u.LastAffinityAt
		c.LastAffinityAt = &t
	}
	return &c
}
