package domain

import "time"

// CoinTransaction is one audited balance movement between two accounts.
// Admin adjustments are recorded with an empty FromUserID.
type CoinTransaction struct {
	ID         int64
	FromUserID string
	ToUserID   string
	Amount     int64
	CreatedAt  time.Time
}
