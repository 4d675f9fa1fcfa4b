package domain

// ShopItem is a purchasable catalog entry. Entries are seeded once and are
// immutable afterwards except for the emoji, which admins may edit.
type ShopItem struct {
	ID            string
	Name          string
	Price         int64
	Emoji         string
	AffinityBonus int64
}

// Stack returns an owned snapshot of the catalog entry.
func (s ShopItem) Stack() ItemStack {
	return ItemStack{ItemID: s.ID, Name: s.Name, Emoji: s.Emoji}
}

// DefaultRings is the fixed catalog seeded at first run and after a full
// reset. Reseeding upserts by ID and leaves unrelated entries untouched.
var DefaultRings = []ShopItem{
	{ID: "01", Name: "ENZ Peridot", Price: 100000, Emoji: "🟢"},
	{ID: "02", Name: "ENZ Citrin", Price: 200000, Emoji: "💛"},
	{ID: "03", Name: "ENZ Topaz", Price: 500000, Emoji: "🟡"},
	{ID: "04", Name: "ENZ Spinel", Price: 1000000, Emoji: "🟥"},
	{ID: "05", Name: "ENZ Aquamarine", Price: 2500000, Emoji: "💎"},
	{ID: "06", Name: "ENZ Emerald", Price: 5000000, Emoji: "💚"},
	{ID: "07", Name: "ENZ Ruby", Price: 10000000, Emoji: "❤️"},
	{ID: "333", Name: "ENZ Sapphire", Price: 25000000, Emoji: "💙", AffinityBonus: 333},
	{ID: "999", Name: "ENZ Centenary", Price: 99999999, Emoji: "💖", AffinityBonus: 999},
}
