package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/tcaothien/allbotv3/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id          TEXT PRIMARY KEY,
	balance          INTEGER NOT NULL DEFAULT 0,
	inventory        TEXT NOT NULL DEFAULT '[]',
	partner_id       TEXT NOT NULL DEFAULT '',
	ring_item_id     TEXT NOT NULL DEFAULT '',
	wedding_date     TIMESTAMP,
	affinity_points  INTEGER NOT NULL DEFAULT 0,
	caption          TEXT NOT NULL DEFAULT '',
	image            TEXT NOT NULL DEFAULT '',
	thumbnail        TEXT NOT NULL DEFAULT '',
	last_affinity_at TIMESTAMP,
	created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS shop_items (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	price          INTEGER NOT NULL,
	emoji          TEXT NOT NULL DEFAULT '',
	affinity_bonus INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS coin_transactions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	from_user_id TEXT NOT NULL DEFAULT '',
	to_user_id   TEXT NOT NULL DEFAULT '',
	amount       INTEGER NOT NULL,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteRepo is the single-file variant of the store for local runs. Same
// schema and row shapes as Postgres, different placeholders and defaults.
type SQLiteRepo struct {
	db *sql.DB
}

// NewSQLiteRepo opens (or creates) the database file and ensures the schema.
func NewSQLiteRepo(path string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open db: %w", err)
	}
	// The modernc driver allows one writer; the service layer already
	// serializes per-account writes, this covers the rest.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("cannot ping db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("cannot apply schema: %w", err)
	}
	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) GetAccount(ctx context.Context, id string) (*domain.UserAccount, error) {
	query := `SELECT user_id, balance, inventory, partner_id, ring_item_id, wedding_date,
	                 affinity_points, caption, image, thumbnail, last_affinity_at, created_at
	          FROM accounts WHERE user_id = ?;`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "repo: GetAccount")
	}
	return account, nil
}

func (r *SQLiteRepo) CreateAccount(ctx context.Context, id string) (*domain.UserAccount, error) {
	query := `INSERT OR IGNORE INTO accounts (user_id) VALUES (?);`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return nil, errors.Wrap(err, "repo: CreateAccount")
	}
	return r.GetAccount(ctx, id)
}

func (r *SQLiteRepo) SaveAccount(ctx context.Context, account *domain.UserAccount) error {
	inventory, err := json.Marshal(account.Inventory)
	if err != nil {
		return errors.Wrap(err, "repo: SaveAccount marshal inventory")
	}
	var partnerID, ringItemID, caption, image, thumbnail string
	var weddingDate, lastAffinityAt sql.NullTime
	var affinity int64
	if account.Marriage != nil {
		partnerID = account.Marriage.PartnerID
		ringItemID = account.Marriage.RingItemID
		caption = account.Marriage.Caption
		image = account.Marriage.Image
		thumbnail = account.Marriage.Thumbnail
		affinity = account.Marriage.AffinityPoints
		weddingDate = sql.NullTime{Time: account.Marriage.WeddingDate, Valid: true}
	}
	if account.LastAffinityAt != nil {
		lastAffinityAt = sql.NullTime{Time: *account.LastAffinityAt, Valid: true}
	}

	query := `INSERT INTO accounts (user_id, balance, inventory, partner_id, ring_item_id,
	              wedding_date, affinity_points, caption, image, thumbnail, last_affinity_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT (user_id) DO UPDATE SET
	              balance = excluded.balance,
	              inventory = excluded.inventory,
	              partner_id = excluded.partner_id,
	              ring_item_id = excluded.ring_item_id,
	              wedding_date = excluded.wedding_date,
	              affinity_points = excluded.affinity_points,
	              caption = excluded.caption,
	              image = excluded.image,
	              thumbnail = excluded.thumbnail,
	              last_affinity_at = excluded.last_affinity_at;`
	_, err = r.db.ExecContext(ctx, query, account.ID, account.Balance, string(inventory),
		partnerID, ringItemID, weddingDate, affinity, caption, image, thumbnail, lastAffinityAt)
	if err != nil {
		return errors.Wrap(err, "repo: SaveAccount")
	}
	return nil
}

func (r *SQLiteRepo) TopBalances(ctx context.Context, limit int) ([]domain.UserAccount, error) {
	query := `SELECT user_id, balance, inventory, partner_id, ring_item_id, wedding_date,
	                 affinity_points, caption, image, thumbnail, last_affinity_at, created_at
	          FROM accounts ORDER BY balance DESC, user_id ASC LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "repo: TopBalances")
	}
	defer rows.Close()

	var res []domain.UserAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, errors.Wrap(err, "repo: TopBalances scan")
		}
		res = append(res, *account)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) DeleteAllAccounts(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts;`)
	return errors.Wrap(err, "repo: DeleteAllAccounts")
}

func (r *SQLiteRepo) ListItems(ctx context.Context) ([]domain.ShopItem, error) {
	query := `SELECT id, name, price, emoji, affinity_bonus FROM shop_items ORDER BY id;`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "repo: ListItems")
	}
	defer rows.Close()

	var res []domain.ShopItem
	for rows.Next() {
		var item domain.ShopItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.Emoji, &item.AffinityBonus); err != nil {
			return nil, errors.Wrap(err, "repo: ListItems scan")
		}
		res = append(res, item)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) GetItem(ctx context.Context, id string) (*domain.ShopItem, error) {
	query := `SELECT id, name, price, emoji, affinity_bonus FROM shop_items WHERE id = ?;`
	item := &domain.ShopItem{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&item.ID, &item.Name, &item.Price, &item.Emoji, &item.AffinityBonus)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "repo: GetItem")
	}
	return item, nil
}

func (r *SQLiteRepo) UpsertItem(ctx context.Context, item domain.ShopItem) error {
	query := `INSERT INTO shop_items (id, name, price, emoji, affinity_bonus)
	          VALUES (?, ?, ?, ?, ?)
	          ON CONFLICT (id) DO UPDATE SET
	              name = excluded.name,
	              price = excluded.price,
	              emoji = excluded.emoji,
	              affinity_bonus = excluded.affinity_bonus;`
	_, err := r.db.ExecContext(ctx, query, item.ID, item.Name, item.Price, item.Emoji, item.AffinityBonus)
	return errors.Wrap(err, "repo: UpsertItem")
}

func (r *SQLiteRepo) DeleteAllItems(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM shop_items;`)
	return errors.Wrap(err, "repo: DeleteAllItems")
}

func (r *SQLiteRepo) CreateTransaction(ctx context.Context, fromID, toID string, amount int64) error {
	query := `INSERT INTO coin_transactions (from_user_id, to_user_id, amount) VALUES (?, ?, ?);`
	_, err := r.db.ExecContext(ctx, query, fromID, toID, amount)
	return errors.Wrap(err, "repo: CreateTransaction")
}

func (r *SQLiteRepo) ListRecentTransactions(ctx context.Context, limit int) ([]domain.CoinTransaction, error) {
	query := `SELECT id, from_user_id, to_user_id, amount, created_at
	          FROM coin_transactions ORDER BY id DESC LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "repo: ListRecentTransactions")
	}
	defer rows.Close()

	var res []domain.CoinTransaction
	for rows.Next() {
		var t domain.CoinTransaction
		if err := rows.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &t.Amount, &t.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "repo: ListRecentTransactions scan")
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
