package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"github.com/tcaothien/allbotv3/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id          TEXT PRIMARY KEY,
	balance          BIGINT NOT NULL DEFAULT 0,
	inventory        JSONB NOT NULL DEFAULT '[]',
	partner_id       TEXT NOT NULL DEFAULT '',
	ring_item_id     TEXT NOT NULL DEFAULT '',
	wedding_date     TIMESTAMPTZ,
	affinity_points  BIGINT NOT NULL DEFAULT 0,
	caption          TEXT NOT NULL DEFAULT '',
	image            TEXT NOT NULL DEFAULT '',
	thumbnail        TEXT NOT NULL DEFAULT '',
	last_affinity_at TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS shop_items (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	price          BIGINT NOT NULL,
	emoji          TEXT NOT NULL DEFAULT '',
	affinity_bonus BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS coin_transactions (
	id           BIGSERIAL PRIMARY KEY,
	from_user_id TEXT NOT NULL DEFAULT '',
	to_user_id   TEXT NOT NULL DEFAULT '',
	amount       BIGINT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresRepo persists accounts and the catalog in Postgres. Accounts are
// stored as whole rows and written back whole, matching the load/mutate/save
// contract of the service layer.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo opens the database, verifies the connection, and ensures
// the schema exists.
func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("cannot ping db: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		return nil, fmt.Errorf("cannot apply schema: %w", err)
	}
	return &PostgresRepo{db: db}, nil
}

func (r *PostgresRepo) GetAccount(ctx context.Context, id string) (*domain.UserAccount, error) {
	query := `SELECT user_id, balance, inventory, partner_id, ring_item_id, wedding_date,
	                 affinity_points, caption, image, thumbnail, last_affinity_at, created_at
	          FROM accounts WHERE user_id = $1;`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "repo: GetAccount")
	}
	return account, nil
}

func (r *PostgresRepo) CreateAccount(ctx context.Context, id string) (*domain.UserAccount, error) {
	query := `INSERT INTO accounts (user_id) VALUES ($1)
	          ON CONFLICT (user_id) DO NOTHING;`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return nil, errors.Wrap(err, "repo: CreateAccount")
	}
	return r.GetAccount(ctx, id)
}

func (r *PostgresRepo) SaveAccount(ctx context.Context, account *domain.UserAccount) error {
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
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          ON CONFLICT (user_id) DO UPDATE SET
	              balance = EXCLUDED.balance,
	              inventory = EXCLUDED.inventory,
	              partner_id = EXCLUDED.partner_id,
	              ring_item_id = EXCLUDED.ring_item_id,
	              wedding_date = EXCLUDED.wedding_date,
	              affinity_points = EXCLUDED.affinity_points,
	              caption = EXCLUDED.caption,
	              image = EXCLUDED.image,
	              thumbnail = EXCLUDED.thumbnail,
	              last_affinity_at = EXCLUDED.last_affinity_at;`
	_, err = r.db.ExecContext(ctx, query, account.ID, account.Balance, inventory,
		partnerID, ringItemID, weddingDate, affinity, caption, image, thumbnail, lastAffinityAt)
	if err != nil {
		return errors.Wrap(err, "repo: SaveAccount")
	}
	return nil
}

func (r *PostgresRepo) TopBalances(ctx context.Context, limit int) ([]domain.UserAccount, error) {
	query := `SELECT user_id, balance, inventory, partner_id, ring_item_id, wedding_date,
	                 affinity_points, caption, image, thumbnail, last_affinity_at, created_at
	          FROM accounts ORDER BY balance DESC, user_id ASC LIMIT $1;`
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

func (r *PostgresRepo) DeleteAllAccounts(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts;`)
	return errors.Wrap(err, "repo: DeleteAllAccounts")
}

func (r *PostgresRepo) ListItems(ctx context.Context) ([]domain.ShopItem, error) {
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

func (r *PostgresRepo) GetItem(ctx context.Context, id string) (*domain.ShopItem, error) {
	query := `SELECT id, name, price, emoji, affinity_bonus FROM shop_items WHERE id = $1;`
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

func (r *PostgresRepo) UpsertItem(ctx context.Context, item domain.ShopItem) error {
	query := `INSERT INTO shop_items (id, name, price, emoji, affinity_bonus)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (id) DO UPDATE SET
	              name = EXCLUDED.name,
	              price = EXCLUDED.price,
	              emoji = EXCLUDED.emoji,
	              affinity_bonus = EXCLUDED.affinity_bonus;`
	_, err := r.db.ExecContext(ctx, query, item.ID, item.Name, item.Price, item.Emoji, item.AffinityBonus)
	return errors.Wrap(err, "repo: UpsertItem")
}

func (r *PostgresRepo) DeleteAllItems(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM shop_items;`)
	return errors.Wrap(err, "repo: DeleteAllItems")
}

func (r *PostgresRepo) CreateTransaction(ctx context.Context, fromID, toID string, amount int64) error {
	query := `INSERT INTO coin_transactions (from_user_id, to_user_id, amount) VALUES ($1, $2, $3);`
	_, err := r.db.ExecContext(ctx, query, fromID, toID, amount)
	return errors.Wrap(err, "repo: CreateTransaction")
}

func (r *PostgresRepo) ListRecentTransactions(ctx context.Context, limit int) ([]domain.CoinTransaction, error) {
	query := `SELECT id, from_user_id, to_user_id, amount, created_at
	          FROM coin_transactions ORDER BY created_at DESC, id DESC LIMIT $1;`
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

type rowScanner interface {
	Scan(dest ...any) error
}

// scanAccount maps one accounts row back to the domain shape, rebuilding the
// embedded MarriageRecord when partner_id is non-empty.
func scanAccount(row rowScanner) (*domain.UserAccount, error) {
	var (
		account        domain.UserAccount
		inventory      []byte
		partnerID      string
		ringItemID     string
		weddingDate    sql.NullTime
		affinity       int64
		caption        string
		image          string
		thumbnail      string
		lastAffinityAt sql.NullTime
	)
	err := row.Scan(&account.ID, &account.Balance, &inventory, &partnerID, &ringItemID,
		&weddingDate, &affinity, &caption, &image, &thumbnail, &lastAffinityAt, &account.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(inventory, &account.Inventory); err != nil {
		return nil, fmt.Errorf("unmarshal inventory: %w", err)
	}
	if partnerID != "" {
		account.Marriage = &domain.MarriageRecord{
			PartnerID:      partnerID,
			RingItemID:     ringItemID,
			AffinityPoints: affinity,
			Caption:        caption,
			Image:          image,
			Thumbnail:      thumbnail,
		}
		if weddingDate.Valid {
			account.Marriage.WeddingDate = weddingDate.Time
		}
	}
	if lastAffinityAt.Valid {
		t := lastAffinityAt.Time
		account.LastAffinityAt = &t
	}
	return &account, nil
}
