package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	createProductsTableSQL = `CREATE TABLE IF NOT EXISTS tracked_products (
        name           TEXT PRIMARY KEY,
        url            TEXT NOT NULL,
        target_price   NUMERIC NOT NULL,
        current_price  NUMERIC,
        last_checked   TIMESTAMPTZ NOT NULL,
        alerts_sent    INTEGER NOT NULL DEFAULT 0,
        price_history  JSONB NOT NULL DEFAULT '[]'::jsonb
    );`

	listProductsSQL = `SELECT
        name,
        url,
        target_price::text,
        current_price::text,
        last_checked,
        alerts_sent,
        price_history
    FROM tracked_products
    ORDER BY name;`

	deleteProductsSQL = `DELETE FROM tracked_products;`

	insertProductSQL = `INSERT INTO tracked_products (
        name,
        url,
        target_price,
        current_price,
        last_checked,
        alerts_sent,
        price_history
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    );`
)

// PostgresStore persists the product collection in PostgreSQL. It satisfies
// the same full-document Load/Save contract as the file store: Save replaces
// the whole table transactionally.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wires a pgx pool into a Store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the backing table when absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s.pool == nil {
		return ErrNotConfigured
	}
	if _, err := s.pool.Exec(ctx, createProductsTableSQL); err != nil {
		return fmt.Errorf("ensure tracked_products table: %w", err)
	}
	return nil
}

// Load reads every tracked product.
func (s *PostgresStore) Load(ctx context.Context) ([]Product, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}

	rows, err := s.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("list tracked products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var (
			p           Product
			targetText  string
			current     sql.NullString
			historyJSON []byte
		)
		if err := rows.Scan(&p.Name, &p.URL, &targetText, &current, &p.LastChecked, &p.AlertsSent, &historyJSON); err != nil {
			return nil, fmt.Errorf("scan tracked product: %w", err)
		}
		p.TargetPrice, err = decimal.NewFromString(targetText)
		if err != nil {
			return nil, fmt.Errorf("parse target price for %s: %w", p.Name, err)
		}
		if current.Valid {
			value, err := decimal.NewFromString(current.String)
			if err != nil {
				return nil, fmt.Errorf("parse current price for %s: %w", p.Name, err)
			}
			p.CurrentPrice = &value
		}
		if len(historyJSON) > 0 {
			if err := json.Unmarshal(historyJSON, &p.PriceHistory); err != nil {
				return nil, fmt.Errorf("decode price history for %s: %w", p.Name, err)
			}
		}
		p.applyDefaults()
		products = append(products, p)
	}

	return products, rows.Err()
}

// Save replaces the stored collection with the given one.
func (s *PostgresStore) Save(ctx context.Context, products []Product) error {
	if s.pool == nil {
		return ErrNotConfigured
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteProductsSQL); err != nil {
		return fmt.Errorf("clear tracked products: %w", err)
	}

	for _, p := range products {
		historyJSON, err := json.Marshal(p.PriceHistory)
		if err != nil {
			return fmt.Errorf("encode price history for %s: %w", p.Name, err)
		}

		var current *string
		if p.CurrentPrice != nil {
			value := p.CurrentPrice.String()
			current = &value
		}

		if _, err := tx.Exec(ctx, insertProductSQL,
			p.Name,
			p.URL,
			p.TargetPrice.String(),
			current,
			p.LastChecked,
			p.AlertsSent,
			historyJSON,
		); err != nil {
			return fmt.Errorf("insert %s: %w", p.Name, err)
		}
	}

	return tx.Commit(ctx)
}

var _ Store = (*PostgresStore)(nil)
