package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
    doc_id         TEXT PRIMARY KEY,
    name           TEXT NOT NULL UNIQUE,
    transaction_id TEXT NOT NULL,
    document       JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS product_variant_item_codes (
    item_code TEXT PRIMARY KEY,
    doc_id    TEXT NOT NULL REFERENCES products(doc_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_product_variant_item_codes_doc_id ON product_variant_item_codes(doc_id);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
    doc_id         TEXT PRIMARY KEY,
    name           TEXT NOT NULL UNIQUE,
    transaction_id TEXT NOT NULL,
    document       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS product_variant_item_codes (
    item_code TEXT PRIMARY KEY,
    doc_id    TEXT NOT NULL REFERENCES products(doc_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_product_variant_item_codes_doc_id ON product_variant_item_codes(doc_id);
`

const (
	pgUniqueViolation      = "23505"
	sqliteConstraint       = 19
	sqliteConstraintPrefix = "UNIQUE constraint failed"
)

// PGRepository stores product documents through sqlx. It runs on the pgx driver and,
// with the same queries, on sqlite.
type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

type productRow struct {
	DocID    string `db:"doc_id"`
	Document []byte `db:"document"`
}

// Migrate creates the catalog tables if they do not exist.
func (r *PGRepository) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if r.DB.DriverName() == "sqlite" {
		schema = sqliteSchema
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate catalog schema: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) FindAll(ctx context.Context) ([]model.Product, error) {
	var rows []productRow
	query := `SELECT doc_id, document FROM products ORDER BY name`
	if err := r.DB.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	products := make([]model.Product, 0, len(rows))
	for _, row := range rows {
		var p model.Product
		if err := json.Unmarshal(row.Document, &p); err != nil {
			return nil, fmt.Errorf("decode product %s: %w", row.DocID, err)
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *PGRepository) FindByID(ctx context.Context, docID string) (*model.Product, error) {
	var row productRow
	query := r.DB.Rebind(`SELECT doc_id, document FROM products WHERE doc_id = ? LIMIT 1`)
	if err := r.DB.GetContext(ctx, &row, query, docID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, err
	}

	var p model.Product
	if err := json.Unmarshal(row.Document, &p); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", row.DocID, err)
	}
	return &p, nil
}

func (r *PGRepository) Insert(ctx context.Context, p *model.Product) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := tx.Rebind(`INSERT INTO products (doc_id, name, transaction_id, document) VALUES (?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, query, p.DocID, p.Data.Name, p.Info.TransactionID, string(doc)); err != nil {
		return mapError(err)
	}

	if err := insertItemCodes(ctx, tx, p); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateByID replaces the whole document stored under docID and re-keys its item codes.
func (r *PGRepository) UpdateByID(ctx context.Context, docID string, p *model.Product) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := tx.Rebind(`UPDATE products SET name = ?, transaction_id = ?, document = ? WHERE doc_id = ?`)
	res, err := tx.ExecContext(ctx, query, p.Data.Name, p.Info.TransactionID, string(doc), docID)
	if err != nil {
		return mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", product.ErrNotFound, docID)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM product_variant_item_codes WHERE doc_id = ?`), docID); err != nil {
		return err
	}
	if err := insertItemCodes(ctx, tx, &model.Product{DocID: docID, Data: p.Data}); err != nil {
		return err
	}

	return tx.Commit()
}

func insertItemCodes(ctx context.Context, tx *sqlx.Tx, p *model.Product) error {
	query := tx.Rebind(`INSERT INTO product_variant_item_codes (item_code, doc_id) VALUES (?, ?)`)
	for _, code := range p.ItemCodes() {
		if _, err := tx.ExecContext(ctx, query, code, p.DocID); err != nil {
			return fmt.Errorf("item code %s: %w", code, mapError(err))
		}
	}
	return nil
}

// mapError turns unique violations from either driver into product.ErrConflict.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", product.ErrConflict, pgErr.ConstraintName)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code()&0xff == sqliteConstraint {
		return fmt.Errorf("%w: %s", product.ErrConflict, liteErr.Error())
	}
	if strings.Contains(err.Error(), sqliteConstraintPrefix) {
		return fmt.Errorf("%w: %s", product.ErrConflict, err.Error())
	}
	return err
}
