// Package postgres implements the pipeline's store interfaces on pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiranalabs/kirana/internal/domain"
)

// CatalogStore implements domain.CatalogStore using PostgreSQL.
// The catalog tables are owned by the content store; this core only performs
// the batched read and the conditional decrement the pipeline needs.
type CatalogStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that CatalogStore implements domain.CatalogStore.
var _ domain.CatalogStore = (*CatalogStore)(nil)

// NewCatalogStore creates a new PostgreSQL-backed catalog store.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// GetProductsByIDs resolves products in one batched read.
func (s *CatalogStore) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, price_minor, stock
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, domain.Internal(err, "catalog.get_products", "failed to load products")
	}
	defer rows.Close()

	products := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceMinor, &p.Stock); err != nil {
			return nil, domain.Internal(err, "catalog.get_products", "failed to scan product")
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "catalog.get_products", "failed to read products")
	}

	return products, nil
}

// DecrementStock applies all decrements or none of them, in a single
// statement conditional on stock >= quantity. Scoped to the given products
// only, so it does not block unrelated inventory writes.
func (s *CatalogStore) DecrementStock(ctx context.Context, decrements []domain.StockDecrement) error {
	if len(decrements) == 0 {
		return nil
	}

	ids := make([]string, len(decrements))
	qtys := make([]int32, len(decrements))
	for i, d := range decrements {
		ids[i] = d.ProductID
		qtys[i] = d.Quantity
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE products AS p
			SET stock = p.stock - v.qty
			FROM (SELECT unnest($1::text[]) AS id, unnest($2::int[]) AS qty) AS v
			WHERE p.id = v.id AND p.stock >= v.qty
		`, ids, qtys)
		if err != nil {
			return domain.Internal(err, "catalog.decrement_stock", "failed to decrement stock")
		}

		// Fewer rows than lines means at least one product was missing or
		// underfunded; roll the whole batch back.
		if tag.RowsAffected() != int64(len(decrements)) {
			return fmt.Errorf("decremented %d of %d products: %w",
				tag.RowsAffected(), len(decrements), domain.ErrInsufficientStock)
		}
		return nil
	})

	return err
}
