package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiranalabs/kirana/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// OrderStore implements domain.OrderStore using PostgreSQL.
// The UNIQUE constraint on payment_id is the pipeline's exactly-once
// enforcement point: the existence check in the service is only a fast path.
type OrderStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that OrderStore implements domain.OrderStore.
var _ domain.OrderStore = (*OrderStore)(nil)

// NewOrderStore creates a new PostgreSQL-backed order store.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Insert stores a new order and its items in one transaction.
// A concurrent duplicate delivery racing past the existence check lands here
// and is rejected by the payment_id constraint.
func (s *OrderStore) Insert(ctx context.Context, order *domain.Order) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (
				order_number, buyer_id, email, total_minor, currency,
				status, payment_id, payment_reference,
				address_name, address_country, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		`,
			order.OrderNumber, order.BuyerID, order.Email, order.TotalMinor, order.Currency,
			order.Status, order.PaymentID, order.PaymentReference,
			order.AddressName, order.AddressCountry, order.CreatedAt,
		)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO order_items (payment_id, product_id, product_name, quantity, price_at_purchase_minor)
				VALUES ($1, $2, $3, $4, $5)
			`, order.PaymentID, item.ProductID, item.ProductName, item.Quantity, item.PriceAtPurchase)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "orders_order_number_key" {
				return domain.ErrOrderNumberCollision
			}
			return domain.ErrPaymentAlreadyProcessed
		}
		return domain.Internal(err, "orders.insert", "failed to insert order")
	}

	return nil
}

// FindByPaymentID returns the order for a payment, or ErrOrderNotFound.
func (s *OrderStore) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	var order domain.Order
	err := s.pool.QueryRow(ctx, `
		SELECT order_number, buyer_id, email, total_minor, currency,
		       status, payment_id, payment_reference,
		       address_name, address_country, created_at, updated_at
		FROM orders
		WHERE payment_id = $1
	`, paymentID).Scan(
		&order.OrderNumber, &order.BuyerID, &order.Email, &order.TotalMinor, &order.Currency,
		&order.Status, &order.PaymentID, &order.PaymentReference,
		&order.AddressName, &order.AddressCountry, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, "orders.find_by_payment", "failed to load order")
	}

	items, err := s.loadItems(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

// UpdateStatus transitions an order between pipeline statuses.
func (s *OrderStore) UpdateStatus(ctx context.Context, paymentID, status string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now() WHERE payment_id = $1
	`, paymentID, status)
	if err != nil {
		return domain.Internal(err, "orders.update_status", "failed to update order status")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// TransitionStatus applies a status change only when the order currently
// holds the expected status. The WHERE clause makes the check-and-set a
// single atomic statement, so exactly one of any set of concurrent callers
// wins the transition.
func (s *OrderStore) TransitionStatus(ctx context.Context, paymentID, from, to string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE payment_id = $1 AND status = $2
	`, paymentID, from, to)
	if err != nil {
		return domain.Internal(err, "orders.transition_status", "failed to transition order status")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderStatusConflict
	}
	return nil
}

// ListByStatus returns orders in the given status, oldest first.
func (s *OrderStore) ListByStatus(ctx context.Context, status string, limit int32) ([]*domain.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT order_number, buyer_id, email, total_minor, currency,
		       status, payment_id, payment_reference,
		       address_name, address_country, created_at, updated_at
		FROM orders
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, domain.Internal(err, "orders.list_by_status", "failed to list orders")
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.OrderNumber, &order.BuyerID, &order.Email, &order.TotalMinor, &order.Currency,
			&order.Status, &order.PaymentID, &order.PaymentReference,
			&order.AddressName, &order.AddressCountry, &order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, domain.Internal(err, "orders.list_by_status", "failed to scan order")
		}
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "orders.list_by_status", "failed to read orders")
	}

	for _, order := range orders {
		items, err := s.loadItems(ctx, order.PaymentID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}

	return orders, nil
}

func (s *OrderStore) loadItems(ctx context.Context, paymentID string) ([]domain.OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, product_name, quantity, price_at_purchase_minor
		FROM order_items
		WHERE payment_id = $1
		ORDER BY id ASC
	`, paymentID)
	if err != nil {
		return nil, domain.Internal(err, "orders.load_items", "failed to load order items")
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return nil, domain.Internal(err, "orders.load_items", "failed to scan order item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "orders.load_items", "failed to read order items")
	}

	return items, nil
}
