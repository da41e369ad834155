package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

const orderColumns = `
	id, user_id, status, payment_status,
	subtotal_cents, shipping_amount_cents, tax_amount_cents, discount_amount_cents,
	total_amount_cents, refunded_amount_cents, currency,
	shipping_address, billing_address,
	payment_method, payment_reference, tracking_number, tracking_url,
	estimated_delivery, delivered_at, notes, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, order domain.Order, entry domain.HistoryEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`
	_, err = tx.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.Status,
		order.PaymentStatus,
		order.SubtotalCents,
		order.ShippingAmountCents,
		order.TaxAmountCents,
		order.DiscountAmountCents,
		order.TotalAmountCents,
		order.RefundedAmountCents,
		order.Currency,
		order.ShippingAddress,
		order.BillingAddress,
		order.PaymentMethod,
		order.PaymentReference,
		order.TrackingNumber,
		order.TrackingURL,
		order.EstimatedDelivery,
		order.DeliveredAt,
		order.Notes,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	rows := make([][]any, 0, len(order.Items))
	for i, item := range order.Items {
		rows = append(rows, []any{
			item.ID,
			order.ID,
			i,
			item.ProductID,
			item.ProductName,
			item.ProductSKU,
			item.ProductImage,
			item.Quantity,
			item.UnitPriceCents,
			item.TotalPriceCents,
			item.Attributes,
		})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"order_items"},
		[]string{
			"id", "order_id", "position", "product_id", "product_name", "product_sku",
			"product_image", "quantity", "unit_price_cents", "total_price_cents", "attributes",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	items, err := loadItems(ctx, r.pool, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return &order, nil
}

func (r *Repository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, int, error) {
	filter = filter.Normalize()
	where, args := listConditions(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	if total == 0 {
		return []domain.Order{}, 0, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, filter.Offset())

	orders, err := r.queryOrders(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *Repository) Update(ctx context.Context, id string, mutate ports.UpdateFunc) (*domain.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update order: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select order for update: %w", err)
	}

	items, err := loadItems(ctx, tx, []string{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]

	entry, err := mutate(&order)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE orders
		SET status = $2,
		    payment_status = $3,
		    refunded_amount_cents = $4,
		    shipping_address = $5,
		    billing_address = $6,
		    payment_method = $7,
		    payment_reference = $8,
		    tracking_number = $9,
		    tracking_url = $10,
		    estimated_delivery = $11,
		    delivered_at = $12,
		    notes = $13,
		    updated_at = $14
		WHERE id = $1
	`
	_, err = tx.Exec(ctx, query,
		order.ID,
		order.Status,
		order.PaymentStatus,
		order.RefundedAmountCents,
		order.ShippingAddress,
		order.BillingAddress,
		order.PaymentMethod,
		order.PaymentReference,
		order.TrackingNumber,
		order.TrackingURL,
		order.EstimatedDelivery,
		order.DeliveredAt,
		order.Notes,
		order.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if entry != nil {
		if err := insertHistory(ctx, tx, *entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update order: %w", err)
	}
	return &order, nil
}

func (r *Repository) History(ctx context.Context, orderID string) ([]domain.HistoryEntry, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return nil, ports.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, status, notes, changed_by, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at DESC, id DESC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order history: %w", err)
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Notes, &e.ChangedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order history: %w", err)
	}
	return entries, nil
}

func (r *Repository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3`
	return r.queryOrders(ctx, query, domain.StatusPending, before, limit)
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	ids := []string{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := loadItems(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

// listConditions renders the filter as a WHERE clause with positional args.
func listConditions(filter ports.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	if filter.PaymentStatus != nil {
		add("payment_status = $%d", string(*filter.PaymentStatus))
	}
	if filter.CreatedFrom != nil {
		add("created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		add("created_at <= $%d", *filter.CreatedTo)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, product_name, product_sku, product_image,
		       quantity, unit_price_cents, total_price_cents, attributes
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			item    domain.OrderItem
			orderID string
		)
		if err := rows.Scan(
			&item.ID,
			&orderID,
			&item.ProductID,
			&item.ProductName,
			&item.ProductSKU,
			&item.ProductImage,
			&item.Quantity,
			&item.UnitPriceCents,
			&item.TotalPriceCents,
			&item.Attributes,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, entry domain.HistoryEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_status_history (id, order_id, status, notes, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.OrderID, entry.Status, entry.Notes, entry.ChangedBy, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order history: %w", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.PaymentStatus,
		&order.SubtotalCents,
		&order.ShippingAmountCents,
		&order.TaxAmountCents,
		&order.DiscountAmountCents,
		&order.TotalAmountCents,
		&order.RefundedAmountCents,
		&order.Currency,
		&order.ShippingAddress,
		&order.BillingAddress,
		&order.PaymentMethod,
		&order.PaymentReference,
		&order.TrackingNumber,
		&order.TrackingURL,
		&order.EstimatedDelivery,
		&order.DeliveredAt,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	return order, err
}
