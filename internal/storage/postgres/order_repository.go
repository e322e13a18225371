package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

const opTimeout = 5 * time.Second

const (
	orderColumns = `id, customer_name, phone, city, note, status, currency, amount_minor, version, created_at, updated_at`
	itemColumns  = `id, order_id, product_id, name, qty, price_minor, moq, note, created_at`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	insertItemSQL  = `INSERT INTO order_items (` + itemColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	selectOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	updateOrderSQL = `
		UPDATE orders
		SET customer_name = $1, phone = $2, city = $3, note = $4, status = $5, amount_minor = $6,
		    version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9`
	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

const uniqueViolation = "23505"

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Create пишет заявку и её позиции в одной транзакции.
func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return inTx(ctx, r.db, "create order", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, insertOrderSQL,
			order.ID, order.CustomerName, order.Phone, order.City, order.Note,
			string(order.Status), order.Currency, order.AmountMinor, order.Version,
			order.CreatedAt, order.UpdatedAt)
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		if err != nil {
			return fmt.Errorf("insert order %s: %w", order.ID, err)
		}

		for _, it := range order.Items {
			_, err := tx.ExecContext(ctx, insertItemSQL,
				it.ID, order.ID, it.ProductID, it.Name, it.Qty, it.PriceMinor, it.MOQ, it.Note, it.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert item %s of order %s: %w", it.ProductID, order.ID, err)
			}
		}
		return nil
	})
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, selectOrderSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("select order %s: %w", id, err)
	}

	items, err := r.itemsOf(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items[id]
	if order.Items == nil {
		order.Items = []domain.OrderItem{}
	}
	return order, nil
}

// List читает заявки одним запросом и позиции всех найденных заявок вторым.
func (r *orderRepository) List(status domain.OrderStatus, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query, args := listOrdersQuery(status, limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := r.itemsOf(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []domain.OrderItem{}
		}
	}
	return orders, nil
}

func listOrdersQuery(status domain.OrderStatus, limit int) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString(`SELECT ` + orderColumns + ` FROM orders`)
	if status != "" {
		args = append(args, string(status))
		b.WriteString(` WHERE status = $` + strconv.Itoa(len(args)))
	}
	b.WriteString(` ORDER BY created_at DESC, id DESC`)
	if limit > 0 {
		args = append(args, limit)
		b.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	}
	return b.String(), args
}

// Save обновляет заявку, если её версия не изменилась с момента чтения.
// При нуле затронутых строк отличает пропавшую заявку от конфликта версий.
func (r *orderRepository) Save(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return inTx(ctx, r.db, "save order", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updateOrderSQL,
			order.CustomerName, order.Phone, order.City, order.Note,
			string(order.Status), order.AmountMinor, order.UpdatedAt,
			order.ID, order.Version)
		if err != nil {
			return fmt.Errorf("update order %s: %w", order.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update order %s: %w", order.ID, err)
		}
		if affected > 0 {
			return nil
		}

		var exists bool
		if err := tx.QueryRowContext(ctx, orderExistsSQL, order.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check order %s: %w", order.ID, err)
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	})
}

// itemsOf возвращает позиции заявок, сгруппированные по order_id.
func (r *orderRepository) itemsOf(ctx context.Context, orderIDs ...string) (map[string][]domain.OrderItem, error) {
	placeholders := make([]string, len(orderIDs))
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM order_items WHERE order_id IN (`+
		strings.Join(placeholders, ",")+`) ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			it      domain.OrderItem
			orderID string
		)
		if err := rows.Scan(&it.ID, &orderID, &it.ProductID, &it.Name, &it.Qty, &it.PriceMinor, &it.MOQ, &it.Note, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		byOrder[orderID] = append(byOrder[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	return byOrder, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	err := row.Scan(&o.ID, &o.CustomerName, &o.Phone, &o.City, &o.Note,
		&status, &o.Currency, &o.AmountMinor, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	o.Status = domain.OrderStatus(status)
	return o, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
