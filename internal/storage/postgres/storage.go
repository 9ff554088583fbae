package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/domain/repository"
)

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type catalogRepository struct {
	storage *Storage
}

type orderRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Catalog returns bouquet repository.
func (s *Storage) Catalog() repository.CatalogRepository {
	return &catalogRepository{storage: s}
}

// Orders returns order repository.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS bouquets (
            id BIGSERIAL PRIMARY KEY,
            size TEXT NOT NULL CHECK (size IN ('small', 'medium', 'big')),
            number INTEGER NOT NULL,
            title TEXT NOT NULL,
            price BIGINT NOT NULL CHECK (price >= 0),
            image_ref TEXT NOT NULL DEFAULT '',
            in_stock BOOLEAN NOT NULL DEFAULT TRUE,
            UNIQUE (size, number)
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id BIGSERIAL PRIMARY KEY,
            customer_id BIGINT NOT NULL,
            status TEXT NOT NULL,
            total BIGINT NOT NULL,
            address TEXT NOT NULL,
            delivery_time TEXT NOT NULL,
            payment_ref TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            order_id BIGINT NOT NULL REFERENCES orders(id),
            position INTEGER NOT NULL,
            bouquet_id BIGINT NOT NULL,
            title TEXT NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity >= 1),
            unit_price BIGINT NOT NULL,
            PRIMARY KEY (order_id, position)
        )`,
		`CREATE TABLE IF NOT EXISTS order_status_log (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            from_status TEXT NOT NULL,
            to_status TEXT NOT NULL,
            reason TEXT NOT NULL,
            changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_awaiting ON orders(status, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// --- CatalogRepository implementation ---

const bouquetColumns = `id, size, number, title, price, image_ref, in_stock`

const sizeOrder = `CASE size WHEN 'small' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END`

func scanBouquet(row pgx.Row) (model.Bouquet, error) {
	var (
		b    model.Bouquet
		size string
	)
	if err := row.Scan(&b.ID, &size, &b.Number, &b.Title, &b.Price, &b.ImageRef, &b.InStock); err != nil {
		return model.Bouquet{}, err
	}
	b.Size = model.Size(size)
	return b, nil
}

func (r *catalogRepository) queryBouquets(ctx context.Context, query string, args ...any) ([]model.Bouquet, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Bouquet
	for rows.Next() {
		b, err := scanBouquet(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *catalogRepository) ListAvailable(ctx context.Context) ([]model.Bouquet, error) {
	return r.queryBouquets(ctx, `SELECT `+bouquetColumns+` FROM bouquets WHERE in_stock ORDER BY `+sizeOrder+`, number`)
}

func (r *catalogRepository) ListAvailableBySize(ctx context.Context, size model.Size) ([]model.Bouquet, error) {
	return r.queryBouquets(ctx, `SELECT `+bouquetColumns+` FROM bouquets WHERE in_stock AND size=$1 ORDER BY number`, string(size))
}

func (r *catalogRepository) List(ctx context.Context) ([]model.Bouquet, error) {
	return r.queryBouquets(ctx, `SELECT `+bouquetColumns+` FROM bouquets ORDER BY `+sizeOrder+`, number`)
}

func (r *catalogRepository) Get(ctx context.Context, id int64) (*model.Bouquet, error) {
	b, err := scanBouquet(r.storage.pool.QueryRow(ctx, `SELECT `+bouquetColumns+` FROM bouquets WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *catalogRepository) GetByNumber(ctx context.Context, size model.Size, number int) (*model.Bouquet, error) {
	b, err := scanBouquet(r.storage.pool.QueryRow(ctx, `SELECT `+bouquetColumns+` FROM bouquets WHERE size=$1 AND number=$2`, string(size), number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *catalogRepository) Create(ctx context.Context, bouquet model.Bouquet) (*model.Bouquet, error) {
	const query = `INSERT INTO bouquets (size, number, title, price, image_ref, in_stock)
                   VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.storage.pool.QueryRow(ctx, query,
		string(bouquet.Size), bouquet.Number, bouquet.Title, bouquet.Price, bouquet.ImageRef, bouquet.InStock).Scan(&bouquet.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return &bouquet, nil
}

func (r *catalogRepository) SetInStock(ctx context.Context, id int64, inStock bool) error {
	return execAffectingOne(ctx, r.storage.pool, `UPDATE bouquets SET in_stock=$1 WHERE id=$2`, inStock, id)
}

func (r *catalogRepository) SetImage(ctx context.Context, id int64, ref string) error {
	return execAffectingOne(ctx, r.storage.pool, `UPDATE bouquets SET image_ref=$1 WHERE id=$2`, ref, id)
}

func execAffectingOne(ctx context.Context, pool pgxPool, query string, args ...any) error {
	tag, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// --- OrderRepository implementation ---

const orderColumns = `id, customer_id, status, total, address, delivery_time, payment_ref, created_at, updated_at`

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		o      model.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &status, &o.Total, &o.Address, &o.DeliveryTime, &o.PaymentRef, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return model.Order{}, err
	}
	o.Status = model.OrderStatus(status)
	return o, nil
}

func (r *orderRepository) Create(ctx context.Context, order model.Order) (*model.Order, error) {
	order.Status = model.OrderStatusCreated
	order.Total = model.CalculateTotal(order.Items)

	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const insertOrder = `INSERT INTO orders (customer_id, status, total, address, delivery_time, payment_ref)
                             VALUES ($1, $2, $3, $4, $5, $6)
                             RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, insertOrder,
			order.CustomerID, string(order.Status), order.Total, order.Address, order.DeliveryTime, order.PaymentRef,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return err
		}

		const insertItem = `INSERT INTO order_items (order_id, position, bouquet_id, title, quantity, unit_price)
                            VALUES ($1, $2, $3, $4, $5, $6)`
		for i, item := range order.Items {
			if _, err := tx.Exec(ctx, insertItem, order.ID, i, item.BouquetID, item.Title, item.Quantity, item.UnitPrice); err != nil {
				return err
			}
		}

		return insertStatusLog(ctx, tx, order.ID, "", order.Status, "created")
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

func insertStatusLog(ctx context.Context, tx pgx.Tx, orderID int64, from, to model.OrderStatus, reason string) error {
	const query = `INSERT INTO order_status_log (order_id, from_status, to_status, reason) VALUES ($1, $2, $3, $4)`
	_, err := tx.Exec(ctx, query, orderID, string(from), string(to), reason)
	return err
}

func (r *orderRepository) Get(ctx context.Context, id int64) (*model.Order, error) {
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}

	items, err := r.loadItems(ctx, `SELECT order_id, bouquet_id, title, quantity, unit_price
                                    FROM order_items WHERE order_id=$1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return &order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, query string, args ...any) (map[int64][]model.LineItem, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64][]model.LineItem)
	for rows.Next() {
		var (
			orderID int64
			item    model.LineItem
		)
		if err := rows.Scan(&orderID, &item.BouquetID, &item.Title, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		result[orderID] = append(result[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	orders, err := r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_id=$1 ORDER BY created_at, id`, customerID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	const itemsQuery = `SELECT i.order_id, i.bouquet_id, i.title, i.quantity, i.unit_price
                        FROM order_items i JOIN orders o ON o.id = i.order_id
                        WHERE o.customer_id=$1 ORDER BY i.order_id, i.position`
	items, err := r.loadItems(ctx, itemsQuery, customerID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus, reason string) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var current string
		if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}

		from := model.OrderStatus(current)
		if !from.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, from, status)
		}

		if _, err := tx.Exec(ctx, `UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2`, string(status), id); err != nil {
			return err
		}
		return insertStatusLog(ctx, tx, id, from, status, reason)
	})
}

func (r *orderRepository) SetPaymentRef(ctx context.Context, id int64, ref string) error {
	return execAffectingOne(ctx, r.storage.pool, `UPDATE orders SET payment_ref=$1, updated_at=NOW() WHERE id=$2`, ref, id)
}

func (r *orderRepository) ListAwaitingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders
                   WHERE status='created' AND payment_ref <> '' AND created_at < $1
                   ORDER BY created_at, id LIMIT $2`
	return r.queryOrders(ctx, query, createdBefore, limit)
}

func (r *orderRepository) History(ctx context.Context, id int64) ([]model.StatusChange, error) {
	const query = `SELECT order_id, from_status, to_status, reason, changed_at
                   FROM order_status_log WHERE order_id=$1 ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.StatusChange
	for rows.Next() {
		var (
			c        model.StatusChange
			from, to string
		)
		if err := rows.Scan(&c.OrderID, &from, &to, &c.Reason, &c.At); err != nil {
			return nil, err
		}
		c.From = model.OrderStatus(from)
		c.To = model.OrderStatus(to)
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, domainErrors.ErrNotFound
	}
	return result, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
