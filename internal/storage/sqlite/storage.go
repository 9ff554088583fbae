package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/domain/repository"
)

// Storage acts as repository facade backed by an embedded SQLite file.
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

type catalogRepository struct {
	storage *Storage
}

type orderRepository struct {
	storage *Storage
}

// querier is implemented by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens (creating when absent) the database file and applies migrations.
func New(ctx context.Context, path string, logger *slog.Logger) (*Storage, error) {
	db, err := openDatabase(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Storage{db: db, logger: logger, now: time.Now}, nil
}

func openDatabase(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; a single connection also serialises id assignment.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return db, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil && s.logger != nil {
		s.logger.Warn("close sqlite", slog.String("error", err.Error()))
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

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)
	return err
}

func nowUnix() int64 {
	return time.Now().UnixNano()
}

func fromUnix(v int64) time.Time {
	return time.Unix(0, v).UTC()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- CatalogRepository implementation ---

const bouquetColumns = `id, size, number, title, price, image_ref, in_stock`

const sizeOrder = `CASE size WHEN 'small' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END`

type scanner interface {
	Scan(dest ...any) error
}

func scanBouquet(row scanner) (model.Bouquet, error) {
	var (
		b       model.Bouquet
		size    string
		inStock int
	)
	if err := row.Scan(&b.ID, &size, &b.Number, &b.Title, &b.Price, &b.ImageRef, &inStock); err != nil {
		return model.Bouquet{}, err
	}
	b.Size = model.Size(size)
	b.InStock = inStock != 0
	return b, nil
}

func (r *catalogRepository) queryBouquets(ctx context.Context, query string, args ...any) ([]model.Bouquet, error) {
	rows, err := r.storage.db.QueryContext(ctx, query, args...)
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
	return r.queryBouquets(ctx, `SELECT `+bouquetColumns+` FROM bouquets WHERE in_stock = 1 ORDER BY `+sizeOrder+`, number`)
}

func (r *catalogRepository) ListAvailableBySize(ctx context.Context, size model.Size) ([]model.Bouquet, error) {
	return r.queryBouquets(ctx, `SELECT `+bouquetColumns+` FROM bouquets WHERE in_stock = 1 AND size = ? ORDER BY number`, string(size))
}

func (r *catalogRepository) List(ctx context.Context) ([]model.Bouquet, error) {
	return r.queryBouquets(ctx, `SELECT `+bouquetColumns+` FROM bouquets ORDER BY `+sizeOrder+`, number`)
}

func (r *catalogRepository) Get(ctx context.Context, id int64) (*model.Bouquet, error) {
	row := r.storage.db.QueryRowContext(ctx, `SELECT `+bouquetColumns+` FROM bouquets WHERE id = ?`, id)
	b, err := scanBouquet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *catalogRepository) GetByNumber(ctx context.Context, size model.Size, number int) (*model.Bouquet, error) {
	row := r.storage.db.QueryRowContext(ctx, `SELECT `+bouquetColumns+` FROM bouquets WHERE size = ? AND number = ?`, string(size), number)
	b, err := scanBouquet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *catalogRepository) Create(ctx context.Context, bouquet model.Bouquet) (*model.Bouquet, error) {
	const query = `INSERT INTO bouquets (size, number, title, price, image_ref, in_stock) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.storage.db.ExecContext(ctx, query,
		string(bouquet.Size), bouquet.Number, bouquet.Title, bouquet.Price, bouquet.ImageRef, boolToInt(bouquet.InStock))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	bouquet.ID = id
	return &bouquet, nil
}

func (r *catalogRepository) SetInStock(ctx context.Context, id int64, inStock bool) error {
	return r.execAffectingOne(ctx, `UPDATE bouquets SET in_stock = ? WHERE id = ?`, boolToInt(inStock), id)
}

func (r *catalogRepository) SetImage(ctx context.Context, id int64, ref string) error {
	return r.execAffectingOne(ctx, `UPDATE bouquets SET image_ref = ? WHERE id = ?`, ref, id)
}

func (r *catalogRepository) execAffectingOne(ctx context.Context, query string, args ...any) error {
	res, err := r.storage.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// --- OrderRepository implementation ---

const orderColumns = `id, customer_id, status, total, address, delivery_time, payment_ref, created_at, updated_at`

func scanOrder(row scanner) (model.Order, error) {
	var (
		o                  model.Order
		status             string
		createdAt, updated int64
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &status, &o.Total, &o.Address, &o.DeliveryTime, &o.PaymentRef, &createdAt, &updated); err != nil {
		return model.Order{}, err
	}
	o.Status = model.OrderStatus(status)
	o.CreatedAt = fromUnix(createdAt)
	o.UpdatedAt = fromUnix(updated)
	return o, nil
}

func (r *orderRepository) Create(ctx context.Context, order model.Order) (*model.Order, error) {
	now := r.storage.now().UTC()
	order.Status = model.OrderStatusCreated
	order.Total = model.CalculateTotal(order.Items)
	order.CreatedAt = now
	order.UpdatedAt = now

	err := r.storage.WithinTransaction(ctx, func(tx *sql.Tx) error {
		const insertOrder = `INSERT INTO orders (customer_id, status, total, address, delivery_time, payment_ref, created_at, updated_at)
                             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		res, err := tx.ExecContext(ctx, insertOrder,
			order.CustomerID, string(order.Status), order.Total, order.Address, order.DeliveryTime, order.PaymentRef,
			now.UnixNano(), now.UnixNano())
		if err != nil {
			return err
		}
		if order.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		const insertItem = `INSERT INTO order_items (order_id, position, bouquet_id, title, quantity, unit_price) VALUES (?, ?, ?, ?, ?, ?)`
		for i, item := range order.Items {
			if _, err := tx.ExecContext(ctx, insertItem, order.ID, i, item.BouquetID, item.Title, item.Quantity, item.UnitPrice); err != nil {
				return err
			}
		}

		return insertStatusLog(ctx, tx, order.ID, "", order.Status, "created", now)
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

func insertStatusLog(ctx context.Context, q querier, orderID int64, from, to model.OrderStatus, reason string, at time.Time) error {
	const query = `INSERT INTO order_status_log (order_id, from_status, to_status, reason, changed_at) VALUES (?, ?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query, orderID, string(from), string(to), reason, at.UnixNano())
	return err
}

func (r *orderRepository) Get(ctx context.Context, id int64) (*model.Order, error) {
	row := r.storage.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}

	items, err := r.loadItems(ctx, `SELECT order_id, bouquet_id, title, quantity, unit_price FROM order_items WHERE order_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return &order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, query string, args ...any) (map[int64][]model.LineItem, error) {
	rows, err := r.storage.db.QueryContext(ctx, query, args...)
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
	rows, err := r.storage.db.QueryContext(ctx, query, args...)
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
	orders, err := r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_id = ? ORDER BY created_at, id`, customerID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	const itemsQuery = `SELECT i.order_id, i.bouquet_id, i.title, i.quantity, i.unit_price
                        FROM order_items i JOIN orders o ON o.id = i.order_id
                        WHERE o.customer_id = ? ORDER BY i.order_id, i.position`
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
	return r.storage.WithinTransaction(ctx, func(tx *sql.Tx) error {
		var current string
		if err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}

		from := model.OrderStatus(current)
		if !from.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, from, status)
		}

		now := r.storage.now().UTC()
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(status), now.UnixNano(), id, current); err != nil {
			return err
		}
		return insertStatusLog(ctx, tx, id, from, status, reason, now)
	})
}

func (r *orderRepository) SetPaymentRef(ctx context.Context, id int64, ref string) error {
	res, err := r.storage.db.ExecContext(ctx, `UPDATE orders SET payment_ref = ?, updated_at = ? WHERE id = ?`,
		ref, r.storage.now().UTC().UnixNano(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) ListAwaitingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders
                   WHERE status = 'created' AND payment_ref <> '' AND created_at < ?
                   ORDER BY created_at, id LIMIT ?`
	return r.queryOrders(ctx, query, createdBefore.UTC().UnixNano(), limit)
}

func (r *orderRepository) History(ctx context.Context, id int64) ([]model.StatusChange, error) {
	rows, err := r.storage.db.QueryContext(ctx,
		`SELECT order_id, from_status, to_status, reason, changed_at FROM order_status_log WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.StatusChange
	for rows.Next() {
		var (
			c        model.StatusChange
			from, to string
			at       int64
		)
		if err := rows.Scan(&c.OrderID, &from, &to, &c.Reason, &at); err != nil {
			return nil, err
		}
		c.From = model.OrderStatus(from)
		c.To = model.OrderStatus(to)
		c.At = fromUnix(at)
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
