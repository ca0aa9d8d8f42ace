package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bag2go/bag2go/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// UpdateStatus is a compare-and-set: it advances the order only when the
	// stored status equals expected, otherwise it returns domain.ErrConflict.
	UpdateStatus(ctx context.Context, id string, expected, next domain.OrderStatus) (*domain.Order, error)
	SetPaymentSessionID(ctx context.Context, id, sessionID string) error
	SetNotifierMessageID(ctx context.Context, id, messageID string) error
	ListForUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error)
}

type PGOrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) OrderRepository {
	return &PGOrderRepository{db: db}
}

const orderColumns = `id, user_id, first_name, last_name, email, phone, pickup_address, pickup_at,
	airline_code, flight_number, flight_date, haz_items, declarations, status,
	payment_session_id, COALESCE(notifier_message_id, ''), created_at, updated_at`

func (r *PGOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	order.Status = domain.OrderStatusPending
	if err := tx.QueryRow(ctx, `INSERT INTO orders
		(id, user_id, first_name, last_name, email, phone, pickup_address, pickup_at,
		 airline_code, flight_number, flight_date, haz_items, declarations, status, payment_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.FirstName, order.LastName, order.Email, order.Phone,
		order.PickupAddress, order.PickupAt, order.AirlineCode, order.FlightNumber,
		order.FlightDate, order.HazItems, order.Declarations, order.Status, order.PaymentSessionID).
		Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
		return err
	}

	for i := range order.Bags {
		bag := &order.Bags[i]
		bag.OrderID = order.ID
		if err := tx.QueryRow(ctx, `INSERT INTO bags (order_id, tag_number, weight_kg)
			VALUES ($1, $2, $3) RETURNING id`,
			bag.OrderID, bag.TagNumber, bag.WeightKg).Scan(&bag.ID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *PGOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	if err := r.loadBags(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *PGOrderRepository) UpdateStatus(ctx context.Context, id string, expected, next domain.OrderStatus) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `UPDATE orders SET status=$1, updated_at=now()
		WHERE id=$2 AND status=$3
		RETURNING `+orderColumns, next, id, expected)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a lost race from a missing order.
			var exists bool
			if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
				return nil, err
			}
			if exists {
				return nil, domain.ErrConflict
			}
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	if err := r.loadBags(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *PGOrderRepository) SetPaymentSessionID(ctx context.Context, id, sessionID string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE orders SET payment_session_id=$1, updated_at=now()
		WHERE id=$2 AND (payment_session_id='' OR payment_session_id=$1)`, sessionID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("%w: payment session already set to a different value for order %s", domain.ErrInvariant, id)
	}
	return nil
}

func (r *PGOrderRepository) SetNotifierMessageID(ctx context.Context, id, messageID string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE orders SET notifier_message_id=$1, updated_at=now()
		WHERE id=$2 AND (notifier_message_id IS NULL OR notifier_message_id=$1)`, messageID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("%w: notifier message id already set to a different value for order %s", domain.ErrInvariant, id)
	}
	return nil
}

func (r *PGOrderRepository) ListForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at, id`, userID)
}

func (r *PGOrderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE status=$1 ORDER BY updated_at LIMIT $2`, status, limit)
}

func (r *PGOrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if err := r.loadBags(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *PGOrderRepository) loadBags(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.Query(ctx, `SELECT id, order_id, tag_number, weight_kg FROM bags WHERE order_id=$1 ORDER BY id`, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	order.Bags = order.Bags[:0]
	for rows.Next() {
		var b domain.Bag
		if err := rows.Scan(&b.ID, &b.OrderID, &b.TagNumber, &b.WeightKg); err != nil {
			return err
		}
		order.Bags = append(order.Bags, b)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(&o.ID, &o.UserID, &o.FirstName, &o.LastName, &o.Email, &o.Phone,
		&o.PickupAddress, &o.PickupAt, &o.AirlineCode, &o.FlightNumber, &o.FlightDate,
		&o.HazItems, &o.Declarations, &o.Status, &o.PaymentSessionID, &o.NotifierMessageID,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

var _ OrderRepository = (*PGOrderRepository)(nil)
