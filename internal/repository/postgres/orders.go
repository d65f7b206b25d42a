package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/lessonbook/internal/domain"
)

type OrderRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OrderRepo) With(db DB) *OrderRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OrderRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Insert stores order and returns its generated ID. order.ID and
// order.CreatedAt are filled in.
func (r *OrderRepo) Insert(ctx context.Context, order *domain.Order) (uuid.UUID, error) {
	const op = "postgres.OrderRepo.Insert"

	items, err := json.Marshal(order.LessonItems)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s:%w", op, err)
	}

	id := uuid.New()
	err = r.handle().QueryRow(ctx,
		`INSERT INTO orders(
			id, first_name, last_name, address, city, state, zip,
			ship_as_gift, address_type, lesson_items, total_spent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		id,
		order.FirstName,
		order.LastName,
		order.Address,
		order.City,
		order.State,
		order.Zip,
		order.ShipAsGift,
		string(order.AddressType),
		items,
		order.TotalSpent,
	).Scan(&order.CreatedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	order.ID = id

	return id, nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "postgres.OrderRepo.Get"

	var o domain.Order
	var addressType string
	var items []byte

	err := r.handle().QueryRow(ctx,
		`SELECT id, first_name, last_name, address, city, state, zip,
		        ship_as_gift, address_type, lesson_items, total_spent, created_at
		 FROM orders WHERE id = $1`,
		id,
	).Scan(
		&o.ID,
		&o.FirstName,
		&o.LastName,
		&o.Address,
		&o.City,
		&o.State,
		&o.Zip,
		&o.ShipAsGift,
		&addressType,
		&items,
		&o.TotalSpent,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	o.AddressType = domain.AddressType(addressType)
	if err := json.Unmarshal(items, &o.LessonItems); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &o, nil
}
