package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/lessonbook/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool   *pgxpool.Pool
	txOpts pgx.TxOptions
}

// NewStore returns a Store backed by pool. Transactions run at READ COMMITTED:
// every capacity decrement is a guarded single-statement update, so stronger
// isolation only adds serialization failures.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		txOpts: pgx.TxOptions{
			IsoLevel:   pgx.ReadCommitted,
			AccessMode: pgx.ReadWrite,
		},
	}
}

func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	const op = "postgres.Store.RunTx"

	tx, err := s.pool.BeginTx(ctx, s.txOpts)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, txRepos{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, translateDBErr(err))
	}

	return nil
}

func (s *Store) Lessons() repository.LessonRepository { return &LessonRepo{pool: s.pool} }
func (s *Store) Orders() repository.OrderRepository   { return &OrderRepo{pool: s.pool} }

type txRepos struct {
	tx pgx.Tx
}

func (t txRepos) Lessons() repository.LessonRepository { return (&LessonRepo{}).With(t.tx) }
func (t txRepos) Orders() repository.OrderRepository   { return (&OrderRepo{}).With(t.tx) }
