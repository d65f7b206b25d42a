package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/kirinyoku/lessonbook/internal/domain"
)

// LessonRepository is the access contract for the lesson catalog.
type LessonRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Lesson, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Lesson, error)
	List(ctx context.Context) ([]domain.Lesson, error)
	SearchBySubject(ctx context.Context, substr string) ([]domain.Lesson, error)

	// DecrementSpaces subtracts amount from the lesson's spaces only if at
	// least amount spaces remain. The check and the write are one operation.
	//
	// Returns:
	//   - *domain.Lesson: the lesson after the decrement.
	//   - error: ErrNotFound if the lesson does not exist.
	//   - error: *InsufficientSpacesError if fewer than amount spaces remain.
	DecrementSpaces(ctx context.Context, id int64, amount int) (*domain.Lesson, error)

	// IncrementSpaces adds amount to the lesson's spaces. There is no bound
	// other than domain.MaxSpaces.
	//
	// Returns:
	//   - error: ErrNotFound if the lesson does not exist.
	//   - error: ErrOutOfRange if the result would exceed domain.MaxSpaces.
	IncrementSpaces(ctx context.Context, id int64, amount int) (*domain.Lesson, error)

	// LockByIDs takes write locks on the given lessons in ascending ID order and
	// holds them until the surrounding transaction ends. Unknown IDs are
	// ignored. Outside a transaction the locks are released at once.
	LockByIDs(ctx context.Context, ids []int64) error

	Update(ctx context.Context, id int64, patch domain.LessonPatch) (*domain.Lesson, error)
	BatchCreate(ctx context.Context, lessons []domain.Lesson) error
}

type OrderRepository interface {
	Insert(ctx context.Context, order *domain.Order) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

// Repos groups the repositories bound to one handle: the pool outside a
// transaction, the transaction inside one.
type Repos interface {
	Lessons() LessonRepository
	Orders() OrderRepository
}

// Store is the shared catalog store handle. It is constructed once at startup
// and injected into every service that needs it.
type Store interface {
	Repos

	// RunTx runs fn inside a single transaction. The transaction commits when
	// fn returns nil and rolls back otherwise.
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error
}
