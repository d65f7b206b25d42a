// Package memory implements the catalog store in process memory. It backs the
// test suites and local runs with STORE_DRIVER=memory.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/lessonbook/internal/domain"
	"github.com/kirinyoku/lessonbook/internal/repository"
)

type Store struct {
	mu      sync.Mutex
	lessons map[int64]domain.Lesson
	orders  map[uuid.UUID]domain.Order

	// failInsert makes the next order insert fail; used to exercise rollback.
	failInsert error
}

func NewStore(seed ...domain.Lesson) *Store {
	s := &Store{
		lessons: make(map[int64]domain.Lesson),
		orders:  make(map[uuid.UUID]domain.Order),
	}
	for _, l := range seed {
		if l.RecordID == uuid.Nil {
			l.RecordID = uuid.New()
		}
		s.lessons[l.ID] = l
	}
	return s
}

// FailNextOrderInsert makes the next Orders().Insert return err.
func (s *Store) FailNextOrderInsert(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failInsert = err
}

// OrderCount reports how many orders are stored.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *Store) Lessons() repository.LessonRepository { return &lessonRepo{s: s} }
func (s *Store) Orders() repository.OrderRepository   { return &orderRepo{s: s} }

// RunTx holds the store lock for the whole of fn, so transactions are
// serialized against each other and against single operations. On error the
// state is restored from a snapshot taken before fn ran.
func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lessons := make(map[int64]domain.Lesson, len(s.lessons))
	for k, v := range s.lessons {
		lessons[k] = v
	}
	orders := make(map[uuid.UUID]domain.Order, len(s.orders))
	for k, v := range s.orders {
		orders[k] = v
	}

	if err := fn(ctx, txRepos{s: s}); err != nil {
		s.lessons = lessons
		s.orders = orders
		return err
	}

	return nil
}

type txRepos struct {
	s *Store
}

func (t txRepos) Lessons() repository.LessonRepository { return &lessonRepo{s: t.s, locked: true} }
func (t txRepos) Orders() repository.OrderRepository   { return &orderRepo{s: t.s, locked: true} }

type lessonRepo struct {
	s      *Store
	locked bool
}

func (r *lessonRepo) lock() func() {
	if r.locked {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *lessonRepo) GetByID(ctx context.Context, id int64) (*domain.Lesson, error) {
	defer r.lock()()

	l, ok := r.s.lessons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (r *lessonRepo) ListByIDs(ctx context.Context, ids []int64) ([]domain.Lesson, error) {
	defer r.lock()()

	return r.s.sorted(func(l domain.Lesson) bool {
		return slices.Contains(ids, l.ID)
	}), nil
}

func (r *lessonRepo) List(ctx context.Context) ([]domain.Lesson, error) {
	defer r.lock()()

	return r.s.sorted(func(domain.Lesson) bool { return true }), nil
}

func (r *lessonRepo) SearchBySubject(ctx context.Context, substr string) ([]domain.Lesson, error) {
	defer r.lock()()

	needle := strings.ToLower(substr)
	return r.s.sorted(func(l domain.Lesson) bool {
		return strings.Contains(strings.ToLower(l.Subject), needle)
	}), nil
}

func (r *lessonRepo) DecrementSpaces(ctx context.Context, id int64, amount int) (*domain.Lesson, error) {
	defer r.lock()()

	l, ok := r.s.lessons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if l.Spaces < amount {
		return nil, &repository.InsufficientSpacesError{
			LessonID:  id,
			Subject:   l.Subject,
			Available: l.Spaces,
			Requested: amount,
		}
	}

	l.Spaces -= amount
	r.s.lessons[id] = l
	return &l, nil
}

func (r *lessonRepo) IncrementSpaces(ctx context.Context, id int64, amount int) (*domain.Lesson, error) {
	defer r.lock()()

	l, ok := r.s.lessons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if amount > domain.MaxSpaces-l.Spaces {
		return nil, repository.ErrOutOfRange
	}

	l.Spaces += amount
	r.s.lessons[id] = l
	return &l, nil
}

// LockByIDs has nothing to take: a transaction already holds the store mutex.
func (r *lessonRepo) LockByIDs(ctx context.Context, ids []int64) error {
	defer r.lock()()
	return nil
}

func (r *lessonRepo) Update(ctx context.Context, id int64, patch domain.LessonPatch) (*domain.Lesson, error) {
	defer r.lock()()

	l, ok := r.s.lessons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	if patch.Subject != nil {
		l.Subject = *patch.Subject
	}
	if patch.Location != nil {
		l.Location = *patch.Location
	}
	if patch.Price != nil {
		l.Price = *patch.Price
	}
	if patch.ImagePath != nil {
		l.ImagePath = *patch.ImagePath
	}
	if patch.Spaces != nil {
		if *patch.Spaces < 0 {
			return nil, repository.ErrInsufficientSpaces
		}
		l.Spaces = *patch.Spaces
	}

	r.s.lessons[id] = l
	return &l, nil
}

func (r *lessonRepo) BatchCreate(ctx context.Context, lessons []domain.Lesson) error {
	defer r.lock()()

	seen := make(map[int64]struct{}, len(lessons))
	for _, l := range lessons {
		if _, ok := r.s.lessons[l.ID]; ok {
			return repository.ErrConflict
		}
		if _, ok := seen[l.ID]; ok {
			return repository.ErrConflict
		}
		seen[l.ID] = struct{}{}
	}

	for _, l := range lessons {
		l.RecordID = uuid.New()
		r.s.lessons[l.ID] = l
	}
	return nil
}

type orderRepo struct {
	s      *Store
	locked bool
}

func (r *orderRepo) lock() func() {
	if r.locked {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *orderRepo) Insert(ctx context.Context, order *domain.Order) (uuid.UUID, error) {
	defer r.lock()()

	if err := r.s.failInsert; err != nil {
		r.s.failInsert = nil
		return uuid.Nil, err
	}

	order.ID = uuid.New()
	order.CreatedAt = time.Now().UTC()

	stored := *order
	stored.LessonItems = slices.Clone(order.LessonItems)
	r.s.orders[order.ID] = stored

	return order.ID, nil
}

func (r *orderRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	defer r.lock()()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.LessonItems = slices.Clone(o.LessonItems)
	return &o, nil
}

// sorted returns the lessons matching keep ordered by ID. Callers hold s.mu.
func (s *Store) sorted(keep func(domain.Lesson) bool) []domain.Lesson {
	out := []domain.Lesson{}
	for _, l := range s.lessons {
		if keep(l) {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b domain.Lesson) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}
