package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/kirinyoku/lessonbook/internal/domain"
	"github.com/kirinyoku/lessonbook/internal/repository"
	redisrepo "github.com/kirinyoku/lessonbook/internal/repository/redis"
	"github.com/kirinyoku/lessonbook/internal/uow"
)

var ErrChangesUnavailable = errors.New("lesson change stream is not configured")

type Config struct {
	// PublicBaseURL is prefixed to relative image paths in search results.
	PublicBaseURL  string
	SearchCacheTTL time.Duration
}

type Service struct {
	store  repository.Store
	cache  *redisrepo.Cache
	pubsub *redisrepo.LessonsPubSub
	uow    *uow.UoW
	logger *slog.Logger
	cfg    Config
}

// New builds the catalog service. cache and pubsub may be nil, in which case
// searches always hit the store and no change events are published.
func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.LessonsPubSub,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.SearchCacheTTL <= 0 {
		cfg.SearchCacheTTL = 30 * time.Second
	}

	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		uow:    uow.NewUoW(store),
		logger: logger,
		cfg:    cfg,
	}
}

// List returns every lesson unmodified, ordered by ID.
func (s *Service) List(ctx context.Context) ([]domain.Lesson, error) {
	const op = "service.catalog.List"

	lessons, err := s.store.Lessons().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lessons, nil
}

// Search returns the lessons whose subject contains query, ignoring case.
// Image paths in the result are absolute URLs.
//
// Parameters:
//   - ctx: request-scoped context.
//   - query: subject substring; empty matches every lesson.
//
// Returns:
//   - []domain.Lesson: matching lessons, possibly empty.
//   - error: if the store fails.
func (s *Service) Search(ctx context.Context, query string) ([]domain.Lesson, error) {
	const op = "service.catalog.Search"

	load := func(ctx context.Context) ([]domain.Lesson, error) {
		lessons, err := s.store.Lessons().SearchBySubject(ctx, query)
		if err != nil {
			return nil, storeErr{err}
		}
		return lessons, nil
	}

	var lessons []domain.Lesson
	var err error

	if s.cache != nil {
		lessons, err = s.cache.SearchLessons(ctx, query, s.cfg.SearchCacheTTL, load)
		if err != nil && !isStoreErr(err) {
			s.logger.Warn("search cache unavailable", "error", err)
			lessons, err = load(ctx)
		}
	} else {
		lessons, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Cached results may be shared with concurrent callers; rewrite a copy.
	out := make([]domain.Lesson, len(lessons))
	for i, l := range lessons {
		l.ImagePath = absoluteURL(s.cfg.PublicBaseURL, l.ImagePath)
		out[i] = l
	}

	return out, nil
}

// GetMany returns the lessons with the given IDs, ordered by ID. Unknown IDs
// are skipped.
//
// Returns:
//   - error: catalog.ErrNoLessonIDs if ids is empty.
//   - error: catalog.ErrNoLessonsFound if none of the IDs exist.
func (s *Service) GetMany(ctx context.Context, ids []int64) ([]domain.Lesson, error) {
	const op = "service.catalog.GetMany"

	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoLessonIDs)
	}

	lessons, err := s.store.Lessons().ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(lessons) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoLessonsFound)
	}

	return lessons, nil
}

// AddToCart reserves quantity spaces of a lesson with a single guarded
// decrement.
//
// Returns:
//   - *domain.Lesson: the lesson after the reservation.
//   - error: catalog.ErrInvalidQuantity if quantity is not positive or above domain.MaxSpaces.
//   - error: catalog.ErrLessonNotFound if the lesson does not exist.
//   - error: catalog.ErrNotEnoughSpaces if fewer than quantity spaces remain.
func (s *Service) AddToCart(ctx context.Context, lessonID int64, quantity int) (*domain.Lesson, error) {
	const op = "service.catalog.AddToCart"

	if quantity <= 0 || quantity > domain.MaxSpaces {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	lesson, err := s.store.Lessons().DecrementSpaces(ctx, lessonID, quantity)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, &LessonNotFoundError{LessonID: lessonID})
		case errors.Is(err, repository.ErrInsufficientSpaces):
			return nil, fmt.Errorf("%s: %w", op, ErrNotEnoughSpaces)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.NotifyChanged(ctx, *lesson)

	return lesson, nil
}

// RemoveFromCart releases |quantity| spaces of a lesson. The release is not
// capped by the lesson's seeded capacity.
//
// Returns:
//   - *domain.Lesson: the lesson after the release.
//   - error: catalog.ErrInvalidQuantity if quantity is zero or |quantity| is above domain.MaxSpaces.
//   - error: catalog.ErrLessonNotFound if the lesson does not exist.
//   - error: catalog.ErrSpacesOutOfRange if the lesson would exceed domain.MaxSpaces.
func (s *Service) RemoveFromCart(ctx context.Context, lessonID int64, quantity int) (*domain.Lesson, error) {
	const op = "service.catalog.RemoveFromCart"

	// checked before negating: -math.MinInt overflows
	if quantity == 0 || quantity > domain.MaxSpaces || quantity < -domain.MaxSpaces {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}
	if quantity < 0 {
		quantity = -quantity
	}

	lesson, err := s.store.Lessons().IncrementSpaces(ctx, lessonID, quantity)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, &LessonNotFoundError{LessonID: lessonID})
		case errors.Is(err, repository.ErrOutOfRange):
			return nil, fmt.Errorf("%s: %w", op, ErrSpacesOutOfRange)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.NotifyChanged(ctx, *lesson)

	return lesson, nil
}

// Update merges patch into the lesson with the given ID.
//
// Returns:
//   - *domain.Lesson: the updated lesson.
//   - error: catalog.ErrEmptyPatch if patch sets no field.
//   - error: catalog.ErrNegativeSpaces if patch sets spaces below zero.
//   - error: catalog.ErrSpacesOutOfRange if patch sets spaces above domain.MaxSpaces.
//   - error: catalog.ErrLessonNotFound if the lesson does not exist.
func (s *Service) Update(ctx context.Context, id int64, patch domain.LessonPatch) (*domain.Lesson, error) {
	const op = "service.catalog.Update"

	if patch.Empty() {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyPatch)
	}
	if patch.Spaces != nil && *patch.Spaces < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNegativeSpaces)
	}
	if patch.Spaces != nil && *patch.Spaces > domain.MaxSpaces {
		return nil, fmt.Errorf("%s: %w", op, ErrSpacesOutOfRange)
	}

	lesson, err := s.store.Lessons().Update(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, &LessonNotFoundError{LessonID: id})
		case errors.Is(err, repository.ErrInsufficientSpaces):
			return nil, fmt.Errorf("%s: %w", op, ErrNegativeSpaces)
		case errors.Is(err, repository.ErrOutOfRange):
			return nil, fmt.Errorf("%s: %w", op, ErrSpacesOutOfRange)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.NotifyChanged(ctx, *lesson)

	return lesson, nil
}

// CreateLessons seeds the catalog with lessons in one transaction.
//
// Returns:
//   - error: catalog.ErrNoLessonsToCreate if lessons is empty.
//   - error: catalog.ErrNegativeSpaces if a lesson has negative spaces.
//   - error: catalog.ErrLessonConflict if a lesson ID already exists.
func (s *Service) CreateLessons(ctx context.Context, lessons []domain.Lesson) error {
	const op = "service.catalog.CreateLessons"

	if len(lessons) == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoLessonsToCreate)
	}
	for _, l := range lessons {
		if l.Spaces < 0 {
			return fmt.Errorf("%s: %w", op, ErrNegativeSpaces)
		}
		if l.Spaces > domain.MaxSpaces {
			return fmt.Errorf("%s: %w", op, ErrSpacesOutOfRange)
		}
	}

	return s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		if err := tx.Lessons().BatchCreate(ctx, lessons); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrLessonConflict)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			s.NotifyChanged(ctx, lessons...)
		})

		return nil
	})
}

// NotifyChanged invalidates cached searches and publishes a change event for
// every lesson. Failures are logged; the change itself is already committed.
func (s *Service) NotifyChanged(ctx context.Context, lessons ...domain.Lesson) {
	if s.cache != nil {
		if err := s.cache.InvalidateCatalog(ctx); err != nil {
			s.logger.Warn("failed to invalidate search cache", "error", err)
		}
	}

	if s.pubsub == nil {
		return
	}
	for _, l := range lessons {
		if err := s.pubsub.PublishLessonChanged(ctx, l.ID, l.Spaces); err != nil {
			s.logger.Warn("failed to publish lesson change", "lesson_id", l.ID, "error", err)
		}
	}
}

// ChangesEnabled reports whether WatchChanges can stream.
func (s *Service) ChangesEnabled() bool {
	return s.pubsub != nil
}

// WatchChanges calls fn for every lesson change until ctx is done.
//
// Returns:
//   - error: catalog.ErrChangesUnavailable if no pub/sub is configured.
func (s *Service) WatchChanges(ctx context.Context, fn func(ctx context.Context, ev redisrepo.LessonChanged)) error {
	if s.pubsub == nil {
		return ErrChangesUnavailable
	}

	return s.pubsub.Subscribe(ctx, fn)
}

// storeErr marks errors coming from the store through the cache loader, so
// that they are not mistaken for cache failures.
type storeErr struct{ err error }

func (e storeErr) Error() string { return e.err.Error() }
func (e storeErr) Unwrap() error { return e.err }

func isStoreErr(err error) bool {
	var se storeErr
	return errors.As(err, &se)
}

func absoluteURL(base, path string) string {
	if path == "" || base == "" {
		return path
	}

	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}

	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
