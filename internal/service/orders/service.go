package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/kirinyoku/lessonbook/internal/domain"
	"github.com/kirinyoku/lessonbook/internal/repository"
	redisrepo "github.com/kirinyoku/lessonbook/internal/repository/redis"
	"github.com/kirinyoku/lessonbook/internal/uow"
)

// ChangeNotifier is told about lessons whose spaces changed in a committed
// order.
type ChangeNotifier interface {
	NotifyChanged(ctx context.Context, lessons ...domain.Lesson)
}

// EventPublisher announces placed orders to downstream consumers.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order domain.Order) error
}

type RateLimiter interface {
	Allow(ctx context.Context, clientID string) (redisrepo.Decision, error)
}

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	notifier ChangeNotifier
	events   EventPublisher
	limiter  RateLimiter
	logger   *slog.Logger
}

// New builds the order service. notifier, events and limiter are optional.
func New(
	store repository.Store,
	notifier ChangeNotifier,
	events EventPublisher,
	limiter RateLimiter,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:    store,
		uow:      uow.NewUoW(store),
		notifier: notifier,
		events:   events,
		limiter:  limiter,
		logger:   logger,
	}
}

// Place validates an order payload, reserves the spaces of every line item
// and records the order. Reservations and the order are written in one
// transaction: either all of them persist or none does.
//
// Parameters:
//   - ctx: request-scoped context.
//   - p: the decoded request body.
//   - clientID: rate limit key; empty disables limiting for the call.
//
// Returns:
//   - uuid.UUID: the ID of the stored order.
//   - error: orders.ErrEmptyPayload if p has no fields.
//   - error: *orders.ValidationError listing every violated rule.
//   - error: *orders.RateLimitedError if the client exceeded its quota.
//   - error: *orders.LessonNotFoundError for an unknown lesson.
//   - error: *orders.InsufficientSpacesError if a lesson lacks spaces.
//   - error: orders.ErrOrderConflict if a concurrent update aborted the transaction.
func (s *Service) Place(ctx context.Context, p Payload, clientID string) (uuid.UUID, error) {
	const op = "service.orders.Place"

	if len(p) == 0 {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmptyPayload)
	}

	if msgs := Validate(p); len(msgs) > 0 {
		return uuid.Nil, fmt.Errorf("%s: %w", op, &ValidationError{Messages: msgs})
	}

	if s.limiter != nil && clientID != "" {
		d, err := s.limiter.Allow(ctx, clientID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%s: %w", op, err)
		}
		if !d.Allowed {
			return uuid.Nil, fmt.Errorf("%s: %w", op, &RateLimitedError{RetryAfter: d.RetryAfter})
		}
	}

	order := toOrder(p)

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		// Lock first, in id order, then reserve in submitted order so that
		// the first failing item is the one reported.
		if err := tx.Lessons().LockByIDs(ctx, lockOrder(order.LessonItems)); err != nil {
			return err
		}

		changed := make([]domain.Lesson, 0, len(order.LessonItems))

		for _, item := range order.LessonItems {
			lesson, err := tx.Lessons().DecrementSpaces(ctx, item.ID, item.Spaces)
			if err != nil {
				return mapReserveErr(item.ID, err)
			}
			changed = append(changed, *lesson)
		}

		if _, err := tx.Orders().Insert(ctx, &order); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			if s.notifier != nil {
				s.notifier.NotifyChanged(ctx, changed...)
			}
			if s.events != nil {
				if err := s.events.PublishOrderPlaced(ctx, order); err != nil {
					s.logger.Warn("failed to publish order event", "order_id", order.ID, "error", err)
				}
			}
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrOrderConflict)
		}

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("order placed",
		"order_id", order.ID,
		"items", len(order.LessonItems),
		"total_spent", order.TotalSpent.String(),
	)

	return order.ID, nil
}

// Get returns a stored order.
//
// Returns:
//   - error: orders.ErrOrderNotFound if no order has the ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "service.orders.Get"

	o, err := s.store.Orders().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return o, nil
}

// lockOrder returns the distinct lesson IDs of items, ascending.
func lockOrder(items []domain.LineItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func mapReserveErr(lessonID int64, err error) error {
	var ise *repository.InsufficientSpacesError

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &LessonNotFoundError{LessonID: lessonID}
	case errors.As(err, &ise):
		return &InsufficientSpacesError{LessonID: lessonID, Subject: ise.Subject}
	case errors.Is(err, repository.ErrInsufficientSpaces):
		return &InsufficientSpacesError{LessonID: lessonID}
	}

	return err
}
