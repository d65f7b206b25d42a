package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyPayload       = errors.New("invalid request. No data provided")
	ErrInvalidOrder       = errors.New("invalid order")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrInsufficientSpaces = errors.New("insufficient spaces")
	ErrOrderConflict      = errors.New("order conflicts with a concurrent update")
	ErrOrderNotFound      = errors.New("order not found")
	ErrRateLimited        = errors.New("rate limited")
)

// ValidationError carries every rule the order payload violated.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "invalid order: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidOrder
}

type LessonNotFoundError struct {
	LessonID int64
}

func (e *LessonNotFoundError) Error() string {
	return fmt.Sprintf("Lesson with id %d not found", e.LessonID)
}

func (e *LessonNotFoundError) Is(target error) bool {
	return target == ErrLessonNotFound
}

type InsufficientSpacesError struct {
	LessonID int64
	Subject  string
}

func (e *InsufficientSpacesError) Error() string {
	return fmt.Sprintf("Not enough spaces available for lesson %s", e.Subject)
}

func (e *InsufficientSpacesError) Is(target error) bool {
	return target == ErrInsufficientSpaces
}

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
