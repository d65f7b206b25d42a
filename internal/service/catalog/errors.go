package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrLessonNotFound    = errors.New("lesson not found")
	ErrNotEnoughSpaces   = errors.New("not enough spaces available")
	ErrInvalidQuantity   = errors.New("quantity must be a positive integer")
	ErrSpacesOutOfRange  = errors.New("spaces out of range")
	ErrNoLessonIDs       = errors.New("lesson ids must be a non-empty array")
	ErrNoLessonsFound    = errors.New("no lessons found for the provided ids")
	ErrEmptyPatch        = errors.New("no fields to update")
	ErrNegativeSpaces    = errors.New("spaces must not be negative")
	ErrLessonConflict    = errors.New("lesson already exists")
	ErrNoLessonsToCreate = errors.New("no lessons to create")
)

// LessonNotFoundError names the lesson that does not exist. It matches
// ErrLessonNotFound.
type LessonNotFoundError struct {
	LessonID int64
}

func (e *LessonNotFoundError) Error() string {
	return fmt.Sprintf("lesson with ID %d not found", e.LessonID)
}

func (e *LessonNotFoundError) Is(target error) bool {
	return target == ErrLessonNotFound
}
