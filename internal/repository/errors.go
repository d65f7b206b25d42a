package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInsufficientSpaces = errors.New("insufficient spaces")
	ErrOutOfRange         = errors.New("value out of range")
)

// InsufficientSpacesError is returned by a guarded decrement that would drive
// a lesson's spaces below zero. It matches ErrInsufficientSpaces.
type InsufficientSpacesError struct {
	LessonID  int64
	Subject   string
	Available int
	Requested int
}

func (e *InsufficientSpacesError) Error() string {
	return fmt.Sprintf(
		"lesson %d (%s): %d spaces requested, %d available",
		e.LessonID, e.Subject, e.Requested, e.Available,
	)
}

func (e *InsufficientSpacesError) Is(target error) bool {
	return target == ErrInsufficientSpaces
}
