package models

import "errors"

// Domain errors shared across repositories, services and handlers.
var (
	ErrNotFound            = errors.New("not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrStoryNotFound       = errors.New("story not found")
	ErrSceneNotFound       = errors.New("scene not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrStoryCompleted      = errors.New("story already completed")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInternalServer      = errors.New("internal server error")
)
