package apperror

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrMatchNotFound   = errors.New("match not found")
	ErrMatchFull       = errors.New("match full")
	ErrAlreadyJoined   = errors.New("already joined")
	ErrMatchClosed     = errors.New("match is closed")
	ErrInvalidUsername = errors.New("username must be between 3 and 20 characters")
	ErrUsernameTaken   = errors.New("username is already taken")
)

var ErrNotInMatch = errors.New("presence is not in the match")
