package user

import "errors"

// ErrNotFound is returned by all Find methods when no user matches.
var ErrNotFound = errors.New("user not found")
