package session

import "errors"

// ErrNotFound is returned by all Find methods when no session matches.
var ErrNotFound = errors.New("session not found")
