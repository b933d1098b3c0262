package store

import "errors"

// ErrNotFound is returned by all Find methods when no entity matches.
var ErrNotFound = errors.New("not found")
