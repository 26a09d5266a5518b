package storage

import "errors"

// ErrEmptySessionID is returned when a driver is called without a session id.
var ErrEmptySessionID = errors.New("session id is required")
