package repository

import "errors"

// Sentinel kinds for state cache errors.
var (
	ErrNoPath      = errors.New("state cache path not configured")
	ErrDecodeCache = errors.New("state cache decode failed")
	ErrWriteCache  = errors.New("state cache write failed")
)
