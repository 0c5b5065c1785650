package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrKeyNotFound is returned when a credential store key is unset.
	ErrKeyNotFound = errors.New("key not found")
)
