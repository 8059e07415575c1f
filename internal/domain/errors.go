package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrListNotFound is returned when a shopping list does not exist
	ErrListNotFound = errors.New("shopping list not found")

	// ErrItemNotFound is returned when a line item does not exist in its list
	ErrItemNotFound = errors.New("line item not found")

	// ErrCatalogFailure is returned when the catalog search API request fails
	ErrCatalogFailure = errors.New("catalog API request failed")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrSearchTimeout is returned when the store combination search runs out of time
	ErrSearchTimeout = errors.New("store combination search timed out")
)
