package domain

import "errors"

var (
	// ErrCatalogEmpty is returned when a catalog source holds no usable products
	ErrCatalogEmpty = errors.New("catalog is empty")

	// ErrInvalidProduct is returned when a catalog entry cannot be accepted
	ErrInvalidProduct = errors.New("invalid catalog product")

	// ErrUnsupportedCatalogFormat is returned for catalog files of unknown type
	ErrUnsupportedCatalogFormat = errors.New("unsupported catalog format")

	// ErrSessionNotFound is returned when no session exists for a user
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionStoreUnavailable is returned when the session backend cannot be reached
	ErrSessionStoreUnavailable = errors.New("session store unavailable")

	// ErrInvalidPickupTime is returned when a pickup time cannot be understood
	ErrInvalidPickupTime = errors.New("invalid pickup time")

	// ErrPickupInPast is returned when a pickup time lies before now
	ErrPickupInPast = errors.New("pickup time is in the past")

	// ErrOrderNotFound is returned when an archived order does not exist
	ErrOrderNotFound = errors.New("order not found")

	// ErrEmptyCart is returned when confirming an order without items
	ErrEmptyCart = errors.New("cart is empty")

	// ErrEmbeddingFailure is returned when the embedding service fails
	ErrEmbeddingFailure = errors.New("embedding request failed")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")
)
