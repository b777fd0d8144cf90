package domain

import "errors"

var (
	// ErrStoreNotFound is returned when a store name is not present in a shard.
	ErrStoreNotFound = errors.New("store not found")
	// ErrProductNotFound is returned when a product is missing from its store or is hidden.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductExists is returned when a visible product with the same name already exists.
	ErrProductExists = errors.New("product already exists")
	// ErrInsufficientStock is returned when a purchase or stock removal exceeds the available amount.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity is returned for zero or negative quantities.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrInvalidProduct is returned when a product carries a negative amount or price, or no name.
	ErrInvalidProduct = errors.New("invalid product")
)
