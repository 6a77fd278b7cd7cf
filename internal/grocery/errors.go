package grocery

import "errors"

var (
	ErrEmptyName        = errors.New("product name cannot be empty")
	ErrDuplicateProduct = errors.New("product already exists in the master list")
	ErrUnknownProduct   = errors.New("product not found in the master list")
	ErrInvalidQuantity  = errors.New("quantity must be a positive number")
	ErrUnknownHistory   = errors.New("history record not found")
)
