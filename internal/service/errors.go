package service

import (
	"errors"
	"fmt"
)

// Class sentinels. Handlers map them to HTTP status with errors.Is; every
// domain error below unwraps to exactly one of them.
var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
	ErrConflict   = errors.New("conflict")   // 409
)

// ErrUnauthorized is deliberately the whole message: credential and token
// failures must not reveal whether the username, password or token was the
// problem.
var ErrUnauthorized = errors.New("could not validate credentials") // 401

var ErrEmptyOrder = fmt.Errorf("%w: cannot create an order with no items", ErrValidation)

type ProductNotFoundError struct {
	ProductID uint64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with id %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrNotFound }

type InsufficientStockError struct {
	ProductID   uint64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q (id %d): requested %d, available %d",
		e.ProductName, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrConflict }

type ProductUnavailableError struct {
	ProductName string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %q is currently unavailable for purchase", e.ProductName)
}

func (e *ProductUnavailableError) Unwrap() error { return ErrConflict }

type ProductNameExistsError struct {
	Name string
}

func (e *ProductNameExistsError) Error() string {
	return fmt.Sprintf("a product with the name %q already exists", e.Name)
}

func (e *ProductNameExistsError) Unwrap() error { return ErrConflict }

type ProductInUseError struct {
	ProductName string
}

func (e *ProductInUseError) Error() string {
	return fmt.Sprintf("cannot delete product %q because it is part of an existing order", e.ProductName)
}

func (e *ProductInUseError) Unwrap() error { return ErrConflict }

type UsernameExistsError struct {
	Username string
}

func (e *UsernameExistsError) Error() string {
	return fmt.Sprintf("user with username %q already exists", e.Username)
}

func (e *UsernameExistsError) Unwrap() error { return ErrConflict }

type UserHasOrdersError struct {
	Username string
}

func (e *UserHasOrdersError) Error() string {
	return fmt.Sprintf("cannot delete user %q because they have existing orders", e.Username)
}

func (e *UserHasOrdersError) Unwrap() error { return ErrConflict }

type LastAdminError struct {
	Username string
	Action   string // "demote" or "delete"
}

func (e *LastAdminError) Error() string {
	return fmt.Sprintf("cannot %s user %q: this is the last administrator", e.Action, e.Username)
}

func (e *LastAdminError) Unwrap() error { return ErrConflict }

type UselessOperationError struct {
	Username string
	Role     string
}

func (e *UselessOperationError) Error() string {
	return fmt.Sprintf("user %q already has role %q", e.Username, e.Role)
}

func (e *UselessOperationError) Unwrap() error { return ErrValidation }
