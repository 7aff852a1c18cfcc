package repositories

import (
	"errors"

	"estoque/internal/models"
)

// ErrProductNotFound is returned when no product matches the given ID.
var ErrProductNotFound = errors.New("product not found")

// ErrInsufficientStock is returned when a stock-out requests more units than
// the product currently holds.
var ErrInsufficientStock = errors.New("requested quantity exceeds available stock")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	// GetAll returns every product ordered by name, ascending.
	GetAll() ([]models.Product, error)
	GetByID(id uint) (*models.Product, error)
	Create(product *models.Product) error
	// Update applies the given column set to the product with the given ID.
	// The caller decides which columns to include (the image column is only
	// written when a new file was uploaded).
	Update(id uint, fields map[string]interface{}) error
	Delete(id uint) error
	// IncrementQuantity adds amount to the product's quantity in a single
	// statement.
	IncrementQuantity(id uint, amount int) error
	// DecrementQuantity subtracts amount from the product's quantity only if
	// the current quantity covers it. The check and the write happen in one
	// conditional statement, so concurrent calls can never drive the
	// quantity below zero. Returns ErrInsufficientStock when the stock does
	// not cover the requested amount.
	DecrementQuantity(id uint, amount int) error
}
