package repositories

import (
	"sort"
	"sync"

	"estoque/internal/models"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
// All operations take the mutex, so the stock guard is as atomic here as the
// conditional UPDATE is in the GORM implementation.
type MockProductRepository struct {
	products map[uint]models.Product
	nextID   uint
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[uint]models.Product),
		nextID:   1,
	}
}

// GetAll returns all products ordered by name.
func (r *MockProductRepository) GetAll() ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		productList = append(productList, p)
	}
	sort.Slice(productList, func(i, j int) bool {
		return productList[i].Name < productList[j].Name
	})
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(id uint) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

// Create adds a new product and assigns it an ID.
func (r *MockProductRepository) Create(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == 0 {
		product.ID = r.nextID
		r.nextID++
	} else if product.ID >= r.nextID {
		r.nextID = product.ID + 1
	}
	r.products[product.ID] = *product
	return nil
}

// Update applies the given column set to an existing product.
func (r *MockProductRepository) Update(id uint, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return ErrProductNotFound
	}
	for column, value := range fields {
		switch column {
		case "name":
			product.Name = value.(string)
		case "value":
			product.Value = value.(float64)
		case "quantity":
			product.Quantity = value.(int)
		case "min_quantity":
			product.MinQuantity = value.(int)
		case "image":
			image := value.(string)
			product.Image = &image
		}
	}
	r.products[id] = product
	return nil
}

// Delete removes a product by its ID.
func (r *MockProductRepository) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

// IncrementQuantity adds amount to the product's quantity.
func (r *MockProductRepository) IncrementQuantity(id uint, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return ErrProductNotFound
	}
	product.Quantity += amount
	r.products[id] = product
	return nil
}

// DecrementQuantity subtracts amount from the product's quantity, failing
// when the current stock does not cover it. Check and write happen under the
// same lock.
func (r *MockProductRepository) DecrementQuantity(id uint, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return ErrProductNotFound
	}
	if product.Quantity < amount {
		return ErrInsufficientStock
	}
	product.Quantity -= amount
	r.products[id] = product
	return nil
}
