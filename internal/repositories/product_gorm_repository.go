package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"estoque/internal/models"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves all products from the database, ordered by name.
func (r *GORMProductRepository) GetAll() ([]models.Product, error) {
	var products []models.Product
	if err := r.db.Order("name ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product by ID %d: %w", id, err)
	}
	return &product, nil
}

// Create creates a new product in the database. The store assigns the ID.
func (r *GORMProductRepository) Create(product *models.Product) error {
	if err := r.db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update applies the given column set to an existing product.
func (r *GORMProductRepository) Update(id uint, fields map[string]interface{}) error {
	res := r.db.Model(&models.Product{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(id uint) error {
	res := r.db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// IncrementQuantity adds amount to the stored quantity in one statement.
func (r *GORMProductRepository) IncrementQuantity(id uint, amount int) error {
	res := r.db.Model(&models.Product{}).
		Where("id = ?", id).
		Update("quantity", gorm.Expr("quantity + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("failed to register stock entry for product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DecrementQuantity subtracts amount from the stored quantity with the
// availability check folded into the statement's WHERE clause. The store's
// per-statement atomicity guarantees the quantity never goes negative, even
// under concurrent stock-outs.
func (r *GORMProductRepository) DecrementQuantity(id uint, amount int) error {
	res := r.db.Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", id, amount).
		Update("quantity", gorm.Expr("quantity - ?", amount))
	if res.Error != nil {
		return fmt.Errorf("failed to register stock withdrawal for product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Zero rows means either the product does not exist or the stock
		// does not cover the request; a follow-up read tells them apart.
		if _, err := r.GetByID(id); err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	return nil
}
