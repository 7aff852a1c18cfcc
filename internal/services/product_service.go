package services

import (
	"fmt"
	"log"
	"math"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"estoque/internal/models"
	"estoque/internal/repositories"
	"estoque/internal/storage"
)

// EventPublisher publishes stock movement events to the message broker.
type EventPublisher interface {
	PublishStockMovement(movement map[string]interface{}) error
}

// ProductInput carries the raw form fields of a create/update request. All
// fields arrive as strings and are parsed and validated here.
type ProductInput struct {
	Name        string
	Value       string
	Quantity    string
	MinQuantity string
}

// ProductService handles validation and business rules for products.
type ProductService struct {
	repo     repositories.ProductRepository
	files    *storage.FileStore
	events   EventPublisher
	validate *validator.Validate
}

// NewProductService creates a new ProductService. events may be nil, in which
// case stock movements are not published.
func NewProductService(repo repositories.ProductRepository, files *storage.FileStore, events EventPublisher) *ProductService {
	return &ProductService{
		repo:     repo,
		files:    files,
		events:   events,
		validate: validator.New(),
	}
}

// GetAllProducts retrieves all products ordered by name.
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	return s.repo.GetAll()
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(id uint) (*models.Product, error) {
	return s.repo.GetByID(id)
}

// CreateProduct validates the input, persists the optional image file and
// inserts the new product. The file is written before the insert; when the
// insert fails the file stays behind, an accepted inconsistency window.
func (s *ProductService) CreateProduct(input ProductInput, file *multipart.FileHeader) error {
	product, verr := s.validateInput(input)
	if verr != nil {
		return verr
	}

	if file != nil {
		name, err := s.files.Save(file)
		if err != nil {
			return fmt.Errorf("failed to store product image: %w", err)
		}
		product.Image = &name
	}

	return s.repo.Create(product)
}

// UpdateProduct validates the input and overwrites the product's fields. The
// image column is only written when a new file was uploaded; the prior file,
// if any, is then removed from disk.
func (s *ProductService) UpdateProduct(id uint, input ProductInput, file *multipart.FileHeader) error {
	product, verr := s.validateInput(input)
	if verr != nil {
		return verr
	}

	fields := map[string]interface{}{
		"name":         product.Name,
		"value":        product.Value,
		"quantity":     product.Quantity,
		"min_quantity": product.MinQuantity,
	}

	var priorImage *string
	if file != nil {
		prior, err := s.repo.GetByID(id)
		if err != nil {
			return err
		}
		priorImage = prior.Image

		name, err := s.files.Save(file)
		if err != nil {
			return fmt.Errorf("failed to store product image: %w", err)
		}
		fields["image"] = name
	}

	if err := s.repo.Update(id, fields); err != nil {
		return err
	}

	if priorImage != nil {
		if err := s.files.Remove(*priorImage); err != nil {
			log.Printf("Failed to remove replaced image %s for product %d: %v", *priorImage, id, err)
		}
	}
	return nil
}

// DeleteProduct removes the product and, best-effort, its stored image file.
func (s *ProductService) DeleteProduct(id uint) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	if product.Image != nil {
		if err := s.files.Remove(*product.Image); err != nil {
			log.Printf("Failed to remove image %s for deleted product %d: %v", *product.Image, id, err)
		}
	}
	return nil
}

// RegisterStockIn increments the product's quantity by the given amount.
// Growth is unbounded; there is no maximum-quantity check.
func (s *ProductService) RegisterStockIn(id uint, quantity string) error {
	amount, verr := parseMovementQuantity(quantity)
	if verr != nil {
		return verr
	}
	if err := s.repo.IncrementQuantity(id, amount); err != nil {
		return err
	}
	s.publishMovement("stock.in", id, amount)
	return nil
}

// RegisterStockOut decrements the product's quantity by the given amount,
// guarded so the stored quantity never goes below zero. The guard lives in
// the repository's conditional decrement, so concurrent withdrawals cannot
// over-drain the stock.
func (s *ProductService) RegisterStockOut(id uint, quantity string) error {
	amount, verr := parseMovementQuantity(quantity)
	if verr != nil {
		return verr
	}
	if err := s.repo.DecrementQuantity(id, amount); err != nil {
		return err
	}
	s.publishMovement("stock.out", id, amount)
	return nil
}

// publishMovement emits a stock movement event. Publish failures are logged
// and never fail the request; the store already holds the truth.
func (s *ProductService) publishMovement(direction string, id uint, amount int) {
	if s.events == nil {
		return
	}

	movement := map[string]interface{}{
		"productId": id,
		"direction": direction,
		"amount":    amount,
	}
	// Best-effort read so consumers can judge the reorder threshold.
	if product, err := s.repo.GetByID(id); err == nil {
		movement["remaining"] = product.Quantity
		movement["minQuantity"] = product.MinQuantity
	}

	if err := s.events.PublishStockMovement(movement); err != nil {
		log.Printf("Warning: failed to publish %s event for product %d: %v", direction, id, err)
	}
}

// validateInput checks every field and collects all failures into one ordered
// message list; no error short-circuits the others. On success it returns the
// product assembled from the trimmed and parsed values, not yet persisted.
func (s *ProductService) validateInput(input ProductInput) (*models.Product, *ValidationError) {
	var messages []string

	name := strings.TrimSpace(input.Name)
	if name == "" {
		messages = append(messages, "name is required")
	}

	var value float64
	if v := strings.TrimSpace(input.Value); v == "" {
		messages = append(messages, "value is required")
	} else if f, err := strconv.ParseFloat(v, 64); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		messages = append(messages, "value must be a valid number")
	} else {
		value = f
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(input.Quantity))
	if err != nil {
		messages = append(messages, "quantity must be a valid integer")
	}

	minQuantity, err := strconv.Atoi(strings.TrimSpace(input.MinQuantity))
	if err != nil {
		messages = append(messages, "minQuantity must be a valid integer")
	}

	if len(messages) > 0 {
		return nil, &ValidationError{Messages: messages}
	}

	product := &models.Product{
		Name:        name,
		Value:       value,
		Quantity:    quantity,
		MinQuantity: minQuantity,
	}

	// Range checks on the parsed values, driven by the model's validate tags.
	if err := s.validate.Struct(product); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			messages = append(messages, rangeMessage(fieldErr))
		}
		return nil, &ValidationError{Messages: messages}
	}
	return product, nil
}

func rangeMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Field() {
	case "Value":
		return "value must not be negative"
	case "Quantity":
		return "quantity must not be negative"
	case "MinQuantity":
		return "minQuantity must not be negative"
	default:
		return fmt.Sprintf("%s is invalid", fieldErr.Field())
	}
}

// parseMovementQuantity validates the quantity of an entrada/saida request.
// It must parse as an integer and be positive.
func parseMovementQuantity(quantity string) (int, *ValidationError) {
	amount, err := strconv.Atoi(strings.TrimSpace(quantity))
	if err != nil || amount <= 0 {
		return 0, &ValidationError{Messages: []string{"invalid quantity"}}
	}
	return amount, nil
}
