package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"estoque/internal/repositories"
	"estoque/internal/services"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service: service,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
	productRoutes.Post("/:id/entrada", h.HandleStockIn)
	productRoutes.Post("/:id/saida", h.HandleStockOut)
}

// HandleGetProducts retrieves all products ordered by name.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts()
	if err != nil {
		log.Printf("Error getting all products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not retrieve products, try again later.",
		})
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid product ID.",
		})
	}

	product, err := h.service.GetProductByID(uint(id))
	if err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Product not found.",
			})
		}
		log.Printf("Error getting product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not retrieve product.",
		})
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a new product from a multipart form with an
// optional "image" file part.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	input := productInputFromForm(c)
	file := imageFromForm(c)

	if err := h.service.CreateProduct(input, file); err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"errors": verr.Messages,
			})
		}
		log.Printf("Error creating product: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Could not add product.")
	}

	return c.Status(fiber.StatusCreated).SendString("Product added successfully!")
}

// HandleUpdateProduct overwrites a product's fields. The image is only
// replaced when a new file part is supplied.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": []string{"invalid product id"},
		})
	}

	input := productInputFromForm(c)
	file := imageFromForm(c)

	if err := h.service.UpdateProduct(uint(id), input, file); err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"errors": verr.Messages,
			})
		case errors.Is(err, repositories.ErrProductNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Product not found.",
			})
		default:
			log.Printf("Error updating product %d: %v", id, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not update product.",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "Product updated successfully!",
	})
}

// HandleDeleteProduct removes a product and its stored image.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid product ID.",
		})
	}

	if err := h.service.DeleteProduct(uint(id)); err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Product not found.",
			})
		}
		log.Printf("Error deleting product %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete product.",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Product deleted successfully!",
	})
}

// stockMovementRequest is the JSON body of entrada/saida requests.
type stockMovementRequest struct {
	Quantity json.Number `json:"quantity"`
}

// HandleStockIn registers a stock entry for a product.
func (h *ProductHandler) HandleStockIn(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid product ID.",
		})
	}

	var req stockMovementRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid quantity",
		})
	}

	if err := h.service.RegisterStockIn(uint(id), req.Quantity.String()); err != nil {
		return h.respondStockError(c, id, "entry", err)
	}

	return c.JSON(fiber.Map{
		"message": "Stock entry recorded successfully!",
	})
}

// HandleStockOut registers a stock withdrawal for a product, guarded against
// driving the quantity below zero.
func (h *ProductHandler) HandleStockOut(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid product ID.",
		})
	}

	var req stockMovementRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid quantity",
		})
	}

	if err := h.service.RegisterStockOut(uint(id), req.Quantity.String()); err != nil {
		return h.respondStockError(c, id, "withdrawal", err)
	}

	return c.JSON(fiber.Map{
		"message": "Stock withdrawal recorded successfully!",
	})
}

// respondStockError maps stock movement failures to the HTTP surface.
func (h *ProductHandler) respondStockError(c *fiber.Ctx, id int, movement string, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": verr.Messages[0],
		})
	case errors.Is(err, repositories.ErrInsufficientStock):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "The requested quantity exceeds the available stock.",
		})
	case errors.Is(err, repositories.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Product not found.",
		})
	default:
		log.Printf("Error registering stock %s for product %d: %v", movement, id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not register stock " + movement + ".",
		})
	}
}

// productInputFromForm collects the raw form fields of a create/update
// request; parsing happens in the service.
func productInputFromForm(c *fiber.Ctx) services.ProductInput {
	return services.ProductInput{
		Name:        c.FormValue("name"),
		Value:       c.FormValue("value"),
		Quantity:    c.FormValue("quantity"),
		MinQuantity: c.FormValue("minQuantity"),
	}
}

// imageFromForm returns the optional "image" file part, or nil.
func imageFromForm(c *fiber.Ctx) *multipart.FileHeader {
	file, err := c.FormFile("image")
	if err != nil {
		return nil
	}
	return file
}
