package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"estoque/internal/handlers"
	"estoque/internal/models"
	"estoque/internal/repositories"
	"estoque/internal/services"
	"estoque/internal/storage"
)

// setupApp builds the full HTTP surface against an isolated in-memory SQLite
// database and a temporary upload directory.
func setupApp(t *testing.T) (*fiber.App, string) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}))

	uploadDir := t.TempDir()
	fileStore, err := storage.NewFileStore(uploadDir)
	require.NoError(t, err)

	productRepo := repositories.NewGORMProductRepository(db)
	productService := services.NewProductService(productRepo, fileStore, nil)
	productHandler := handlers.NewProductHandler(productService)

	app := fiber.New()
	app.Static("/uploads", fileStore.Dir())
	api := app.Group("/api")
	productHandler.RegisterRoutes(api)

	return app, uploadDir
}

func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// newProductForm builds a multipart create/update request. An empty imageName
// omits the file part.
func newProductForm(t *testing.T, method, url string, fields map[string]string, imageName string, image []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if imageName != "" {
		part, err := writer.CreateFormFile("image", imageName)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newJSONRequest(t *testing.T, method, url, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func widgetFields() map[string]string {
	return map[string]string{
		"name":        "Widget",
		"value":       "9.99",
		"quantity":    "10",
		"minQuantity": "2",
	}
}

func listProducts(t *testing.T, app *fiber.App) []models.Product {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var products []models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	return products
}

func TestCreateAndListProduct(t *testing.T) {
	app, _ := setupApp(t)

	resp, err := app.Test(newProductForm(t, http.MethodPost, "/api/products", widgetFields(), "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "successfully")

	products := listProducts(t, app)
	require.Len(t, products, 1)
	assert.Equal(t, "Widget", products[0].Name)
	assert.Equal(t, 9.99, products[0].Value)
	assert.Equal(t, 10, products[0].Quantity)
	assert.Equal(t, 2, products[0].MinQuantity)
	assert.Nil(t, products[0].Image)

	// Listing twice with no mutation in between yields the same sequence.
	assert.Equal(t, products, listProducts(t, app))
}

func TestListProductsOrderedByName(t *testing.T) {
	app, _ := setupApp(t)

	for _, name := range []string{"Bolt", "Anvil", "Clamp"} {
		fields := widgetFields()
		fields["name"] = name
		resp, err := app.Test(newProductForm(t, http.MethodPost, "/api/products", fields, "", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	products := listProducts(t, app)
	require.Len(t, products, 3)
	assert.Equal(t, "Anvil", products[0].Name)
	assert.Equal(t, "Bolt", products[1].Name)
	assert.Equal(t, "Clamp", products[2].Name)
}

func TestCreateProduct_ValidationErrors(t *testing.T) {
	app, _ := setupApp(t)

	fields := map[string]string{
		"name":        "   ",
		"value":       "",
		"quantity":    "ten",
		"minQuantity": "",
	}
	resp, err := app.Test(newProductForm(t, http.MethodPost, "/api/products", fields, "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, []string{
		"name is required",
		"value is required",
		"quantity must be a valid integer",
		"minQuantity must be a valid integer",
	}, payload.Errors)

	assert.Empty(t, listProducts(t, app), "nothing is persisted on validation failure")
}

func TestCreateProduct_WithImage(t *testing.T) {
	app, uploadDir := setupApp(t)

	content := []byte("fake png bytes")
	resp, err := app.Test(newProductForm(t, http.MethodPost, "/api/products", widgetFields(), "photo.png", content))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	products := listProducts(t, app)
	require.Len(t, products, 1)
	require.NotNil(t, products[0].Image)
	imageName := *products[0].Image
	assert.True(t, strings.HasSuffix(imageName, ".png"), "generated name keeps the original extension")

	stored, err := os.ReadFile(filepath.Join(uploadDir, imageName))
	require.NoError(t, err)
	assert.Equal(t, content, stored)

	// The file is served back under /uploads by its generated name alone.
	servedResp, err := app.Test(httptest.NewRequest(http.MethodGet, "/uploads/"+imageName, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, servedResp.StatusCode)
	served, err := io.ReadAll(servedResp.Body)
	require.NoError(t, err)
	assert.Equal(t, content, served)
}

func TestUpdateProduct_ImageHandling(t *testing.T) {
	app, uploadDir := setupApp(t)

	resp, err := app.Test(newProductForm(t, http.MethodPost, "/api/products", widgetFields(), "photo.png", []byte("first")))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	products := listProducts(t, app)
	require.Len(t, products, 1)
	id := products[0].ID
	require.NotNil(t, products[0].Image)
	firstImage := *products[0].Image

	// Update without a file: fields change, image stays.
	fields := widgetFields()
	fields["name"] = "Widget Mk2"
	fields["quantity"] = "8"
	url := fmt.Sprintf("/api/products/%d", id)
	resp, err = app.Test(newProductForm(t, http.MethodPut, url, fields, "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	products = listProducts(t, app)
	require.Len(t, products, 1)
	assert.Equal(t, "Widget Mk2", products[0].Name)
	assert.Equal(t, 8, products[0].Quantity)
	require.NotNil(t, products[0].Image)
	assert.Equal(t, firstImage, *products[0].Image)

	// Update with a new file: image is replaced and the old file removed.
	resp, err = app.Test(newProductForm(t, http.MethodPut, url, fields, "new.jpg", []byte("second")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	products = listProducts(t, app)
	require.NotNil(t, products[0].Image)
	assert.NotEqual(t, firstImage, *products[0].Image)
	assert.True(t, strings.HasSuffix(*products[0].Image, ".jpg"))

	_, statErr := os.Stat(filepath.Join(uploadDir, firstImage))
	assert.True(t, os.IsNotExist(statErr), "replaced image file should be removed")
}

func TestUpdateProduct_NotFound(t *testing.T) {
	app, _ := setupApp(t)

	resp, err := app.Test(newProductForm(t, http.MethodPut, "/api/products/999", widgetFields(), "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteProduct(t *testing.T) {
	app, uploadDir := setupApp(t)

	resp, err := app.Test(newProductForm(t, http.MethodPost, "/api/products", widgetFields(), "photo.png", []byte("bytes")))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	products := listProducts(t, app)
	require.Len(t, products, 1)
	id := products[0].ID
	require.NotNil(t, products[0].Image)
	imageName := *products[0].Image

	url := fmt.Sprintf("/api/products/%d", id)
	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, url, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Empty(t, listProducts(t, app))
	_, statErr := os.Stat(filepath.Join(uploadDir, imageName))
	assert.True(t, os.IsNotExist(statErr), "image file should be removed with the product")

	// Deleting again reports the absence.
	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, url, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStockIn(t *testing.T) {
	app, _ := setupApp(t)

	resp, err := app.Test(newProductForm(t, http.MethodPost, "/api/products", widgetFields(), "", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := listProducts(t, app)[0].ID

	url := fmt.Sprintf("/api/products/%d/entrada", id)
	resp, err = app.Test(newJSONRequest(t, http.MethodPost, url, `{"quantity": 5}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 15, listProducts(t, app)[0].Quantity)
}

func TestStockIn_InvalidQuantity(t *testing.T) {
	app, _ := setupApp(t)

	resp, err := app.Test(newProductForm(t, http.MethodPost, "/api/products", widgetFields(), "", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := listProducts(t, app)[0].ID

	url := fmt.Sprintf("/api/products/%d/entrada", id)
	for _, body := range []string{`{}`, `{"quantity": 0}`, `{"quantity": -2}`, `{"quantity": "abc"}`} {
		resp, err = app.Test(newJSONRequest(t, http.MethodPost, url, body))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %s", body)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.Equal(t, "invalid quantity", payload["error"])
	}

	assert.Equal(t, 10, listProducts(t, app)[0].Quantity, "no mutation on invalid input")
}

func TestStockIn_ProductNotFound(t *testing.T) {
	app, _ := setupApp(t)

	resp, err := app.Test(newJSONRequest(t, http.MethodPost, "/api/products/999/entrada", `{"quantity": 5}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStockOutBoundary(t *testing.T) {
	app, _ := setupApp(t)

	resp, err := app.Test(newProductForm(t, http.MethodPost, "/api/products", widgetFields(), "", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := listProducts(t, app)[0].ID
	url := fmt.Sprintf("/api/products/%d/saida", id)

	// Draining the exact stock succeeds.
	resp, err = app.Test(newJSONRequest(t, http.MethodPost, url, `{"quantity": 10}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, listProducts(t, app)[0].Quantity)

	// Any further withdrawal fails and the quantity stays at zero.
	resp, err = app.Test(newJSONRequest(t, http.MethodPost, url, `{"quantity": 1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Contains(t, payload["error"], "exceeds")

	assert.Equal(t, 0, listProducts(t, app)[0].Quantity)
}

func TestStockOut_InvalidQuantity(t *testing.T) {
	app, _ := setupApp(t)

	resp, err := app.Test(newProductForm(t, http.MethodPost, "/api/products", widgetFields(), "", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := listProducts(t, app)[0].ID

	url := fmt.Sprintf("/api/products/%d/saida", id)
	resp, err = app.Test(newJSONRequest(t, http.MethodPost, url, `{"quantity": "no"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, 10, listProducts(t, app)[0].Quantity)
}

func TestGetProductByID(t *testing.T) {
	app, _ := setupApp(t)

	resp, err := app.Test(newProductForm(t, http.MethodPost, "/api/products", widgetFields(), "", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := listProducts(t, app)[0].ID

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/products/%d", id), nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var product models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&product))
	assert.Equal(t, "Widget", product.Name)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/products/999", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
