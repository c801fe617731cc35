package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shoplane/api/internal/database"
	"github.com/shoplane/api/internal/enum"
	"github.com/shoplane/api/internal/handler"
	"github.com/shoplane/api/internal/middleware"
)

// --- Mock store ---

type mockProductStore struct {
	products map[uuid.UUID]database.Product
}

func newMockProductStore() *mockProductStore {
	return &mockProductStore{products: make(map[uuid.UUID]database.Product)}
}

func (m *mockProductStore) ListProducts(_ context.Context) ([]database.Product, error) {
	var result []database.Product
	for _, p := range m.products {
		result = append(result, p)
	}
	return result, nil
}

func (m *mockProductStore) GetProduct(_ context.Context, id uuid.UUID) (database.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockProductStore) CreateProduct(_ context.Context, arg database.CreateProductParams) (database.Product, error) {
	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	p := database.Product{
		ID:          uuid.New(),
		Name:        arg.Name,
		Description: arg.Description,
		Price:       arg.Price,
		Image:       arg.Image,
		Category:    arg.Category,
		Stock:       arg.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *mockProductStore) UpdateProduct(_ context.Context, arg database.UpdateProductParams) (database.Product, error) {
	p, ok := m.products[arg.ID]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	p.Name = arg.Name
	p.Description = arg.Description
	p.Price = arg.Price
	p.Image = arg.Image
	p.Category = arg.Category
	p.Stock = arg.Stock
	p.UpdatedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	m.products[p.ID] = p
	return p, nil
}

func (m *mockProductStore) DeleteProduct(_ context.Context, id uuid.UUID) (int64, error) {
	if _, ok := m.products[id]; !ok {
		return 0, nil
	}
	delete(m.products, id)
	return 1, nil
}

func (m *mockProductStore) seed(name, price string, stock int32) database.Product {
	p := database.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: pgtype.Text{String: "test product", Valid: true},
		Price:       makeNumeric(price),
		Image:       pgtype.Text{String: "/img/test.jpg", Valid: true},
		Category:    pgtype.Text{String: "Misc", Valid: true},
		Stock:       stock,
		CreatedAt:   pgtype.Timestamptz{Time: time.Now(), Valid: true},
		UpdatedAt:   pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	m.products[p.ID] = p
	return p
}

func setupProductRouter(store *mockProductStore) *chi.Mux {
	h := handler.NewProductHandler(store)
	r := chi.NewRouter()
	r.Group(h.RegisterPublicRoutes)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Use(middleware.RequireRole(enum.RoleAdmin))
		h.RegisterAdminRoutes(r)
	})
	return r
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	store := newMockProductStore()
	store.seed("Walnut Desk", "120.00", 5)
	store.seed("Brass Lamp", "45.00", 12)
	router := setupProductRouter(store)

	rr := doRequest(t, router, http.MethodGet, "/products", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := decodeJSONList(t, rr); len(got) != 2 {
		t.Errorf("expected 2 products, got %d", len(got))
	}
}

func TestGetProduct(t *testing.T) {
	store := newMockProductStore()
	p := store.seed("Walnut Desk", "120.00", 5)
	router := setupProductRouter(store)

	rr := doRequest(t, router, http.MethodGet, "/products/"+p.ID.String(), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decodeJSON(t, rr)
	if resp["name"] != "Walnut Desk" {
		t.Errorf("name: got %v", resp["name"])
	}
	if resp["price"] != "120.00" {
		t.Errorf("price should be a fixed-point string: got %v", resp["price"])
	}
}

func TestGetProductNotFound(t *testing.T) {
	router := setupProductRouter(newMockProductStore())

	rr := doRequest(t, router, http.MethodGet, "/products/"+uuid.New().String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestCreateProduct(t *testing.T) {
	store := newMockProductStore()
	router := setupProductRouter(store)

	body := map[string]interface{}{
		"name":        "Oak Shelf",
		"description": "Solid oak wall shelf",
		"price":       "89.99",
		"image":       "/img/shelf.jpg",
		"category":    "Furniture",
	}
	rr := doAuthRequest(t, router, http.MethodPost, "/products", body, adminClaims())

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	if resp["price"] != "89.99" {
		t.Errorf("price: got %v", resp["price"])
	}
	if resp["stock"] != float64(0) {
		t.Errorf("stock should default to 0, got %v", resp["stock"])
	}
}

func TestCreateProductMissingFields(t *testing.T) {
	router := setupProductRouter(newMockProductStore())

	body := map[string]interface{}{"name": "Oak Shelf"}
	rr := doAuthRequest(t, router, http.MethodPost, "/products", body, adminClaims())

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	router := setupProductRouter(newMockProductStore())

	body := map[string]interface{}{
		"name":        "Oak Shelf",
		"description": "x",
		"price":       "10.00",
		"image":       "/img/x.jpg",
		"category":    "Misc",
	}
	rr := doAuthRequest(t, router, http.MethodPost, "/products", body, customerClaims(uuid.New()))

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

func TestUpdateProductMerge(t *testing.T) {
	store := newMockProductStore()
	p := store.seed("Walnut Desk", "120.00", 5)
	router := setupProductRouter(store)

	// Only price and stock change; the rest keeps current values.
	stock := int32(9)
	body := map[string]interface{}{"price": "99.00", "stock": stock}
	rr := doAuthRequest(t, router, http.MethodPut, "/products/"+p.ID.String(), body, adminClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	if resp["name"] != "Walnut Desk" {
		t.Errorf("name should be unchanged: got %v", resp["name"])
	}
	if resp["price"] != "99.00" {
		t.Errorf("price: got %v", resp["price"])
	}
	if resp["stock"] != float64(9) {
		t.Errorf("stock: got %v", resp["stock"])
	}
}

func TestUpdateProductNotFound(t *testing.T) {
	router := setupProductRouter(newMockProductStore())

	rr := doAuthRequest(t, router, http.MethodPut, "/products/"+uuid.New().String(),
		map[string]interface{}{"name": "X"}, adminClaims())

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestDeleteProduct(t *testing.T) {
	store := newMockProductStore()
	p := store.seed("Walnut Desk", "120.00", 5)
	router := setupProductRouter(store)

	rr := doAuthRequest(t, router, http.MethodDelete, "/products/"+p.ID.String(), nil, adminClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if _, ok := store.products[p.ID]; ok {
		t.Error("product not deleted")
	}
}

func TestDeleteProductNotFound(t *testing.T) {
	router := setupProductRouter(newMockProductStore())

	rr := doAuthRequest(t, router, http.MethodDelete, "/products/"+uuid.New().String(), nil, adminClaims())

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}
