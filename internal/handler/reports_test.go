package handler_test

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shoplane/api/internal/database"
	"github.com/shoplane/api/internal/enum"
	"github.com/shoplane/api/internal/handler"
	"github.com/shoplane/api/internal/middleware"
)

// --- Mock store ---

type mockReportsStore struct {
	users    []database.User
	orders   []database.OrderWithCustomer
	products []database.Product
	messages []database.EmailMessage
}

func (m *mockReportsStore) ListUsers(_ context.Context) ([]database.User, error) {
	return m.users, nil
}

func (m *mockReportsStore) ListAllOrders(_ context.Context) ([]database.OrderWithCustomer, error) {
	return m.orders, nil
}

func (m *mockReportsStore) ListProducts(_ context.Context) ([]database.Product, error) {
	return m.products, nil
}

func (m *mockReportsStore) ListEmailMessages(_ context.Context) ([]database.EmailMessage, error) {
	return m.messages, nil
}

func populatedReportsStore() *mockReportsStore {
	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	return &mockReportsStore{
		users: []database.User{{
			ID: uuid.New(), Name: "Amira", Email: "amira@shop.test", Role: enum.RoleAdmin, CreatedAt: now,
		}},
		orders: []database.OrderWithCustomer{{
			Order: database.Order{
				ID:            uuid.New(),
				CustomerID:    uuid.New(),
				PaymentMethod: enum.PaymentMethodCard,
				TotalPrice:    makeNumeric("130.00"),
				IsPaid:        true,
				Status:        enum.OrderStatusDelivered,
				CreatedAt:     now,
			},
			CustomerName:  "Jo Field",
			CustomerEmail: "jo@example.test",
		}},
		products: []database.Product{{
			ID:       uuid.New(),
			Name:     "Walnut Desk",
			Price:    makeNumeric("120.00"),
			Category: pgtype.Text{String: "Furniture", Valid: true},
			Stock:    5,
		}},
		messages: []database.EmailMessage{{
			ID:             uuid.New(),
			TrackingID:     uuid.New(),
			RecipientEmail: "jo@example.test",
			Subject:        "Your invoice",
			Status:         enum.EmailStatusSeen,
			LastOpenedAt:   now,
			CreatedAt:      now,
		}},
	}
}

func setupReportsRouter(store *mockReportsStore) *chi.Mux {
	h := handler.NewReportsHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Use(middleware.RequireRole(enum.RoleAdmin))
	h.RegisterRoutes(r)
	return r
}

// --- Tests ---

func TestAllCSV(t *testing.T) {
	router := setupReportsRouter(populatedReportsStore())

	rr := doAuthRequest(t, router, http.MethodGet, "/reports/generate-csv-all", nil, adminClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type: got %s", ct)
	}
	body := rr.Body.String()
	for _, section := range []string{"USERS", "ORDERS", "PRODUCTS"} {
		if !strings.Contains(body, section) {
			t.Errorf("missing %s section", section)
		}
	}
	if !strings.Contains(body, "amira@shop.test") || !strings.Contains(body, "Walnut Desk") {
		t.Error("missing row data")
	}
	if !strings.Contains(body, "130.00") {
		t.Error("order total missing")
	}
}

func TestAllPDF(t *testing.T) {
	router := setupReportsRouter(populatedReportsStore())

	rr := doAuthRequest(t, router, http.MethodGet, "/reports/generate-pdf-all", nil, adminClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type: got %s", ct)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
		t.Error("body should be a PDF document")
	}
}

func TestEmailCSV(t *testing.T) {
	router := setupReportsRouter(populatedReportsStore())

	rr := doAuthRequest(t, router, http.MethodGet, "/email/generate-csv", nil, adminClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, "jo@example.test") || !strings.Contains(body, enum.EmailStatusSeen) {
		t.Error("missing message row")
	}
}

func TestEmailCSVEmpty(t *testing.T) {
	router := setupReportsRouter(&mockReportsStore{})

	rr := doAuthRequest(t, router, http.MethodGet, "/email/generate-csv", nil, adminClaims())

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
	resp := decodeJSON(t, rr)
	if resp["error"] != "no email messages found" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestEmailPDF(t *testing.T) {
	router := setupReportsRouter(populatedReportsStore())

	rr := doAuthRequest(t, router, http.MethodGet, "/email/generate-pdf", nil, adminClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
		t.Error("body should be a PDF document")
	}
}

func TestEmailPDFEmpty(t *testing.T) {
	router := setupReportsRouter(&mockReportsStore{})

	rr := doAuthRequest(t, router, http.MethodGet, "/email/generate-pdf", nil, adminClaims())

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestReportsRequireAdmin(t *testing.T) {
	router := setupReportsRouter(populatedReportsStore())

	rr := doAuthRequest(t, router, http.MethodGet, "/reports/generate-csv-all", nil, customerClaims(uuid.New()))

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}
