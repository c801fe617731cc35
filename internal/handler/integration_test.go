//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/shoplane/api/internal/config"
	"github.com/shoplane/api/internal/database"
	"github.com/shoplane/api/internal/enum"
	"github.com/shoplane/api/internal/otp"
	"github.com/shoplane/api/internal/router"
	"github.com/shoplane/api/internal/ws"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// memorySender collects mail instead of talking to SMTP.
type memorySender struct {
	sent []sentMail
}

func (m *memorySender) Send(to, subject, htmlBody string) error {
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

// memoryOTPStore replaces Redis for the integration run.
type memoryOTPStore struct {
	codes map[string]string
}

func (m *memoryOTPStore) Issue(_ context.Context, email string) (string, error) {
	m.codes[email] = "123456"
	return "123456", nil
}

func (m *memoryOTPStore) Verify(_ context.Context, email, code string) error {
	if m.codes[email] != code {
		return otp.ErrCodeMismatch
	}
	delete(m.codes, email)
	return nil
}

// TestIntegrationFlow exercises the full API lifecycle against a real
// PostgreSQL database: staff signup, catalog, customer signup, order
// placement with stock decrement, delivery, ledger, and exports.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	_, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:        "8081",
		DatabaseURL: connStr,
		JWTSecret:   "integration-test-secret",
		BaseURL:     "http://localhost:8081",
		StockPolicy: enum.StockPolicyReject,
	}
	queries := database.New(pool)
	hub := ws.NewHub()
	// The hub goroutine leaks on test exit; it has no shutdown mechanism.
	go hub.Run()

	sender := &memorySender{}
	otps := &memoryOTPStore{codes: make(map[string]string)}

	r := router.New(cfg, queries, pool, hub, sender, otps)
	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Staff signup and login ---
	adminToken := registerStaff(t, server, "owner@shop.test", "password123")

	// --- 2. Create product ---
	product := postJSON(t, server, "/api/products", adminToken, map[string]interface{}{
		"name":        "Walnut Desk",
		"description": "Solid walnut standing desk",
		"price":       "120.00",
		"image":       "/img/desk.jpg",
		"category":    "Furniture",
		"stock":       10,
	}, http.StatusCreated)
	productID := product["id"].(string)

	// --- 3. Customer signup ---
	custResp := postJSON(t, server, "/api/customers/auth/register", "", map[string]interface{}{
		"name":     "Jo Field",
		"email":    "jo@example.test",
		"password": "hunter22",
		"address":  "12 Main St",
	}, http.StatusCreated)
	custToken := custResp["access_token"].(string)

	// --- 4. Place an order (card, 2 units) ---
	order := postJSON(t, server, "/api/orders", custToken, map[string]interface{}{
		"items":            []map[string]interface{}{{"product_id": productID, "quantity": 2}},
		"shipping_address": "12 Main St",
		"payment_method":   "Card",
		"items_price":      "240.00",
		"shipping_price":   "10.00",
		"tax_price":        "0.00",
		"total_price":      "250.00",
	}, http.StatusCreated)
	orderID := order["id"].(string)
	if order["is_paid"] != true {
		t.Error("card order should be paid immediately")
	}
	if order["total_price"] != "250.00" {
		t.Errorf("total_price: got %v", order["total_price"])
	}

	// Stock decremented from 10 to 8.
	refreshed := getJSON(t, server, "/api/products/"+productID, "", http.StatusOK)
	if refreshed["stock"] != float64(8) {
		t.Errorf("stock after order: got %v, want 8", refreshed["stock"])
	}

	// --- 5. Reject policy refuses overselling ---
	postJSON(t, server, "/api/orders", custToken, map[string]interface{}{
		"items":            []map[string]interface{}{{"product_id": productID, "quantity": 99}},
		"shipping_address": "12 Main St",
		"payment_method":   "Cash",
		"total_price":      "11880.00",
	}, http.StatusBadRequest)

	// --- 6. Customer sees own orders, admin sees all ---
	myOrders := getJSONList(t, server, "/api/orders/my-orders", custToken, http.StatusOK)
	if len(myOrders) != 1 {
		t.Fatalf("my-orders: got %d orders", len(myOrders))
	}
	allOrders := getJSONList(t, server, "/api/orders/admin/all", adminToken, http.StatusOK)
	if len(allOrders) != 1 || allOrders[0]["customer_email"] != "jo@example.test" {
		t.Errorf("admin/all: got %v", allOrders)
	}

	// Customers cannot read the admin feed.
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/orders/admin/all", nil)
	req.Header.Set("Authorization", "Bearer "+custToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("customer on admin feed: got %d", resp.StatusCode)
	}

	// --- 7. Deliver the order ---
	delivered := putJSON(t, server, "/api/orders/"+orderID+"/status", adminToken,
		map[string]string{"status": "Delivered"}, http.StatusOK)
	if delivered["status"] != "Delivered" || delivered["delivered_at"] == nil {
		t.Errorf("delivered order: got %v", delivered)
	}

	// --- 8. Item snapshots survive catalog deletes ---
	deleteJSON(t, server, "/api/products/"+productID, adminToken, http.StatusOK)
	fetched := getJSON(t, server, "/api/orders/"+orderID, custToken, http.StatusOK)
	items := fetched["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("order items after product delete: got %d", len(items))
	}
	item := items[0].(map[string]interface{})
	if item["name"] != "Walnut Desk" || item["price"] != "120.00" {
		t.Errorf("item snapshot: got %v", item)
	}

	// --- 9. Manual ledger ---
	customerID := custResp["customer"].(map[string]interface{})["id"].(string)
	record := postJSON(t, server, "/api/finance", adminToken, map[string]interface{}{
		"customer":     customerID,
		"total_amount": "300.00",
		"paid_amount":  "100.00",
	}, http.StatusOK)
	if record["pending_amount"] != "200.00" {
		t.Errorf("pending_amount: got %v", record["pending_amount"])
	}
	totals := getJSON(t, server, "/api/finance/total", adminToken, http.StatusOK)
	if totals["total_amount"] != "300.00" || totals["total_pending"] != "200.00" {
		t.Errorf("ledger totals: got %v", totals)
	}

	// --- 10. Order-derived summary counts the delivered order ---
	summary := getJSON(t, server, "/api/finance/summary", adminToken, http.StatusOK)
	if summary["completed_orders"] != float64(1) {
		t.Errorf("completed_orders: got %v", summary["completed_orders"])
	}
	if summary["total_income"] != "250.00" {
		t.Errorf("total_income: got %v", summary["total_income"])
	}

	// --- 11. OTP round trip through the stub store ---
	postJSON(t, server, "/api/email/send-otp", "", map[string]string{"email": "jo@example.test"}, http.StatusOK)
	if len(sender.sent) == 0 {
		t.Fatal("otp email not sent")
	}
	postJSON(t, server, "/api/email/verify-otp", "",
		map[string]string{"email": "jo@example.test", "code": "123456"}, http.StatusOK)

	// --- 12. Combined CSV export ---
	req, _ = http.NewRequest(http.MethodGet, server.URL+"/api/reports/generate-csv-all", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("csv export: got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("csv content type: got %s", ct)
	}
}

// --- HTTP helpers ---

func registerStaff(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	resp := postJSON(t, server, "/api/auth/register", "", map[string]string{
		"name":     "Owner",
		"email":    email,
		"password": password,
	}, http.StatusCreated)
	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("no access token in %v", resp)
	}
	return token
}

func doJSON(t *testing.T, server *httptest.Server, method, path, token string, body interface{}, wantStatus int) map[string]interface{} {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, path, err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: got %d, want %d: %v", method, path, resp.StatusCode, wantStatus, decoded)
	}
	return decoded
}

func postJSON(t *testing.T, server *httptest.Server, path, token string, body interface{}, wantStatus int) map[string]interface{} {
	return doJSON(t, server, http.MethodPost, path, token, body, wantStatus)
}

func putJSON(t *testing.T, server *httptest.Server, path, token string, body interface{}, wantStatus int) map[string]interface{} {
	return doJSON(t, server, http.MethodPut, path, token, body, wantStatus)
}

func getJSON(t *testing.T, server *httptest.Server, path, token string, wantStatus int) map[string]interface{} {
	return doJSON(t, server, http.MethodGet, path, token, nil, wantStatus)
}

func deleteJSON(t *testing.T, server *httptest.Server, path, token string, wantStatus int) map[string]interface{} {
	return doJSON(t, server, http.MethodDelete, path, token, nil, wantStatus)
}

func getJSONList(t *testing.T, server *httptest.Server, path, token string, wantStatus int) []map[string]interface{} {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: got %d, want %d", path, resp.StatusCode, wantStatus)
	}

	var decoded []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("GET %s: decode response: %v", path, err)
	}
	return decoded
}

// --- Container helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("shoplane_test"),
		tcpostgres.WithUsername("shoplane"),
		tcpostgres.WithPassword("shoplane"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	// Connect with stdlib for migrate
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Path relative to this test file's package directory.
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}
