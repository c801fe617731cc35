package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shoplane/api/internal/database"
	"github.com/shoplane/api/internal/service"
	"github.com/shopspring/decimal"
)

// FinanceRecordStore defines the database methods for the ledger endpoints.
// Satisfied by *database.Queries; narrow interface for testability.
type FinanceRecordStore interface {
	SumFinanceRecords(ctx context.Context) (database.SumFinanceRecordsRow, error)
	ListFinanceRecords(ctx context.Context) ([]database.FinanceRecordWithCustomer, error)
	CreateFinanceRecord(ctx context.Context, arg database.CreateFinanceRecordParams) (database.FinanceRecord, error)
	DeleteFinanceRecord(ctx context.Context, id uuid.UUID) (int64, error)
}

// FinanceAggregator is the slice of the finance service the handler needs.
type FinanceAggregator interface {
	Summary(ctx context.Context) (service.SummaryTotals, error)
	CustomerRollups(ctx context.Context, search, sortKey string) ([]service.CustomerRollup, error)
	ProductRollups(ctx context.Context, search string) ([]service.ProductRollup, error)
}

// FinanceHandler handles the manual ledger and the order-derived rollups.
type FinanceHandler struct {
	store FinanceRecordStore
	agg   FinanceAggregator
}

// NewFinanceHandler creates a new FinanceHandler.
func NewFinanceHandler(store FinanceRecordStore, agg FinanceAggregator) *FinanceHandler {
	return &FinanceHandler{store: store, agg: agg}
}

// RegisterRoutes registers all finance endpoints. Mounted behind auth.
func (h *FinanceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/finance/total", h.Total)
	r.Get("/finance", h.ListRecords)
	r.Post("/finance", h.CreateRecord)
	r.Delete("/finance/{id}", h.DeleteRecord)

	r.Get("/finance/summary", h.Summary)
	r.Get("/finance/customers", h.Customers)
	r.Get("/finance/products", h.Products)
}

// --- Request / Response types ---

type createFinanceRecordRequest struct {
	Customer    string          `json:"customer"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
}

type financeRecordResponse struct {
	ID            uuid.UUID `json:"id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	CustomerName  string    `json:"customer_name,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	TotalAmount   string    `json:"total_amount"`
	PaidAmount    string    `json:"paid_amount"`
	PendingAmount string    `json:"pending_amount"`
	CreatedAt     time.Time `json:"created_at"`
}

type financeTotalResponse struct {
	TotalAmount  string `json:"total_amount"`
	TotalIncome  string `json:"total_income"`
	TotalPending string `json:"total_pending"`
}

type financeSummaryResponse struct {
	TotalAmount     string `json:"total_amount"`
	TotalIncome     string `json:"total_income"`
	TotalPending    string `json:"total_pending"`
	CompletedOrders int    `json:"completed_orders"`
	PendingOrders   int    `json:"pending_orders"`
}

type customerRollupResponse struct {
	CustomerID    uuid.UUID  `json:"customer_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	TotalOrders   int        `json:"total_orders"`
	TotalSpent    string     `json:"total_spent"`
	TotalPaid     string     `json:"total_paid"`
	TotalPending  string     `json:"total_pending"`
	LastOrderDate *time.Time `json:"last_order_date"`
}

type productRollupResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Category       string    `json:"category,omitempty"`
	TotalQuantity  int64     `json:"total_quantity"`
	TotalRevenue   string    `json:"total_revenue"`
	PaidRevenue    string    `json:"paid_revenue"`
	PendingRevenue string    `json:"pending_revenue"`
	OrderCount     int       `json:"order_count"`
}

func toFinanceRecordResponse(f database.FinanceRecord) financeRecordResponse {
	resp := financeRecordResponse{
		ID:            f.ID,
		CustomerID:    f.CustomerID,
		TotalAmount:   numericToString(f.TotalAmount),
		PaidAmount:    numericToString(f.PaidAmount),
		PendingAmount: numericToString(f.PendingAmount),
	}
	if f.CreatedAt.Valid {
		resp.CreatedAt = f.CreatedAt.Time
	}
	return resp
}

// --- Ledger handlers ---

// Total sums the manual ledger.
func (h *FinanceHandler) Total(w http.ResponseWriter, r *http.Request) {
	sums, err := h.store.SumFinanceRecords(r.Context())
	if err != nil {
		log.Printf("ERROR: sum finance records: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, financeTotalResponse{
		TotalAmount:  numericToString(sums.TotalAmount),
		TotalIncome:  numericToString(sums.PaidAmount),
		TotalPending: numericToString(sums.PendingAmount),
	})
}

// ListRecords returns ledger entries with joined customer name/email.
func (h *FinanceHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListFinanceRecords(r.Context())
	if err != nil {
		log.Printf("ERROR: list finance records: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]financeRecordResponse, 0, len(records))
	for _, f := range records {
		rec := toFinanceRecordResponse(f.FinanceRecord)
		rec.CustomerName = f.CustomerName
		rec.CustomerEmail = f.CustomerEmail
		resp = append(resp, rec)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateRecord adds a ledger entry. The pending amount is always derived,
// never taken from the request.
func (h *FinanceHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req createFinanceRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	customerID, err := uuid.Parse(req.Customer)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer id"})
		return
	}

	pending := req.TotalAmount.Sub(req.PaidAmount)

	record, err := h.store.CreateFinanceRecord(r.Context(), database.CreateFinanceRecordParams{
		CustomerID:    customerID,
		TotalAmount:   database.DecimalToNumeric(req.TotalAmount),
		PaidAmount:    database.DecimalToNumeric(req.PaidAmount),
		PendingAmount: database.DecimalToNumeric(pending),
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customer not found"})
			return
		}
		log.Printf("ERROR: create finance record: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toFinanceRecordResponse(record))
}

// DeleteRecord removes a ledger entry.
func (h *FinanceHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid record id"})
		return
	}

	affected, err := h.store.DeleteFinanceRecord(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: delete finance record: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if affected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "finance record not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "finance record deleted"})
}

// --- Rollup handlers ---

// Summary returns order-derived totals for the whole shop.
func (h *FinanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	totals, err := h.agg.Summary(r.Context())
	if err != nil {
		log.Printf("ERROR: finance summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, financeSummaryResponse{
		TotalAmount:     totals.TotalAmount.StringFixed(2),
		TotalIncome:     totals.TotalIncome.StringFixed(2),
		TotalPending:    totals.TotalPending.StringFixed(2),
		CompletedOrders: totals.CompletedOrders,
		PendingOrders:   totals.PendingOrders,
	})
}

// Customers returns per-customer rollups with optional search and sort.
func (h *FinanceHandler) Customers(w http.ResponseWriter, r *http.Request) {
	rollups, err := h.agg.CustomerRollups(r.Context(), r.URL.Query().Get("search"), r.URL.Query().Get("sort"))
	if err != nil {
		log.Printf("ERROR: customer rollups: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]customerRollupResponse, 0, len(rollups))
	for _, cr := range rollups {
		resp = append(resp, customerRollupResponse{
			CustomerID:    cr.CustomerID,
			Name:          cr.Name,
			Email:         cr.Email,
			Phone:         cr.Phone,
			TotalOrders:   cr.TotalOrders,
			TotalSpent:    cr.TotalSpent.StringFixed(2),
			TotalPaid:     cr.TotalPaid.StringFixed(2),
			TotalPending:  cr.TotalPending.StringFixed(2),
			LastOrderDate: cr.LastOrderDate,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Products returns per-product rollups with optional name search.
func (h *FinanceHandler) Products(w http.ResponseWriter, r *http.Request) {
	rollups, err := h.agg.ProductRollups(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		log.Printf("ERROR: product rollups: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]productRollupResponse, 0, len(rollups))
	for _, pr := range rollups {
		resp = append(resp, productRollupResponse{
			ProductID:      pr.ProductID,
			Name:           pr.Name,
			Category:       pr.Category,
			TotalQuantity:  pr.TotalQuantity,
			TotalRevenue:   pr.TotalRevenue.StringFixed(2),
			PaidRevenue:    pr.PaidRevenue.StringFixed(2),
			PendingRevenue: pr.PendingRevenue.StringFixed(2),
			OrderCount:     pr.OrderCount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
