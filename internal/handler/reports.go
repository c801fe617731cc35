package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-pdf/fpdf"
	"github.com/shoplane/api/internal/database"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	ListUsers(ctx context.Context) ([]database.User, error)
	ListAllOrders(ctx context.Context) ([]database.OrderWithCustomer, error)
	ListProducts(ctx context.Context) ([]database.Product, error)
	ListEmailMessages(ctx context.Context) ([]database.EmailMessage, error)
}

// ReportsHandler renders CSV and PDF exports straight to the response.
type ReportsHandler struct {
	store ReportsStore
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// RegisterRoutes registers the export endpoints. Mounted behind admin auth.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reports/generate-csv-all", h.AllCSV)
	r.Get("/reports/generate-pdf-all", h.AllPDF)
	r.Get("/email/generate-csv", h.EmailCSV)
	r.Get("/email/generate-pdf", h.EmailPDF)
}

// --- Combined dump ---

type reportData struct {
	users    []database.User
	orders   []database.OrderWithCustomer
	products []database.Product
}

func (h *ReportsHandler) loadReportData(ctx context.Context) (reportData, error) {
	var data reportData
	var err error
	if data.users, err = h.store.ListUsers(ctx); err != nil {
		return data, fmt.Errorf("list users: %w", err)
	}
	if data.orders, err = h.store.ListAllOrders(ctx); err != nil {
		return data, fmt.Errorf("list orders: %w", err)
	}
	if data.products, err = h.store.ListProducts(ctx); err != nil {
		return data, fmt.Errorf("list products: %w", err)
	}
	return data, nil
}

// AllCSV streams a combined users/orders/products dump as one CSV file,
// one section per entity.
func (h *ReportsHandler) AllCSV(w http.ResponseWriter, r *http.Request) {
	data, err := h.loadReportData(r.Context())
	if err != nil {
		log.Printf("ERROR: load report data: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="report-all.csv"`)

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"USERS"})
	cw.Write([]string{"id", "name", "email", "role", "created_at"})
	for _, u := range data.users {
		cw.Write([]string{u.ID.String(), u.Name, u.Email, u.Role, formatTimestamp(u.CreatedAt.Time)})
	}

	cw.Write(nil)
	cw.Write([]string{"ORDERS"})
	cw.Write([]string{"id", "customer", "email", "status", "payment_method", "is_paid", "total_price", "created_at"})
	for _, o := range data.orders {
		cw.Write([]string{
			o.ID.String(), o.CustomerName, o.CustomerEmail, o.Status, o.PaymentMethod,
			strconv.FormatBool(o.IsPaid), numericToString(o.TotalPrice), formatTimestamp(o.CreatedAt.Time),
		})
	}

	cw.Write(nil)
	cw.Write([]string{"PRODUCTS"})
	cw.Write([]string{"id", "name", "category", "price", "stock"})
	for _, p := range data.products {
		cw.Write([]string{
			p.ID.String(), p.Name, p.Category.String, numericToString(p.Price),
			strconv.FormatInt(int64(p.Stock), 10),
		})
	}
}

// AllPDF streams the combined dump as a PDF table per entity.
func (h *ReportsHandler) AllPDF(w http.ResponseWriter, r *http.Request) {
	data, err := h.loadReportData(r.Context())
	if err != nil {
		log.Printf("ERROR: load report data: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Full Report", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Full Report")
	pdf.Ln(12)

	writePDFSection(pdf, "Users", []string{"Name", "Email", "Role"}, []float64{60, 80, 30}, func(add func(...string)) {
		for _, u := range data.users {
			add(u.Name, u.Email, u.Role)
		}
	})

	writePDFSection(pdf, "Orders", []string{"Customer", "Status", "Paid", "Total"}, []float64{60, 40, 25, 40}, func(add func(...string)) {
		for _, o := range data.orders {
			add(o.CustomerName, o.Status, strconv.FormatBool(o.IsPaid), numericToString(o.TotalPrice))
		}
	})

	writePDFSection(pdf, "Products", []string{"Name", "Category", "Price", "Stock"}, []float64{70, 40, 30, 25}, func(add func(...string)) {
		for _, p := range data.products {
			add(p.Name, p.Category.String, numericToString(p.Price), strconv.FormatInt(int64(p.Stock), 10))
		}
	})

	servePDF(w, pdf, "report-all.pdf")
}

// --- Email message report ---

// EmailCSV streams the email-message log as CSV. 404 when nothing was sent.
func (h *ReportsHandler) EmailCSV(w http.ResponseWriter, r *http.Request) {
	messages, err := h.store.ListEmailMessages(r.Context())
	if err != nil {
		log.Printf("ERROR: list email messages: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if len(messages) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no email messages found"})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="email-report.csv"`)

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"tracking_id", "recipient", "subject", "status", "last_opened_at", "sent_at"})
	for _, m := range messages {
		lastOpened := ""
		if m.LastOpenedAt.Valid {
			lastOpened = formatTimestamp(m.LastOpenedAt.Time)
		}
		cw.Write([]string{
			m.TrackingID.String(), m.RecipientEmail, m.Subject, m.Status,
			lastOpened, formatTimestamp(m.CreatedAt.Time),
		})
	}
}

// EmailPDF streams the email-message log as PDF. 404 when nothing was sent.
func (h *ReportsHandler) EmailPDF(w http.ResponseWriter, r *http.Request) {
	messages, err := h.store.ListEmailMessages(r.Context())
	if err != nil {
		log.Printf("ERROR: list email messages: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if len(messages) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no email messages found"})
		return
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Email Report", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Email Report")
	pdf.Ln(12)

	writePDFSection(pdf, "Messages", []string{"Recipient", "Subject", "Status", "Sent"}, []float64{55, 60, 20, 35}, func(add func(...string)) {
		for _, m := range messages {
			add(m.RecipientEmail, m.Subject, m.Status, formatTimestamp(m.CreatedAt.Time))
		}
	})

	servePDF(w, pdf, "email-report.pdf")
}

// --- Helpers ---

func writePDFSection(pdf *fpdf.Fpdf, title string, headers []string, widths []float64, fill func(add func(...string))) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "B", 9)
	for i, hd := range headers {
		pdf.CellFormat(widths[i], 6, hd, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	fill(func(cols ...string) {
		for i, col := range cols {
			pdf.CellFormat(widths[i], 6, col, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	})
	pdf.Ln(6)
}

func servePDF(w http.ResponseWriter, pdf *fpdf.Fpdf, filename string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := pdf.Output(w); err != nil {
		log.Printf("ERROR: write pdf: %v", err)
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
