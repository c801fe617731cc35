package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shoplane/api/internal/database"
	"github.com/shoplane/api/internal/enum"
	"github.com/shopspring/decimal"
)

// FinanceStore defines the DB reads the aggregation needs.
// Satisfied by *database.Queries.
type FinanceStore interface {
	ListAllOrders(ctx context.Context) ([]database.OrderWithCustomer, error)
	ListAllOrderItems(ctx context.Context) ([]database.OrderItem, error)
	ListCustomers(ctx context.Context) ([]database.Customer, error)
	ListProducts(ctx context.Context) ([]database.Product, error)
}

// SummaryTotals is the storefront-wide financial picture.
type SummaryTotals struct {
	TotalAmount     decimal.Decimal
	TotalIncome     decimal.Decimal
	TotalPending    decimal.Decimal
	CompletedOrders int
	PendingOrders   int
}

// CustomerRollup aggregates one customer's order history.
type CustomerRollup struct {
	CustomerID    uuid.UUID
	Name          string
	Email         string
	Phone         string
	TotalOrders   int
	TotalSpent    decimal.Decimal
	TotalPaid     decimal.Decimal
	TotalPending  decimal.Decimal
	LastOrderDate *time.Time
}

// ProductRollup aggregates sales of one product across order snapshots.
// Products deleted from the catalog still show up here under the snapshot
// name recorded at order time.
type ProductRollup struct {
	ProductID      uuid.UUID
	Name           string
	Category       string
	TotalQuantity  int64
	TotalRevenue   decimal.Decimal
	PaidRevenue    decimal.Decimal
	PendingRevenue decimal.Decimal
	OrderCount     int
}

// FinanceService recomputes rollups from the order history on every call.
// The data set is a single shop's history, so a full scan is fine.
type FinanceService struct {
	store FinanceStore
}

func NewFinanceService(store FinanceStore) *FinanceService {
	return &FinanceService{store: store}
}

// Summary totals every order: paid totals count as income, unpaid as
// pending. Completed means Delivered; anything else is still in flight.
func (s *FinanceService) Summary(ctx context.Context) (SummaryTotals, error) {
	orders, err := s.store.ListAllOrders(ctx)
	if err != nil {
		return SummaryTotals{}, err
	}

	var out SummaryTotals
	out.TotalAmount = decimal.Zero
	out.TotalIncome = decimal.Zero
	out.TotalPending = decimal.Zero

	for _, o := range orders {
		total := database.NumericToDecimal(o.TotalPrice)
		out.TotalAmount = out.TotalAmount.Add(total)
		if o.IsPaid {
			out.TotalIncome = out.TotalIncome.Add(total)
		} else {
			out.TotalPending = out.TotalPending.Add(total)
		}
		if o.Status == enum.OrderStatusDelivered {
			out.CompletedOrders++
		} else {
			out.PendingOrders++
		}
	}
	return out, nil
}

// CustomerRollups builds one row per customer, including customers with no
// orders yet. Search matches name, email, or phone case-insensitively.
// Sort keys: total_orders, last_order, or the default total spent.
func (s *FinanceService) CustomerRollups(ctx context.Context, search, sortKey string) ([]CustomerRollup, error) {
	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.ListAllOrders(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*CustomerRollup, len(customers))
	var out []*CustomerRollup
	for _, c := range customers {
		r := &CustomerRollup{
			CustomerID:   c.ID,
			Name:         c.Name,
			Email:        c.Email,
			Phone:        c.Phone.String,
			TotalSpent:   decimal.Zero,
			TotalPaid:    decimal.Zero,
			TotalPending: decimal.Zero,
		}
		byID[c.ID] = r
		out = append(out, r)
	}

	for _, o := range orders {
		r, ok := byID[o.CustomerID]
		if !ok {
			// Customer row deleted after the order; keep the order visible
			// under the name snapshotted on the join.
			r = &CustomerRollup{
				CustomerID:   o.CustomerID,
				Name:         o.CustomerName,
				Email:        o.CustomerEmail,
				TotalSpent:   decimal.Zero,
				TotalPaid:    decimal.Zero,
				TotalPending: decimal.Zero,
			}
			byID[o.CustomerID] = r
			out = append(out, r)
		}

		total := database.NumericToDecimal(o.TotalPrice)
		r.TotalOrders++
		r.TotalSpent = r.TotalSpent.Add(total)
		if o.IsPaid {
			r.TotalPaid = r.TotalPaid.Add(total)
		} else {
			r.TotalPending = r.TotalPending.Add(total)
		}
		if o.CreatedAt.Valid {
			t := o.CreatedAt.Time
			if r.LastOrderDate == nil || t.After(*r.LastOrderDate) {
				r.LastOrderDate = &t
			}
		}
	}

	filtered := out[:0]
	if search != "" {
		q := strings.ToLower(search)
		for _, r := range out {
			if strings.Contains(strings.ToLower(r.Name), q) ||
				strings.Contains(strings.ToLower(r.Email), q) ||
				strings.Contains(strings.ToLower(r.Phone), q) {
				filtered = append(filtered, r)
			}
		}
	} else {
		filtered = out
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		switch sortKey {
		case "total_orders":
			return a.TotalOrders > b.TotalOrders
		case "last_order":
			switch {
			case a.LastOrderDate == nil:
				return false
			case b.LastOrderDate == nil:
				return true
			default:
				return a.LastOrderDate.After(*b.LastOrderDate)
			}
		default:
			return a.TotalSpent.GreaterThan(b.TotalSpent)
		}
	})

	result := make([]CustomerRollup, len(filtered))
	for i, r := range filtered {
		result[i] = *r
	}
	return result, nil
}

// ProductRollups builds one row per product id seen in the catalog or in
// order snapshots. OrderCount counts distinct orders, not lines.
func (s *FinanceService) ProductRollups(ctx context.Context, search string) ([]ProductRollup, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.ListAllOrders(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListAllOrderItems(ctx)
	if err != nil {
		return nil, err
	}

	paidByOrder := make(map[uuid.UUID]bool, len(orders))
	for _, o := range orders {
		paidByOrder[o.ID] = o.IsPaid
	}

	byID := make(map[uuid.UUID]*ProductRollup, len(products))
	var out []*ProductRollup
	add := func(id uuid.UUID, name, category string) *ProductRollup {
		r := &ProductRollup{
			ProductID:      id,
			Name:           name,
			Category:       category,
			TotalRevenue:   decimal.Zero,
			PaidRevenue:    decimal.Zero,
			PendingRevenue: decimal.Zero,
		}
		byID[id] = r
		out = append(out, r)
		return r
	}
	for _, p := range products {
		add(p.ID, p.Name, p.Category.String)
	}

	seenOrders := make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, it := range items {
		if !it.ProductID.Valid {
			continue
		}
		pid := uuid.UUID(it.ProductID.Bytes)
		r, ok := byID[pid]
		if !ok {
			r = add(pid, it.Name, "")
		}

		revenue := database.NumericToDecimal(it.Price).Mul(decimal.NewFromInt32(it.Quantity))
		r.TotalQuantity += int64(it.Quantity)
		r.TotalRevenue = r.TotalRevenue.Add(revenue)
		if paidByOrder[it.OrderID] {
			r.PaidRevenue = r.PaidRevenue.Add(revenue)
		} else {
			r.PendingRevenue = r.PendingRevenue.Add(revenue)
		}

		if seenOrders[pid] == nil {
			seenOrders[pid] = make(map[uuid.UUID]bool)
		}
		if !seenOrders[pid][it.OrderID] {
			seenOrders[pid][it.OrderID] = true
			r.OrderCount++
		}
	}

	filtered := out[:0]
	if search != "" {
		q := strings.ToLower(search)
		for _, r := range out {
			if strings.Contains(strings.ToLower(r.Name), q) {
				filtered = append(filtered, r)
			}
		}
	} else {
		filtered = out
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].TotalRevenue.GreaterThan(filtered[j].TotalRevenue)
	})

	result := make([]ProductRollup, len(filtered))
	for i, r := range filtered {
		result[i] = *r
	}
	return result, nil
}
