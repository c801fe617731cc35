package enum

// ── Roles (closed set; checked only at the authorization boundary) ──

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// ── Order delivery status ──

const (
	OrderStatusProcessing = "Processing"
	OrderStatusShipped    = "Shipped"
	OrderStatusDelivered  = "Delivered"
)

// ── Payment methods ──

const (
	PaymentMethodPayOnDelivery = "PayOnDelivery"
	PaymentMethodCash          = "Cash"
	PaymentMethodCard          = "Card"
	PaymentMethodStripe        = "Stripe"
)

// ── Email message status ──

const (
	EmailStatusSent = "Sent"
	EmailStatusSeen = "Seen"
)

// ── Stock policy (configuration, not persisted) ──
//
// allow-backorder preserves the legacy behavior: stock is decremented
// unconditionally and may go negative. reject refuses line items that
// exceed available stock at commit time.

const (
	StockPolicyAllowBackorder = "allow-backorder"
	StockPolicyReject         = "reject"
)

// IsValidOrderStatus reports whether s is one of the three delivery states.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// IsValidPaymentMethod reports whether s is an accepted payment method.
func IsValidPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodPayOnDelivery, PaymentMethodCash, PaymentMethodCard, PaymentMethodStripe:
		return true
	}
	return false
}
