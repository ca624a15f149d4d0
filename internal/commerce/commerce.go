// internal/commerce/commerce.go

// Package commerce is the boundary to the external order store. The wallet
// core only ever reads from it; order creation and payment capture live in
// the commerce system itself.
package commerce

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ProductType classifies an order line item.
type ProductType string

const (
	ProductTypeSubscription ProductType = "subscription"
	ProductTypeCredits      ProductType = "credits"
)

// LineItem is a single product line on an order.
type LineItem struct {
	Name        string          `json:"name"`
	ProductType ProductType     `json:"product_type"`
	Quantity    int             `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

// Order is an external order record as the commerce system reports it.
type Order struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"user_id"`
	Date      time.Time       `json:"date"`
	Status    string          `json:"status"`
	Currency  string          `json:"currency"`
	Total     decimal.Decimal `json:"total"`
	LineItems []LineItem      `json:"line_items"`
}

// OrderStore is the read-only collaborator the billing history reader
// paginates. Implementations must bound every call with a timeout and report
// failures rather than returning partial pages.
type OrderStore interface {
	ListOrders(ctx context.Context, userID int64, limit, offset int) ([]Order, int64, error)
}
