// internal/service/billing_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"sparkwallet/internal/commerce"
)

// BillingEntryKind labels a billing statement line.
type BillingEntryKind string

const (
	BillingKindSubscription BillingEntryKind = "subscription_purchase"
	BillingKindCredits      BillingEntryKind = "credits_purchase"
)

// BillingEntry is one formatted line of a user-facing billing statement.
type BillingEntry struct {
	OrderID  string           `json:"order_id"`
	Date     time.Time        `json:"date"`
	Kind     BillingEntryKind `json:"kind"`
	Status   string           `json:"status"`
	Total    string           `json:"total"` // formatted to two decimal places
	Currency string           `json:"currency"`
}

// BillingHistoryService is a read-only projection over the external commerce
// order store. It mutates nothing; collaborator failures surface as
// util.ErrCommerceUnavailable instead of being swallowed.
type BillingHistoryService interface {
	History(ctx context.Context, userID int64, limit, offset int) ([]BillingEntry, int64, error)
}

// billingHistoryService implements the BillingHistoryService interface.
type billingHistoryService struct {
	orders commerce.OrderStore
}

// NewBillingHistoryService creates a new instance of BillingHistoryService.
func NewBillingHistoryService(orders commerce.OrderStore) BillingHistoryService {
	return &billingHistoryService{orders: orders}
}

// History fetches one page of the user's orders and labels each line.
func (s *billingHistoryService) History(ctx context.Context, userID int64, limit, offset int) ([]BillingEntry, int64, error) {
	orders, total, err := s.orders.ListOrders(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("billing history: %w", err)
	}

	entries := make([]BillingEntry, 0, len(orders))
	for _, order := range orders {
		entries = append(entries, BillingEntry{
			OrderID:  order.ID,
			Date:     order.Date,
			Kind:     classifyOrder(order),
			Status:   order.Status,
			Total:    order.Total.StringFixed(2),
			Currency: order.Currency,
		})
	}
	return entries, total, nil
}

// classifyOrder labels an order from its line-item product types. An order
// carrying any credits line is a credits purchase; otherwise a subscription
// line makes it a subscription purchase; orders with neither default to
// credits_purchase.
func classifyOrder(order commerce.Order) BillingEntryKind {
	hasSubscription := false
	for _, item := range order.LineItems {
		switch item.ProductType {
		case commerce.ProductTypeCredits:
			return BillingKindCredits
		case commerce.ProductTypeSubscription:
			hasSubscription = true
		}
	}
	if hasSubscription {
		return BillingKindSubscription
	}
	return BillingKindCredits
}
