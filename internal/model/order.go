package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DeliveryStatus is the three-phase lifecycle of an ordered car.
type DeliveryStatus string

const (
	DeliveryShipping DeliveryStatus = "shipping"
	DeliveryArrived  DeliveryStatus = "arrived"
	DeliveryShowroom DeliveryStatus = "showroom"
)

// Label is the French wording shown on dashboards.
func (s DeliveryStatus) Label() string {
	switch s.normalized() {
	case DeliveryShowroom:
		return "Complété"
	case DeliveryArrived:
		return "Arrivé"
	default:
		return "En expédition"
	}
}

// Stage orders the phases: shipping=0, arrived=1, showroom=2. Unknown values count as shipping.
func (s DeliveryStatus) Stage() int {
	switch s.normalized() {
	case DeliveryShowroom:
		return 2
	case DeliveryArrived:
		return 1
	default:
		return 0
	}
}

func (s DeliveryStatus) normalized() DeliveryStatus {
	return DeliveryStatus(strings.ToLower(strings.TrimSpace(string(s))))
}

// Order is a retail sale. PaymentAmount is in DZD and may be partial.
type Order struct {
	OrderID        int64           `json:"order_id"`
	ClientID       int64           `json:"client_id"`
	CarID          int64           `json:"car_id"`
	CarColor       string          `json:"car_color"`
	DeliveryStatus DeliveryStatus  `json:"delivery_status"`
	PaymentAmount  decimal.Decimal `json:"payment_amount"`
	CreatedAt      Timestamp       `json:"created_at"`
	Status         string          `json:"status"`
}

// WholesaleOrder is a bulk sale to a wholesale client.
type WholesaleOrder struct {
	Order
	Quantity int `json:"quantity"`
}

// SupplierItem is what the dealership owes a supplier for one car, in the supplier's currency.
type SupplierItem struct {
	SupplierItemID int64           `json:"supplier_item_id"`
	CarID          int64           `json:"car_id"`
	SupplierID     int64           `json:"supplier_id"`
	CurrencyID     int64           `json:"currency_id"`
	Price          decimal.Decimal `json:"price"`
	PaymentAmount  decimal.Decimal `json:"payment_amount"`
}
