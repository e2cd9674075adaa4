package finance

import (
	"errors"
	"slices"
	"strconv"

	"dealership/internal/model"

	"github.com/shopspring/decimal"
)

// PaymentStatus classifies one line item.
type PaymentStatus string

const (
	StatusPaid    PaymentStatus = "paid"
	StatusPartial PaymentStatus = "partial"
	StatusUnpaid  PaymentStatus = "unpaid"
)

// LineItem is any priced record: Price is in CurrencyID's unit, PaymentAmount is already DZD.
type LineItem struct {
	Ref           string
	Price         decimal.Decimal
	CurrencyID    int64
	PaymentAmount decimal.Decimal
}

// ItemSummary is the DZD view of one line item.
type ItemSummary struct {
	Ref         string          `json:"ref"`
	PriceDZD    decimal.Decimal `json:"price_dzd"`
	Paid        decimal.Decimal `json:"paid"`
	Remaining   decimal.Decimal `json:"remaining"`
	Status      PaymentStatus   `json:"status"`
	MissingRate bool            `json:"missing_rate,omitempty"`
}

// Summary folds a collection of line items.
type Summary struct {
	TotalCost         decimal.Decimal `json:"total_cost"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	Remaining         decimal.Decimal `json:"remaining"`
	Count             int             `json:"count"`
	StatusCounts      map[string]int  `json:"status_counts"`
	Items             []ItemSummary   `json:"items"`
	MissingCurrencies []int64         `json:"missing_currencies,omitempty"`
}

// Classify: paid when payment covers the price, unpaid when nothing was paid, partial otherwise.
// A zero price with zero payment is paid.
func Classify(priceDZD, payment decimal.Decimal) PaymentStatus {
	switch {
	case payment.GreaterThanOrEqual(priceDZD):
		return StatusPaid
	case !payment.IsPositive():
		return StatusUnpaid
	default:
		return StatusPartial
	}
}

// Aggregate converts each item to DZD, rounds it to centimes, and sums.
// Remaining is computed from the rounded totals so TotalCost - TotalPaid == Remaining exactly.
func (c *Converter) Aggregate(items []LineItem) Summary {
	s := Summary{
		TotalCost:    decimal.Zero,
		TotalPaid:    decimal.Zero,
		StatusCounts: map[string]int{string(StatusPaid): 0, string(StatusPartial): 0, string(StatusUnpaid): 0},
		Items:        make([]ItemSummary, 0, len(items)),
	}
	missing := map[int64]struct{}{}

	for _, it := range items {
		converted, err := c.Convert(it.Price, it.CurrencyID)
		var mre *MissingRateError
		isMissing := errors.As(err, &mre)
		if isMissing {
			missing[mre.CurrencyID] = struct{}{}
		}

		price := RoundDZD(converted)
		status := Classify(price, it.PaymentAmount)

		s.TotalCost = s.TotalCost.Add(price)
		s.TotalPaid = s.TotalPaid.Add(it.PaymentAmount)
		s.StatusCounts[string(status)]++
		s.Items = append(s.Items, ItemSummary{
			Ref:         it.Ref,
			PriceDZD:    price,
			Paid:        it.PaymentAmount,
			Remaining:   price.Sub(it.PaymentAmount),
			Status:      status,
			MissingRate: isMissing,
		})
	}

	s.Count = len(items)
	s.Remaining = s.TotalCost.Sub(s.TotalPaid)
	if len(missing) > 0 {
		s.MissingCurrencies = make([]int64, 0, len(missing))
		for id := range missing {
			s.MissingCurrencies = append(s.MissingCurrencies, id)
		}
		slices.Sort(s.MissingCurrencies)
	}
	return s
}

// Statuses lists item statuses in input order.
func (s Summary) Statuses() []PaymentStatus {
	out := make([]PaymentStatus, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.Status
	}
	return out
}

// Balance compares what the dealership sells against what it buys.
type Balance struct {
	Revenue     decimal.Decimal `json:"revenue"`
	Cost        decimal.Decimal `json:"cost"`
	Net         decimal.Decimal `json:"net"`
	Collected   decimal.Decimal `json:"collected"`   // paid by clients
	Disbursed   decimal.Decimal `json:"disbursed"`   // paid to suppliers
	Outstanding decimal.Decimal `json:"outstanding"` // still owed by clients
	Owed        decimal.Decimal `json:"owed"`        // still owed to suppliers
}

// NetBalance combines a sales summary and a purchases summary.
func NetBalance(revenue, cost Summary) Balance {
	return Balance{
		Revenue:     revenue.TotalCost,
		Cost:        cost.TotalCost,
		Net:         revenue.TotalCost.Sub(cost.TotalCost),
		Collected:   revenue.TotalPaid,
		Disbursed:   cost.TotalPaid,
		Outstanding: revenue.Remaining,
		Owed:        cost.Remaining,
	}
}

// OrderLineItems prices each order at its car's sale price. Orders whose car is unknown are skipped
// and returned by id.
func OrderLineItems(orders []model.Order, cars map[int64]model.Car) ([]LineItem, []int64) {
	items := make([]LineItem, 0, len(orders))
	var orphans []int64
	for _, o := range orders {
		car, ok := cars[o.CarID]
		if !ok {
			orphans = append(orphans, o.OrderID)
			continue
		}
		items = append(items, LineItem{
			Ref:           "order:" + strconv.FormatInt(o.OrderID, 10),
			Price:         car.Price,
			CurrencyID:    car.CurrencyID,
			PaymentAmount: o.PaymentAmount,
		})
	}
	return items, orphans
}

// WholesaleLineItems prices each wholesale order at wholesale price times quantity.
func WholesaleLineItems(orders []model.WholesaleOrder, cars map[int64]model.Car) ([]LineItem, []int64) {
	items := make([]LineItem, 0, len(orders))
	var orphans []int64
	for _, o := range orders {
		car, ok := cars[o.CarID]
		if !ok {
			orphans = append(orphans, o.OrderID)
			continue
		}
		qty := o.Quantity
		if qty <= 0 {
			qty = 1
		}
		items = append(items, LineItem{
			Ref:           "wholesale:" + strconv.FormatInt(o.OrderID, 10),
			Price:         car.WholesalePrice.Mul(decimal.NewFromInt(int64(qty))),
			CurrencyID:    car.CurrencyID,
			PaymentAmount: o.PaymentAmount,
		})
	}
	return items, orphans
}

// SupplierLineItems maps supplier items one to one; they carry their own currency.
func SupplierLineItems(items []model.SupplierItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, LineItem{
			Ref:           "supplier_item:" + strconv.FormatInt(it.SupplierItemID, 10),
			Price:         it.Price,
			CurrencyID:    it.CurrencyID,
			PaymentAmount: it.PaymentAmount,
		})
	}
	return out
}

// StockValue is the DZD value of the catalog at sale price: Σ price × quantity.
func (c *Converter) StockValue(cars []model.Car) (decimal.Decimal, []int64) {
	total := decimal.Zero
	missing := map[int64]struct{}{}
	for _, car := range cars {
		qty := decimal.NewFromInt(int64(car.Quantity))
		v, err := c.Convert(car.Price.Mul(qty), car.CurrencyID)
		if err != nil {
			missing[car.CurrencyID] = struct{}{}
		}
		total = total.Add(RoundDZD(v))
	}
	var ids []int64
	for id := range missing {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return total, ids
}
