// Package roles joins staff, clients, orders and cars into per-salesperson statistics.
package roles

import (
	"errors"
	"slices"
	"time"

	"dealership/internal/finance"
	"dealership/internal/model"

	"github.com/shopspring/decimal"
)

// ActivitySale is the only activity type produced today.
const ActivitySale = "sale"

// Input is everything Aggregate joins. Records are used as fetched.
type Input struct {
	Commercials []model.Commercial
	Clients     []model.Client
	Orders      []model.Order
	Cars        []model.Car
}

// Activity is one line of a commercial's history.
type Activity struct {
	Type           string               `json:"type"`
	OrderID        int64                `json:"order_id"`
	Car            string               `json:"car"`
	Client         string               `json:"client"`
	Amount         decimal.Decimal      `json:"amount"`
	Paid           decimal.Decimal      `json:"paid"`
	Date           model.Timestamp      `json:"date"`
	Status         string               `json:"status"`
	DeliveryStatus model.DeliveryStatus `json:"delivery_status"`
	MissingRate    bool                 `json:"missing_rate,omitempty"`
}

// CommercialStats is the dashboard view of one salesperson.
type CommercialStats struct {
	CommercialID      int64           `json:"commercial_id"`
	Name              string          `json:"name"`
	Wilayas           []string        `json:"wilayas"`
	ClientCount       int             `json:"client_count"`
	DayTransactions   int             `json:"day_transactions"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	Activities        []Activity      `json:"activities"`
	MissingCurrencies []int64         `json:"missing_currencies,omitempty"`
}

// DayWindow returns [local midnight, now) in now's location.
func DayWindow(now time.Time) (start, end time.Time) {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), now
}

// InDay reports whether t falls in DayWindow(now).
func InDay(t, now time.Time) bool {
	start, end := DayWindow(now)
	return !t.Before(start) && t.Before(end)
}

// Aggregate computes stats for every commercial, in input order.
func Aggregate(in Input, conv *finance.Converter, now time.Time) []CommercialStats {
	if conv == nil {
		conv = finance.NewConverter(nil)
	}
	cars := model.CarsByID(in.Cars)

	clientsByCommercial := make(map[int64][]model.Client)
	for _, cl := range in.Clients {
		if cl.CommercialID == nil {
			continue
		}
		clientsByCommercial[*cl.CommercialID] = append(clientsByCommercial[*cl.CommercialID], cl)
	}
	ordersByClient := make(map[int64][]model.Order)
	for _, o := range in.Orders {
		ordersByClient[o.ClientID] = append(ordersByClient[o.ClientID], o)
	}

	out := make([]CommercialStats, 0, len(in.Commercials))
	for _, com := range in.Commercials {
		out = append(out, aggregateOne(com, clientsByCommercial[com.ID], ordersByClient, cars, conv, now))
	}
	return out
}

func aggregateOne(
	com model.Commercial,
	clients []model.Client,
	ordersByClient map[int64][]model.Order,
	cars map[int64]model.Car,
	conv *finance.Converter,
	now time.Time,
) CommercialStats {
	stats := CommercialStats{
		CommercialID: com.ID,
		Name:         com.FullName(),
		Wilayas:      com.Wilayas,
		ClientCount:  len(clients),
		TotalRevenue: decimal.Zero,
		TotalPaid:    decimal.Zero,
		Activities:   []Activity{},
	}
	missing := map[int64]struct{}{}

	for _, cl := range clients {
		for _, o := range ordersByClient[cl.ID] {
			// Orders whose car is gone still count, at zero.
			car, known := cars[o.CarID]
			amount := decimal.Zero
			isMissing := false
			if known {
				var err error
				amount, err = conv.Convert(car.Price, car.CurrencyID)
				var mre *finance.MissingRateError
				if errors.As(err, &mre) {
					isMissing = true
					missing[mre.CurrencyID] = struct{}{}
				}
				amount = finance.RoundDZD(amount)
			}

			stats.Activities = append(stats.Activities, Activity{
				Type:           ActivitySale,
				OrderID:        o.OrderID,
				Car:            car.Model,
				Client:         cl.FullName(),
				Amount:         amount,
				Paid:           o.PaymentAmount,
				Date:           o.CreatedAt,
				Status:         o.DeliveryStatus.Label(),
				DeliveryStatus: o.DeliveryStatus,
				MissingRate:    isMissing,
			})

			if InDay(o.CreatedAt.Time, now) {
				stats.DayTransactions++
				stats.TotalRevenue = stats.TotalRevenue.Add(amount)
				stats.TotalPaid = stats.TotalPaid.Add(o.PaymentAmount)
			}
		}
	}

	slices.SortStableFunc(stats.Activities, func(a, b Activity) int {
		return b.Date.Compare(a.Date.Time)
	})
	for id := range missing {
		stats.MissingCurrencies = append(stats.MissingCurrencies, id)
	}
	slices.Sort(stats.MissingCurrencies)
	return stats
}

// ForCommercial picks one entry by commercial id.
func ForCommercial(stats []CommercialStats, id int64) (CommercialStats, bool) {
	for _, s := range stats {
		if s.CommercialID == id {
			return s, true
		}
	}
	return CommercialStats{}, false
}
