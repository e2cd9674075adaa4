package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"dealership/internal/fanout"
	"dealership/internal/finance"
	"dealership/internal/model"
	"dealership/internal/roles"
	"dealership/internal/upstream"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type AdminDashboard struct {
	Sales                  finance.Summary         `json:"sales"`
	Wholesale              finance.Summary         `json:"wholesale"`
	Purchases              finance.Summary         `json:"purchases"`
	Balance                finance.Balance         `json:"balance"`
	StockValue             decimal.Decimal         `json:"stock_value"`
	StockMissingCurrencies []int64                 `json:"stock_missing_currencies,omitempty"`
	CarCount               int                     `json:"car_count"`
	ClientCount            int                     `json:"client_count"`
	DeliveryCounts         map[string]int          `json:"delivery_counts"`
	OrphanOrders           []int64                 `json:"orphan_orders,omitempty"`
	Commercials            []roles.CommercialStats `json:"commercials"`
	GeneratedAt            time.Time               `json:"generated_at"`
}

type AccountantDashboard struct {
	Period       string                `json:"period"`
	Sales        finance.Summary       `json:"sales"`
	Purchases    finance.Summary       `json:"purchases"`
	Balance      finance.Balance       `json:"balance"`
	Expenses     []model.ExpenseRollup `json:"expenses"`
	ExpenseTotal decimal.Decimal       `json:"expense_total"`
	Earnings     []model.EarningRollup `json:"earnings"`
	EarningTotal decimal.Decimal       `json:"earning_total"`
	CashRegister *model.CashRegister   `json:"cash_register,omitempty"`
	GeneratedAt  time.Time             `json:"generated_at"`
}

type MarketerDashboard struct {
	SocialLinks    []model.SocialLink `json:"social_links"`
	CarCount       int                `json:"car_count"`
	CarsByCountry  map[string]int     `json:"cars_by_country"`
	CarsByFuelType map[string]int     `json:"cars_by_fuel_type"`
	NewArrivals    []model.Car        `json:"new_arrivals"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

// newArrivalsLimit caps MarketerDashboard.NewArrivals.
const newArrivalsLimit = 6

// --- Interface ---

type DashboardService interface {
	Admin(ctx context.Context, sess upstream.Session) (AdminDashboard, Sections, error)
	Accountant(ctx context.Context, sess upstream.Session, period string) (AccountantDashboard, Sections, error)
	Commercial(ctx context.Context, sess upstream.Session, commercialID int64) (roles.CommercialStats, Sections, error)
	Marketer(ctx context.Context, sess upstream.Session) (MarketerDashboard, Sections, error)
}

type dashboardService struct {
	api         *upstream.Client
	fanoutLimit int
	now         Clock
}

func NewDashboardService(api *upstream.Client, fanoutLimit int, now Clock) DashboardService {
	if now == nil {
		now = time.Now
	}
	return &dashboardService{api: api, fanoutLimit: fanoutLimit, now: now}
}

// --- Implementation ---

func (s *dashboardService) Admin(ctx context.Context, sess upstream.Session) (AdminDashboard, Sections, error) {
	api := s.api.With(sess)

	var (
		currencies    []model.Currency
		cars          []model.Car
		orders        []model.Order
		wholesale     []model.WholesaleOrder
		supplierItems []model.SupplierItem
		clients       []model.Client
		commercials   []model.Commercial
	)
	g := fanout.New(ctx, s.fanoutLimit)
	fetch(g, SectionCurrencies, &currencies, api.Currencies)
	fetch(g, SectionCars, &cars, api.AllCars)
	fetch(g, SectionOrders, &orders, api.Orders)
	fetch(g, SectionWholesaleOrders, &wholesale, api.WholesaleOrders)
	fetch(g, SectionSupplierItems, &supplierItems, api.SupplierItems)
	fetch(g, SectionClients, &clients, api.Clients)
	fetch(g, SectionCommercials, &commercials, api.Commercials)
	sections, err := settle(g.Wait())
	if err != nil {
		return AdminDashboard{}, nil, err
	}

	now := s.now()
	conv := finance.NewConverterFor(currencies)
	byID := model.CarsByID(cars)

	orderItems, orphans := finance.OrderLineItems(orders, byID)
	wholesaleItems, wholesaleOrphans := finance.WholesaleLineItems(wholesale, byID)
	purchases := conv.Aggregate(finance.SupplierLineItems(supplierItems))
	revenue := conv.Aggregate(append(slices.Clone(orderItems), wholesaleItems...))
	stock, stockMissing := conv.StockValue(cars)

	dash := AdminDashboard{
		Sales:                  conv.Aggregate(orderItems),
		Wholesale:              conv.Aggregate(wholesaleItems),
		Purchases:              purchases,
		Balance:                finance.NetBalance(revenue, purchases),
		StockValue:             stock,
		StockMissingCurrencies: stockMissing,
		CarCount:               len(cars),
		ClientCount:            len(clients),
		DeliveryCounts:         deliveryCounts(orders),
		OrphanOrders:           append(orphans, wholesaleOrphans...),
		Commercials: roles.Aggregate(roles.Input{
			Commercials: commercials,
			Clients:     clients,
			Orders:      orders,
			Cars:        cars,
		}, conv, now),
		GeneratedAt: now,
	}
	return dash, sections, nil
}

func (s *dashboardService) Accountant(ctx context.Context, sess upstream.Session, period string) (AccountantDashboard, Sections, error) {
	if period == "" {
		period = model.PeriodMonthly
	}
	if !model.ValidPeriod(period) {
		return AccountantDashboard{}, nil, fmt.Errorf("%w: period must be monthly or yearly", ErrInvalidInput)
	}
	api := s.api.With(sess)

	var (
		currencies    []model.Currency
		cars          []model.Car
		orders        []model.Order
		supplierItems []model.SupplierItem
		expenses      []model.ExpenseRollup
		earnings      []model.EarningRollup
		cash          model.CashRegister
	)
	g := fanout.New(ctx, s.fanoutLimit)
	fetch(g, SectionCurrencies, &currencies, api.Currencies)
	fetch(g, SectionCars, &cars, api.AllCars)
	fetch(g, SectionOrders, &orders, api.Orders)
	fetch(g, SectionSupplierItems, &supplierItems, api.SupplierItems)
	fetch(g, SectionExpenses, &expenses, func(ctx context.Context) ([]model.ExpenseRollup, error) {
		return api.Expenses(ctx, period)
	})
	fetch(g, SectionEarnings, &earnings, func(ctx context.Context) ([]model.EarningRollup, error) {
		return api.Earnings(ctx, period)
	})
	fetch(g, SectionCashRegister, &cash, api.CashRegister)
	res := g.Wait()
	sections, err := settle(res)
	if err != nil {
		return AccountantDashboard{}, nil, err
	}

	conv := finance.NewConverterFor(currencies)
	orderItems, _ := finance.OrderLineItems(orders, model.CarsByID(cars))
	sales := conv.Aggregate(orderItems)
	purchases := conv.Aggregate(finance.SupplierLineItems(supplierItems))

	dash := AccountantDashboard{
		Period:       period,
		Sales:        sales,
		Purchases:    purchases,
		Balance:      finance.NetBalance(sales, purchases),
		Expenses:     nonNil(expenses),
		ExpenseTotal: decimal.Zero,
		Earnings:     nonNil(earnings),
		EarningTotal: decimal.Zero,
		GeneratedAt:  s.now(),
	}
	for _, e := range expenses {
		total := e.TotalAmount
		if total.IsZero() {
			total = e.ComputedTotal()
		}
		dash.ExpenseTotal = dash.ExpenseTotal.Add(total)
	}
	for _, e := range earnings {
		dash.EarningTotal = dash.EarningTotal.Add(e.TotalAmount)
	}
	if res.OK(SectionCashRegister) {
		dash.CashRegister = &cash
	}
	return dash, sections, nil
}

func (s *dashboardService) Commercial(ctx context.Context, sess upstream.Session, commercialID int64) (roles.CommercialStats, Sections, error) {
	api := s.api.With(sess)

	var (
		currencies  []model.Currency
		cars        []model.Car
		orders      []model.Order
		clients     []model.Client
		commercials []model.Commercial
	)
	g := fanout.New(ctx, s.fanoutLimit)
	fetch(g, SectionCurrencies, &currencies, api.Currencies)
	fetch(g, SectionCars, &cars, api.AllCars)
	fetch(g, SectionOrders, &orders, api.Orders)
	fetch(g, SectionClients, &clients, api.Clients)
	fetch(g, SectionCommercials, &commercials, api.Commercials)
	res := g.Wait()
	sections, err := settle(res)
	if err != nil {
		return roles.CommercialStats{}, nil, err
	}

	target := model.Commercial{Staff: model.Staff{ID: commercialID}}
	if res.OK(SectionCommercials) {
		idx := slices.IndexFunc(commercials, func(c model.Commercial) bool { return c.ID == commercialID })
		if idx < 0 {
			return roles.CommercialStats{}, nil, fmt.Errorf("commercial %d: %w", commercialID, upstream.ErrNotFound)
		}
		target = commercials[idx]
	}

	stats := roles.Aggregate(roles.Input{
		Commercials: []model.Commercial{target},
		Clients:     clients,
		Orders:      orders,
		Cars:        cars,
	}, finance.NewConverterFor(currencies), s.now())
	one, _ := roles.ForCommercial(stats, commercialID)
	return one, sections, nil
}

func (s *dashboardService) Marketer(ctx context.Context, sess upstream.Session) (MarketerDashboard, Sections, error) {
	api := s.api.With(sess)

	var (
		links []model.SocialLink
		cars  []model.Car
	)
	g := fanout.New(ctx, s.fanoutLimit)
	fetch(g, SectionSocialLinks, &links, api.SocialLinks)
	fetch(g, SectionCars, &cars, api.AllCars)
	sections, err := settle(g.Wait())
	if err != nil {
		return MarketerDashboard{}, nil, err
	}

	dash := MarketerDashboard{
		SocialLinks:    nonNil(links),
		CarCount:       len(cars),
		CarsByCountry:  map[string]int{},
		CarsByFuelType: map[string]int{},
		NewArrivals:    newArrivals(cars, newArrivalsLimit),
		GeneratedAt:    s.now(),
	}
	for _, c := range cars {
		dash.CarsByCountry[labelOrUnknown(c.Country)]++
		dash.CarsByFuelType[labelOrUnknown(c.FuelType)]++
	}
	return dash, sections, nil
}

func deliveryCounts(orders []model.Order) map[string]int {
	out := map[string]int{
		string(model.DeliveryShipping): 0,
		string(model.DeliveryArrived):  0,
		string(model.DeliveryShowroom): 0,
	}
	for _, o := range orders {
		switch o.DeliveryStatus.Stage() {
		case 2:
			out[string(model.DeliveryShowroom)]++
		case 1:
			out[string(model.DeliveryArrived)]++
		default:
			out[string(model.DeliveryShipping)]++
		}
	}
	return out
}

// newArrivals returns the n cars with the latest arriving date; undated cars sort last.
func newArrivals(cars []model.Car, n int) []model.Car {
	sorted := slices.Clone(cars)
	slices.SortStableFunc(sorted, func(a, b model.Car) int {
		switch {
		case a.ArrivingDate == nil && b.ArrivingDate == nil:
			return cmp.Compare(b.ID, a.ID)
		case a.ArrivingDate == nil:
			return 1
		case b.ArrivingDate == nil:
			return -1
		}
		return b.ArrivingDate.Compare(a.ArrivingDate.Time)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return nonNil(sorted)
}

func labelOrUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
