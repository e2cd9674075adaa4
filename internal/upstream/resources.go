package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"dealership/internal/model"
)

// Collection paths served by the API, keyed by the resource name used in gateway routes.
var resourcePaths = map[string]string{
	"cars":              "/cars/",
	"clients":           "/clients/",
	"orders":            "/orders/",
	"commercials":       "/commercials/",
	"marketers":         "/marketers/",
	"accountants":       "/accountants/",
	"suppliers":         "/suppliers/",
	"suppliers_items":   "/suppliers_items/",
	"currencies":        "/currencies/",
	"wholesale_clients": "/wholesale_clients/",
	"wholesale_orders":  "/wholesale_orders/",
	"social_links":      "/social_links/",
}

// imageResources accept multipart uploads.
var imageResources = map[string]bool{
	"cars":         true,
	"social_links": true,
}

// CollectionPath returns the list/create path for a resource.
func CollectionPath(resource string) (string, error) {
	p, ok := resourcePaths[resource]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownResource, resource)
	}
	return p, nil
}

// ItemPath returns the get/update/delete path for one record.
func ItemPath(resource, id string) (string, error) {
	p, err := CollectionPath(resource)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("upstream: empty id for %s", resource)
	}
	return p + url.PathEscape(id), nil
}

// ImagePath returns the upload path for a record's images.
func ImagePath(resource, id string) (string, error) {
	if !imageResources[resource] {
		return "", fmt.Errorf("%w: %q does not accept images", ErrUnknownResource, resource)
	}
	p, err := ItemPath(resource, id)
	if err != nil {
		return "", err
	}
	return p + "/images", nil
}

func list[T any](ctx context.Context, s *Scoped, path string) ([]T, error) {
	var out []T
	if err := s.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Cars lists the paginated catalog endpoint.
func (s *Scoped) Cars(ctx context.Context) ([]model.Car, error) {
	return list[model.Car](ctx, s, "/cars/")
}

// AllCars lists the whole catalog, including sold-out cars.
func (s *Scoped) AllCars(ctx context.Context) ([]model.Car, error) {
	return list[model.Car](ctx, s, "/cars/all")
}

func (s *Scoped) Clients(ctx context.Context) ([]model.Client, error) {
	return list[model.Client](ctx, s, "/clients/")
}

func (s *Scoped) Orders(ctx context.Context) ([]model.Order, error) {
	return list[model.Order](ctx, s, "/orders/")
}

func (s *Scoped) Commercials(ctx context.Context) ([]model.Commercial, error) {
	return list[model.Commercial](ctx, s, "/commercials/")
}

func (s *Scoped) Suppliers(ctx context.Context) ([]model.Supplier, error) {
	return list[model.Supplier](ctx, s, "/suppliers/")
}

func (s *Scoped) SupplierItems(ctx context.Context) ([]model.SupplierItem, error) {
	return list[model.SupplierItem](ctx, s, "/suppliers_items/")
}

func (s *Scoped) Currencies(ctx context.Context) ([]model.Currency, error) {
	return list[model.Currency](ctx, s, "/currencies/")
}

func (s *Scoped) WholesaleClients(ctx context.Context) ([]model.WholesaleClient, error) {
	return list[model.WholesaleClient](ctx, s, "/wholesale_clients/")
}

func (s *Scoped) WholesaleOrders(ctx context.Context) ([]model.WholesaleOrder, error) {
	return list[model.WholesaleOrder](ctx, s, "/wholesale_orders/")
}

func (s *Scoped) SocialLinks(ctx context.Context) ([]model.SocialLink, error) {
	return list[model.SocialLink](ctx, s, "/social_links/")
}

// CurrencyUpdate is the editable part of a currency.
type CurrencyUpdate struct {
	Code              string `json:"code,omitempty"`
	Name              string `json:"name,omitempty"`
	ExchangeRateToDZD string `json:"exchange_rate_to_dzd"`
}

// UpdateCurrency edits a currency and returns the stored record.
func (s *Scoped) UpdateCurrency(ctx context.Context, id int64, upd CurrencyUpdate) (model.Currency, error) {
	var out model.Currency
	path := "/currencies/" + strconv.FormatInt(id, 10)
	if err := s.Do(ctx, http.MethodPut, path, upd, &out); err != nil {
		return model.Currency{}, err
	}
	return out, nil
}

// Expenses lists monthly or yearly expense rollups.
func (s *Scoped) Expenses(ctx context.Context, period string) ([]model.ExpenseRollup, error) {
	if !model.ValidPeriod(period) {
		return nil, fmt.Errorf("upstream: invalid period %q", period)
	}
	return list[model.ExpenseRollup](ctx, s, "/expenses/"+period)
}

// UpdateExpense edits one rollup.
func (s *Scoped) UpdateExpense(ctx context.Context, period string, id int64, e model.ExpenseRollup) (model.ExpenseRollup, error) {
	if !model.ValidPeriod(period) {
		return model.ExpenseRollup{}, fmt.Errorf("upstream: invalid period %q", period)
	}
	var out model.ExpenseRollup
	path := "/expenses/" + period + "/" + strconv.FormatInt(id, 10)
	if err := s.Do(ctx, http.MethodPut, path, e, &out); err != nil {
		return model.ExpenseRollup{}, err
	}
	return out, nil
}

// Earnings lists monthly or yearly earning rollups.
func (s *Scoped) Earnings(ctx context.Context, period string) ([]model.EarningRollup, error) {
	if !model.ValidPeriod(period) {
		return nil, fmt.Errorf("upstream: invalid period %q", period)
	}
	return list[model.EarningRollup](ctx, s, "/earnings/"+period)
}

// CashRegister returns the current cash position.
func (s *Scoped) CashRegister(ctx context.Context) (model.CashRegister, error) {
	var out model.CashRegister
	if err := s.Do(ctx, http.MethodGet, "/cash_register/", nil, &out); err != nil {
		return model.CashRegister{}, err
	}
	return out, nil
}

// UploadImage attaches an image to a car or social link.
func (s *Scoped) UploadImage(ctx context.Context, resource, id, filename string, content io.Reader, out any) error {
	path, err := ImagePath(resource, id)
	if err != nil {
		return err
	}
	return s.Upload(ctx, path, filename, content, out)
}
