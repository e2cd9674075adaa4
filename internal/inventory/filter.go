// Package inventory filters the car catalog and reveals it page by page.
package inventory

import (
	"strconv"
	"strings"

	"dealership/internal/finance"
	"dealership/internal/model"

	"github.com/shopspring/decimal"
)

// Criteria narrows the catalog. Zero fields are ignored.
type Criteria struct {
	Model       string           `json:"model,omitempty"`
	Color       string           `json:"color,omitempty"`
	FuelType    string           `json:"fuel_type,omitempty"`
	Country     string           `json:"country,omitempty"`
	YearMin     *int             `json:"year_min,omitempty"`
	YearMax     *int             `json:"year_max,omitempty"`
	PriceMinDZD *decimal.Decimal `json:"price_min_dzd,omitempty"`
	PriceMaxDZD *decimal.Decimal `json:"price_max_dzd,omitempty"`
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsEmpty reports whether every criterion is absent.
func (c Criteria) IsEmpty() bool {
	return norm(c.Model) == "" && norm(c.Color) == "" && norm(c.FuelType) == "" && norm(c.Country) == "" &&
		c.YearMin == nil && c.YearMax == nil && c.PriceMinDZD == nil && c.PriceMaxDZD == nil
}

// Key is a canonical fingerprint: two criteria with the same key select the same cars.
func (c Criteria) Key() string {
	parts := []string{norm(c.Model), norm(c.Color), norm(c.FuelType), norm(c.Country)}
	for _, p := range []*int{c.YearMin, c.YearMax} {
		if p == nil {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, strconv.Itoa(*p))
	}
	for _, p := range []*decimal.Decimal{c.PriceMinDZD, c.PriceMaxDZD} {
		if p == nil {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, p.String())
	}
	return strings.Join(parts, "|")
}

// Filter returns the cars matching every criterion, in input order.
// Empty criteria return cars itself.
func Filter(cars []model.Car, c Criteria, conv *finance.Converter) []model.Car {
	if c.IsEmpty() {
		return cars
	}
	if conv == nil {
		conv = finance.NewConverter(nil)
	}

	out := make([]model.Car, 0, len(cars))
	for _, car := range cars {
		if c.Match(car, conv) {
			out = append(out, car)
		}
	}
	return out
}

// Match tests one car. Price bounds compare the DZD price; a missing rate falls back to the raw price.
func (c Criteria) Match(car model.Car, conv *finance.Converter) bool {
	if m := norm(c.Model); m != "" && !strings.Contains(strings.ToLower(car.Model), m) {
		return false
	}
	if col := norm(c.Color); col != "" && !car.Color.Contains(col) {
		return false
	}
	if f := norm(c.FuelType); f != "" && norm(car.FuelType) != f {
		return false
	}
	if co := norm(c.Country); co != "" && norm(car.Country) != co {
		return false
	}
	if c.YearMin != nil && car.Year < *c.YearMin {
		return false
	}
	if c.YearMax != nil && car.Year > *c.YearMax {
		return false
	}

	if c.PriceMinDZD == nil && c.PriceMaxDZD == nil {
		return true
	}
	price := conv.ConvertLenient(car.Price, car.CurrencyID)
	if c.PriceMinDZD != nil && price.LessThan(*c.PriceMinDZD) {
		return false
	}
	if c.PriceMaxDZD != nil && price.GreaterThan(*c.PriceMaxDZD) {
		return false
	}
	return true
}
