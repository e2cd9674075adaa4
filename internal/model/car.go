package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Car is a vehicle in the dealership catalog. Price is denominated in CurrencyID's unit, not DZD.
type Car struct {
	ID             int64           `json:"id"`
	Model          string          `json:"model"`
	Description    string          `json:"description"`
	Color          Colors          `json:"color"`
	Year           int             `json:"year"`
	Engine         string          `json:"engine"`
	Power          string          `json:"power"`
	FuelType       string          `json:"fuel_type"`
	Milage         int64           `json:"milage"`
	Country        string          `json:"country"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	WholesalePrice decimal.Decimal `json:"wholesale_price"`
	CurrencyID     int64           `json:"currency_id"`
	ShippingDate   *Timestamp      `json:"shipping_date,omitempty"`
	ArrivingDate   *Timestamp      `json:"arriving_date,omitempty"`
	CommercialID   *int64          `json:"commercial_id,omitempty"`
	Images         []string        `json:"images,omitempty"`
}

// CarsByID indexes cars for order joins.
func CarsByID(cars []Car) map[int64]Car {
	out := make(map[int64]Car, len(cars))
	for _, c := range cars {
		out[c.ID] = c
	}
	return out
}

// Colors is the canonical color list of a car. The upstream API sends it as a JSON array,
// a JSON-encoded array inside a string, or a bracket-stripped comma string; all three decode here.
type Colors []string

// UnmarshalJSON accepts every wire shape the API has been seen to emit.
func (c *Colors) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}

	switch data[0] {
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("color: %w", err)
		}
		*c = cleanColors(list)
		return nil
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("color: %w", err)
		}
		*c = NormalizeColors(raw)
		return nil
	default:
		return fmt.Errorf("color: unsupported JSON value %s", string(data))
	}
}

// MarshalJSON always emits an array so consumers never branch on representation.
func (c Colors) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(c))
}

// Contains reports whether one of the colors equals color, ignoring case.
func (c Colors) Contains(color string) bool {
	color = strings.TrimSpace(color)
	for _, v := range c {
		if strings.EqualFold(v, color) {
			return true
		}
	}
	return false
}

// NormalizeColors turns a raw color field (JSON text or comma list) into a clean list.
func NormalizeColors(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return cleanColors(list)
		}
		raw = strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
	}

	return cleanColors(strings.Split(raw, ","))
}

func cleanColors(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.Trim(strings.TrimSpace(v), `"'`)
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
