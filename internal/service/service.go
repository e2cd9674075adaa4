package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dealership/internal/fanout"
	"dealership/internal/upstream"
)

// ErrInvalidInput marks requests rejected before anything is sent upstream.
var ErrInvalidInput = errors.New("invalid input")

// Sections maps each dashboard section that failed to its error message.
type Sections map[string]string

// Section names, matching the upstream collections they come from.
const (
	SectionCurrencies      = "currencies"
	SectionCars            = "cars"
	SectionOrders          = "orders"
	SectionWholesaleOrders = "wholesale_orders"
	SectionSupplierItems   = "suppliers_items"
	SectionClients         = "clients"
	SectionCommercials     = "commercials"
	SectionExpenses        = "expenses"
	SectionEarnings        = "earnings"
	SectionCashRegister    = "cash_register"
	SectionSocialLinks     = "social_links"
)

// Actor identifies who triggered a mutation, as read from the caller's token.
type Actor struct {
	ID   string
	Role string
}

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

// fetch runs fn in g and stores its value in dst on success.
func fetch[T any](g *fanout.Group, name string, dst *T, fn func(ctx context.Context) (T, error)) {
	g.Go(name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	})
}

// settle turns fan-out results into per-section errors. A rejected session fails the whole call.
func settle(res fanout.Results) (Sections, error) {
	if res.Any(upstream.ErrUnauthorized) {
		for _, name := range res.Failed() {
			if err := res.Err(name); errors.Is(err, upstream.ErrUnauthorized) {
				return nil, err
			}
		}
	}
	errs := res.Errors()
	if len(errs) == 0 {
		return nil, nil
	}
	return Sections(errs), nil
}

// sanitizeDetails returns body as an audit-safe JSON object: secrets masked, "{}" when not JSON.
func sanitizeDetails(body []byte) string {
	if len(body) == 0 {
		return "{}"
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return "{}"
	}
	out, err := json.Marshal(redact(v))
	if err != nil {
		return "{}"
	}
	return string(out)
}

func redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			lk := strings.ToLower(k)
			if strings.Contains(lk, "password") || strings.Contains(lk, "token") {
				t[k] = "***"
				continue
			}
			t[k] = redact(val)
		}
		return t
	case []any:
		for i := range t {
			t[i] = redact(t[i])
		}
		return t
	default:
		return v
	}
}

// entityIDFrom picks the record id out of an upstream response.
func entityIDFrom(raw json.RawMessage) string {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	for _, key := range []string{"id", "order_id", "supplier_item_id"} {
		if v, ok := obj[key]; ok && v != nil {
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%.0f", f)
			}
			return fmt.Sprint(v)
		}
	}
	return ""
}
