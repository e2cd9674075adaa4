// Package finance normalizes multi-currency amounts to DZD and folds priced records into totals.
package finance

import (
	"errors"
	"fmt"
	"strings"

	"dealership/internal/model"

	"github.com/shopspring/decimal"
)

// ErrMissingExchangeRate means a currency id had no matching record. The amount is returned
// unchanged alongside it so callers can keep rendering, but they must not treat it as DZD.
var ErrMissingExchangeRate = errors.New("missing exchange rate")

// MissingRateError names the currency that could not be resolved.
type MissingRateError struct {
	CurrencyID int64
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("%s for currency %d", ErrMissingExchangeRate, e.CurrencyID)
}

func (e *MissingRateError) Unwrap() error { return ErrMissingExchangeRate }

// CurrencyIndex maps currency id to its record. Duplicate ids: the last one wins.
type CurrencyIndex struct {
	byID map[int64]model.Currency
	base *model.Currency
}

// NewCurrencyIndex builds the lookup map.
func NewCurrencyIndex(currencies []model.Currency) *CurrencyIndex {
	idx := &CurrencyIndex{byID: make(map[int64]model.Currency, len(currencies))}
	for _, c := range currencies {
		idx.byID[c.ID] = c
	}
	for _, c := range idx.byID {
		if strings.EqualFold(strings.TrimSpace(c.Code), model.BaseCurrencyCode) {
			base := c
			idx.base = &base
			break
		}
	}
	return idx
}

// Lookup returns the record for id.
func (idx *CurrencyIndex) Lookup(id int64) (model.Currency, bool) {
	if idx == nil {
		return model.Currency{}, false
	}
	c, ok := idx.byID[id]
	return c, ok
}

// Base returns the DZD record when the list contains one.
func (idx *CurrencyIndex) Base() (model.Currency, bool) {
	if idx == nil || idx.base == nil {
		return model.Currency{}, false
	}
	return *idx.base, true
}

// Len is the number of distinct ids.
func (idx *CurrencyIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byID)
}

// Converter turns (amount, currency) pairs into DZD.
type Converter struct {
	idx *CurrencyIndex
}

// NewConverter wraps an index.
func NewConverter(idx *CurrencyIndex) *Converter {
	return &Converter{idx: idx}
}

// NewConverterFor is a shorthand for NewConverter(NewCurrencyIndex(currencies)).
func NewConverterFor(currencies []model.Currency) *Converter {
	return NewConverter(NewCurrencyIndex(currencies))
}

// Index exposes the underlying lookup.
func (c *Converter) Index() *CurrencyIndex { return c.idx }

// Convert returns amount * rate. Missing currency: amount unchanged plus a *MissingRateError.
func (c *Converter) Convert(amount decimal.Decimal, currencyID int64) (decimal.Decimal, error) {
	cur, ok := c.idx.Lookup(currencyID)
	if !ok {
		return amount, &MissingRateError{CurrencyID: currencyID}
	}
	return amount.Mul(cur.ExchangeRateToDZD), nil
}

// ConvertLenient applies the fallback silently. Only use it where a flag cannot be surfaced.
func (c *Converter) ConvertLenient(amount decimal.Decimal, currencyID int64) decimal.Decimal {
	v, _ := c.Convert(amount, currencyID)
	return v
}

// RoundDZD rounds half away from zero to centimes.
func RoundDZD(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatDZD renders an amount with fixed precision; applying it twice yields the same string.
func FormatDZD(d decimal.Decimal) string {
	return RoundDZD(d).StringFixed(2)
}
