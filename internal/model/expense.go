package model

import (
	"github.com/shopspring/decimal"
)

// Rollup periods accepted by the expenses and earnings endpoints.
const (
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// ValidPeriod reports whether p names a rollup period.
func ValidPeriod(p string) bool {
	return p == PeriodMonthly || p == PeriodYearly
}

// ExpenseRollup is an editable aggregate of spending for one month or year.
type ExpenseRollup struct {
	ID          int64           `json:"id"`
	Month       int             `json:"month,omitempty"`
	Year        int             `json:"year"`
	Purchases   decimal.Decimal `json:"purchases"`
	Transport   decimal.Decimal `json:"transport"`
	Other       decimal.Decimal `json:"other"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// ComputedTotal sums the three components; TotalAmount is whatever the API stored.
func (e ExpenseRollup) ComputedTotal() decimal.Decimal {
	return e.Purchases.Add(e.Transport).Add(e.Other)
}

// EarningRollup is the dealership's income for one month or year.
type EarningRollup struct {
	ID          int64           `json:"id"`
	Month       int             `json:"month,omitempty"`
	Year        int             `json:"year"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// CashRegister is the current cash position reported by the API.
type CashRegister struct {
	ID        int64           `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt *Timestamp      `json:"updated_at,omitempty"`
}
