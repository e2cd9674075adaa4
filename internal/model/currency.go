package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BaseCurrencyCode is the settlement currency every rollup is normalized to.
const BaseCurrencyCode = "dzd"

// Currency is an exchange rate record as served by the API.
type Currency struct {
	ID                int64           `json:"id"`
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	ExchangeRateToDZD decimal.Decimal `json:"exchange_rate_to_dzd"`
	UpdatedAt         *Timestamp      `json:"updated_at,omitempty"`
}

// RateSnapshot records an observed exchange rate so history survives upstream edits.
type RateSnapshot struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CurrencyID int64           `gorm:"not null;index" json:"currency_id"`
	Code       string          `gorm:"type:varchar(10);not null" json:"code"`
	Rate       decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"rate"`
	Source     string          `gorm:"type:varchar(20);not null" json:"source"` // observed, edited
	ObservedAt time.Time       `gorm:"not null;index" json:"observed_at"`
}

// Snapshot sources
const (
	SnapshotObserved = "observed"
	SnapshotEdited   = "edited"
)

func (s *RateSnapshot) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.ObservedAt.IsZero() {
		s.ObservedAt = time.Now()
	}
	return nil
}
