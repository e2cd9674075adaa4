package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"dealership/internal/logger"
	"dealership/internal/model"
	"dealership/internal/repository"
	"dealership/internal/upstream"
	ws "dealership/internal/websocket"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type UpdateCurrencyRequest struct {
	Code              string `json:"code"`
	Name              string `json:"name"`
	ExchangeRateToDZD string `json:"exchange_rate_to_dzd" binding:"required"` // Decimal string, e.g. "145.50"
}

// --- Interface ---

type CurrencyService interface {
	List(ctx context.Context, sess upstream.Session) ([]model.Currency, error)
	Update(ctx context.Context, sess upstream.Session, actor Actor, id int64, req UpdateCurrencyRequest) (model.Currency, error)
	History(ctx context.Context, currencyID int64, page, limit int) ([]model.RateSnapshot, int64, error)
}

type currencyService struct {
	api       *upstream.Client
	snapshots repository.RateSnapshotRepository
	audits    repository.AuditRepository
	tm        repository.TransactionManager
	hub       *ws.Hub
}

func NewCurrencyService(
	api *upstream.Client,
	snapshots repository.RateSnapshotRepository,
	audits repository.AuditRepository,
	tm repository.TransactionManager,
	hub *ws.Hub,
) CurrencyService {
	return &currencyService{api: api, snapshots: snapshots, audits: audits, tm: tm, hub: hub}
}

// --- Implementation ---

// List returns the upstream currencies and snapshots every rate that differs from the last one
// recorded. Snapshot failures are logged, never returned.
func (s *currencyService) List(ctx context.Context, sess upstream.Session) ([]model.Currency, error) {
	currencies, err := s.api.With(sess).Currencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	s.observe(ctx, currencies)
	return nonNil(currencies), nil
}

func (s *currencyService) observe(ctx context.Context, currencies []model.Currency) {
	ids := make([]int64, 0, len(currencies))
	for _, c := range currencies {
		ids = append(ids, c.ID)
	}
	latest, err := s.snapshots.Latest(ctx, ids)
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to load rate snapshots")
		return
	}

	var changed []*model.RateSnapshot
	for _, c := range currencies {
		if prev, ok := latest[c.ID]; ok && prev.Rate.Equal(c.ExchangeRateToDZD) {
			continue
		}
		changed = append(changed, &model.RateSnapshot{
			CurrencyID: c.ID,
			Code:       strings.ToLower(c.Code),
			Rate:       c.ExchangeRateToDZD,
			Source:     model.SnapshotObserved,
		})
	}
	if err := s.snapshots.Create(ctx, changed...); err != nil {
		logger.Log.Error().Err(err).Int("count", len(changed)).Msg("failed to record rate snapshots")
	}
}

// Update edits the rate upstream, then records the snapshot and audit row together and notifies
// dashboards. The upstream edit is authoritative: local write failures are logged only.
func (s *currencyService) Update(ctx context.Context, sess upstream.Session, actor Actor, id int64, req UpdateCurrencyRequest) (model.Currency, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(req.ExchangeRateToDZD))
	if err != nil {
		return model.Currency{}, fmt.Errorf("%w: exchange_rate_to_dzd must be a decimal", ErrInvalidInput)
	}
	if !rate.IsPositive() {
		return model.Currency{}, fmt.Errorf("%w: exchange_rate_to_dzd must be positive", ErrInvalidInput)
	}

	updated, err := s.api.With(sess).UpdateCurrency(ctx, id, upstream.CurrencyUpdate{
		Code:              req.Code,
		Name:              req.Name,
		ExchangeRateToDZD: rate.String(),
	})
	if err != nil {
		return model.Currency{}, fmt.Errorf("update currency %d: %w", id, err)
	}
	if updated.ID == 0 {
		updated.ID = id
	}
	if updated.ExchangeRateToDZD.IsZero() {
		updated.ExchangeRateToDZD = rate
	}

	details, _ := json.Marshal(map[string]string{
		"code": updated.Code,
		"rate": updated.ExchangeRateToDZD.String(),
	})
	entityID := strconv.FormatInt(updated.ID, 10)
	err = s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.snapshots.Create(txCtx, &model.RateSnapshot{
			CurrencyID: updated.ID,
			Code:       strings.ToLower(updated.Code),
			Rate:       updated.ExchangeRateToDZD,
			Source:     model.SnapshotEdited,
		}); err != nil {
			return err
		}
		return s.audits.Log(txCtx, &model.AuditLog{
			Actor:      actor.ID,
			Role:       actor.Role,
			Action:     model.ActionUpdateRate,
			Resource:   SectionCurrencies,
			EntityID:   entityID,
			Details:    string(details),
			StatusCode: 200,
		})
	})
	if err != nil {
		logger.Log.Error().Err(err).Int64("currency_id", updated.ID).Msg("failed to record rate change")
	}

	s.hub.Publish(ws.Event{
		Resource: SectionCurrencies,
		Action:   model.ActionUpdateRate,
		EntityID: entityID,
		Actor:    actor.ID,
	})
	return updated, nil
}

func (s *currencyService) History(ctx context.Context, currencyID int64, page, limit int) ([]model.RateSnapshot, int64, error) {
	rows, total, err := s.snapshots.History(ctx, currencyID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("rate history: %w", err)
	}
	return nonNil(rows), total, nil
}
