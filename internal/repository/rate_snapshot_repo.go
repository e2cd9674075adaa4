package repository

import (
	"context"

	"dealership/internal/model"

	"gorm.io/gorm"
)

type RateSnapshotRepository interface {
	Create(ctx context.Context, snapshots ...*model.RateSnapshot) error
	// Latest returns the newest snapshot of each currency that has one.
	Latest(ctx context.Context, currencyIDs []int64) (map[int64]model.RateSnapshot, error)
	History(ctx context.Context, currencyID int64, page, limit int) ([]model.RateSnapshot, int64, error)
}

type rateSnapshotRepository struct {
	db *gorm.DB
}

func NewRateSnapshotRepository(db *gorm.DB) RateSnapshotRepository {
	return &rateSnapshotRepository{db: db}
}

func (r *rateSnapshotRepository) Create(ctx context.Context, snapshots ...*model.RateSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(snapshots).Error
}

func (r *rateSnapshotRepository) Latest(ctx context.Context, currencyIDs []int64) (map[int64]model.RateSnapshot, error) {
	out := make(map[int64]model.RateSnapshot, len(currencyIDs))
	if len(currencyIDs) == 0 {
		return out, nil
	}

	db := GetDB(ctx, r.db)
	latest := db.Model(&model.RateSnapshot{}).
		Select("currency_id, MAX(observed_at) AS observed_at").
		Where("currency_id IN ?", currencyIDs).
		Group("currency_id")

	var rows []model.RateSnapshot
	err := db.Model(&model.RateSnapshot{}).
		Joins("JOIN (?) AS latest ON latest.currency_id = rate_snapshots.currency_id AND latest.observed_at = rate_snapshots.observed_at", latest).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, s := range rows {
		out[s.CurrencyID] = s
	}
	return out, nil
}

func (r *rateSnapshotRepository) History(ctx context.Context, currencyID int64, page, limit int) ([]model.RateSnapshot, int64, error) {
	var rows []model.RateSnapshot
	var total int64

	query := GetDB(ctx, r.db).Model(&model.RateSnapshot{}).Where("currency_id = ?", currencyID).Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("observed_at desc").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
