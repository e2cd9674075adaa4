package service

import (
	"context"
	"errors"
	"fmt"

	"dealership/internal/fanout"
	"dealership/internal/finance"
	"dealership/internal/inventory"
	"dealership/internal/model"
	"dealership/internal/upstream"

	"github.com/shopspring/decimal"
)

// DTOs
type BrowseRequest struct {
	Criteria inventory.Criteria
	Pages    int
	PageSize int
	// PrevKey is the criteria_key of the caller's previous page; a different key resets Pages.
	PrevKey string
}

// CarView is a catalog car with its price normalized to DZD.
type CarView struct {
	model.Car
	PriceDZD    decimal.Decimal `json:"price_dzd"`
	MissingRate bool            `json:"missing_rate,omitempty"`
}

type BrowseResult struct {
	Cars       []CarView `json:"cars"`
	Total      int       `json:"total"`
	Pages      int       `json:"pages"`
	PageSize   int       `json:"page_size"`
	HasMore    bool      `json:"has_more"`
	Prefetched int       `json:"prefetched"`
	Key        string    `json:"criteria_key"`
}

// ImagePrefetcher warms images of newly revealed cars.
type ImagePrefetcher interface {
	Prefetch(cars []model.Car) int
}

type InventoryService interface {
	Browse(ctx context.Context, sess upstream.Session, req BrowseRequest) (BrowseResult, Sections, error)
}

type inventoryService struct {
	api         *upstream.Client
	prefetcher  ImagePrefetcher
	fanoutLimit int
}

// NewInventoryService creates the catalog service. prefetcher may be nil.
func NewInventoryService(api *upstream.Client, prefetcher ImagePrefetcher, fanoutLimit int) InventoryService {
	return &inventoryService{api: api, prefetcher: prefetcher, fanoutLimit: fanoutLimit}
}

// Browse filters the whole catalog and reveals it page by page. Only the last revealed page is
// prefetched, so earlier pages are not warmed twice.
func (s *inventoryService) Browse(ctx context.Context, sess upstream.Session, req BrowseRequest) (BrowseResult, Sections, error) {
	api := s.api.With(sess)

	var (
		currencies []model.Currency
		cars       []model.Car
	)
	g := fanout.New(ctx, s.fanoutLimit)
	fetch(g, SectionCurrencies, &currencies, api.Currencies)
	fetch(g, SectionCars, &cars, api.AllCars)
	res := g.Wait()
	sections, err := settle(res)
	if err != nil {
		return BrowseResult{}, nil, err
	}
	if err := res.Err(SectionCars); err != nil {
		return BrowseResult{}, nil, fmt.Errorf("list cars: %w", err)
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = inventory.PageSize
	}
	pages := inventory.Pages(req.Pages, req.PrevKey, req.Criteria)

	conv := finance.NewConverterFor(currencies)
	filtered := inventory.Filter(cars, req.Criteria, conv)
	visible, fresh, hasMore := inventory.Window(filtered, pages, pageSize)

	out := BrowseResult{
		Cars:     make([]CarView, 0, len(visible)),
		Total:    len(filtered),
		Pages:    pages,
		PageSize: pageSize,
		HasMore:  hasMore,
		Key:      req.Criteria.Key(),
	}
	for _, car := range visible {
		price, err := conv.Convert(car.Price, car.CurrencyID)
		out.Cars = append(out.Cars, CarView{
			Car:         car,
			PriceDZD:    finance.RoundDZD(price),
			MissingRate: errors.Is(err, finance.ErrMissingExchangeRate),
		})
	}
	if s.prefetcher != nil {
		out.Prefetched = s.prefetcher.Prefetch(fresh)
	}
	return out, sections, nil
}
