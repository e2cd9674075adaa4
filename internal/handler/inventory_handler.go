package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"dealership/internal/inventory"
	"dealership/internal/middleware"
	"dealership/internal/service"
	"dealership/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
}

func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/inventory", middleware.RequireRole(allRoles...), h.Browse)
}

// Browse handles the filtered car catalog
// @Summary      Browse inventory
// @Description  Filters the whole catalog and reveals it 12 cars at a time. Prices are compared in DZD.
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        model      query     string  false  "Model substring"
// @Param        color      query     string  false  "Color"
// @Param        fuel_type  query     string  false  "Fuel type"
// @Param        country    query     string  false  "Country of origin"
// @Param        year_min   query     int     false  "Minimum year"
// @Param        year_max   query     int     false  "Maximum year"
// @Param        price_min  query     number  false  "Minimum price in DZD"
// @Param        price_max  query     number  false  "Maximum price in DZD"
// @Param        pages      query     int     false  "Pages revealed so far (default 1)"
// @Param        page_size  query     int     false  "Cars per page (default 12)"
// @Param        key        query     string  false  "criteria_key of the previous page; a different key starts again at page one"
// @Success      200        {object}  response.Response{data=service.BrowseResult}
// @Failure      400        {object}  response.Response
// @Router       /api/inventory [get]
func (h *InventoryHandler) Browse(c *gin.Context) {
	req, err := parseBrowseRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	res, sections, err := h.inventoryService.Browse(c.Request.Context(), middleware.Session(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSections(c, res, sections)
}

func parseBrowseRequest(c *gin.Context) (service.BrowseRequest, error) {
	req := service.BrowseRequest{
		Criteria: inventory.Criteria{
			Model:    c.Query("model"),
			Color:    c.Query("color"),
			FuelType: c.Query("fuel_type"),
			Country:  c.Query("country"),
		},
		PrevKey: c.Query("key"),
	}

	var err error
	if req.Criteria.YearMin, err = optionalInt(c, "year_min"); err != nil {
		return req, err
	}
	if req.Criteria.YearMax, err = optionalInt(c, "year_max"); err != nil {
		return req, err
	}
	if req.Criteria.PriceMinDZD, err = optionalDecimal(c, "price_min"); err != nil {
		return req, err
	}
	if req.Criteria.PriceMaxDZD, err = optionalDecimal(c, "price_max"); err != nil {
		return req, err
	}

	pages, err := optionalInt(c, "pages")
	if err != nil {
		return req, err
	}
	if pages != nil {
		req.Pages = *pages
	}
	size, err := optionalInt(c, "page_size")
	if err != nil {
		return req, err
	}
	if size != nil {
		if *size > 100 {
			return req, errors.New("page_size must be at most 100")
		}
		req.PageSize = *size
	}
	return req, nil
}

func optionalInt(c *gin.Context, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	return &v, nil
}

func optionalDecimal(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &v, nil
}
