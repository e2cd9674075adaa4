package handler

import (
	"errors"
	"net/http"

	"dealership/internal/logger"
	"dealership/internal/middleware"
	"dealership/internal/service"
	"dealership/internal/upstream"
	"dealership/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps service and upstream errors onto the response envelope.
func respondError(c *gin.Context, err error) {
	var apiErr *upstream.APIError

	switch {
	case errors.Is(err, upstream.ErrUnauthorized) || middleware.SessionExpired(c):
		_, role := middleware.CurrentUser(c)
		middleware.ClearTokenCookies(c)
		c.JSON(http.StatusUnauthorized, response.Unauthorized("Session expired, please log in again", middleware.LoginRoute(role)))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case errors.Is(err, upstream.ErrUnknownResource), errors.Is(err, upstream.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.As(err, &apiErr) && apiErr.IsClientError():
		msg := apiErr.Detail
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		c.JSON(apiErr.StatusCode, response.Error(apiErr.StatusCode, msg))
	case apiErr != nil:
		logger.Log.Error().Err(err).Str("path", c.FullPath()).Msg("upstream server error")
		c.JSON(http.StatusBadGateway, response.Error(http.StatusBadGateway, "Upstream service error"))
	default:
		logger.Log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}

// respondSections writes a dashboard-style payload, unless the API rejected the session while
// it was being assembled.
func respondSections(c *gin.Context, data interface{}, sections service.Sections) {
	if middleware.SessionExpired(c) {
		respondError(c, upstream.ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, response.Partial(data, sections))
}

func actorFrom(c *gin.Context) service.Actor {
	id, role := middleware.CurrentUser(c)
	return service.Actor{ID: id, Role: role}
}

var allRoles = []string{
	middleware.RoleAdmin,
	middleware.RoleCommercial,
	middleware.RoleAccountant,
	middleware.RoleMarketer,
}
