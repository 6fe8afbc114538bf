package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/mapview"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// TileReader reads cached tile payloads.
type TileReader interface {
	CachedTile(ctx context.Context, key cache.TileCacheKey) (*cache.CacheItem, bool, error)
}

type Handler struct {
	validate *validator.Validate
	mapView  *mapview.Map
	tiles    TileReader
}

func NewHandler(v *validator.Validate, m *mapview.Map, tiles TileReader) *Handler {
	return &Handler{
		validate: v,
		mapView:  m,
		tiles:    tiles,
	}
}

func (h *Handler) RespondWithInternalServerError(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusInternalServerError, InternalServerError.Error(), nil)
}

func (h *Handler) RespondWithJSON(c *gin.Context, code int, message string, data any) {
	success := code < 400

	r := response{
		Success: success,
		Message: message,
		Data:    data,
	}

	c.JSON(code, r)
}

func requestLogger(c *gin.Context) logger.Logger {
	if l, ok := c.Get("logger"); ok {
		if l, ok := l.(logger.Logger); ok {
			return l
		}
	}
	return logger.FromContext(c.Request.Context())
}
