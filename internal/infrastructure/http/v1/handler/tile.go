package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tiles"
)

// Tile returns the cached payload of a tile. Columns outside of the grid are wrapped.
func (h *Handler) Tile(c *gin.Context) {
	l := requestLogger(c)

	layer := c.Param("layer")
	strX := c.Param("x")
	strY := c.Param("y")
	strZ := c.Param("z")

	x, err := strconv.Atoi(strX)
	if err != nil {
		l.Warn("invalid x parameter", "x", strX, "error", err)
		h.RespondWithJSON(c, http.StatusBadRequest, "x should be integer", nil)
		return
	}

	y, err := strconv.Atoi(strY)
	if err != nil {
		l.Warn("invalid y parameter", "y", strY, "error", err)
		h.RespondWithJSON(c, http.StatusBadRequest, "y should be integer", nil)
		return
	}

	z, err := strconv.Atoi(strZ)
	if err != nil || z < 0 || z > 30 {
		l.Warn("invalid z parameter", "z", strZ, "error", err)
		h.RespondWithJSON(c, http.StatusBadRequest, "z should be an integer between 0 and 30", nil)
		return
	}

	key := cache.TileCacheKey{Layer: layer, Z: z, X: tiles.WrapX(x, tiles.Columns(z)), Y: y}

	item, ok, err := h.tiles.CachedTile(c.Request.Context(), key)
	if err != nil {
		l.Error("failed to read cached tile", "key", key, "error", err)
		h.RespondWithInternalServerError(c)
		return
	}
	if !ok || len(item.Data) == 0 {
		h.RespondWithJSON(c, http.StatusNotFound, ErrTileNotCached.Error(), nil)
		return
	}

	c.Header("Expires", item.Expiration.UTC().Format(http.TimeFormat))
	c.Data(http.StatusOK, http.DetectContentType(item.Data), item.Data)
}
