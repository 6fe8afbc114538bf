package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/geo"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/projection"
)

func (h *Handler) GetView(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusOK, "current view", h.viewResponse())
}

func (h *Handler) UpdateView(c *gin.Context) {
	l := requestLogger(c)

	var req dto.ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn("failed to decode view request", "error", err)
		h.RespondWithJSON(c, http.StatusBadRequest, ErrFailedToDecodeRequestBody.Error(), nil)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			h.RespondWithJSON(c, http.StatusUnprocessableEntity, ErrInvalidView.Error(), fields)
			return
		}
		h.RespondWithInternalServerError(c)
		return
	}

	if req.Projection != "" && req.Projection != h.mapView.View().CRS {
		p, err := projection.New(req.Projection)
		if err != nil {
			h.RespondWithJSON(c, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
		h.mapView.SetProjection(p)
	}

	if req.Width != nil || req.Height != nil {
		v := h.mapView.View()
		width, height := v.Width, v.Height
		if req.Width != nil {
			width = *req.Width
		}
		if req.Height != nil {
			height = *req.Height
		}
		h.mapView.SetSize(width, height)
	}

	h.mapView.SetView(geo.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}, *req.ZoomLevel, req.Heading)
	h.mapView.Flush()

	l.Info("view updated", "latitude", *req.Latitude, "longitude", *req.Longitude, "zoomLevel", *req.ZoomLevel)

	h.RespondWithJSON(c, http.StatusOK, "view updated", h.viewResponse())
}

func (h *Handler) viewResponse() dto.ViewResponse {
	v := h.mapView.View()
	resp := dto.ViewResponse{
		Projection: v.CRS,
		Latitude:   v.Center.Latitude,
		Longitude:  v.Center.Longitude,
		ZoomLevel:  v.ZoomLevel,
		Heading:    v.Heading,
		Width:      v.Width,
		Height:     v.Height,
		Generation: v.Generation,
		Layers:     []dto.LayerResponse{},
	}

	for _, state := range h.mapView.LayerStates() {
		layer := dto.LayerResponse{
			Name:     state.Name,
			Matrices: make([]dto.MatrixResponse, len(state.Matrices)),
			Tiles:    make([]dto.TileResponse, len(state.Placements)),
		}
		for i, m := range state.Matrices {
			layer.Matrices[i] = dto.MatrixResponse{
				ZoomLevel: m.ZoomLevel,
				XMin:      m.XMin,
				YMin:      m.YMin,
				XMax:      m.XMax,
				YMax:      m.YMax,
			}
		}
		for i, p := range state.Placements {
			layer.Tiles[i] = dto.TileResponse{
				ZoomLevel:  p.Tile.ZoomLevel,
				X:          p.Tile.X,
				Y:          p.Tile.Y,
				Column:     p.Tile.Column,
				State:      p.Tile.State().String(),
				Rect:       [4]float64(p.Rect),
				ViewBounds: [4]float64(p.ViewBounds),
			}
		}
		resp.Layers = append(resp.Layers, layer)
	}
	return resp
}
