package tilesource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/tilematrixset"
)

// WMTSSource addresses tiles of a tile matrix set in WMTS RESTful style. The zoom level passed
// to URL is the index of the tile matrix in the set.
type WMTSSource struct {
	template  string
	setID     string
	matrixIDs []string
}

var _ Source = (*WMTSSource)(nil)

func NewWMTS(template string, set *tilematrixset.TileMatrixSet) (*WMTSSource, error) {
	if !containsAll(template, "{TileMatrix}", "{TileCol}", "{TileRow}") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTemplate, template)
	}
	if set == nil || len(set.TileMatrices) == 0 {
		return nil, fmt.Errorf("wmts source needs a tile matrix set with at least one tile matrix")
	}
	return &WMTSSource{
		template:  template,
		setID:     set.ID,
		matrixIDs: set.MatrixIDs(),
	}, nil
}

func (s *WMTSSource) Template() string {
	return s.template
}

func (s *WMTSSource) Scheme() Scheme {
	return WMTS
}

func (s *WMTSSource) URL(x, y, zoomLevel int) (string, bool) {
	if zoomLevel < 0 || zoomLevel >= len(s.matrixIDs) {
		return "", false
	}
	return strings.NewReplacer(
		"{TileMatrixSet}", s.setID,
		"{TileMatrix}", s.matrixIDs[zoomLevel],
		"{TileCol}", strconv.Itoa(x),
		"{TileRow}", strconv.Itoa(y),
	).Replace(s.template), true
}
