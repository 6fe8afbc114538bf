// Package tiles holds the tile and tile matrix types shared by the pyramid, the addressing
// schemes and the loader.
package tiles

import (
	"fmt"
	"image"
	"sync"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/geo"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/projection"
)

type State int32

const (
	Pending State = iota
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// WrapX wraps a column index into [0, columns).
func WrapX(x, columns int) int {
	if columns <= 0 {
		return x
	}
	return ((x % columns) + columns) % columns
}

// Columns returns the number of tile columns of a standard web tile grid at a zoom level.
func Columns(zoomLevel int) int {
	return 1 << zoomLevel
}

// Tile is one raster tile of a tile matrix. X may lie outside of the matrix width when the view
// crosses the dateline; Column is the wrapped index used to address and cache the tile.
//
// The image state is written by the loader and read by the rendering host.
type Tile struct {
	ZoomLevel int
	X         int
	Y         int
	Column    int

	mu    sync.RWMutex
	state State
	image image.Image
}

// NewTile creates a pending tile. columns is the matrix width used to wrap x.
func NewTile(zoomLevel, x, y, columns int) *Tile {
	return &Tile{
		ZoomLevel: zoomLevel,
		X:         x,
		Y:         y,
		Column:    WrapX(x, columns),
	}
}

func (t *Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.ZoomLevel, t.Column, t.Y)
}

// Equivalent reports whether both tiles address the same image.
func (t *Tile) Equivalent(o *Tile) bool {
	return t.ZoomLevel == o.ZoomLevel && t.Column == o.Column && t.Y == o.Y
}

func (t *Tile) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Tile) IsPending() bool {
	return t.State() == Pending
}

func (t *Tile) Image() image.Image {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.image
}

// SetImage marks the tile as loaded. A nil image marks it as failed.
func (t *Tile) SetImage(img image.Image) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.image = img
	if img != nil {
		t.state = Loaded
	} else {
		t.state = Failed
	}
}

// SetFailed marks the tile as failed and drops its image.
func (t *Tile) SetFailed() {
	t.SetImage(nil)
}

// SetStale keeps an outdated image visible while the tile stays pending for a refetch.
func (t *Tile) SetStale(img image.Image) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.image = img
	t.state = Pending
}

// Bounds returns the geographic footprint of the tile in a standard web mercator grid.
func (t *Tile) Bounds() geo.BoundingBox {
	size := 360 / float64(Columns(t.ZoomLevel))
	west := float64(t.X)*size - 180
	north := 180 - float64(t.Y)*size

	return geo.NewBoundingBox(
		projection.WebMercatorYToLatitude(north-size),
		west,
		projection.WebMercatorYToLatitude(north),
		west+size,
	)
}
