// Package mapview owns the viewport of a map: projection, center, zoom level, heading and size.
//
// Every change goes through one entry point that recomputes the view transform, then updates
// the tile layers and finally submits their tile sets to the loader, in that order.
package mapview

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/go-spatial/geom"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/geo"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/projection"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/pyramid"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tiles"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tilesource"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/transform"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/metrics"
)

var (
	ErrDuplicateLayer = errors.New("layer already added")
	ErrUnknownLayer   = errors.New("unknown layer")
	ErrEmptyBounds    = errors.New("bounds have no extent")
)

// TileSetLoader receives the tile set of a layer whenever it changed.
type TileSetLoader interface {
	LoadTiles(layer string, source tilesource.Source, ts []*tiles.Tile)
	CancelLayer(layer string)
}

// ViewportChanged is passed to listeners after every viewport change.
type ViewportChanged struct {
	Generation        uint64
	ProjectionChanged bool
	// LongitudeOffset is the multiple of 360 degrees subtracted from the requested center
	// longitude to bring it back into [-180, 180).
	LongitudeOffset float64
}

type Options struct {
	MinZoomLevel float64
	MaxZoomLevel float64
}

func DefaultOptions() Options {
	return Options{MinZoomLevel: 1, MaxZoomLevel: 21}
}

// View is a snapshot of the viewport.
type View struct {
	CRS        string
	Center     geo.Location
	ZoomLevel  float64
	Heading    float64
	Width      float64
	Height     float64
	Generation uint64
}

type layerEntry struct {
	layer     pyramid.TileLayer
	scheduler *pyramid.Scheduler
	// removed is set under the map lock; a scheduled update that fires late must not revive it.
	removed bool
}

type Map struct {
	opts   Options
	loader TileSetLoader
	logger logger.Logger

	mu               sync.Mutex
	projection       projection.Projection
	projectionCenter *geo.Location
	transform        *transform.ViewTransform
	center           geo.Location
	zoomLevel        float64
	heading          float64
	width, height    float64
	generation       uint64
	layers           []*layerEntry
	listeners        []func(ViewportChanged)
	closed           bool
}

// New creates a map showing p. loader may be nil when tiles are not fetched.
func New(p projection.Projection, loader TileSetLoader, opts Options, l logger.Logger) *Map {
	if opts.MaxZoomLevel < opts.MinZoomLevel {
		opts.MaxZoomLevel = opts.MinZoomLevel
	}
	m := &Map{
		opts:       opts,
		loader:     loader,
		logger:     l,
		projection: p,
		transform:  transform.NewViewTransform(),
		zoomLevel:  opts.MinZoomLevel,
	}
	m.updateTransformLocked(m.center, false)
	return m
}

// OnViewportChanged registers a listener. Listeners run synchronously after the change.
func (m *Map) OnViewportChanged(fn func(ViewportChanged)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Map) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return View{
		CRS:        m.projection.CRS(),
		Center:     m.center,
		ZoomLevel:  m.zoomLevel,
		Heading:    m.heading,
		Width:      m.width,
		Height:     m.height,
		Generation: m.generation,
	}
}

func (m *Map) Projection() projection.Projection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projection
}

// Transform returns a copy of the current view transform.
func (m *Map) Transform() transform.ViewTransform {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.transform
}

func (m *Map) SetProjection(p projection.Projection) {
	m.change(func() (geo.Location, bool) {
		m.projection = p
		return m.center, true
	})
}

// SetProjectionCenter pins the center of an azimuthal projection. A nil center makes the
// projection follow the map center again.
func (m *Map) SetProjectionCenter(center *geo.Location) {
	m.change(func() (geo.Location, bool) {
		if center != nil {
			c := *center
			m.projectionCenter = &c
		} else {
			m.projectionCenter = nil
		}
		return m.center, true
	})
}

func (m *Map) SetCenter(center geo.Location) {
	m.change(func() (geo.Location, bool) {
		return center, false
	})
}

func (m *Map) SetZoomLevel(zoomLevel float64) {
	m.change(func() (geo.Location, bool) {
		m.zoomLevel = m.clampZoomLevel(zoomLevel)
		return m.center, false
	})
}

func (m *Map) SetHeading(heading float64) {
	m.change(func() (geo.Location, bool) {
		m.heading = m.normalizeHeading(heading)
		return m.center, false
	})
}

func (m *Map) SetSize(width, height float64) {
	m.change(func() (geo.Location, bool) {
		if isFinite(width) && isFinite(height) {
			m.width = math.Max(width, 0)
			m.height = math.Max(height, 0)
		}
		return m.center, false
	})
}

// SetView sets center, zoom level and heading in one viewport change.
func (m *Map) SetView(center geo.Location, zoomLevel, heading float64) {
	m.change(func() (geo.Location, bool) {
		m.zoomLevel = m.clampZoomLevel(zoomLevel)
		m.heading = m.normalizeHeading(heading)
		return center, false
	})
}

// TranslateMap moves the map content by a view translation in pixels.
func (m *Map) TranslateMap(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	m.change(func() (geo.Location, bool) {
		p := m.transform.ViewToMap(geom.Point{m.width/2 - dx, m.height/2 - dy})
		loc := m.projection.MapToLocation(p)
		if !validLocation(loc) {
			return m.center, false
		}
		return m.continuousLocation(loc), false
	})
}

// ZoomMap changes the zoom level while the location under viewPoint stays in place.
func (m *Map) ZoomMap(viewPoint geom.Point, zoomLevel float64) {
	m.change(func() (geo.Location, bool) {
		zoomLevel = m.clampZoomLevel(zoomLevel)
		anchor := m.transform.ViewToMap(viewPoint)
		m.zoomLevel = zoomLevel

		vt := transform.NewViewTransform()
		vt.SetTransform(anchor, viewPoint, transform.ZoomLevelToScale(zoomLevel), m.heading)
		loc := m.projection.MapToLocation(vt.ViewToMap(geom.Point{m.width / 2, m.height / 2}))
		if !validLocation(loc) {
			return m.center, false
		}
		return m.continuousLocation(loc), false
	})
}

// ZoomToBounds centers the map on bounds and picks the largest zoom level that shows them
// entirely. The heading is reset to north up.
func (m *Map) ZoomToBounds(bounds geo.Bounds) error {
	if !bounds.Valid() {
		return ErrEmptyBounds
	}

	var err error
	m.change(func() (geo.Location, bool) {
		p := m.projection
		if !p.IsCylindrical() {
			p = p.WithCenter(bounds.Center())
		}
		var rect geom.Extent
		rect, err = p.BoundsToRect(bounds)
		if err != nil {
			return m.center, false
		}
		w, h := rect[2]-rect[0], rect[3]-rect[1]
		if w <= 0 || h <= 0 || m.width <= 0 || m.height <= 0 {
			err = ErrEmptyBounds
			return m.center, false
		}

		center := p.MapToLocation(geom.Point{(rect[0] + rect[2]) / 2, (rect[1] + rect[3]) / 2})
		scale := math.Min(m.width/w, m.height/h)
		m.zoomLevel = m.clampZoomLevel(transform.ScaleToZoomLevel(scale))
		m.heading = 0
		return center, false
	})
	if err != nil {
		return fmt.Errorf("zoom to bounds: %w", err)
	}
	return nil
}

// LocationToView returns the view position of a location. For cylindrical projections the
// longitude is shifted by multiples of 360 degrees to the side nearest to the map center.
// ok is false outside of the projection's valid domain.
func (m *Map) LocationToView(loc geo.Location) (geom.Point, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.projection.IsCylindrical() {
		loc.Longitude = geo.NearestLongitude(loc.Longitude, m.center.Longitude)
	}
	p := m.projection.LocationToMap(loc)
	if !validPoint(p) {
		return geom.Point{}, false
	}
	return m.transform.MapToView(p), true
}

func (m *Map) ViewToLocation(p geom.Point) (geo.Location, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	loc := m.projection.MapToLocation(m.transform.ViewToMap(p))
	if !validLocation(loc) {
		return geo.Location{}, false
	}
	return loc, true
}

// ViewRectToBounds returns the bounds of a view rectangle, in the bounds type of the projection.
func (m *Map) ViewRectToBounds(x, y, width, height float64) geo.Bounds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projection.RectToBounds(m.transform.ViewRectToMap(x, y, width, height))
}

// AddLayer adds a tile layer and computes its tile set immediately.
func (m *Map) AddLayer(layer pyramid.TileLayer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.layers {
		if e.layer.Name() == layer.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateLayer, layer.Name())
		}
	}

	e := &layerEntry{layer: layer}
	opts := layer.Options()
	e.scheduler = pyramid.NewScheduler(opts.UpdateInterval, opts.UpdateWhileViewportChanging, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.closed && !e.removed {
			m.updateLayerLocked(e)
		}
	})
	m.layers = append(m.layers, e)
	m.updateLayerLocked(e)

	m.logger.Info("tile layer added", "layer", layer.Name(), "source", fmt.Sprintf("%T", layer.Source()))
	return nil
}

func (m *Map) RemoveLayer(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLayerLocked(name)
}

func (m *Map) removeLayerLocked(name string) error {
	for i, e := range m.layers {
		if e.layer.Name() != name {
			continue
		}
		e.removed = true
		e.scheduler.Stop()
		e.layer.Reset()
		if m.loader != nil {
			m.loader.CancelLayer(name)
		}
		m.layers = append(m.layers[:i], m.layers[i+1:]...)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownLayer, name)
}

func (m *Map) Layers() []pyramid.TileLayer {
	m.mu.Lock()
	defer m.mu.Unlock()
	layers := make([]pyramid.TileLayer, len(m.layers))
	for i, e := range m.layers {
		layers[i] = e.layer
	}
	return layers
}

// LayerState is a snapshot of the tile set of one layer.
type LayerState struct {
	Name       string
	Matrices   []tiles.Matrix
	Placements []pyramid.Placement
}

func (m *Map) LayerStates() []LayerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	states := make([]LayerState, len(m.layers))
	for i, e := range m.layers {
		states[i] = LayerState{
			Name:       e.layer.Name(),
			Matrices:   e.layer.Matrices(),
			Placements: e.layer.Placements(m.transform),
		}
	}
	return states
}

// Flush runs all scheduled layer updates now.
func (m *Map) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.layers {
		if e.scheduler.Pending() {
			e.scheduler.Cancel()
			m.updateLayerLocked(e)
		}
	}
}

// Close stops all scheduled updates. Fetches already submitted are left to the loader.
func (m *Map) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for _, e := range m.layers {
		e.scheduler.Stop()
	}
}

// change is the single entry point for viewport changes. apply mutates the viewport fields and
// returns the requested center and whether the projection changed.
func (m *Map) change(apply func() (geo.Location, bool)) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	center, projectionChanged := apply()
	event := m.updateTransformLocked(center, projectionChanged)

	for _, e := range m.layers {
		if projectionChanged {
			e.scheduler.Cancel()
			m.updateLayerLocked(e)
		} else {
			e.scheduler.Schedule()
		}
	}
	listeners := append([]func(ViewportChanged){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}
}

func (m *Map) updateTransformLocked(requested geo.Location, projectionChanged bool) ViewportChanged {
	if !validLocation(requested) {
		requested = m.center
	}
	maxLatitude := m.projection.MaxLatitude()
	center := geo.Location{
		Latitude:  geo.ClampLatitude(requested.Latitude, maxLatitude),
		Longitude: geo.NormalizeLongitude(requested.Longitude),
	}
	offset := requested.Longitude - center.Longitude
	m.center = center

	if !m.projection.IsCylindrical() {
		projectionCenter := center
		if m.projectionCenter != nil {
			projectionCenter = *m.projectionCenter
		}
		m.projection = m.projection.WithCenter(projectionCenter)
	}

	mapCenter := m.projection.LocationToMap(center)
	if !validPoint(mapCenter) {
		mapCenter = geom.Point{}
	}
	m.transform.SetTransform(mapCenter, geom.Point{m.width / 2, m.height / 2},
		transform.ZoomLevelToScale(m.zoomLevel), m.heading)

	m.generation++

	return ViewportChanged{
		Generation:        m.generation,
		ProjectionChanged: projectionChanged,
		LongitudeOffset:   offset,
	}
}

func (m *Map) viewportLocked() pyramid.Viewport {
	return pyramid.Viewport{
		Transform:  m.transform,
		Projection: m.projection,
		Width:      m.width,
		Height:     m.height,
	}
}

func (m *Map) updateLayerLocked(e *layerEntry) {
	if !e.layer.Update(m.viewportLocked()) {
		return
	}
	metrics.TileSetUpdates.WithLabelValues(e.layer.Name()).Inc()

	ts := e.layer.Tiles()
	m.logger.Debug("tile set changed", "layer", e.layer.Name(), "tiles", len(ts), "generation", m.generation)

	if m.loader != nil {
		m.loader.LoadTiles(e.layer.Name(), e.layer.Source(), ts)
	}
}

// clampZoomLevel keeps the current zoom level for non-finite input.
func (m *Map) clampZoomLevel(zoomLevel float64) float64 {
	if !isFinite(zoomLevel) {
		return m.zoomLevel
	}
	return math.Min(math.Max(zoomLevel, m.opts.MinZoomLevel), m.opts.MaxZoomLevel)
}

// continuousLocation keeps a longitude that crossed the dateline continuous with the current
// center, so that the wrap shows up as a longitude offset.
func (m *Map) continuousLocation(loc geo.Location) geo.Location {
	loc.Longitude = geo.NearestLongitude(loc.Longitude, m.center.Longitude)
	return loc
}

func (m *Map) normalizeHeading(heading float64) float64 {
	if !isFinite(heading) {
		return m.heading
	}
	heading = math.Mod(heading, 360)
	if heading < 0 {
		heading += 360
	}
	return heading
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func validPoint(p geom.Point) bool {
	return isFinite(p.X()) && isFinite(p.Y())
}

func validLocation(loc geo.Location) bool {
	return isFinite(loc.Latitude) && isFinite(loc.Longitude)
}
