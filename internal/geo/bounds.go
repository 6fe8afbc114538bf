package geo

import "math"

// Bounds is the contract shared by BoundingBox and CenteredBoundingBox.
type Bounds interface {
	Width() float64
	Height() float64
	Center() Location
	Valid() bool
}

// BoundingBox is a geographic box. South and North are clamped to [-90, 90];
// West and East may exceed ±180 to describe boxes that cross the dateline.
type BoundingBox struct {
	South float64
	West  float64
	North float64
	East  float64
}

var _ Bounds = BoundingBox{}

func NewBoundingBox(south, west, north, east float64) BoundingBox {
	return BoundingBox{
		South: math.Min(math.Max(south, -90), 90),
		West:  west,
		North: math.Min(math.Max(north, -90), 90),
		East:  east,
	}
}

// Width in degrees of longitude.
func (b BoundingBox) Width() float64 {
	return b.East - b.West
}

// Height in degrees of latitude.
func (b BoundingBox) Height() float64 {
	return b.North - b.South
}

func (b BoundingBox) Center() Location {
	return Location{
		Latitude:  (b.South + b.North) / 2,
		Longitude: (b.West + b.East) / 2,
	}
}

func (b BoundingBox) Valid() bool {
	return b.South < b.North && b.West < b.East
}

// CenteredBoundingBox describes an area by its center location and a width and height in
// projected units. It is used by azimuthal projections, where a south/west/north/east box
// has no meaning.
type CenteredBoundingBox struct {
	center Location
	width  float64
	height float64
}

var _ Bounds = CenteredBoundingBox{}

func NewCenteredBoundingBox(center Location, width, height float64) CenteredBoundingBox {
	return CenteredBoundingBox{
		center: center,
		width:  math.Max(width, 0),
		height: math.Max(height, 0),
	}
}

func (b CenteredBoundingBox) Width() float64 {
	return b.width
}

func (b CenteredBoundingBox) Height() float64 {
	return b.height
}

func (b CenteredBoundingBox) Center() Location {
	return b.center
}

func (b CenteredBoundingBox) Valid() bool {
	return b.width > 0 && b.height > 0
}
