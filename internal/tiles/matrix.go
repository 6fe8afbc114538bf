package tiles

import "fmt"

// Matrix is the rectangle of tile indices required at one zoom level. Bounds are inclusive.
type Matrix struct {
	ZoomLevel int
	XMin      int
	YMin      int
	XMax      int
	YMax      int
}

func (m Matrix) Equal(o Matrix) bool {
	return m == o
}

func (m Matrix) Width() int {
	return m.XMax - m.XMin + 1
}

func (m Matrix) Height() int {
	return m.YMax - m.YMin + 1
}

func (m Matrix) Contains(zoomLevel, x, y int) bool {
	return zoomLevel == m.ZoomLevel && x >= m.XMin && x <= m.XMax && y >= m.YMin && y <= m.YMax
}

func (m Matrix) String() string {
	return fmt.Sprintf("z%d [%d,%d]-[%d,%d]", m.ZoomLevel, m.XMin, m.YMin, m.XMax, m.YMax)
}
