// Package tilesource derives tile URLs and file paths from address templates.
package tilesource

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/geo"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/projection"
)

var ErrUnsupportedTemplate = errors.New("unsupported tile address template")

// Source resolves the address of a tile. ok is false when no tile exists at that index.
type Source interface {
	URL(x, y, zoomLevel int) (uri string, ok bool)
}

// Scheme is the addressing scheme a template was classified as.
type Scheme int

const (
	XYZ Scheme = iota
	XYZLetterSubdomain
	XYZNumberSubdomain
	QuadKey
	BoundingBox
	LatLonBoundingBox
	WMTS
)

func (s Scheme) String() string {
	switch s {
	case XYZ:
		return "xyz"
	case XYZLetterSubdomain:
		return "xyz-letter"
	case XYZNumberSubdomain:
		return "xyz-number"
	case QuadKey:
		return "quadkey"
	case BoundingBox:
		return "bbox"
	case LatLonBoundingBox:
		return "latlon-bbox"
	case WMTS:
		return "wmts"
	default:
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
}

// TemplateSource is a Source for templates with {x}, {y} and {z}, quadkey or bounding box
// placeholders. It is immutable and shared by all tiles of a layer.
type TemplateSource struct {
	template string
	scheme   Scheme
}

var _ Source = (*TemplateSource)(nil)

// New classifies a template. Templates without a recognized placeholder set are rejected.
func New(template string) (*TemplateSource, error) {
	s := &TemplateSource{template: template}

	switch {
	case containsAll(template, "{x}", "{y}", "{z}"):
		switch {
		case strings.Contains(template, "{c}"):
			s.scheme = XYZLetterSubdomain
		case strings.Contains(template, "{n}"):
			s.scheme = XYZNumberSubdomain
		default:
			s.scheme = XYZ
		}
	case strings.Contains(template, "{q}") || strings.Contains(template, "{i}"):
		s.scheme = QuadKey
	case containsAll(template, "{W}", "{S}", "{E}", "{N}"):
		s.scheme = BoundingBox
	case containsAll(template, "{w}", "{s}", "{e}", "{n}"):
		s.scheme = LatLonBoundingBox
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTemplate, template)
	}
	return s, nil
}

func (s *TemplateSource) Template() string {
	return s.template
}

func (s *TemplateSource) Scheme() Scheme {
	return s.scheme
}

func (s *TemplateSource) URL(x, y, zoomLevel int) (string, bool) {
	switch s.scheme {
	case XYZLetterSubdomain:
		return replaceXYZ(s.template, x, y, zoomLevel, "{c}", string("abc"[mod(x+y, 3)])), true
	case XYZNumberSubdomain:
		return replaceXYZ(s.template, x, y, zoomLevel, "{n}", string(rune('1'+mod(x+y, 4)))), true
	case QuadKey:
		return s.quadKeyURL(x, y, zoomLevel)
	case BoundingBox:
		return s.boundingBoxURL(x, y, zoomLevel), true
	case LatLonBoundingBox:
		return s.latLonBoundingBoxURL(x, y, zoomLevel), true
	default:
		return replaceXYZ(s.template, x, y, zoomLevel), true
	}
}

// QuadKeyDigits returns the quadkey of a tile, coarsest level first. There is no quadkey below
// zoom level 1.
func QuadKeyDigits(x, y, zoomLevel int) (string, bool) {
	if zoomLevel < 1 {
		return "", false
	}
	key := make([]byte, zoomLevel)
	for z := zoomLevel - 1; z >= 0; z-- {
		key[z] = byte('0' + 2*(y%2) + (x % 2))
		x /= 2
		y /= 2
	}
	return string(key), true
}

func (s *TemplateSource) quadKeyURL(x, y, zoomLevel int) (string, bool) {
	key, ok := QuadKeyDigits(x, y, zoomLevel)
	if !ok {
		return "", false
	}
	return strings.NewReplacer(
		"{q}", key,
		"{i}", key[len(key)-1:],
	).Replace(s.template), true
}

func (s *TemplateSource) boundingBoxURL(x, y, zoomLevel int) string {
	n := float64(int(1) << zoomLevel)
	halfWorld := math.Pi * geo.EquatorialRadius
	west := halfWorld * (2*float64(x)/n - 1)
	east := halfWorld * (2*float64(x+1)/n - 1)
	south := halfWorld * (1 - 2*float64(y+1)/n)
	north := halfWorld * (1 - 2*float64(y)/n)

	return strings.NewReplacer(
		"{W}", formatFloat(west),
		"{S}", formatFloat(south),
		"{E}", formatFloat(east),
		"{N}", formatFloat(north),
	).Replace(s.template)
}

func (s *TemplateSource) latLonBoundingBoxURL(x, y, zoomLevel int) string {
	tileSize := 360 / float64(int(1)<<zoomLevel)
	west := float64(x)*tileSize - 180
	east := float64(x+1)*tileSize - 180
	south := projection.WebMercatorYToLatitude(180 - float64(y+1)*tileSize)
	north := projection.WebMercatorYToLatitude(180 - float64(y)*tileSize)

	return strings.NewReplacer(
		"{w}", formatFloat(west),
		"{s}", formatFloat(south),
		"{e}", formatFloat(east),
		"{n}", formatFloat(north),
	).Replace(s.template)
}

func replaceXYZ(template string, x, y, zoomLevel int, extra ...string) string {
	pairs := append([]string{
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
		"{z}", strconv.Itoa(zoomLevel),
	}, extra...)
	return strings.NewReplacer(pairs...).Replace(template)
}

func containsAll(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

// mod is the euclidean remainder, never negative.
func mod(a, b int) int {
	return ((a % b) + b) % b
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// IsLocal reports whether a tile address refers to a local file rather than a network resource.
func IsLocal(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	// a single letter scheme is a windows drive
	return u.Scheme == "" || u.Scheme == "file" || len(u.Scheme) == 1
}

// LocalPath returns the file system path of a local tile address.
func LocalPath(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return uri
}
