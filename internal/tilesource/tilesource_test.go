package tilesource

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/geo"
	"github.com/jaennil/guide_helper/backend/mapcore/internal/tilematrixset"
)

func TestNewClassifiesTemplate(t *testing.T) {
	tests := []struct {
		template string
		scheme   Scheme
	}{
		{"https://tile.openstreetmap.org/{z}/{x}/{y}.png", XYZ},
		{"https://{c}.tile.openstreetmap.org/{z}/{x}/{y}.png", XYZLetterSubdomain},
		{"https://maps{n}.wien.gv.at/basemap/{z}/{y}/{x}.png", XYZNumberSubdomain},
		{"http://ecn.t{i}.tiles.virtualearth.net/tiles/r{q}.png?g=1", QuadKey},
		{"https://example.com/wms?BBOX={W},{S},{E},{N}&WIDTH=256&HEIGHT=256", BoundingBox},
		{"https://example.com/wms?BBOX={s},{w},{n},{e}", LatLonBoundingBox},
		{"/var/cache/tiles/{z}/{x}/{y}.png", XYZ},
	}
	for _, tt := range tests {
		s, err := New(tt.template)
		require.NoError(t, err, tt.template)
		assert.Equal(t, tt.scheme, s.Scheme(), tt.template)
		assert.Equal(t, tt.template, s.Template())
	}
}

func TestNewRejectsUnknownTemplate(t *testing.T) {
	for _, template := range []string{
		"",
		"https://example.com/tile.png",
		"https://example.com/{z}/{x}.png",
		"https://example.com/wms?BBOX={W},{S},{E}",
	} {
		_, err := New(template)
		assert.ErrorIs(t, err, ErrUnsupportedTemplate, template)
	}
}

func TestXYZ(t *testing.T) {
	s, err := New("https://tile.openstreetmap.org/{z}/{x}/{y}.png")
	require.NoError(t, err)

	uri, ok := s.URL(550, 335, 10)
	require.True(t, ok)
	assert.Equal(t, "https://tile.openstreetmap.org/10/550/335.png", uri)
}

func TestSubdomains(t *testing.T) {
	letters, err := New("https://{c}.tile.example.com/{z}/{x}/{y}.png")
	require.NoError(t, err)
	numbers, err := New("https://maps{n}.example.com/{z}/{y}/{x}.png")
	require.NoError(t, err)

	for x := 0; x < 4; x++ {
		uri, _ := letters.URL(x, 1, 2)
		assert.Equal(t, "https://"+string("abc"[(x+1)%3])+".tile.example.com/2/"+strconv.Itoa(x)+"/1.png", uri)
	}

	uri, _ := numbers.URL(3, 5, 4)
	assert.Equal(t, "https://maps1.example.com/4/5/3.png", uri)
	uri, _ = numbers.URL(2, 5, 4)
	assert.Equal(t, "https://maps4.example.com/4/5/2.png", uri)

	// columns left of the grid still pick a valid subdomain
	uri, _ = letters.URL(-4, 1, 2)
	assert.Equal(t, "https://a.tile.example.com/2/-4/1.png", uri)
	uri, _ = numbers.URL(-3, 1, 2)
	assert.Equal(t, "https://maps3.example.com/2/1/-3.png", uri)
}

func TestQuadKey(t *testing.T) {
	key, ok := QuadKeyDigits(3, 5, 3)
	require.True(t, ok)
	assert.Equal(t, "213", key)

	_, ok = QuadKeyDigits(0, 0, 0)
	assert.False(t, ok)

	s, err := New("http://ecn.t{i}.tiles.virtualearth.net/tiles/r{q}.png")
	require.NoError(t, err)

	uri, ok := s.URL(3, 5, 3)
	require.True(t, ok)
	assert.Equal(t, "http://ecn.t3.tiles.virtualearth.net/tiles/r213.png", uri)

	_, ok = s.URL(0, 0, 0)
	assert.False(t, ok)
}

func TestQuadKeyMatchesOrb(t *testing.T) {
	for _, c := range []struct{ x, y, z int }{{1, 0, 1}, {3, 5, 3}, {550, 335, 10}, {34567, 21000, 16}} {
		key, ok := QuadKeyDigits(c.x, c.y, c.z)
		require.True(t, ok)

		want := strconv.FormatUint(maptile.New(uint32(c.x), uint32(c.y), maptile.Zoom(c.z)).Quadkey(), 4)
		want = strings.Repeat("0", c.z-len(want)) + want
		assert.Equal(t, want, key)
	}
}

func TestBoundingBox(t *testing.T) {
	s, err := New("https://example.com/wms?BBOX={W},{S},{E},{N}")
	require.NoError(t, err)

	uri, ok := s.URL(0, 0, 1)
	require.True(t, ok)
	m := strconv.FormatFloat(math.Pi*geo.EquatorialRadius, 'f', -1, 64)
	assert.Equal(t, "https://example.com/wms?BBOX=-"+m+",0,0,"+m, uri)

	uri, ok = s.URL(1, 1, 1)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/wms?BBOX=0,-"+m+","+m+",0", uri)
}

func TestLatLonBoundingBoxMatchesOrb(t *testing.T) {
	s, err := New("{w}|{s}|{e}|{n}")
	require.NoError(t, err)

	for _, c := range []struct{ x, y, z int }{{0, 0, 0}, {3, 5, 3}, {550, 335, 10}} {
		uri, ok := s.URL(c.x, c.y, c.z)
		require.True(t, ok)

		parts := strings.Split(uri, "|")
		require.Len(t, parts, 4)
		values := make([]float64, 4)
		for i, p := range parts {
			values[i], err = strconv.ParseFloat(p, 64)
			require.NoError(t, err)
		}

		want := maptile.New(uint32(c.x), uint32(c.y), maptile.Zoom(c.z)).Bound()
		assert.InDelta(t, want.Min.Lon(), values[0], 1e-9)
		assert.InDelta(t, want.Min.Lat(), values[1], 1e-9)
		assert.InDelta(t, want.Max.Lon(), values[2], 1e-9)
		assert.InDelta(t, want.Max.Lat(), values[3], 1e-9)
	}
}

func TestWMTS(t *testing.T) {
	set, err := tilematrixset.LoadEmbedded("WebMercatorQuad")
	require.NoError(t, err)

	s, err := NewWMTS("https://example.com/wmts/{TileMatrixSet}/{TileMatrix}/{TileCol}/{TileRow}.png", set)
	require.NoError(t, err)
	assert.Equal(t, WMTS, s.Scheme())

	uri, ok := s.URL(550, 335, 10)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/wmts/WebMercatorQuad/10/550/335.png", uri)

	_, ok = s.URL(0, 0, 25)
	assert.False(t, ok)

	_, err = NewWMTS("https://example.com/{z}/{x}/{y}.png", set)
	assert.ErrorIs(t, err, ErrUnsupportedTemplate)

	_, err = NewWMTS("https://example.com/{TileMatrix}/{TileCol}/{TileRow}.png", nil)
	assert.Error(t, err)
}

func TestIsLocal(t *testing.T) {
	assert.True(t, IsLocal("/var/cache/tiles/1/2/3.png"))
	assert.True(t, IsLocal("tiles/1/2/3.png"))
	assert.True(t, IsLocal("file:///var/cache/tiles/1/2/3.png"))
	assert.False(t, IsLocal("https://tile.openstreetmap.org/1/2/3.png"))

	assert.Equal(t, "/var/cache/tiles/1/2/3.png", LocalPath("file:///var/cache/tiles/1/2/3.png"))
	assert.Equal(t, "tiles/1/2/3.png", LocalPath("tiles/1/2/3.png"))
}
