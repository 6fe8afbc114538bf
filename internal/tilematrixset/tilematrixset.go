// Package tilematrixset loads tile matrix set descriptions following the OGC Tile Matrix Set
// standard (v2.0 JSON encoding). Only the subset needed to place and address tiles is kept.
package tilematrixset

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/go-spatial/geom"
	"github.com/perimeterx/marshmallow"
)

// metersPerPixel is the standardized rendering pixel size of 0.28 mm.
const metersPerPixel = 0.00028

var (
	//go:embed tilematrixsets/*.json
	embeddedTileMatrixSetsFS embed.FS

	crsURIRegexURL = regexp.MustCompile("https?://.+/def/crs/(?P<authority>[^/]+)/[^/]+/(?P<code>[^/]+)$")
	crsURIRegexURN = regexp.MustCompile("^urn:ogc:def:crs:(?P<authority>[^:]+):[^:]*:(?P<code>[^:]+)$")
	crsRegexShort  = regexp.MustCompile("^(?P<authority>[A-Za-z0-9]+):(?P<code>[^:]+)$")

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// TileMatrixSet is a named, ordered list of tile matrices in one CRS.
type TileMatrixSet struct {
	ID    string `validate:"required" json:"id"`
	Title string `json:"title,omitempty"`
	URI   string `validate:"omitempty,uri" json:"uri,omitempty"`
	// CRS in AUTHORITY:CODE form, e.g. EPSG:3857
	CRS string `validate:"required" json:"-"`
	// TileMatrices sorted from the coarsest to the finest scale
	TileMatrices []TileMatrix `validate:"required,min=1,dive" json:"-"`
}

// TileMatrix is one zoom level of a TileMatrixSet. Only top left corners of origin are supported.
type TileMatrix struct {
	ID               string     `validate:"required" json:"id"`
	ScaleDenominator float64    `validate:"required,gt=0" json:"scaleDenominator"`
	CornerOfOrigin   string     `default:"topLeft" validate:"eq=topLeft" json:"cornerOfOrigin,omitempty"`
	PointOfOrigin    [2]float64 `json:"pointOfOrigin"`
	TileWidth        int        `default:"256" validate:"min=1" json:"tileWidth"`
	TileHeight       int        `default:"256" validate:"min=1" json:"tileHeight"`
	MatrixWidth      int        `validate:"required,min=1" json:"matrixWidth"`
	MatrixHeight     int        `validate:"required,min=1" json:"matrixHeight"`
}

// Scale returns the matrix scale in pixels per CRS unit.
func (tm TileMatrix) Scale() float64 {
	return 1 / (tm.ScaleDenominator * metersPerPixel)
}

// TopLeft returns the planar position of the matrix origin.
func (tm TileMatrix) TopLeft() geom.Point {
	return geom.Point{tm.PointOfOrigin[0], tm.PointOfOrigin[1]}
}

// Matrix returns the tile matrix with the given identifier.
func (tms *TileMatrixSet) Matrix(id string) (TileMatrix, bool) {
	for _, tm := range tms.TileMatrices {
		if tm.ID == id {
			return tm, true
		}
	}
	return TileMatrix{}, false
}

// MatrixIDs returns the matrix identifiers in matrix order.
func (tms *TileMatrixSet) MatrixIDs() []string {
	ids := make([]string, len(tms.TileMatrices))
	for i, tm := range tms.TileMatrices {
		ids[i] = tm.ID
	}
	return ids
}

func (tms *TileMatrixSet) UnmarshalJSON(data []byte) error {
	if err := defaults.Set(tms); err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, tms, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	rawCRS, ok := specials["crs"]
	if !ok {
		return fmt.Errorf(`missing key "crs"`)
	}
	if tms.CRS, err = unmarshalCRS(rawCRS); err != nil {
		return err
	}

	rawTileMatrices, ok := specials["tileMatrices"]
	if !ok {
		return fmt.Errorf(`missing key "tileMatrices"`)
	}
	if tms.TileMatrices, err = unmarshalTileMatrices(rawTileMatrices); err != nil {
		return err
	}

	return validate.Struct(tms)
}

func (tms *TileMatrixSet) MarshalJSON() ([]byte, error) {
	type plain TileMatrixSet
	return json.Marshal(struct {
		*plain
		CRS          string       `json:"crs"`
		TileMatrices []TileMatrix `json:"tileMatrices"`
	}{
		plain:        (*plain)(tms),
		CRS:          tms.CRS,
		TileMatrices: tms.TileMatrices,
	})
}

func (tm *TileMatrix) UnmarshalJSONFromMap(data interface{}) error {
	if err := defaults.Set(tm); err != nil {
		return err
	}
	dataMap, ok := data.(map[string]interface{})
	if !ok {
		return fmt.Errorf(`tile matrix is not an object but a %T`, data)
	}
	if _, err := marshmallow.UnmarshalFromJSONMap(dataMap, tm, marshmallow.WithExcludeKnownFieldsFromMap(true)); err != nil {
		return err
	}
	return validate.Struct(tm)
}

func unmarshalTileMatrices(raw interface{}) ([]TileMatrix, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf(`"tileMatrices" should be an array`)
	}
	tileMatrices := make([]TileMatrix, 0, len(list))
	for _, rawTileMatrix := range list {
		var tm TileMatrix
		if err := tm.UnmarshalJSONFromMap(rawTileMatrix); err != nil {
			return nil, fmt.Errorf("tile matrix: %w", err)
		}
		tileMatrices = append(tileMatrices, tm)
	}
	sort.SliceStable(tileMatrices, func(i, j int) bool {
		return tileMatrices[i].ScaleDenominator > tileMatrices[j].ScaleDenominator
	})
	return tileMatrices, nil
}

// unmarshalCRS accepts a CRS given as string or as {"uri": ...} object.
func unmarshalCRS(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return NormalizeCRS(v)
	case map[string]interface{}:
		uri, ok := v["uri"].(string)
		if !ok {
			return "", fmt.Errorf(`crs object without string "uri" property`)
		}
		return NormalizeCRS(uri)
	default:
		return "", fmt.Errorf(`wrong type key "crs": %T`, raw)
	}
}

// NormalizeCRS converts OGC URLs, URNs and short identifiers into AUTHORITY:CODE form.
func NormalizeCRS(crs string) (string, error) {
	crs = strings.TrimSpace(crs)
	for _, re := range []*regexp.Regexp{crsURIRegexURL, crsURIRegexURN, crsRegexShort} {
		if parts := re.FindStringSubmatch(crs); parts != nil {
			return strings.ToUpper(parts[1]) + ":" + parts[2], nil
		}
	}
	return "", fmt.Errorf("could not parse crs %q", crs)
}

// Parse decodes a JSON tile matrix set.
func Parse(data []byte) (*TileMatrixSet, error) {
	var tms TileMatrixSet
	if err := json.Unmarshal(data, &tms); err != nil {
		return nil, fmt.Errorf("failed to parse tile matrix set: %w", err)
	}
	return &tms, nil
}

// Load reads a JSON tile matrix set from a file.
func Load(path string) (*TileMatrixSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile matrix set: %w", err)
	}
	return Parse(data)
}

// LoadEmbedded returns one of the bundled tile matrix sets, e.g. WebMercatorQuad.
func LoadEmbedded(id string) (*TileMatrixSet, error) {
	data, err := embeddedTileMatrixSetsFS.ReadFile("tilematrixsets/" + id + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown tile matrix set %q: %w", id, err)
	}
	return Parse(data)
}
