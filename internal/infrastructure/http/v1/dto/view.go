package dto

type ViewRequest struct {
	Projection string   `json:"projection" validate:"omitempty,max=64"`
	Latitude   *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude  *float64 `json:"longitude" validate:"required"`
	ZoomLevel  *float64 `json:"zoomLevel" validate:"required,gte=0,lte=24"`
	Heading    float64  `json:"heading"`
	Width      *float64 `json:"width" validate:"omitempty,gte=0,lte=16384"`
	Height     *float64 `json:"height" validate:"omitempty,gte=0,lte=16384"`
}

type ViewResponse struct {
	Projection string          `json:"projection"`
	Latitude   float64         `json:"latitude"`
	Longitude  float64         `json:"longitude"`
	ZoomLevel  float64         `json:"zoomLevel"`
	Heading    float64         `json:"heading"`
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
	Generation uint64          `json:"generation"`
	Layers     []LayerResponse `json:"layers"`
}

type LayerResponse struct {
	Name     string           `json:"name"`
	Matrices []MatrixResponse `json:"matrices"`
	Tiles    []TileResponse   `json:"tiles"`
}

type MatrixResponse struct {
	ZoomLevel int `json:"zoomLevel"`
	XMin      int `json:"xMin"`
	YMin      int `json:"yMin"`
	XMax      int `json:"xMax"`
	YMax      int `json:"yMax"`
}

type TileResponse struct {
	ZoomLevel  int        `json:"z"`
	X          int        `json:"x"`
	Y          int        `json:"y"`
	Column     int        `json:"column"`
	State      string     `json:"state"`
	Rect       [4]float64 `json:"rect"`
	ViewBounds [4]float64 `json:"viewBounds"`
}
