package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Cache     Cache     `envPrefix:"CACHE_"`
		Redis     Redis     `envPrefix:"REDIS_"`
		Loader    Loader    `envPrefix:"LOADER_"`
		Layer     Layer     `envPrefix:"LAYER_"`
		Map       Map       `envPrefix:"MAP_"`
	}

	HTTP struct {
		Server Server `envPrefix:"SERVER_"`
	}

	Server struct {
		Port         string        `env:"PORT" envDefault:"8080"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level string `env:"LEVEL" envDefault:"info"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"guide-helper-mapcore"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"otel-collector.observability.svc.cluster.local:4317"`
		Insecure       bool   `env:"INSECURE" envDefault:"true"`
	}

	// Cache selects the persistent tile store: file, sqlite, redis, memory or none.
	Cache struct {
		Type           string `env:"TYPE" envDefault:"file"`
		Dir            string `env:"DIR" envDefault:"./tile-cache"`
		SQLitePath     string `env:"SQLITE_PATH" envDefault:"./tile-cache.db"`
		MemoryMaxItems int64  `env:"MEMORY_MAX_ITEMS" envDefault:"10000"`
		// Retention and CleanupInterval drive the periodic purge of the sqlite store.
		// A zero interval disables it.
		Retention       time.Duration `env:"RETENTION" envDefault:"168h"`
		CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
	}

	Redis struct {
		Addr     string `env:"ADDR" envDefault:"localhost:6379"`
		Password string `env:"PASSWORD" envDefault:""`
		DB       int    `env:"DB" envDefault:"0"`
		// Retention keeps expired entries around so they can still be shown as placeholders.
		Retention time.Duration `env:"RETENTION" envDefault:"168h"`
	}

	Loader struct {
		MaxWorkers             int64         `env:"MAX_WORKERS" envDefault:"4"`
		MinCacheExpiration     time.Duration `env:"MIN_CACHE_EXPIRATION" envDefault:"1h"`
		DefaultCacheExpiration time.Duration `env:"DEFAULT_CACHE_EXPIRATION" envDefault:"24h"`
		HTTPTimeout            time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
		UserAgent              string        `env:"USER_AGENT" envDefault:"GuideHelper/1.0 (https://github.com/jaennil/guide_helper)"`
		StalePlaceholder       bool          `env:"STALE_PLACEHOLDER" envDefault:"false"`
	}

	Layer struct {
		Name                        string        `env:"NAME" envDefault:"osm"`
		URLTemplate                 string        `env:"URL_TEMPLATE" envDefault:"https://tile.openstreetmap.org/{z}/{x}/{y}.png"`
		TileMatrixSet               string        `env:"TILE_MATRIX_SET"`
		MaxBackgroundLevels         int           `env:"MAX_BACKGROUND_LEVELS" envDefault:"8"`
		UpdateInterval              time.Duration `env:"UPDATE_INTERVAL" envDefault:"200ms"`
		UpdateWhileViewportChanging bool          `env:"UPDATE_WHILE_VIEWPORT_CHANGING" envDefault:"false"`
		MinZoom                     int           `env:"MIN_ZOOM" envDefault:"0"`
		MaxZoom                     int           `env:"MAX_ZOOM" envDefault:"19"`
	}

	Map struct {
		Projection      string  `env:"PROJECTION" envDefault:"EPSG:3857"`
		CenterLatitude  float64 `env:"CENTER_LATITUDE" envDefault:"55.7558"`
		CenterLongitude float64 `env:"CENTER_LONGITUDE" envDefault:"37.6173"`
		ZoomLevel       float64 `env:"ZOOM_LEVEL" envDefault:"10"`
		Heading         float64 `env:"HEADING" envDefault:"0"`
		Width           float64 `env:"WIDTH" envDefault:"1024"`
		Height          float64 `env:"HEIGHT" envDefault:"768"`
		MinZoom         float64 `env:"MIN_ZOOM" envDefault:"1"`
		MaxZoom         float64 `env:"MAX_ZOOM" envDefault:"21"`
	}
)

func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
