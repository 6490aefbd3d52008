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
		Upstream  Upstream  `envPrefix:"UPSTREAM_"`
		Precache  Precache  `envPrefix:"PRECACHE_"`
	}

	HTTP struct {
		Server Server `envPrefix:"SERVER_"`
	}

	Server struct {
		Port         string        `env:"PORT,required"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"0s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level  string `env:"LEVEL" envDefault:"info"`
		Format string `env:"FORMAT" envDefault:"console"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"guide-helper-offline"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"otel-collector.observability.svc.cluster.local:4317"`
	}

	Cache struct {
		Version       string `env:"VERSION" envDefault:"offline-map-cache-v3"`
		Backend       string `env:"BACKEND" envDefault:"sqlite"`
		SQLitePath    string `env:"SQLITE_PATH" envDefault:"offline-cache.db"`
		FilesystemDir string `env:"FILESYSTEM_DIR" envDefault:"offline-cache"`
	}

	Redis struct {
		Addr     string `env:"ADDR" envDefault:"localhost:6379"`
		Password string `env:"PASSWORD" envDefault:""`
		DB       int    `env:"DB" envDefault:"0"`
		Prefix   string `env:"PREFIX" envDefault:"offline"`
	}

	Upstream struct {
		TileServerURL string        `env:"TILE_SERVER_URL" envDefault:"https://tile.openstreetmap.org"`
		AppURL        string        `env:"APP_URL" envDefault:"http://localhost:5173"`
		UserAgent     string        `env:"USER_AGENT" envDefault:"GuideHelper/1.0 (https://github.com/jaennil/guide_helper)"`
		Referer       string        `env:"REFERER" envDefault:"https://guidehelper.ru.tuna.am"`
		Timeout       time.Duration `env:"TIMEOUT" envDefault:"30s"`
	}

	Precache struct {
		Enabled       bool          `env:"ENABLED" envDefault:"true"`
		StaticAssets  []string      `env:"STATIC_ASSETS" envSeparator:"," envDefault:"/,/index.html,/manifest.json,/vite.svg"`
		FallbackPage  string        `env:"FALLBACK_PAGE" envDefault:"/index.html"`
		RegionsFile   string        `env:"REGIONS_FILE" envDefault:""`
		PauseEvery    int           `env:"PAUSE_EVERY" envDefault:"50"`
		Pause         time.Duration `env:"PAUSE" envDefault:"100ms"`
		ProgressEvery int           `env:"PROGRESS_EVERY" envDefault:"10"`
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

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.Redis.Password != "" {
		c.Redis.Password = "[redacted]"
	}
	return c
}
