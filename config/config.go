package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config stores the application configuration.
type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// DataDir is the root of all per-project trees. ChunkDir defaults to DataDir/chunks.
	DataDir   string `envconfig:"DATA_DIR" default:"data"`
	ChunkDir  string `envconfig:"CHUNK_DIR" default:""`
	WebAppDir string `envconfig:"WEB_APP_DIR" default:""`

	// FFprobePath is derived from FFmpegPath when empty.
	FFmpegPath  string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath string `envconfig:"FFPROBE_PATH" default:""`
	StretchPath string `envconfig:"STRETCH_PATH" default:"rubberband"`

	ThumbHeight      int    `envconfig:"THUMB_HEIGHT" default:"90"`
	ThumbCols        int    `envconfig:"THUMB_COLS" default:"10"`
	ThumbRows        int    `envconfig:"THUMB_ROWS" default:"10"`
	ThumbScales      string `envconfig:"THUMB_SCALES" default:"x1:0.2,x2:0.5,x4:1,x8:2"`
	ThumbConcurrency int    `envconfig:"THUMB_CONCURRENCY" default:"4"`

	JobTTL          time.Duration `envconfig:"STRETCH_JOB_TTL" default:"5m"`
	AdmissionTTL    time.Duration `envconfig:"ADMISSION_TTL" default:"60s"`
	JobStore        string        `envconfig:"JOB_STORE" default:"memory"`
	MaxChunkMemory  int64         `envconfig:"MAX_CHUNK_MEMORY" default:"33554432"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"127.0.0.1"`
	RedisPort     string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// MinIO mirror for published exports; disabled when the endpoint is empty.
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT" default:""`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY" default:""`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY" default:""`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"vedit"`
	MinioRegion    string `envconfig:"MINIO_REGION" default:""`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile       string `envconfig:"LOG_FILE" default:""`
	LogMaxSize    int    `envconfig:"LOG_MAX_SIZE" default:"100"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"5"`
	LogMaxAge     int    `envconfig:"LOG_MAX_AGE" default:"30"`

	Scales []Scale `ignored:"true"`
}

// Scale is a named thumbnail sampling density.
type Scale struct {
	Key string
	FPS float64
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// RedisAddr returns host:port for the Redis client.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// Load loads configuration from environment variables (via .env file) and defaults.
func Load() (*Config, error) {
	// godotenv.Load() does not override variables that are already set.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.ChunkDir == "" {
		c.ChunkDir = filepath.Join(c.DataDir, "chunks")
	}
	if c.FFprobePath == "" {
		c.FFprobePath = strings.Replace(c.FFmpegPath, "ffmpeg", "ffprobe", 1)
	}
	if c.ThumbHeight <= 0 || c.ThumbCols <= 0 || c.ThumbRows <= 0 {
		return fmt.Errorf("thumbnail geometry must be positive: height=%d cols=%d rows=%d", c.ThumbHeight, c.ThumbCols, c.ThumbRows)
	}
	if c.ThumbConcurrency <= 0 {
		c.ThumbConcurrency = 1
	}
	switch c.JobStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown JOB_STORE %q", c.JobStore)
	}

	scales, err := ParseScales(c.ThumbScales)
	if err != nil {
		return err
	}
	c.Scales = scales
	return nil
}

// ParseScales parses "key:fps,key:fps" into scales ordered by ascending fps.
func ParseScales(raw string) ([]Scale, error) {
	var scales []Scale
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, fpsStr, ok := strings.Cut(part, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid thumbnail scale %q, expected key:fps", part)
		}
		fps, err := strconv.ParseFloat(strings.TrimSpace(fpsStr), 64)
		if err != nil || fps <= 0 {
			return nil, fmt.Errorf("invalid fps for thumbnail scale %q", part)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate thumbnail scale %q", key)
		}
		seen[key] = true
		scales = append(scales, Scale{Key: key, FPS: fps})
	}
	if len(scales) == 0 {
		return nil, fmt.Errorf("at least one thumbnail scale is required")
	}
	sort.SliceStable(scales, func(i, j int) bool { return scales[i].FPS < scales[j].FPS })
	return scales, nil
}
