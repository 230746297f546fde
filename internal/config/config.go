// Package config handles tracker configuration
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// OCR backends
const (
	OCRBackendTesseract = "tesseract"
	OCRBackendGRPC      = "grpc"
	OCRBackendStatic    = "static"
)

type Config struct {
	HTTPAddr       string
	AllowedOrigins []string
	LogLevel       string
	LogFormat      string

	// Capture region, relative to the target window's top-right corner.
	ProcessName    string
	CaptureXOffset int
	CaptureYOffset int
	CaptureWidth   int
	CaptureHeight  int

	OCRBackend      string
	OCRAddr         string
	OCRLanguage     string
	OCRTessdata     string
	OCRReplayFile   string
	OCRUpscale      int
	OCRHueTier      bool
	OCRHueTolerance float64

	SkipUnchangedFrames bool
	AcceptedInterval    time.Duration
	MissInterval        time.Duration
	TrackingEnabled     bool
	HistorySize         int

	RedisAddr   string
	RedisDB     int
	PositionTTL time.Duration
	TrailLength int
}

func Load() *Config {
	cfg := &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),

		ProcessName:    getEnv("PROCESS_NAME", "NewWorld"),
		CaptureXOffset: getEnvInt("CAPTURE_X_OFFSET", 265),
		CaptureYOffset: getEnvInt("CAPTURE_Y_OFFSET", 20),
		CaptureWidth:   getEnvInt("CAPTURE_WIDTH", 277),
		CaptureHeight:  getEnvInt("CAPTURE_HEIGHT", 16),

		OCRBackend:      getEnv("OCR_BACKEND", OCRBackendTesseract),
		OCRAddr:         getEnv("OCR_ADDR", "localhost:50051"),
		OCRLanguage:     getEnv("OCR_LANGUAGE", "complexeng"),
		OCRTessdata:     getEnv("OCR_TESSDATA", "./tessdata"),
		OCRReplayFile:   getEnv("OCR_REPLAY_FILE", ""),
		OCRUpscale:      getEnvInt("OCR_UPSCALE", 1),
		OCRHueTier:      getEnvBool("OCR_HUE_TIER", false),
		OCRHueTolerance: getEnvFloat("OCR_HUE_TOLERANCE", 10),

		SkipUnchangedFrames: getEnvBool("SKIP_UNCHANGED_FRAMES", false),
		AcceptedInterval:    getEnvDuration("ACCEPTED_INTERVAL", 300*time.Millisecond),
		MissInterval:        getEnvDuration("MISS_INTERVAL", 200*time.Millisecond),
		TrackingEnabled:     getEnvBool("TRACKING_ENABLED", true),
		HistorySize:         getEnvInt("HISTORY_SIZE", 600),

		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		PositionTTL: getEnvDuration("POSITION_TTL", 10*time.Minute),
		TrailLength: getEnvInt("TRAIL_LENGTH", 500),
	}
	cfg.Validate()
	return cfg
}

// Validate clamps out-of-range values to safe defaults.
func (c *Config) Validate() {
	if c.CaptureWidth <= 0 {
		c.CaptureWidth = 277
	}
	if c.CaptureHeight <= 0 {
		c.CaptureHeight = 16
	}
	if c.OCRUpscale < 1 {
		c.OCRUpscale = 1
	}
	if c.OCRUpscale > 8 {
		c.OCRUpscale = 8
	}
	if c.OCRHueTolerance <= 0 {
		c.OCRHueTolerance = 10
	}
	if c.AcceptedInterval < 10*time.Millisecond {
		c.AcceptedInterval = 300 * time.Millisecond
	}
	if c.MissInterval < 10*time.Millisecond {
		c.MissInterval = 200 * time.Millisecond
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 600
	}
	if c.TrailLength <= 0 {
		c.TrailLength = 500
	}
	switch c.OCRBackend {
	case OCRBackendTesseract, OCRBackendGRPC, OCRBackendStatic:
	default:
		c.OCRBackend = OCRBackendTesseract
	}
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
