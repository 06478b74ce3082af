package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"transcode-server/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration.
type Config struct {
	Port           string
	MetricsPort    string
	MetricsEnabled bool

	DatabaseDir  string
	DatabasePath string

	// Object storage
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	// Signed URL lifetime for GET /media responses
	SignedURLTTL time.Duration

	// MaxConcurrentJobs caps simultaneous encodes; 0 means size from CPU.
	MaxConcurrentJobs int

	// DefaultCRF is used when a transcode request omits crf.
	DefaultCRF int

	FFmpegPath  string
	FFprobePath string
}

// LoadConfig loads and validates configuration from environment variables.
func LoadConfig() (*Config, error) {
	logging.Info("------------------------------------------------------------")
	logging.Info("transcode-server %s (%s, built %s)", Version, Commit, BuildTime)
	logging.Info("------------------------------------------------------------")

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		MetricsPort:       getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
		DatabaseDir:       getEnv("DATABASE_DIR", "/database"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "auto"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3AccessKey:       getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:       getEnv("S3_SECRET_ACCESS_KEY", ""),
		MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 0),
		DefaultCRF:        getEnvInt("DEFAULT_CRF", 30),
		FFmpegPath:        getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:       getEnv("FFPROBE_PATH", "ffprobe"),
	}

	ttlStr := getEnv("SIGNED_URL_TTL", "15m")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		logging.Warn("  Invalid SIGNED_URL_TTL %q, using default: 15m", ttlStr)
		ttl = 15 * time.Minute
	}
	cfg.SignedURLTTL = ttl

	logging.Info("  PORT:                %s", cfg.Port)
	logging.Info("  METRICS_PORT:        %s", cfg.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", cfg.MetricsEnabled)
	logging.Info("  DATABASE_DIR:        %s", cfg.DatabaseDir)
	logging.Info("  S3_ENDPOINT:         %s", cfg.S3Endpoint)
	logging.Info("  S3_REGION:           %s", cfg.S3Region)
	logging.Info("  SIGNED_URL_TTL:      %s", cfg.SignedURLTTL)
	logging.Info("  DEFAULT_CRF:         %d", cfg.DefaultCRF)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	if err := validateDir(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("DATABASE_DIR: %w", err)
	}
	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, "media.db")

	checkBinary(cfg.FFmpegPath)
	checkBinary(cfg.FFprobePath)

	return cfg, nil
}

// validateDir ensures the directory exists and is writable.
func validateDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	probe := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	if err := os.Remove(probe); err != nil {
		logging.Warn("failed to remove write probe %s: %v", probe, err)
	}
	return nil
}

// checkBinary logs whether a required external binary is resolvable.
// A missing binary is not fatal at startup; video jobs will fail with a
// clear error instead.
func checkBinary(name string) {
	if path, err := exec.LookPath(name); err != nil {
		logging.Warn("  %s: not found in PATH, video jobs will fail", name)
	} else {
		logging.Info("  %s: %s", name, path)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// LogFatal logs a fatal startup error and exits.
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}
