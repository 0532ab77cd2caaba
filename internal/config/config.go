package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64

	// Storage for processed images and run bundles
	StorageRoot    string
	SaveInputs     bool
	AzureAccount   string
	AzureKey       string
	AzureContainer string

	// Remote listing-image fetching; empty list means any host
	ImageURLAllowedHosts []string

	// LLM judgment backend (OpenAI-compatible chat completions)
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeout     time.Duration

	// OCR
	OCREnabled   bool
	OCRLanguages string

	// Custom classifier artifact
	CustomModelDir string

	// Ensemble thresholds and ambiguous-zone blend weight
	ThresholdHigh float64
	ThresholdLow  float64
	BlendWeight   float64

	// Image normalization
	ImageMaxSide int
	JPEGQuality  int
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureConfigured reports whether the blob-backed run store should be used
// instead of the local directory store.
func (c *Config) AzureConfigured() bool {
	return c.AzureAccount != "" && c.AzureKey != "" && c.AzureContainer != ""
}

func LoadFromEnv() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 25*1024*1024), // 25MB, uploads include images

		StorageRoot:    getEnvOrDefault("STORAGE_ROOT", "./storage"),
		SaveInputs:     parseBoolOrDefault("SAVE_INPUTS", false),
		AzureAccount:   os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:       os.Getenv("AZURE_STORAGE_KEY"),
		AzureContainer: os.Getenv("AZURE_STORAGE_CONTAINER"),

		ImageURLAllowedHosts: parseListOrDefault("IMAGE_URL_ALLOWED_HOSTS", nil),

		LLMBaseURL:     getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:      os.Getenv("LLM_API_KEY"),
		LLMModel:       getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   int(parseIntOrDefault("LLM_MAX_TOKENS", 512)),
		LLMTemperature: parseFloatOrDefault("LLM_TEMPERATURE", 0.2),
		LLMTimeout:     parseDurationOrDefault("LLM_TIMEOUT", 45*time.Second),

		OCREnabled:   parseBoolOrDefault("OCR_ENABLED", false),
		OCRLanguages: getEnvOrDefault("OCR_LANGUAGES", "eng+kor"),

		CustomModelDir: getEnvOrDefault("CUSTOM_MODEL_DIR", "./models/custom_model_ckpt"),

		ThresholdHigh: parseFloatOrDefault("THRESHOLD_HIGH", 0.85),
		ThresholdLow:  parseFloatOrDefault("THRESHOLD_LOW", 0.20),
		BlendWeight:   parseFloatOrDefault("ENSEMBLE_BLEND_WEIGHT", 0.5),

		ImageMaxSide: int(parseIntOrDefault("IMAGE_MAX_SIDE", 1400)),
		JPEGQuality:  int(parseIntOrDefault("JPEG_QUALITY", 92)),
	}

	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.LLMTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, llm=%s)", cfg.RequestTimeout, cfg.LLMTimeout)
	}
	if cfg.ThresholdHigh < 0 || cfg.ThresholdHigh > 1 || cfg.ThresholdLow < 0 || cfg.ThresholdLow > 1 {
		return nil, fmt.Errorf("thresholds must be in [0,1] (got high=%v, low=%v)", cfg.ThresholdHigh, cfg.ThresholdLow)
	}
	if cfg.ThresholdLow >= cfg.ThresholdHigh {
		return nil, fmt.Errorf("THRESHOLD_LOW (%v) must be below THRESHOLD_HIGH (%v)", cfg.ThresholdLow, cfg.ThresholdHigh)
	}
	if cfg.BlendWeight < 0 || cfg.BlendWeight > 1 {
		return nil, fmt.Errorf("ENSEMBLE_BLEND_WEIGHT must be in [0,1] (got %v)", cfg.BlendWeight)
	}
	if cfg.ImageMaxSide <= 0 {
		return nil, fmt.Errorf("IMAGE_MAX_SIDE must be > 0 (got %d)", cfg.ImageMaxSide)
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return nil, fmt.Errorf("JPEG_QUALITY must be in [1,100] (got %d)", cfg.JPEGQuality)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.EqualFold(strings.TrimSpace(value), "true")
	}
	return defaultValue
}
