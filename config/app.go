package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	appOnce   sync.Once
	appConfig *AppConfig
	appErr    error
)

type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Extraction ExtractionConfig `yaml:"extraction"`
	OCR        OCRConfig        `yaml:"ocr"`
	Redis      RedisConfig      `yaml:"redis"`
	Textract   TextractConfig   `yaml:"textract"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr"`
	MaxUploadSize int64  `yaml:"maxUploadSize"`
}

type LogConfig struct {
	Level       string   `yaml:"level"`
	Encoding    string   `yaml:"encoding"`
	OutputPaths []string `yaml:"outputPaths"`
}

type ExtractionConfig struct {
	RenderScale         float64  `yaml:"renderScale"`
	MinNativeTextLength int      `yaml:"minNativeTextLength"`
	Preprocessors       []string `yaml:"preprocessors"`
}

type OCRConfig struct {
	Engine      string `yaml:"engine"` // tesseract | textract
	Language    string `yaml:"language"`
	PageSegMode int    `yaml:"pageSegMode"`
}

type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	DB      int    `yaml:"db"`
}

// Default returns the configuration used when nothing is set
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:          ":8080",
			MaxUploadSize: 50 * 1024 * 1024, // 50MB
		},
		Log: LogConfig{
			Level:       "info",
			Encoding:    "json",
			OutputPaths: []string{"stdout", "logs/app.log"},
		},
		Extraction: ExtractionConfig{
			RenderScale:         2,
			MinNativeTextLength: 30,
		},
		OCR: OCRConfig{
			Engine:      "tesseract",
			Language:    "eng",
			PageSegMode: 3,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

// GetAppConfig loads the configuration once per process. The .env at the
// project root is read first, then CONFIG_FILE (yaml) if set, then the
// environment overrides individual keys.
func GetAppConfig() (*AppConfig, error) {
	appOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		rootDir := filepath.Dir(filepath.Dir(filename))
		envPath := filepath.Join(rootDir, ".env")

		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: .env file not found at %s, falling back to environment variables", envPath)
		}

		appConfig, appErr = Load(os.Getenv("CONFIG_FILE"))
	})
	return appConfig, appErr
}

// Load builds a configuration from defaults, an optional yaml file and the
// current environment.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Encoding, "LOG_ENCODING")
	if v := os.Getenv("LOG_OUTPUT_PATHS"); v != "" {
		cfg.Log.OutputPaths = splitList(v)
	}
	if v := os.Getenv("EXTRACTION_PREPROCESSORS"); v != "" {
		cfg.Extraction.Preprocessors = splitList(v)
	}
	setString(&cfg.OCR.Engine, "OCR_ENGINE")
	setString(&cfg.OCR.Language, "OCR_LANGUAGE")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")

	if err := setInt64(&cfg.Server.MaxUploadSize, "MAX_UPLOAD_SIZE"); err != nil {
		return err
	}
	if err := setInt(&cfg.Extraction.MinNativeTextLength, "MIN_NATIVE_TEXT_LENGTH"); err != nil {
		return err
	}
	if err := setInt(&cfg.OCR.PageSegMode, "OCR_PAGE_SEG_MODE"); err != nil {
		return err
	}
	if err := setInt(&cfg.Redis.DB, "REDIS_DB"); err != nil {
		return err
	}
	if v := os.Getenv("RENDER_SCALE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RENDER_SCALE %q: %w", v, err)
		}
		cfg.Extraction.RenderScale = f
	}
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_ENABLED %q: %w", v, err)
		}
		cfg.Redis.Enabled = b
	}

	applyTextractEnv(&cfg.Textract)
	return nil
}

// Validate rejects settings the pipeline cannot run with
func (c *AppConfig) Validate() error {
	if c.Extraction.RenderScale <= 0 {
		return fmt.Errorf("render scale must be positive, got %v", c.Extraction.RenderScale)
	}
	if c.Extraction.MinNativeTextLength < 0 {
		return fmt.Errorf("native text threshold must not be negative, got %d", c.Extraction.MinNativeTextLength)
	}
	switch c.OCR.Engine {
	case "tesseract", "textract":
	default:
		return fmt.Errorf("unknown ocr engine: %s", c.OCR.Engine)
	}
	if c.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
