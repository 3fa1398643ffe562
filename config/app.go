package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageGCS    = "gcs"
	StorageS3     = "s3"
	StorageMemory = "memory"

	RedactorFunction = "function"
	RedactorVertex   = "vertex"
	RedactorGemini   = "gemini"

	CacheMemory = "memory"
	CacheRedis  = "redis"

	DispatchInline = "inline"
	DispatchStream = "stream"
)

type AppConfig struct {
	Port           string
	LogLevel       string
	AllowedOrigins []string

	StorageDriver    string
	DocumentsBucket  string
	AvatarsBucket    string
	S3PublicBaseURL  string
	MemoryStorageURL string

	RedactorDriver    string
	RedactFunctionURL string
	RedactFunctionKey string
	RedactTimeout     time.Duration
	GCPProject        string
	GCPLocation       string
	GeminiAPIKey      string
	GeminiModel       string

	CacheDriver   string
	CacheCapacity int
	ProfileTTL    time.Duration
	RatingTTL     time.Duration

	DispatchMode string
	Workers      int
	JobTimeout   time.Duration
	AttemptLease time.Duration
	StreamMaxLen int64
	DrainTimeout time.Duration

	MongoDB         string
	NotificationTTL time.Duration
}

// Load reads the configuration from the environment; .env is loaded by main.
func Load() (*AppConfig, error) {
	return LoadFrom(os.Getenv)
}

func LoadFrom(getenv func(string) string) (*AppConfig, error) {
	e := env{get: getenv}
	cfg := &AppConfig{
		Port:           e.str("PORT", "8080"),
		LogLevel:       e.str("LOG_LEVEL", "info"),
		AllowedOrigins: e.list("WS_ALLOWED_ORIGINS"),

		StorageDriver:    strings.ToLower(e.str("STORAGE_DRIVER", StorageGCS)),
		DocumentsBucket:  e.str("DOCUMENTS_BUCKET", e.str("GCS_BUCKET", "")),
		AvatarsBucket:    e.str("AVATARS_BUCKET", ""),
		S3PublicBaseURL:  e.str("S3_PUBLIC_BASE_URL", ""),
		MemoryStorageURL: e.str("MEMORY_STORAGE_URL", "http://localhost:8080/files"),

		RedactorDriver:    strings.ToLower(e.str("REDACTOR_DRIVER", RedactorFunction)),
		RedactFunctionURL: e.str("REDACT_FUNCTION_URL", ""),
		RedactFunctionKey: e.str("REDACT_FUNCTION_KEY", ""),
		RedactTimeout:     e.duration("REDACT_TIMEOUT", 60*time.Second),
		GCPProject:        e.str("GCP_PROJECT_ID", ""),
		GCPLocation:       e.str("GCP_LOCATION", "us-central1"),
		GeminiAPIKey:      e.str("GEMINI_API_KEY", ""),
		GeminiModel:       e.str("GEMINI_MODEL", "gemini-2.0-flash"),

		CacheDriver:   strings.ToLower(e.str("CACHE_DRIVER", CacheRedis)),
		CacheCapacity: e.int("CACHE_CAPACITY", 1024),
		ProfileTTL:    e.duration("PROFILE_CACHE_TTL", 5*time.Minute),
		RatingTTL:     e.duration("RATING_CACHE_TTL", 10*time.Minute),

		DispatchMode: strings.ToLower(e.str("DISPATCH_MODE", DispatchStream)),
		Workers:      e.int("ANONYMIZE_WORKERS", 2),
		JobTimeout:   e.duration("ANONYMIZE_TIMEOUT", 2*time.Minute),
		AttemptLease: e.duration("CV_ATTEMPT_LEASE", 5*time.Minute),
		StreamMaxLen: int64(e.int("ANONYMIZE_STREAM_MAXLEN", 10000)),
		DrainTimeout: e.duration("SHUTDOWN_DRAIN_TIMEOUT", 25*time.Second),

		MongoDB:         e.str("MONGO_DB", "recruitlink"),
		NotificationTTL: e.duration("NOTIFICATION_TTL", 30*24*time.Hour),
	}
	if len(e.errs) > 0 {
		return nil, errors.Join(e.errs...)
	}
	return cfg, cfg.validate()
}

func (c *AppConfig) validate() error {
	var errs []error
	switch c.StorageDriver {
	case StorageGCS, StorageS3:
		if c.DocumentsBucket == "" {
			errs = append(errs, errors.New("DOCUMENTS_BUCKET is not set"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if c.AvatarsBucket == "" {
		c.AvatarsBucket = c.DocumentsBucket
	}

	switch c.RedactorDriver {
	case RedactorFunction:
		if c.RedactFunctionURL == "" {
			errs = append(errs, errors.New("REDACT_FUNCTION_URL is not set"))
		}
	case RedactorVertex:
		if c.GCPProject == "" {
			errs = append(errs, errors.New("GCP_PROJECT_ID is not set"))
		}
	case RedactorGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown REDACTOR_DRIVER %q", c.RedactorDriver))
	}

	if c.CacheDriver != CacheMemory && c.CacheDriver != CacheRedis {
		errs = append(errs, fmt.Errorf("unknown CACHE_DRIVER %q", c.CacheDriver))
	}
	if c.DispatchMode != DispatchInline && c.DispatchMode != DispatchStream {
		errs = append(errs, fmt.Errorf("unknown DISPATCH_MODE %q", c.DispatchMode))
	}
	return errors.Join(errs...)
}

type env struct {
	get  func(string) string
	errs []error
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (e *env) list(key string) []string {
	var out []string
	for _, p := range strings.Split(e.get(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
