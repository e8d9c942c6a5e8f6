package license

import (
	"os"
	"strconv"
	"time"
)

// defaultRequestTimeout bounds a single RemoteValidator HTTP attempt.
const defaultRequestTimeout = 30 * time.Second

// defaultBackgroundRefreshInterval matches the teacher's recheckInterval.
const defaultBackgroundRefreshInterval = 24 * time.Hour

// defaultStorageDir is used when TUISH_STORAGE_DIR is unset.
const defaultStorageDir = "./.tuish-license"

// Config carries everything a Client needs to validate one product's
// license. Load reads it from TUISH_* environment variables, the same
// getEnv(key, fallback) idiom the teacher's own server config uses.
type Config struct {
	ProductID                 string
	PublicKey                 string // hex or base64 SPKI, per internal/keyparser
	APIBaseURL                string
	APIKey                    string
	StorageDir                string
	Debug                     bool
	RequestTimeout            time.Duration
	BackgroundRefreshInterval time.Duration
}

// Load reads a Config from the environment, applying the same defaults a
// Community-tier deployment of the teacher's server would apply to its own
// Config.Load().
func Load() Config {
	return Config{
		ProductID:                 getEnv("TUISH_PRODUCT_ID", ""),
		PublicKey:                 getEnv("TUISH_PUBLIC_KEY", ""),
		APIBaseURL:                getEnv("TUISH_API_BASE_URL", ""),
		APIKey:                    getEnv("TUISH_API_KEY", ""),
		StorageDir:                getEnv("TUISH_STORAGE_DIR", defaultStorageDir),
		Debug:                     getEnvBool("TUISH_DEBUG", false),
		RequestTimeout:            defaultRequestTimeout,
		BackgroundRefreshInterval: defaultBackgroundRefreshInterval,
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
