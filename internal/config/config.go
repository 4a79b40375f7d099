package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/marksync/internal/domain"
)

const envPrefix = "MARKSYNC_"

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout for non-sync routes
	RemoteTimeout   time.Duration // HTTP timeout for each WebDAV call

	LogLevel      string // "debug" | "info" | "warn" | "error"
	PrettyLog     bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile       string // optional rotated JSON log file
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Local store. Empty RedisAddr keeps everything in memory.
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password when RedisAddr is set
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Remote store seed, applied when the local store has no remote config yet.
	RemoteConfigFile string               // optional YAML file
	RemoteSeed       *domain.RemoteConfig // nil when neither file nor env set anything
	SyncIdlePoll     time.Duration        // config re-check period while no interval is set

	// Device registry
	SkipAuthIfUnnamed bool   // unnamed devices skip the roster check
	DeviceName        string // overrides the platform-derived name

	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers
	CORSOrigins  []string // browser origins allowed to call the API

	SyncRateBurst  int // remote-touching requests one client may burst
	SyncRatePerMin int // remote-touching requests one client regains per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("REQUEST_TIMEOUT", 5*time.Second),
		RemoteTimeout:   mustDuration("REMOTE_TIMEOUT", 30*time.Second),

		// Logging
		LogLevel:      getenv("LOG_LEVEL", "info"),
		PrettyLog:     mustBool("PRETTY_LOG", true),
		LogFile:       getenv("LOG_FILE", ""),
		LogMaxSizeMB:  getenvInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: getenvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getenvInt("LOG_MAX_AGE_DAYS", 28),

		// Redis settings
		RedisAddr:             getenv("REDIS_ADDR", ""),
		RedisUser:             getenv("REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("REDIS_PASSWORD", ""),
		RedisDB:               mustInt("REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Remote seed
		RemoteConfigFile: getenv("REMOTE_CONFIG_FILE", ""),
		SyncIdlePoll:     mustDuration("SYNC_IDLE_POLL", time.Minute),

		// Device registry
		SkipAuthIfUnnamed: mustBool("SKIP_AUTH_IF_UNNAMED", true),
		DeviceName:        getenv("DEVICE_NAME", ""),

		// Access restrictions
		AllowedCIDRS: splitAndTrim(getenv("ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("TRUST_PROXY", false),
		CORSOrigins:  splitAndTrim(getenv("CORS_ORIGINS", "")),

		SyncRateBurst:  getenvInt("SYNC_RATE_BURST", 10),
		SyncRatePerMin: getenvInt("SYNC_RATE_PER_MIN", 30),
	}

	if cfg.RedisAddr != "" && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: MARKSYNC_REDIS_PASSWORD is required when MARKSYNC_REDIS_PASSWORD_REQUIRED=true")
	}

	seed, err := loadRemoteSeed(cfg.RemoteConfigFile)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}
	cfg.RemoteSeed = seed

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RemoteSeed != nil {
			redacted := cfg.RemoteSeed.Redacted()
			cfgCopy.RemoteSeed = &redacted
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// loadRemoteSeed reads the optional YAML file, then lets individual env
// vars override its fields.
func loadRemoteSeed(path string) (*domain.RemoteConfig, error) {
	var seed domain.RemoteConfig
	set := false

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read remote config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return nil, fmt.Errorf("failed to parse remote config file %s: %w", path, err)
		}
		set = true
	}

	for key, dst := range map[string]*string{
		"SERVER_URL":  &seed.ServerURL,
		"USERNAME":    &seed.Username,
		"PASSWORD":    &seed.Password,
		"REMOTE_PATH": &seed.Path,
	} {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
			set = true
		}
	}
	if os.Getenv(envPrefix+"SYNC_INTERVAL") != "" {
		seed.SyncInterval = mustInt("SYNC_INTERVAL", 0)
		set = true
	}

	if !set {
		return nil, nil
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(envPrefix + key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustInt(key string, def int) int {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s%s: %s", envPrefix, key, v))
	}
	return i
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(envPrefix + key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
