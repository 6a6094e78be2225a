// Package config is environment-variable driven, in the shape of the
// teacher's global/config package: a struct literal plus small
// accessor functions, not a file-backed loader. There is no viper or
// equivalent here because the teacher's own runtime config isn't
// file-backed either — only its (dropped) nacos remote-config watcher
// was, and that's cross-node infrastructure this module doesn't carry.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port int

	DatabaseURL    string
	DBMinConns     int
	DBMaxConns     int
	DBQueryTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret         []byte
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	ResetTokenTTL     time.Duration
	HeartbeatTTL      time.Duration
	SocketIdleTimeout time.Duration

	MaxConnectionsPerUser int
	AllowedOrigins        []string

	Debug bool
}

// Load reads every setting from its environment variable, falling back
// to development-friendly defaults so the process starts cleanly with
// nothing set.
func Load() Config {
	return Config{
		Port:                  envInt("CHAT_PORT", 8080),
		DatabaseURL:           envString("CHAT_DATABASE_URL", "postgres://localhost:5432/chatserver"),
		DBMinConns:            envInt("CHAT_DB_MIN_CONNS", 5),
		DBMaxConns:            envInt("CHAT_DB_MAX_CONNS", 20),
		DBQueryTimeout:        envDuration("CHAT_DB_QUERY_TIMEOUT", 5*time.Second),
		RedisAddr:             envString("CHAT_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:         envString("CHAT_REDIS_PASSWORD", ""),
		RedisDB:               envInt("CHAT_REDIS_DB", 0),
		JWTSecret:             []byte(envString("CHAT_JWT_SECRET", "development-only-secret-change-me-32b")),
		AccessTokenTTL:        envDuration("CHAT_ACCESS_TTL", 15*time.Minute),
		RefreshTokenTTL:       envDuration("CHAT_REFRESH_TTL", 7*24*time.Hour),
		ResetTokenTTL:         envDuration("CHAT_RESET_TTL", time.Hour),
		HeartbeatTTL:          envDuration("CHAT_HEARTBEAT_TTL", 60*time.Second),
		SocketIdleTimeout:     envDuration("CHAT_SOCKET_IDLE_TIMEOUT", 90*time.Second),
		MaxConnectionsPerUser: envInt("CHAT_MAX_CONNECTIONS_PER_USER", 5),
		AllowedOrigins:        envStringList("CHAT_ALLOWED_ORIGINS"),
		Debug:                 envBool("CHAT_DEBUG", false),
	}
}

func envStringList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// envDuration reads key as a count of seconds, matching the "access TTL
// (900s)" style spec §6 lists its timeouts in.
func envDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
