// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable: strings for identifiers and secrets, ints
// for durations.
type Config struct {
	Env                  string // application environment (e.g. "dev", "prod")
	Port                 string // HTTP port to listen on
	DBUser               string // database username
	DBPass               string // database password (optional)
	DBHost               string // database host address
	DBPort               string // database port number
	DBName               string // database name
	DBMaxOpenConns       int    // connection pool: max open connections
	DBMaxIdleConns       int    // connection pool: max idle connections
	DBConnMaxLifetimeMin int    // connection pool: max connection lifetime, in minutes
	JWTSecret            string // secret shared with the auth service for verifying tokens
	RecheckTimeoutSec    int    // DB timeout for deferred occupancy rechecks, in seconds
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must(); missing values cause
// the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:                  must("APP_ENV"),
		Port:                 must("APP_PORT"),
		DBUser:               must("DB_USER"),
		DBPass:               os.Getenv("DB_PASS"), // empty allowed
		DBHost:               must("DB_HOST"),
		DBPort:               must("DB_PORT"),
		DBName:               must("DB_NAME"),
		DBMaxOpenConns:       optInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:       optInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetimeMin: optInt("DB_CONN_MAX_LIFETIME_MIN", 30),
		JWTSecret:            must("JWT_SECRET"),
		RecheckTimeoutSec:    optInt("OCCUPANCY_RECHECK_TIMEOUT_SEC", 30),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// optInt retrieves an optional integer environment variable, falling back
// to def when unset or unparsable.
func optInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
