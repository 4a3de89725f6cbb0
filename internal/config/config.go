package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable. Strings for identifiers and secrets, ints for
// durations and costs.
type Config struct {
	Env            string // application environment ("dev", "test" or "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	AccessSecret   string // secret used to sign access tokens
	RefreshSecret  string // secret used to sign refresh tokens
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	CheckinTTLMin  int    // default QR check-in token time-to-live in minutes
	AMQPURL        string // RabbitMQ connection URL (optional; notifications disabled when empty)
	CookieSecure   bool   // mark the refresh cookie Secure (on by default in prod)
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values cause
// the program to exit with a fatal log message. The two JWT secrets are
// special-cased: in prod they are hard requirements with no fallback, while in
// dev/test a placeholder is substituted so the server can run locally.
func Load() Config {
	env := must("APP_ENV")
	return Config{
		Env:            env,
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		AccessSecret:   secret(env, "JWT_ACCESS_SECRET"),
		RefreshSecret:  secret(env, "JWT_REFRESH_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 10),
		CheckinTTLMin:  envInt("CHECKIN_TOKEN_TTL_MIN", 5),
		AMQPURL:        os.Getenv("RABBITMQ_URL"),
		CookieSecure:   envBool("COOKIE_SECURE", env == "prod"),
	}
}

// secret resolves a signing secret. Production deployments must supply an
// explicit value; a silent fallback there would leave every deployment on a
// guessable shared key, so the process refuses to start instead. Outside prod
// a development-only placeholder is substituted and announced.
func secret(env, key string) string {
	v := os.Getenv(key)
	if v != "" {
		return v
	}
	if env == "prod" {
		log.Fatalf("missing required env var: %s (no fallback in prod)", key)
	}
	log.Printf("WARNING: %s not set, using development placeholder", key)
	return "dev-" + key
}

// must retrieves the value of a required environment variable. If the variable
// is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// envInt reads an integer environment variable, returning def when unset.
// A malformed value is a fatal configuration error.
func envInt(key string, def int) int {
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

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return def
}
