package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The value is built once at process start and
// passed into every component constructor; business logic never reads the
// environment directly.
type Config struct {
	Env       string // application environment ("development", "staging", "production")
	Port      string // HTTP port to listen on
	SiteTitle string // site identifier used as JWT issuer and audience

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	// Two independent secret pairs exist: {access, refresh} x {standard,
	// admin}.  A token signed with one pair never verifies against another,
	// which is what separates admin sessions from standard ones.
	AccessTokenSecret       string // access token secret for standard users
	RefreshTokenSecret      string // refresh token secret for standard users
	AdminAccessTokenSecret  string // access token secret for admin users
	AdminRefreshTokenSecret string // refresh token secret for admin users

	AccessTTLDays  int // access token time-to-live in days
	RefreshTTLDays int // refresh token time-to-live in days
	BcryptCost     int // bcrypt cost for password hashing

	EmailVerificationSecret string // secret for email verification tokens
	EmailVerificationTTLMin int    // verification token time-to-live in minutes

	AdminEmail    string // seeded admin account email
	AdminPassword string // seeded admin account password

	BaseURL string // public base URL used when building verification links
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Tunables with safe
// defaults use the getenv helpers instead.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),                      // environment (development/staging/production)
		Port:      must("APP_PORT"),                     // port to bind the HTTP server
		SiteTitle: getenv("SITE_TITLE", "auth-service"), // issuer/audience identifier

		DBUser: must("DB_USER"),      // database user
		DBPass: os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost: must("DB_HOST"),      // database host
		DBPort: must("DB_PORT"),      // database port
		DBName: must("DB_NAME"),      // database name

		AccessTokenSecret:       must("ACCESS_TOKEN_SECRET"),        // standard access secret
		RefreshTokenSecret:      must("REFRESH_TOKEN_SECRET"),       // standard refresh secret
		AdminAccessTokenSecret:  must("ADMIN_ACCESS_TOKEN_SECRET"),  // admin access secret
		AdminRefreshTokenSecret: must("ADMIN_REFRESH_TOKEN_SECRET"), // admin refresh secret

		AccessTTLDays:  atoiDefault("JWT_ACCESS_EXPIRATION_DAYS", 2),   // TTL for access tokens in days
		RefreshTTLDays: atoiDefault("JWT_REFRESH_EXPIRATION_DAYS", 30), // TTL for refresh tokens in days
		BcryptCost:     atoiDefault("BCRYPT_COST", 11),                 // bcrypt cost factor

		EmailVerificationSecret: getenv("EMAIL_VERIFICATION_TOKEN_SECRET", "email-verification-secret"),
		EmailVerificationTTLMin: atoiDefault("EMAIL_VERIFICATION_TOKEN_EXPIRES_IN_MINUTES", 60),

		AdminEmail:    must("ADMIN_EMAIL"),    // seeded admin email
		AdminPassword: must("ADMIN_PASSWORD"), // seeded admin password

		BaseURL: getenv("APP_BASE_URL", "http://localhost:3000"),
	}
}

// IsDevelopment reports whether the app runs in development mode.  Error
// responses attach stack detail only in this mode.
func (c Config) IsDevelopment() bool { return c.Env == "development" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// getenv reads an optional environment variable, falling back to def when
// it is unset or empty.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// atoiDefault reads an optional integer environment variable, falling back
// to def when it is unset.  An unparsable value is fatal so that a typoed
// TTL never silently becomes zero.
func atoiDefault(key string, def int) int {
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
