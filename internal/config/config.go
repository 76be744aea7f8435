package config // package config loads application configuration from environment variables

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Required variables are enforced by must()
// and missing values abort startup.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret string // secret used to sign session tokens

	SpotifyClientID     string // Spotify application client id
	SpotifyClientSecret string // Spotify application client secret
	SpotifyRedirectURI  string // registered OAuth callback URL
	SpotifyAccountsURL  string // override for accounts.spotify.com (tests)
	SpotifyAPIURL       string // override for api.spotify.com (tests)

	FrontendURL string // SPA origin the callback redirects back to

	StateTTL time.Duration // lifetime of a pending OAuth state parameter
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		Env:                 getenv("APP_ENV", "dev"),
		Port:                must("APP_PORT"),
		DBUser:              must("DB_USER"),
		DBPass:              os.Getenv("DB_PASS"),
		DBHost:              must("DB_HOST"),
		DBPort:              must("DB_PORT"),
		DBName:              must("DB_NAME"),
		JWTSecret:           must("JWT_SECRET"),
		SpotifyClientID:     must("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: must("SPOTIFY_CLIENT_SECRET"),
		SpotifyRedirectURI:  must("SPOTIFY_REDIRECT_URI"),
		SpotifyAccountsURL:  os.Getenv("SPOTIFY_ACCOUNTS_URL"),
		SpotifyAPIURL:       os.Getenv("SPOTIFY_API_URL"),
		FrontendURL:         getenv("FRONTEND_URL", "http://127.0.0.1:3001"),
		StateTTL:            time.Duration(envInt("OAUTH_STATE_TTL_MIN", 10)) * time.Minute,
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, startup is aborted.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatal().Msgf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatal().Msgf("invalid int for %s: %q", key, v)
	}
	return n
}
