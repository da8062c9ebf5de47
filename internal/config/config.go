// Package config centralizes environment configuration. It mirrors the
// teacher's cmd/engine/main.go pattern (requireEnv/getEnvOrDefault) and
// the original Python codebase's backend/config.py (.env loading via
// python-dotenv, now github.com/joho/godotenv).
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is assembled once at process startup and passed by value or
// pointer to every component that needs it.
type Config struct {
	DatabaseURL string

	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string
	DiscordBotToken     string
	DiscordGuildID      string

	LLMAPIKey string
	LLMModel  string

	RepoPlatformToken string

	ResearchCacheDir string
	ResearchCacheTTL time.Duration

	VoteMinAmount      float64
	VoteWeightMultiplier float64
	VoteWeightCap      float64
	VoteCap            float64

	PrizeWalletAddress string
	GovernanceMint     string
	PrizeTarget        float64

	HoldersManifestPath string
	HeliusAPIKey        string

	ReserveStableMint string
	AssetIndexURL     string
	WalletStreamURL   string

	SubmissionDeadline *time.Time

	WebhookSecret string

	TestAuthToken string
	Environment   string

	RateLimitEnabled bool

	SessionSigningKey string

	Port      string
	UploadDir string
}

// Load reads a .env file if present (never fatal if missing — local dev
// convenience only, exactly like the teacher's ".env.example" comment)
// and assembles Config from the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded (%v); relying on process environment", err)
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURI:  os.Getenv("DISCORD_REDIRECT_URI"),
		DiscordBotToken:     os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordGuildID:      os.Getenv("DISCORD_GUILD_ID"),

		LLMAPIKey: os.Getenv("LLM_API_KEY"),
		LLMModel:  getEnvOrDefault("LLM_MODEL", "openrouter/auto"),

		RepoPlatformToken: os.Getenv("GITHUB_TOKEN"),

		ResearchCacheDir: getEnvOrDefault("RESEARCH_CACHE_DIR", ".cache/research"),
		ResearchCacheTTL: time.Duration(getEnvIntOrDefault("RESEARCH_CACHE_EXPIRY_HOURS", 24)) * time.Hour,

		VoteMinAmount:        getEnvFloatOrDefault("MIN_VOTE_AMOUNT", 1),
		VoteWeightMultiplier: getEnvFloatOrDefault("VOTE_WEIGHT_MULTIPLIER", 3),
		VoteWeightCap:        getEnvFloatOrDefault("VOTE_WEIGHT_CAP", 10),
		VoteCap:              getEnvFloatOrDefault("VOTE_CAP", 100),

		PrizeWalletAddress: os.Getenv("PRIZE_WALLET_ADDRESS"),
		GovernanceMint:     os.Getenv("GOVERNANCE_TOKEN_MINT"),
		PrizeTarget:         getEnvFloatOrDefault("PRIZE_TARGET", 0),

		HoldersManifestPath: getEnvOrDefault("HOLDERS_CSV_PATH", ""),
		HeliusAPIKey:        os.Getenv("HELIUS_API_KEY"),

		ReserveStableMint: os.Getenv("RESERVE_STABLE_MINT"),
		AssetIndexURL:     getEnvOrDefault("ASSET_INDEX_URL", "https://api.helius.xyz/v0"),
		WalletStreamURL:   os.Getenv("WALLET_STREAM_URL"),

		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),

		TestAuthToken: os.Getenv("TEST_AUTH_TOKEN"),
		Environment:   getEnvOrDefault("ENVIRONMENT", "development"),

		RateLimitEnabled: getEnvBoolOrDefault("RATE_LIMIT_ENABLED", true),

		SessionSigningKey: os.Getenv("SESSION_SIGNING_KEY"),

		Port:      getEnvOrDefault("PORT", "5339"),
		UploadDir: getEnvOrDefault("UPLOAD_DIR", "uploads"),
	}

	if raw := os.Getenv("SUBMISSION_DEADLINE"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			cfg.SubmissionDeadline = &t
		} else {
			log.Printf("config: SUBMISSION_DEADLINE %q is not RFC3339, ignoring: %v", raw, err)
		}
	}

	return cfg
}

// IsProduction reports whether this process should enforce production
// security behavior (no test-auth-token bypass, no test webhook route).
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// WindowClosed reports whether the submission deadline has passed.
func (c *Config) WindowClosed(now time.Time) bool {
	return c.SubmissionDeadline != nil && !now.Before(*c.SubmissionDeadline)
}

// RequireEnv reads a required environment variable and exits if unset,
// exactly mirroring the teacher's cmd/engine/main.go helper.
func RequireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set.", key)
	}
	return val
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBoolOrDefault(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}
