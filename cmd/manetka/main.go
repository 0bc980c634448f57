package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/TheLegendOwner/manetka-miniapp/adapters/events"
	"github.com/TheLegendOwner/manetka-miniapp/adapters/rewards"
	"github.com/TheLegendOwner/manetka-miniapp/adapters/store"
	"github.com/TheLegendOwner/manetka-miniapp/adapters/tokenizer"
	"github.com/TheLegendOwner/manetka-miniapp/service"
	"github.com/TheLegendOwner/manetka-miniapp/transport/http"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if level, err := zerolog.ParseLevel(envOr("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN is not set, assertion verification will fail")
	}

	// Generate a new ECDSA key pair (you would normally load this from somewhere secure)
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to generate signing key")
	}

	// Parse Redis URL and create client
	opts, err := redis.ParseURL(envOr("REDIS_URL", "redis://localhost:6379/0"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse Redis URL")
	}

	redisClient := redis.NewClient(opts)

	// Initialize Watermill Redis publisher
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Redis publisher")
	}

	authService := service.NewAuthService(
		botToken,
		tokenizer.NewJWTTokenizer(signKey),
		store.NewRedisStore(redisClient),
		events.NewWatermillPublisher(publisher),
		rewards.NewClient(envOr("REWARDS_API_URL", "http://localhost:8081/api")),
		log,
	)

	// Setup Gin router
	router := http.SetupRouter(authService)

	// Start server
	addr := envOr("LISTEN_ADDR", ":9000")
	log.Info().Str("addr", addr).Msg("starting server")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
