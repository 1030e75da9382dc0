package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"

	"github.com/layer-3/garuda/adapters/custodial"
	"github.com/layer-3/garuda/adapters/events"
	"github.com/layer-3/garuda/adapters/identity"
	"github.com/layer-3/garuda/adapters/store"
	"github.com/layer-3/garuda/adapters/tokenizer"
	"github.com/layer-3/garuda/service"
	transport "github.com/layer-3/garuda/transport/http"
)

type config struct {
	serverKeypair     *keypair.Full
	networkPassphrase string
	webAuthDomain     string
	homeDomain        string
	emailDomain       string
	challengeTTL      time.Duration
	sessionSecret     string
	custodialBaseURL  string
	custodialAPIKey   string
	redisURL          string
	databaseURL       string
	listenAddr        string
	secureCookies     bool
}

// loadConfig reads the environment and validates it eagerly: a missing key
// or domain is fatal at startup, never deferred to request time.
func loadConfig() (*config, error) {
	secret := os.Getenv("STELLAR_SERVER_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("STELLAR_SERVER_SECRET is required")
	}
	kp, err := keypair.ParseFull(secret)
	if err != nil {
		return nil, fmt.Errorf("STELLAR_SERVER_SECRET is not a valid secret seed: %w", err)
	}

	var passphrase string
	switch net := os.Getenv("STELLAR_NETWORK"); net {
	case "PUBLIC":
		passphrase = network.PublicNetworkPassphrase
	case "TESTNET", "":
		passphrase = network.TestNetworkPassphrase
	default:
		// Any other value is treated as a custom network passphrase.
		passphrase = net
	}

	webAuthDomain := os.Getenv("WEB_AUTH_DOMAIN")
	homeDomain := os.Getenv("HOME_DOMAIN")
	if webAuthDomain == "" || homeDomain == "" {
		return nil, fmt.Errorf("WEB_AUTH_DOMAIN and HOME_DOMAIN are required")
	}

	emailDomain := os.Getenv("EMAIL_DOMAIN_NAME")
	if emailDomain == "" {
		return nil, fmt.Errorf("EMAIL_DOMAIN_NAME is required to generate fallback emails")
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	ttl := service.DefaultChallengeTTL
	if raw := os.Getenv("CHALLENGE_TTL"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("CHALLENGE_TTL must be a number of seconds: %w", err)
		}
		ttl = time.Duration(seconds) * time.Second
	}

	custodialBaseURL := os.Getenv("CUSTODIAL_BASE_URL")
	custodialAPIKey := os.Getenv("CUSTODIAL_API_KEY")
	if custodialBaseURL != "" && custodialAPIKey == "" {
		return nil, fmt.Errorf("CUSTODIAL_API_KEY is required when CUSTODIAL_BASE_URL is set")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":9000"
	}

	return &config{
		serverKeypair:     kp,
		networkPassphrase: passphrase,
		webAuthDomain:     webAuthDomain,
		homeDomain:        homeDomain,
		emailDomain:       emailDomain,
		challengeTTL:      ttl,
		sessionSecret:     sessionSecret,
		custodialBaseURL:  custodialBaseURL,
		custodialAPIKey:   custodialAPIKey,
		redisURL:          redisURL,
		databaseURL:       databaseURL,
		listenAddr:        listenAddr,
		secureCookies:     os.Getenv("INSECURE_COOKIES") != "1",
	}, nil
}

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	opts, err := redis.ParseURL(cfg.redisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse Redis URL")
	}
	redisClient := redis.NewClient(opts)

	identityStore, err := identity.NewPostgresStore(cfg.databaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open identity store")
	}
	defer identityStore.Close()

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Redis publisher")
	}

	nonceStore := store.NewRedisStore(redisClient)
	eventPub := events.NewWatermillPublisher(publisher)
	cookieTokenizer := tokenizer.NewCookieTokenizer([]byte(cfg.sessionSecret))

	authService := service.NewAuthService(service.Config{
		ServerKeypair:     cfg.serverKeypair,
		NetworkPassphrase: cfg.networkPassphrase,
		WebAuthDomain:     cfg.webAuthDomain,
		HomeDomain:        cfg.homeDomain,
		EmailDomain:       cfg.emailDomain,
		ChallengeTTL:      cfg.challengeTTL,
	}, nonceStore, identityStore, eventPub, log)

	var custodialService *service.CustodialService
	if cfg.custodialBaseURL != "" {
		custodialClient, err := custodial.NewClient(cfg.custodialBaseURL, cfg.custodialAPIKey, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create custodial client")
		}
		custodialService = service.NewCustodialService(identityStore, custodialClient, log)
	} else {
		custodialService = service.NewCustodialService(identityStore, nil, log)
		log.Warn().Msg("custodial signing disabled: CUSTODIAL_BASE_URL not set")
	}

	router := transport.SetupRouter(authService, custodialService, cookieTokenizer, identityStore, cfg.secureCookies)

	log.Info().
		Str("addr", cfg.listenAddr).
		Str("server_account", cfg.serverKeypair.Address()).
		Str("web_auth_domain", cfg.webAuthDomain).
		Msg("starting garuda")

	if err := router.Run(cfg.listenAddr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
