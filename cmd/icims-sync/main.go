// Command icims-sync downloads resumes and offer letters from iCIMS to local directories.
//
// Usage:
//
//	icims-sync [flags] resumes
//	icims-sync [flags] offer-letters [--regen]
//
// Settings come from the environment or a .env file (see pkg/config); flags override them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/icims-client/pkg/auth"
	"github.com/Sternrassler/icims-client/pkg/cache"
	"github.com/Sternrassler/icims-client/pkg/client"
	"github.com/Sternrassler/icims-client/pkg/config"
	"github.com/Sternrassler/icims-client/pkg/documents"
	"github.com/Sternrassler/icims-client/pkg/logging"
	"github.com/Sternrassler/icims-client/pkg/metrics"
	"github.com/Sternrassler/icims-client/pkg/offers"
	"github.com/Sternrassler/icims-client/pkg/people"
	"github.com/Sternrassler/icims-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

const (
	cmdResumes      = "resumes"
	cmdOfferLetters = "offer-letters"

	userAgent = "icims-sync/0.1.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

type options struct {
	command     string
	envFile     string
	secretsDir  string
	regen       bool
	pretty      bool
	metricsAddr string
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	v := config.NewViper()

	fs := pflag.NewFlagSet("icims-sync", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "dotenv file with settings")
	fs.StringVar(&opts.secretsDir, "secrets-dir", config.DefaultSecretsDir, "directory holding client_secret")
	fs.BoolVar(&opts.regen, "regen", false, "regenerate offer letters that cannot be fetched")
	fs.BoolVar(&opts.pretty, "pretty", false, "human-readable logs")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	fs.String("resume-dir", "", "resume output directory (RESUME_DIR)")
	fs.String("offer-letter-dir", "", "offer letter output directory (OFFER_LETTER_DIR)")
	fs.Duration("request-delay", 0, "delay between document requests (REQUEST_DELAY)")
	fs.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	fs.String("redis-url", "", "share tokens and rate limit state through Redis (REDIS_URL)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: icims-sync [flags] %s|%s\n\nFlags:\n", cmdResumes, cmdOfferLetters)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	for flag, key := range map[string]string{
		"resume-dir":       config.KeyResumeDir,
		"offer-letter-dir": config.KeyOfferLetterDir,
		"request-delay":    config.KeyRequestDelay,
		"log-level":        config.KeyLogLevel,
		"redis-url":        config.KeyRedisURL,
	} {
		if f := fs.Lookup(flag); f != nil && f.Changed {
			_ = v.BindPFlag(key, f)
		}
	}

	if fs.NArg() != 1 || (fs.Arg(0) != cmdResumes && fs.Arg(0) != cmdOfferLetters) {
		fs.Usage()
		return 2
	}
	opts.command = fs.Arg(0)

	cfg, err := config.FromViper(v, config.Options{EnvFile: opts.envFile, SecretsDir: opts.secretsDir})
	if err != nil {
		fmt.Fprintf(stderr, "icims-sync: %v\n", err)
		return 1
	}

	logger := logging.Setup(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		Pretty:  opts.pretty,
		Output:  stderr,
		Service: "icims-sync",
	})

	if err := runSync(ctx, cfg, opts, logger); err != nil {
		logger.Error().Err(err).Str("command", opts.command).Msg("Sync failed")
		return 1
	}
	return 0
}

// runSync wires the client for cfg and runs the selected command.
func runSync(ctx context.Context, cfg *config.Config, opts options, logger zerolog.Logger) error {
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(redisOpts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info().Str("addr", redisOpts.Addr).Msg("Connected to Redis")
	}

	if opts.metricsAddr != "" {
		srv := startMetricsServer(opts.metricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	api, err := newAPIClient(cfg, redisClient, logger)
	if err != nil {
		return err
	}
	defer api.Close()

	logger.Info().
		Str("environment", cfg.Environment).
		Str("base_url", api.BaseURL()).
		Str("command", opts.command).
		Msg("Starting sync")

	pacer := ratelimit.NewPacer(cfg.RequestDelay)

	var summary documents.Summary
	switch opts.command {
	case cmdResumes:
		svc := people.NewService(api, people.WithPacer(pacer), people.WithLogger(logging.NewLogger("people")))
		summary, err = svc.DownloadAllResumes(ctx, cfg.ResumeDir)
	case cmdOfferLetters:
		svc := offers.NewService(api, offers.WithPacer(pacer), offers.WithLogger(logging.NewLogger("offers")))
		summary, err = svc.DownloadAcceptedOfferLetters(ctx, cfg.OfferLetterDir, opts.regen)
	default:
		return fmt.Errorf("unknown command %q", opts.command)
	}
	if err != nil {
		return err
	}

	logger.Info().
		Int("total", summary.Total).
		Int("skipped", summary.Skipped).
		Int("fetched", summary.Fetched()).
		Msg("Sync complete")
	return nil
}

// newAPIClient builds the token cache and client. With Redis the token is shared between
// processes through cache.Manager.
func newAPIClient(cfg *config.Config, redisClient *redis.Client, logger zerolog.Logger) (*client.Client, error) {
	creds := &auth.ClientCredentials{
		TokenURL:     cfg.AccessTokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Audience:     auth.DefaultAudience,
	}

	tokenOpts := []auth.Option{
		auth.WithLifetime(cfg.TokenLifetime),
		auth.WithLogger(logging.NewLogger("auth")),
	}
	if redisClient != nil {
		tokenOpts = append(tokenOpts,
			auth.WithSharedStore(cache.NewManager(redisClient), auth.SharedKey(cfg.ClientID, creds.Audience)))
	}
	tokens := auth.NewTokenCache(creds, tokenOpts...)

	clientCfg := client.DefaultConfig(cfg.BaseURL(), tokens)
	clientCfg.UserAgent = userAgent
	clientCfg.Redis = redisClient

	api, err := client.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create iCIMS client: %w", err)
	}
	return api, nil
}

func startMetricsServer(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	return srv
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}
