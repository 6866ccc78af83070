// Command devserver runs the intake API over plain HTTP for local work.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/b2bflow/front-forms/handler"
	"github.com/b2bflow/front-forms/internal/config"
	"github.com/b2bflow/front-forms/internal/integrations/leadapi"
	"github.com/b2bflow/front-forms/internal/mockapi"
	"github.com/b2bflow/front-forms/internal/observability/metrics"
	"github.com/b2bflow/front-forms/internal/repository"
	"github.com/b2bflow/front-forms/internal/session"
	"github.com/b2bflow/front-forms/internal/usecase"
)

const mockPrefix = "/mockapi"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	loc, err := cfg.Location()
	if err != nil {
		fatal("invalid configuration", err)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		fatal("failed to create conversation store", err)
	}

	mux := http.NewServeMux()
	baseURL, clientToken := cfg.APIBaseURL, cfg.ClientToken
	if cfg.UseMockAPI {
		if clientToken == "" {
			clientToken = "dev-client-token"
		}
		mock := mockapi.New(mockapi.WithClientToken(clientToken), mockapi.WithLocation(loc))
		mux.Handle(mockPrefix+"/", http.StripPrefix(mockPrefix, mock))
		baseURL = "http://127.0.0.1:" + cfg.Port + mockPrefix
		slog.Info("serving mock lead API", "base_url", baseURL)
	}
	if baseURL == "" || clientToken == "" {
		fatal("invalid configuration", errors.New("API_BASE_URL and CLIENT_TOKEN are required unless USE_MOCK_API is set"))
	}
	leads, err := leadapi.NewClient(baseURL,
		leadapi.WithClientToken(clientToken),
		leadapi.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	)
	if err != nil {
		fatal("failed to create lead API client", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewIntakeMetrics(reg)

	intake, err := usecase.NewIntakeService(store, leads, usecase.WithLocation(loc), usecase.WithRecorder(m))
	if err != nil {
		fatal("failed to create intake service", err)
	}
	confirmation, err := usecase.NewConfirmationService(leads)
	if err != nil {
		fatal("failed to create confirmation service", err)
	}
	h, err := handler.NewHandler(intake, confirmation, session.NewStore(cfg.CookieSecure),
		handler.WithLogger(logger),
		handler.WithStatusObserver(m),
		handler.WithAllowedOrigins(cfg.AllowedOrigins),
	)
	if err != nil {
		fatal("failed to create handler", err)
	}

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "err", err)
		}
	}()

	slog.Info("dev server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("server failed", err)
	}
}

// buildStore prefers Redis when REDIS_ADDR is set and falls back to DynamoDB.
func buildStore(ctx context.Context, cfg *config.Config) (usecase.ConversationStore, error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		slog.Info("using redis conversation store", "addr", cfg.RedisAddr)
		return repository.NewRedisStore(client, cfg.ConversationTTL)
	}

	if err := cfg.Require("STATE_TABLE"); err != nil {
		return nil, err
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("using dynamodb conversation store", "table", cfg.StateTable)
	return repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable, repository.WithTTL(cfg.ConversationTTL))
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
