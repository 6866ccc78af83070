package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	_ "time/tzdata"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/b2bflow/front-forms/handler"
	"github.com/b2bflow/front-forms/internal/config"
	"github.com/b2bflow/front-forms/internal/integrations/leadapi"
	"github.com/b2bflow/front-forms/internal/integrations/paramstore"
	"github.com/b2bflow/front-forms/internal/repository"
	"github.com/b2bflow/front-forms/internal/session"
	"github.com/b2bflow/front-forms/internal/usecase"
)

func main() {
	ctx := context.Background()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// ---- Configuration (read only here) ----
	cfg := config.Load()
	if err := cfg.Require("STATE_TABLE", "PARAM_PREFIX"); err != nil {
		fatal("invalid configuration", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		fatal("invalid configuration", err)
	}

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		fatal("failed to load AWS config", err)
	}

	// ---- Clients ----
	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg), cfg.ParamPrefix)
	if err != nil {
		fatal("failed to create SSM client", err)
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable, repository.WithTTL(cfg.ConversationTTL))
	if err != nil {
		fatal("failed to create state client", err)
	}

	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL, err = params.GetParameter(ctx, config.APIBaseURLParam)
		if err != nil {
			fatal("failed to resolve lead API base URL", err)
		}
	}
	tokenOpt := leadapi.WithParamStore(params, params.Name(config.ClientTokenParam))
	if cfg.ClientToken != "" {
		tokenOpt = leadapi.WithClientToken(cfg.ClientToken)
	}
	leads, err := leadapi.NewClient(baseURL, tokenOpt, leadapi.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
	if err != nil {
		fatal("failed to create lead API client", err)
	}

	// ---- Handler ----
	intake, err := usecase.NewIntakeService(store, leads, usecase.WithLocation(loc))
	if err != nil {
		fatal("failed to create intake service", err)
	}
	confirmation, err := usecase.NewConfirmationService(leads)
	if err != nil {
		fatal("failed to create confirmation service", err)
	}

	h, err := handler.NewHandler(intake, confirmation, session.NewStore(cfg.CookieSecure),
		handler.WithAllowedOrigins(cfg.AllowedOrigins),
	)
	if err != nil {
		fatal("failed to create handler", err)
	}

	lambda.Start(h.Handle)
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
