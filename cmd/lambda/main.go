//go:build lambda

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"solairdrop/config"
	"solairdrop/logger"
	"solairdrop/server"
)

var (
	ginLambda *ginadapter.GinLambda
	log       *zap.Logger
)

func init() {
	ctx := context.Background()

	cfg, err := config.LoadServer(config.Env())
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log = logger.MustNew(logger.Config{Level: cfg.LogLevel, Stage: cfg.Stage})

	lookup := config.Env()
	if cfg.SignerSecretID != "" {
		client, err := config.NewSecretsClient(ctx)
		if err != nil {
			log.Fatal("Failed to create secrets client", zap.Error(err))
		}
		overrides, err := config.SignerOverride(ctx, client, cfg.SignerSecretID)
		if err != nil {
			log.Fatal("Failed to load signer key", zap.String("secret_id", cfg.SignerSecretID), zap.Error(err))
		}
		lookup = config.Overlay(lookup, overrides)
	}

	srv, err := server.New(ctx, cfg, lookup, log)
	if err != nil {
		log.Fatal("Failed to initialize server", zap.Error(err))
	}
	ginLambda = ginadapter.New(srv.Router)
}

func Handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if ce := log.Check(zap.DebugLevel, "Received Lambda request"); ce != nil {
		ce.Write(zap.String("path", req.Path), zap.String("request", spew.Sdump(req)))
	}
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	defer func() { _ = log.Sync() }()
	lambda.Start(Handler)
}
