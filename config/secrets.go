package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// SecretsAPI is the subset of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewSecretsClient builds a Secrets Manager client from the default AWS
// credential chain.
func NewSecretsClient(ctx context.Context) (*secretsmanager.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// FetchSecret returns the secret string stored under secretID. A JSON object
// with exactly one key is unwrapped to that key's value.
func FetchSecret(ctx context.Context, api SecretsAPI, secretID string) (string, error) {
	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", secretID, err)
	}
	if out.SecretString == nil || strings.TrimSpace(*out.SecretString) == "" {
		return "", fmt.Errorf("secret %s is empty", secretID)
	}

	raw := strings.TrimSpace(*out.SecretString)
	var single map[string]string
	if err := json.Unmarshal([]byte(raw), &single); err == nil && len(single) == 1 {
		for _, v := range single {
			return v, nil
		}
	}
	return raw, nil
}

// SignerOverride resolves the signer key from Secrets Manager when
// SIGNER_SECRET_ID is set, returning an overlay for LoadAirdrop.
func SignerOverride(ctx context.Context, api SecretsAPI, secretID string) (map[string]string, error) {
	if secretID == "" {
		return nil, nil
	}
	key, err := FetchSecret(ctx, api, secretID)
	if err != nil {
		return nil, err
	}
	return map[string]string{EnvPrivateKey: key}, nil
}
