// internal/pkg/config/secrets.go
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Secret keys the overlay knows how to apply.
const (
	SecretDatabasePassword = "DB_PASSWORD"
	SecretRedisPassword    = "REDIS_PASSWORD"
)

// SecretsManager resolves secret values by key. Absent keys are omitted from
// the result rather than reported as errors.
type SecretsManager interface {
	GetSecrets(ctx context.Context, keys []string) (map[string]string, error)
}

type secretValueGetter interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManager reads one JSON key/value secret. The document is fetched
// on first use and kept for the life of the process; credentials rotate with
// a redeploy.
type AWSSecretsManager struct {
	client     secretValueGetter
	secretName string
	logger     *slog.Logger

	once   sync.Once
	values map[string]string
	err    error
}

func NewAWSSecretsManager(ctx context.Context, region, secretName string, logger *slog.Logger) (*AWSSecretsManager, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newAWSSecretsManager(secretsmanager.NewFromConfig(cfg), secretName, logger), nil
}

func newAWSSecretsManager(client secretValueGetter, secretName string, logger *slog.Logger) *AWSSecretsManager {
	return &AWSSecretsManager{
		client:     client,
		secretName: secretName,
		logger:     logger.With(slog.String("secret_name", secretName)),
	}
}

func (sm *AWSSecretsManager) load(ctx context.Context) (map[string]string, error) {
	sm.once.Do(func() {
		sm.logger.Info("fetching secrets from AWS Secrets Manager")

		out, err := sm.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId:     aws.String(sm.secretName),
			VersionStage: aws.String("AWSCURRENT"),
		})
		if err != nil {
			sm.err = fmt.Errorf("failed to get secret %s: %w", sm.secretName, err)
			return
		}
		if out.SecretString == nil {
			sm.err = fmt.Errorf("secret %s has no string value", sm.secretName)
			return
		}
		if err := json.Unmarshal([]byte(*out.SecretString), &sm.values); err != nil {
			sm.err = fmt.Errorf("secret %s is not a JSON object of strings: %w", sm.secretName, err)
		}
	})
	return sm.values, sm.err
}

func (sm *AWSSecretsManager) GetSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	values, err := sm.load(ctx)
	if err != nil {
		return nil, err
	}
	return pick(values, keys, func(key string) {
		sm.logger.Warn("secret key not present", slog.String("key", key))
	}), nil
}

// EnvSecretsManager reads secrets from the environment; used when no AWS
// secret is configured.
type EnvSecretsManager struct{}

func NewEnvSecretsManager() *EnvSecretsManager {
	return &EnvSecretsManager{}
}

func (EnvSecretsManager) GetSecrets(_ context.Context, keys []string) (map[string]string, error) {
	env := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return pick(env, keys, nil), nil
}

func pick(values map[string]string, keys []string, onMissing func(string)) map[string]string {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := values[key]; ok && v != "" {
			out[key] = v
		} else if onMissing != nil {
			onMissing(key)
		}
	}
	return out
}

// ApplySecrets overlays credentials from sm onto cfg. Keys missing from the
// store leave the environment value in place.
func ApplySecrets(ctx context.Context, cfg *Config, sm SecretsManager) error {
	secrets, err := sm.GetSecrets(ctx, []string{SecretDatabasePassword, SecretRedisPassword})
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if v, ok := secrets[SecretDatabasePassword]; ok {
		cfg.Database.Password = v
	}
	if v, ok := secrets[SecretRedisPassword]; ok {
		cfg.Redis.Password = v
		cfg.Asynq.RedisPassword = v
	}
	return nil
}
