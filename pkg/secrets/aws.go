package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/richxcame/carwash-pricing/pkg/config"
)

// awsFetcher reads AWS Secrets Manager secrets. Credentials come from the
// default chain (environment, shared profile, instance role).
type awsFetcher struct {
	client *secretsmanager.Client
}

func newAWSFetcher(ctx context.Context, cfg config.SecretsConfig) (*awsFetcher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("secrets: failed to load aws config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	})
	return &awsFetcher{client: client}, nil
}

func (a *awsFetcher) fetch(ctx context.Context, ref Reference) (map[string]string, error) {
	input := &secretsmanager.GetSecretValueInput{SecretId: aws.String(ref.Path)}
	if ref.Version != "" {
		input.VersionStage = aws.String(ref.Version)
	}

	out, err := a.client.GetSecretValue(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("secrets: aws fetch failed for %s: %w", ref.Path, err)
	}
	if out.SecretString != nil {
		return decodePayload([]byte(*out.SecretString)), nil
	}
	return decodePayload(out.SecretBinary), nil
}

func (a *awsFetcher) close() error {
	return nil
}
