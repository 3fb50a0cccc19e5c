package secrets

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/richxcame/carwash-pricing/pkg/config"
	"google.golang.org/api/option"
)

// gcpFetcher reads Google Secret Manager versions
type gcpFetcher struct {
	client  *secretmanager.Client
	project string
}

func newGCPFetcher(ctx context.Context, cfg config.SecretsConfig) (*gcpFetcher, error) {
	var opts []option.ClientOption
	if cfg.GCPCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCPCredentials))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secrets: failed to create gcp secret manager client: %w", err)
	}
	return &gcpFetcher{client: client, project: cfg.GCPProjectID}, nil
}

// versionName expands a short secret name to its full resource name
func (g *gcpFetcher) versionName(ref Reference) string {
	if strings.HasPrefix(ref.Path, "projects/") {
		return ref.Path
	}
	version := ref.Version
	if version == "" {
		version = "latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", g.project, ref.Path, version)
}

func (g *gcpFetcher) fetch(ctx context.Context, ref Reference) (map[string]string, error) {
	resp, err := g.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: g.versionName(ref),
	})
	if err != nil {
		return nil, fmt.Errorf("secrets: gcp fetch failed for %s: %w", ref.Path, err)
	}
	if resp.GetPayload() == nil {
		return map[string]string{}, nil
	}
	return decodePayload(resp.GetPayload().GetData()), nil
}

func (g *gcpFetcher) close() error {
	return g.client.Close()
}
