package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	vault "github.com/hashicorp/vault/api"
	"github.com/richxcame/carwash-pricing/pkg/config"
)

// vaultFetcher reads KV v2 secrets
type vaultFetcher struct {
	client *vault.Client
	mount  string
}

func newVaultFetcher(cfg config.SecretsConfig) (*vaultFetcher, error) {
	clientCfg := vault.DefaultConfig()
	clientCfg.Address = cfg.VaultAddress

	client, err := vault.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("secrets: failed to create vault client: %w", err)
	}
	client.SetToken(cfg.VaultToken)
	if cfg.VaultNamespace != "" {
		client.SetNamespace(cfg.VaultNamespace)
	}

	mount := strings.Trim(cfg.VaultMount, "/")
	if mount == "" {
		mount = "secret"
	}
	return &vaultFetcher{client: client, mount: mount}, nil
}

func (v *vaultFetcher) fetch(ctx context.Context, ref Reference) (map[string]string, error) {
	mount := v.mount
	if ref.Mount != "" {
		mount = ref.Mount
	}
	kv := v.client.KVv2(mount)

	var (
		secret *vault.KVSecret
		err    error
	)
	if ref.Version != "" {
		version, convErr := strconv.Atoi(ref.Version)
		if convErr != nil {
			return nil, fmt.Errorf("secrets: invalid vault version %q: %w", ref.Version, convErr)
		}
		secret, err = kv.GetVersion(ctx, ref.Path, version)
	} else {
		secret, err = kv.Get(ctx, ref.Path)
	}
	if err != nil {
		var respErr *vault.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("secrets: vault path %s/%s not found", mount, ref.Path)
		}
		return nil, fmt.Errorf("secrets: vault fetch failed for %s: %w", ref.Path, err)
	}

	data := make(map[string]string, len(secret.Data))
	for k, raw := range secret.Data {
		data[k] = fmt.Sprint(raw)
	}
	return data, nil
}

func (v *vaultFetcher) close() error {
	return nil
}
