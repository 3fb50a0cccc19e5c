// Package secrets resolves secret references held in configuration values.
// A value such as "vault://pricing/stripe#secret_key" is replaced with the
// referenced secret at startup; any other value is used literally.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/richxcame/carwash-pricing/pkg/config"
	"github.com/richxcame/carwash-pricing/pkg/logger"
	"go.uber.org/zap"
)

// Provider names a secret backend. It doubles as the reference scheme.
type Provider string

const (
	ProviderVault      Provider = "vault"
	ProviderAWS        Provider = "aws"
	ProviderGCP        Provider = "gcp"
	ProviderKubernetes Provider = "k8s"
)

var (
	// ErrProviderNotConfigured is returned for a reference whose backend has no credentials.
	ErrProviderNotConfigured = errors.New("secrets: provider not configured")
	// ErrInvalidReference indicates a reference with no path.
	ErrInvalidReference = errors.New("secrets: invalid reference")
	// ErrKeyNotFound is returned when the payload has no usable entry.
	ErrKeyNotFound = errors.New("secrets: key not found")
)

// valueKey is the entry name used for secrets stored as a bare string.
const valueKey = "value"

// Reference locates one secret value.
// Syntax: scheme://[mount::]path[@version][#key]
type Reference struct {
	Provider Provider
	Mount    string
	Path     string
	Version  string
	Key      string
}

func (r Reference) cacheKey() string {
	return fmt.Sprintf("%s|%s|%s|%s", r.Provider, r.Mount, r.Path, r.Version)
}

// ParseReference parses raw. ok is false when raw carries no known scheme
// and should be used literally.
func ParseReference(raw string) (ref Reference, ok bool, err error) {
	clean := strings.TrimSpace(raw)
	scheme, rest, found := strings.Cut(clean, "://")
	if !found {
		return Reference{}, false, nil
	}
	switch p := Provider(scheme); p {
	case ProviderVault, ProviderAWS, ProviderGCP, ProviderKubernetes:
		ref.Provider = p
	default:
		return Reference{}, false, nil
	}

	if i := strings.LastIndex(rest, "#"); i >= 0 {
		ref.Key = strings.TrimSpace(rest[i+1:])
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		ref.Version = strings.TrimSpace(rest[i+1:])
		rest = rest[:i]
	}
	if mount, path, found := strings.Cut(rest, "::"); found {
		ref.Mount = strings.Trim(mount, "/ ")
		rest = path
	}

	ref.Path = strings.Trim(strings.TrimSpace(rest), "/")
	if ref.Path == "" {
		return ref, true, ErrInvalidReference
	}
	return ref, true, nil
}

// fetcher reads the full payload of a secret from one backend.
type fetcher interface {
	fetch(ctx context.Context, ref Reference) (map[string]string, error)
	close() error
}

type cachedPayload struct {
	data      map[string]string
	expiresAt time.Time
}

// Resolver resolves references against the backends that have credentials.
type Resolver struct {
	fetchers map[Provider]fetcher
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]cachedPayload
}

// NewResolver builds a fetcher for every configured backend. A backend
// without settings is skipped; referencing it later fails.
func NewResolver(ctx context.Context, cfg config.SecretsConfig) (*Resolver, error) {
	r := newResolver(cfg.CacheTTL)

	if cfg.VaultAddress != "" && cfg.VaultToken != "" {
		f, err := newVaultFetcher(cfg)
		if err != nil {
			return nil, err
		}
		r.fetchers[ProviderVault] = f
	}
	if cfg.AWSRegion != "" {
		f, err := newAWSFetcher(ctx, cfg)
		if err != nil {
			return nil, err
		}
		r.fetchers[ProviderAWS] = f
	}
	if cfg.GCPProjectID != "" {
		f, err := newGCPFetcher(ctx, cfg)
		if err != nil {
			return nil, err
		}
		r.fetchers[ProviderGCP] = f
	}
	if f, err := newKubernetesFetcher(cfg.KubernetesBaseDir); err == nil {
		r.fetchers[ProviderKubernetes] = f
	}

	return r, nil
}

func newResolver(ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{
		fetchers: make(map[Provider]fetcher),
		ttl:      ttl,
		now:      time.Now,
		cache:    make(map[string]cachedPayload),
	}
}

// Providers lists the backends available to references
func (r *Resolver) Providers() []Provider {
	out := make([]Provider, 0, len(r.fetchers))
	for p := range r.fetchers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resolve returns raw unchanged unless it is a reference.
func (r *Resolver) Resolve(ctx context.Context, raw string) (string, error) {
	ref, ok, err := ParseReference(raw)
	if !ok {
		return raw, nil
	}
	if err != nil {
		return "", err
	}

	data, err := r.payload(ctx, ref)
	if err != nil {
		return "", err
	}
	return pick(data, ref)
}

// ResolveAll resolves every target in place. The map key names the setting in errors.
func (r *Resolver) ResolveAll(ctx context.Context, targets map[string]*string) error {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := targets[name]
		if target == nil || *target == "" {
			continue
		}
		value, err := r.Resolve(ctx, *target)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
		if value != *target {
			logger.Info("setting loaded from secret store", zap.String("setting", name))
		}
		*target = value
	}
	return nil
}

// Close releases backend clients
func (r *Resolver) Close() error {
	var errs []error
	for _, f := range r.fetchers {
		if err := f.close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Resolver) payload(ctx context.Context, ref Reference) (map[string]string, error) {
	f, ok := r.fetchers[ref.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, ref.Provider)
	}

	key := ref.cacheKey()
	r.mu.Lock()
	entry, hit := r.cache[key]
	r.mu.Unlock()
	if hit && r.now().Before(entry.expiresAt) {
		return entry.data, nil
	}

	data, err := f.fetch(ctx, ref)
	if err != nil {
		logger.Warn("secret fetch failed",
			zap.String("provider", string(ref.Provider)),
			zap.String("path", ref.Path),
			zap.Error(err),
		)
		return nil, err
	}

	r.mu.Lock()
	r.cache[key] = cachedPayload{data: data, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return data, nil
}

// pick selects the referenced entry. Without a key a single-entry payload
// yields its only value.
func pick(data map[string]string, ref Reference) (string, error) {
	if ref.Key != "" {
		if v := data[ref.Key]; v != "" {
			return v, nil
		}
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, ref.Key)
	}
	if v := data[valueKey]; v != "" {
		return v, nil
	}
	if len(data) == 1 {
		for _, v := range data {
			if v != "" {
				return v, nil
			}
		}
	}
	return "", fmt.Errorf("%w: reference %s needs a #key", ErrKeyNotFound, ref.Path)
}

// decodePayload treats JSON objects as key/value maps and anything else as a bare value.
func decodePayload(raw []byte) map[string]string {
	var asMap map[string]string
	if err := json.Unmarshal(raw, &asMap); err == nil && len(asMap) > 0 {
		return asMap
	}
	return map[string]string{valueKey: strings.TrimSpace(string(raw))}
}
