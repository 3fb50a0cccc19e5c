package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// kubernetesFetcher reads secrets mounted as files. A directory yields one
// entry per file; a file yields a single entry named after it.
type kubernetesFetcher struct {
	baseDir string
}

func newKubernetesFetcher(baseDir string) (*kubernetesFetcher, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("secrets: kubernetes secrets dir not set")
	}
	info, err := os.Stat(baseDir)
	if err != nil {
		return nil, fmt.Errorf("secrets: kubernetes secrets dir %s not accessible: %w", baseDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets: kubernetes secrets dir %s is not a directory", baseDir)
	}
	return &kubernetesFetcher{baseDir: baseDir}, nil
}

func (k *kubernetesFetcher) fetch(_ context.Context, ref Reference) (map[string]string, error) {
	target := filepath.Join(k.baseDir, filepath.Clean("/"+ref.Path))
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("secrets: kubernetes path %s not found: %w", ref.Path, err)
	}

	if !info.IsDir() {
		content, err := os.ReadFile(target)
		if err != nil {
			return nil, err
		}
		return map[string]string{filepath.Base(target): strings.TrimSpace(string(content))}, nil
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, err
	}
	data := make(map[string]string, len(entries))
	for _, e := range entries {
		// projected volumes keep real files under ..data; the visible names are symlinks
		if e.IsDir() || strings.HasPrefix(e.Name(), "..") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(target, e.Name()))
		if err != nil {
			return nil, err
		}
		data[e.Name()] = strings.TrimSpace(string(content))
	}
	return data, nil
}

func (k *kubernetesFetcher) close() error {
	return nil
}
