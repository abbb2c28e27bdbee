package embedpipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/okets/folder-mcp-core/internal/amerrors"
	"golang.org/x/sync/singleflight"
)

// BackendRegistry caches EmbeddingBackends by modelId, creating each one
// exactly once even under concurrent requests (spec.md §4.7 "Model routing"
// / "single-flight creation").
//
// modelId is "<provider>:<name>"; provider is either "local" (StaticBackend)
// or "remote" (RemoteBackend against RemoteHost).
type BackendRegistry struct {
	RemoteHost string

	mu       sync.Mutex
	backends map[string]EmbeddingBackend
	group    singleflight.Group
}

// NewBackendRegistry builds an empty registry.
func NewBackendRegistry(remoteHost string) *BackendRegistry {
	return &BackendRegistry{RemoteHost: remoteHost, backends: make(map[string]EmbeddingBackend)}
}

// Get returns the initialized backend for modelId, creating it on first use.
// Two concurrent Gets for the same modelId share one initialization.
func (r *BackendRegistry) Get(ctx context.Context, modelID string) (EmbeddingBackend, error) {
	r.mu.Lock()
	if b, ok := r.backends[modelID]; ok {
		r.mu.Unlock()
		return b, nil
	}
	r.mu.Unlock()

	result, err, _ := r.group.Do(modelID, func() (interface{}, error) {
		r.mu.Lock()
		if b, ok := r.backends[modelID]; ok {
			r.mu.Unlock()
			return b, nil
		}
		r.mu.Unlock()

		backend, err := r.construct(modelID)
		if err != nil {
			return nil, err
		}
		if err := backend.Initialize(ctx); err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.backends[modelID] = backend
		r.mu.Unlock()
		return backend, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(EmbeddingBackend), nil
}

// construct parses modelId as "<provider>:<name>" and builds the matching
// backend with its provider-specific tuning.
func (r *BackendRegistry) construct(modelID string) (EmbeddingBackend, error) {
	provider, name, ok := strings.Cut(modelID, ":")
	if !ok {
		return nil, amerrors.New(amerrors.ErrCodeInvalidModelID, fmt.Sprintf("model id %q is not <provider>:<name>", modelID), nil)
	}

	switch provider {
	case "local":
		return NewStaticBackend(name), nil
	case "remote":
		cfg := DefaultRemoteConfig()
		cfg.Model = name
		if r.RemoteHost != "" {
			cfg.Host = r.RemoteHost
		}
		return NewRemoteBackend(cfg), nil
	default:
		return nil, amerrors.New(amerrors.ErrCodeInvalidModelID, fmt.Sprintf("model id %q has unknown provider %q", modelID, provider), nil)
	}
}

// CloseAll closes every cached backend, in the style of a shutdown path.
func (r *BackendRegistry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for _, b := range r.backends {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
