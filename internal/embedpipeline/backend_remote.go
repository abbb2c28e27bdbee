package embedpipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/okets/folder-mcp-core/internal/amerrors"
)

// RemoteConfig configures a RemoteBackend (the "remote"/GPU provider,
// spec.md §4.7 "GPU/remote model server").
type RemoteConfig struct {
	Host       string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// DefaultRemoteConfig returns sane defaults, in the style of the teacher's
// DefaultOllamaConfig.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		Host:       "http://localhost:11434",
		Timeout:    60 * time.Second,
		MaxRetries: 3,
	}
}

type remoteEmbedRequest struct {
	Model string      `json:"model"`
	Input interface{} `json:"input"`
}

type remoteEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// RemoteBackend talks to an HTTP embedding server speaking the Ollama
// `/api/embed` wire shape. Retries use amerrors' exponential backoff
// (spec.md §9 design note: the embedding backend cache and its calls should
// be retryable/circuit-broken the way the rest of the engine is).
type RemoteBackend struct {
	cfg    RemoteConfig
	client *http.Client

	mu          sync.RWMutex
	initialized bool
	closed      bool
	dims        int
	breaker     *amerrors.CircuitBreaker
}

var _ EmbeddingBackend = (*RemoteBackend)(nil)

// NewRemoteBackend builds a RemoteBackend for modelId (the part after
// "remote:").
func NewRemoteBackend(cfg RemoteConfig) *RemoteBackend {
	if cfg.Host == "" {
		cfg.Host = DefaultRemoteConfig().Host
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRemoteConfig().Timeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultRemoteConfig().MaxRetries
	}
	return &RemoteBackend{
		cfg:     cfg,
		client:  &http.Client{},
		breaker: amerrors.NewCircuitBreaker("embed-backend:" + cfg.Model),
	}
}

func (b *RemoteBackend) Initialize(ctx context.Context) error {
	embeddings, err := b.doEmbed(ctx, []string{"dimension probe"})
	if err != nil {
		return amerrors.Wrap(amerrors.ErrCodeBackendUnavailable, err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return amerrors.New(amerrors.ErrCodeBackendUnavailable, "remote backend returned an empty probe embedding", nil)
	}

	b.mu.Lock()
	b.initialized = true
	b.dims = len(embeddings[0])
	b.mu.Unlock()
	return nil
}

func (b *RemoteBackend) IsInitialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.initialized
}

func (b *RemoteBackend) Dimensions() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dims
}

func (b *RemoteBackend) ModelID() string { return "remote:" + b.cfg.Model }

func (b *RemoteBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *RemoteBackend) Embed(ctx context.Context, texts []string) ([]Embedding, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedpipeline: remote backend %q is closed", b.cfg.Model)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	if err := b.breaker.Allow(); err != nil {
		return nil, err
	}

	var vectors [][]float32
	retryCfg := amerrors.DefaultRetryConfig()
	retryCfg.MaxRetries = b.cfg.MaxRetries
	err := amerrors.Retry(ctx, retryCfg, func() error {
		v, embedErr := b.doEmbed(ctx, texts)
		if embedErr != nil {
			return amerrors.Wrap(amerrors.ErrCodeBackendUnavailable, embedErr)
		}
		vectors = v
		return nil
	})
	if err != nil {
		b.breaker.RecordFailure()
		return nil, err
	}
	b.breaker.RecordSuccess()

	out := make([]Embedding, len(vectors))
	for i, v := range vectors {
		out[i] = Embedding{Vector: v}
	}
	return out, nil
}

func (b *RemoteBackend) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	var input interface{} = texts
	if len(texts) == 1 {
		input = texts[0]
	}

	body, err := json.Marshal(remoteEmbedRequest{Model: b.cfg.Model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, strings.TrimRight(b.cfg.Host, "/")+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote embed request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("remote embed returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed remoteEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode remote embed response: %w", err)
	}
	return parsed.Embeddings, nil
}
