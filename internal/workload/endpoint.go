package workload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"profiled/pkg/types"
)

const (
	DefaultEndpointTimeout = 5 * time.Second
	modelsPath             = "/v1/models"
)

// ModelLister lists the models served by the workload.
type ModelLister interface {
	ListModels(ctx context.Context) ([]types.ModelRef, error)
}

// EndpointConfig configures an Endpoint.
type EndpointConfig struct {
	BaseURL  string
	APIKey   string
	RetryMax int
	// Timeout bounds a single listing request (retries included).
	Timeout time.Duration
	Logger  *zerolog.Logger
}

// Endpoint is a client of the workload's OpenAI-style model listing.
type Endpoint struct {
	base    string
	apiKey  string
	timeout time.Duration
	http    *retryablehttp.Client
}

func NewEndpoint(cfg EndpointConfig) *Endpoint {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	// All calls carry a context deadline.
	rc.HTTPClient.Timeout = 0
	if cfg.Logger != nil {
		rc.Logger = leveledLogger{log: cfg.Logger.With().Str("component", "endpoint").Logger()}
	} else {
		rc.Logger = nil
	}
	// Return the last response instead of a retries-exhausted error so the
	// status code reaches the caller.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	e := &Endpoint{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		http:    rc,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultEndpointTimeout
	}
	return e
}

// BaseURL returns the normalised base URL.
func (e *Endpoint) BaseURL() string { return e.base }

type modelsResponse struct {
	Data []types.ModelRef `json:"data"`
}

// ListModels fetches GET <base>/v1/models. A non-2xx status is an error.
func (e *Endpoint) ListModels(ctx context.Context) ([]types.ModelRef, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, e.base+modelsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build models request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("list models: http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var body modelsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode models response: %w", err)
	}
	models := make([]types.ModelRef, 0, len(body.Data))
	for _, m := range body.Data {
		if strings.TrimSpace(m.ID) != "" {
			models = append(models, m)
		}
	}
	return models, nil
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Trace().Fields(kv).Msg(msg) }
