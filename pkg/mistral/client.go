package mistral

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.mistral.ai/v1"
	DefaultModel   = "open-mixtral-8x7b"

	maxErrorBody = 200
)

var (
	ErrNoAPIKey      = errors.New("mistral: no API key configured")
	ErrTimeout       = errors.New("mistral: completion timed out")
	ErrEmptyResponse = errors.New("mistral: empty response")
)

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Body)
}

// TransportError is a failure to reach the provider at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "mistral transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Config struct {
	BaseURL          string
	Model            string
	Temperature      float64
	MaxTokens        int
	FrequencyPenalty float64
	PresencePenalty  float64
	Timeout          time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		Model:            DefaultModel,
		Temperature:      0.75,
		MaxTokens:        200,
		FrequencyPenalty: 0.6,
		PresencePenalty:  0.4,
		Timeout:          25 * time.Second,
	}
}

// KeyState tracks the health of an API key
type KeyState struct {
	Key          string
	FailureCount int
	LastUsed     time.Time
	LastSuccess  time.Time
}

type Client struct {
	cfg       Config
	keys      []*KeyState
	keyMu     sync.RWMutex
	clients   map[string]openai.Client
	clientsMu sync.RWMutex
	logger    *zap.Logger
	opts      []option.RequestOption
}

// NewClient accepts one key or several comma-separated ones. Each call uses
// the key with the fewest recent failures; there are no retries.
func NewClient(apiKeys string, cfg Config, logger *zap.Logger, opts ...option.RequestOption) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}

	var keys []*KeyState
	for _, k := range strings.Split(apiKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, &KeyState{Key: k})
		}
	}

	if len(keys) == 0 {
		logger.Warn("no Mistral API keys provided")
	} else {
		logger.Info("loaded Mistral API keys", zap.Int("count", len(keys)))
	}

	return &Client{
		cfg:     cfg,
		keys:    keys,
		clients: make(map[string]openai.Client),
		logger:  logger,
		opts:    opts,
	}
}

func (c *Client) getClient(key string) openai.Client {
	c.clientsMu.RLock()
	if client, ok := c.clients[key]; ok {
		c.clientsMu.RUnlock()
		return client
	}
	c.clientsMu.RUnlock()

	c.clientsMu.Lock()
	defer c.clientsMu.Unlock()

	opts := append([]option.RequestOption{
		option.WithBaseURL(c.cfg.BaseURL),
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}, c.opts...)
	client := openai.NewClient(opts...)
	c.clients[key] = client
	return client
}

// getBestKey returns the API key with the least failures
func (c *Client) getBestKey() *KeyState {
	c.keyMu.RLock()
	defer c.keyMu.RUnlock()

	if len(c.keys) == 0 {
		return nil
	}

	best := c.keys[0]
	for _, k := range c.keys[1:] {
		if k.FailureCount < best.FailureCount {
			best = k
		}
	}
	return best
}

func (c *Client) recordSuccess(key *KeyState) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	key.LastSuccess = time.Now()
	key.LastUsed = time.Now()
	if key.FailureCount > 0 {
		key.FailureCount--
	}
}

func (c *Client) recordFailure(key *KeyState) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	key.FailureCount++
	key.LastUsed = time.Now()
}

// ChatCompletion sends messages and returns the first choice's content.
// Errors are one of ErrNoAPIKey, ErrTimeout, ErrEmptyResponse,
// *APIError or *TransportError.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	keyState := c.getBestKey()
	if keyState == nil {
		return "", ErrNoAPIKey
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:            shared.ChatModel(c.cfg.Model),
		Messages:         toParams(messages),
		Temperature:      openai.Float(c.cfg.Temperature),
		MaxTokens:        openai.Int(int64(c.cfg.MaxTokens)),
		FrequencyPenalty: openai.Float(c.cfg.FrequencyPenalty),
		PresencePenalty:  openai.Float(c.cfg.PresencePenalty),
	}

	start := time.Now()
	client := c.getClient(keyState.Key)
	resp, err := client.Chat.Completions.New(callCtx, params)
	if err != nil {
		err = classify(callCtx, err)
		var apiErr *APIError
		if errors.As(err, &apiErr) && isKeyError(apiErr.StatusCode) {
			c.recordFailure(keyState)
		}
		return "", err
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	c.recordSuccess(keyState)
	c.logger.Debug("completion done",
		zap.String("model", c.cfg.Model),
		zap.Duration("took", time.Since(start)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classify(callCtx context.Context, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		body := apiErr.RawJSON()
		if body == "" {
			body = apiErr.Message
		}
		if body == "" {
			body = responseBody(apiErr.Response)
		}
		if body == "" {
			body = http.StatusText(apiErr.StatusCode)
		}
		return &APIError{StatusCode: apiErr.StatusCode, Body: truncate(body, maxErrorBody)}
	}
	return &TransportError{Err: err}
}

// responseBody reads the error body openai-go leaves on the response. Mistral
// reports errors at the top level instead of under an "error" key.
func responseBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func isKeyError(status int) bool {
	return status == 401 || status == 403 || status == 429
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case "system":
			out[i] = openai.SystemMessage(msg.Content)
		case "assistant":
			out[i] = openai.AssistantMessage(msg.Content)
		default:
			out[i] = openai.UserMessage(msg.Content)
		}
	}
	return out
}
