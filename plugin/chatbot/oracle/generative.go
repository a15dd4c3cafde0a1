package oracle

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/semaphore"
)

const (
	defaultGenerativeTimeout = 20 * time.Second
	defaultGenerativeModel   = "gpt-4o-mini"
	defaultMaxRetries        = 2
	// maxConcurrentCompletions bounds in-flight completion calls so a slow
	// provider cannot pile up goroutines under load.
	maxConcurrentCompletions = 4
)

// GenerativeConfig holds the completion provider configuration.
type GenerativeConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

// GenerativeClient completes prompts through an OpenAI-compatible API.
type GenerativeClient struct {
	client *openai.Client
	config GenerativeConfig
	sem    *semaphore.Weighted
}

// NewGenerativeClient creates a generative oracle. A missing API key is not
// an error here; Complete reports ErrNotConfigured instead so the resolver
// can fall through.
func NewGenerativeClient(cfg GenerativeConfig) *GenerativeClient {
	if cfg.Model == "" {
		cfg.Model = defaultGenerativeModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGenerativeTimeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &GenerativeClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		sem:    semaphore.NewWeighted(maxConcurrentCompletions),
	}
}

// Complete sends the prompt as a single chat turn and returns the completion
// text.
func (c *GenerativeClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.config.APIKey == "" {
		return "", ErrNotConfigured
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", errors.Wrap(err, "acquire completion slot")
	}
	defer c.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var result string
	err := c.doWithRetry(ctx, func() error {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.config.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty chat response")
		}
		result = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "completion failed")
	}

	return result, nil
}

// doWithRetry executes a function with exponential backoff retry.
func (c *GenerativeClient) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < c.config.MaxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				slog.Debug("completion request failed, retrying",
					"attempt", attempt+1,
					"wait_time", waitTime,
					"error", err)
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}

// Ensure GenerativeClient implements Generative
var _ Generative = (*GenerativeClient)(nil)
