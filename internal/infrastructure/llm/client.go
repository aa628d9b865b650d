package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"FraudShield/internal/config"
	"FraudShield/internal/domain"
	"FraudShield/internal/ports"
)

const (
	defaultMaxContentChars  = 7000
	defaultMaxResponseBytes = 1 << 20
	errorBodyPreview        = 1024
)

// Client implements ports.RemoteClassifier against an OpenAI-compatible
// chat completions endpoint.
type Client struct {
	endpoint         string
	model            string
	systemPrompt     string
	temperature      float64
	maxTokens        int
	maxContentChars  int
	maxAttempts      int
	backoff          time.Duration
	maxResponseBytes int64
	credentials      ports.CredentialSource
	httpClient       *http.Client
}

var _ ports.RemoteClassifier = (*Client)(nil)

// NewClient builds a client from configuration. The API key is read from
// credentials on every call so a key change applies without a restart.
func NewClient(cfg config.ClassifierConfig, credentials ports.CredentialSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	maxContent := cfg.MaxContentChars
	if maxContent <= 0 {
		maxContent = defaultMaxContentChars
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	return &Client{
		endpoint:         cfg.Endpoint,
		model:            cfg.Model,
		systemPrompt:     cfg.SystemPrompt,
		temperature:      cfg.Temperature,
		maxTokens:        cfg.MaxTokens,
		maxContentChars:  maxContent,
		maxAttempts:      attempts,
		backoff:          250 * time.Millisecond,
		maxResponseBytes: defaultMaxResponseBytes,
		credentials:      credentials,
		httpClient:       httpClient,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
	Message string `json:"message"`
}

// Analyze sends the unit content for classification and returns the
// normalized verdict. Failures are *RemoteError values.
func (c *Client) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.Verdict, error) {
	if c == nil {
		return domain.Verdict{}, newRemoteError(KindUnknown, 0, "classifier client is nil", nil)
	}
	if c.endpoint == "" || c.model == "" {
		return domain.Verdict{}, newRemoteError(KindUnknown, 0, "classifier client misconfigured", nil)
	}

	apiKey, err := c.apiKey(ctx)
	if err != nil {
		return domain.Verdict{}, err
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    BuildMessages(c.systemPrompt, req, c.maxContentChars),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return domain.Verdict{}, newRemoteError(KindUnknown, 0, "marshal classifier payload", err)
	}

	var reply string
	backoff := retry.WithMaxRetries(uint64(c.maxAttempts-1), retry.NewExponential(c.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		content, callErr := c.complete(ctx, body, apiKey)
		if callErr != nil {
			if kind := KindOf(callErr); kind == KindNetwork || kind == KindRateLimit {
				return retry.RetryableError(callErr)
			}
			return callErr
		}
		reply = content
		return nil
	})
	if err != nil {
		if _, ok := err.(*RemoteError); !ok {
			err = newRemoteError(KindNetwork, 0, "classifier call aborted", err)
		}
		return domain.Verdict{}, err
	}

	verdict, err := ParseVerdict(reply)
	if err != nil {
		return domain.Verdict{}, newRemoteError(KindMalformed, 0, "unusable classifier reply", err)
	}
	return verdict, nil
}

func (c *Client) apiKey(ctx context.Context) (string, error) {
	if c.credentials == nil {
		return "", newRemoteError(KindAuth, 0, "", ErrNoCredential)
	}
	key, err := c.credentials.ClassifierAPIKey(ctx)
	if err != nil {
		return "", newRemoteError(KindAuth, 0, "read api key", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", newRemoteError(KindAuth, 0, "", ErrNoCredential)
	}
	return key, nil
}

func (c *Client) complete(ctx context.Context, body []byte, apiKey string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", newRemoteError(KindUnknown, 0, "new request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", newRemoteError(KindNetwork, 0, "send classification request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyPreview))
		return "", newRemoteError(kindForStatus(resp.StatusCode), resp.StatusCode, errorMessage(preview, resp.Status), nil)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return "", newRemoteError(KindNetwork, resp.StatusCode, "read classifier response", err)
	}
	if int64(len(raw)) > c.maxResponseBytes {
		return "", newRemoteError(KindMalformed, resp.StatusCode, fmt.Sprintf("response exceeded %d bytes", c.maxResponseBytes), nil)
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", newRemoteError(KindMalformed, resp.StatusCode, "decode classifier response", err)
	}
	if len(decoded.Choices) == 0 {
		return "", newRemoteError(KindMalformed, resp.StatusCode, "response had no choices", nil)
	}

	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", newRemoteError(KindMalformed, resp.StatusCode, "response choice was empty", nil)
	}
	return content, nil
}

func kindForStatus(status int) FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusRequestTimeout,
		status == http.StatusBadGateway,
		status == http.StatusServiceUnavailable,
		status == http.StatusGatewayTimeout:
		return KindNetwork
	default:
		return KindUnknown
	}
}

func errorMessage(body []byte, fallback string) string {
	var decoded chatErrorResponse
	if err := json.Unmarshal(body, &decoded); err == nil {
		if decoded.Error.Message != "" {
			return decoded.Error.Message
		}
		if decoded.Message != "" {
			return decoded.Message
		}
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		return trimmed
	}
	return fallback
}
