package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	xerrors "github.com/reelforge/reelforge-api/errors"
	"github.com/reelforge/reelforge-api/log"
)

const (
	llmCallTimeout       = 120 * time.Second
	llmMaxTokens         = 6000
	llmStructuredTemp    = 0.3
	llmMaxRetryAttempts  = 3
	llmRetryBaseInterval = time.Second
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// LLMClient calls an OpenAI-compatible chat-completion endpoint with a
// JSON-schema response format.
type LLMClient struct {
	Endpoint   *url.URL
	APIKey     string
	Model      string
	httpClient *http.Client
}

func NewLLMClient(endpoint *url.URL, apiKey, model string) *LLMClient {
	return &LLMClient{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		Model:      model,
		httpClient: &http.Client{Timeout: llmCallTimeout},
	}
}

func (c *LLMClient) IsConfigured() bool {
	return c != nil && c.Endpoint != nil
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string         `json:"type"`
	JSONSchema responseSchema `json:"json_schema"`
}

type responseSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// GenerateStructured runs one structured chat completion and returns the
// parsed JSON payload. Responses that fail to parse go through a repair pass
// before the call is failed. HTTP 429 and 5xx responses are retried with
// exponential backoff; other 4xx responses fail immediately.
func (c *LLMClient) GenerateStructured(requestID string, messages []ChatMessage, schemaName string, schema json.RawMessage) (json.RawMessage, TokenUsage, error) {
	if !c.IsConfigured() {
		return nil, TokenUsage{}, xerrors.Wrap(xerrors.KindDependencyUnavailable, fmt.Errorf("LLM endpoint is not configured"))
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: llmStructuredTemp,
		MaxTokens:   llmMaxTokens,
		ResponseFormat: &responseFormat{
			Type:       "json_schema",
			JSONSchema: responseSchema{Name: schemaName, Schema: schema, Strict: true},
		},
	})
	if err != nil {
		return nil, TokenUsage{}, fmt.Errorf("error marshalling chat completion request: %w", err)
	}

	var parsed chatCompletionResponse
	operation := func() error {
		req, err := http.NewRequest(http.MethodPost, c.Endpoint.String(), bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("error calling LLM: %w", err)
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("error reading LLM response: %w", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			log.Log(requestID, "retrying LLM call", "status", resp.StatusCode)
			return fmt.Errorf("LLM returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("LLM returned status %d: %s", resp.StatusCode, respBody))
		}
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("error parsing LLM response envelope: %w", err))
		}
		return nil
	}

	backOff := backoff.NewExponentialBackOff()
	backOff.InitialInterval = llmRetryBaseInterval
	backOff.Multiplier = 2
	backOff.RandomizationFactor = 0
	backOff.MaxElapsedTime = 0
	if err := backoff.Retry(operation, backoff.WithMaxRetries(backOff, llmMaxRetryAttempts-1)); err != nil {
		return nil, TokenUsage{}, xerrors.Wrap(xerrors.KindDependencyFailure, err)
	}

	if len(parsed.Choices) == 0 {
		return nil, TokenUsage{}, xerrors.Wrap(xerrors.KindDependencyFailure, fmt.Errorf("LLM returned no choices"))
	}
	usage := TokenUsage{
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}

	content := StripMarkdownFences(parsed.Choices[0].Message.Content)
	if json.Valid([]byte(content)) {
		return json.RawMessage(content), usage, nil
	}

	repaired := RepairJSON(content)
	if !json.Valid([]byte(repaired)) {
		return nil, usage, xerrors.Unretriable(fmt.Errorf("LLM returned unparseable JSON (%d bytes, repair failed)", len(content)))
	}
	log.Log(requestID, "repaired malformed LLM JSON", "original_len", len(content), "repaired_len", len(repaired))
	return json.RawMessage(repaired), usage, nil
}

// StripMarkdownFences removes a ```json ... ``` wrapper that models sometimes
// emit despite the structured response format.
func StripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// RepairJSON fixes the two most common truncation artifacts: trailing commas
// and unbalanced braces/brackets. A comma dangling at the very end of a
// truncated response is stripped before closers are appended, and the
// trailing-comma pass runs again afterwards in case the appended closers
// exposed a new one. Brackets are closed before braces so that arrays nested
// in objects terminate correctly.
func RepairJSON(s string) string {
	repaired := trailingCommaRe.ReplaceAllString(s, "$1")
	repaired = strings.TrimRight(repaired, " \t\r\n")
	repaired = strings.TrimSuffix(repaired, ",")

	openBraces := strings.Count(repaired, "{")
	closeBraces := strings.Count(repaired, "}")
	openBrackets := strings.Count(repaired, "[")
	closeBrackets := strings.Count(repaired, "]")

	if openBrackets > closeBrackets {
		repaired += strings.Repeat("]", openBrackets-closeBrackets)
	}
	if openBraces > closeBraces {
		repaired += strings.Repeat("}", openBraces-closeBraces)
	}
	return trailingCommaRe.ReplaceAllString(repaired, "$1")
}
