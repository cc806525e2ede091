package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/AhaanV05/Reverse-Turing/models"
	"github.com/AhaanV05/Reverse-Turing/utils"
)

// CompletionProvider produces one AI reply for an ordered conversation.
// Failures are transient; the dispatcher logs them and retries next cycle.
type CompletionProvider interface {
	Complete(ctx context.Context, messages []models.Message) (string, error)
}

// OpenRouterClient calls the OpenRouter chat-completions API, rotating
// between the configured keys on each call to spread rate limits.
type OpenRouterClient struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client

	keys  []string
	calls uint32
}

func NewOpenRouterClient() (*OpenRouterClient, error) {
	var keys []string
	for _, env := range []string{"OPENROUTER_API_KEY", "OPENROUTER_API_KEY2"} {
		if k := os.Getenv(env); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable not set")
	}

	model := os.Getenv("OPENROUTER_MODEL")
	if model == "" {
		model = "meta-llama/llama-3.3-70b-instruct"
	}

	return &OpenRouterClient{
		BaseURL:    "https://openrouter.ai/api/v1",
		Model:      model,
		HTTPClient: utils.HTTPClient,
		keys:       keys,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// buildPrompt strips stored developer messages and prepends the persona and
// style instructions.
func buildPrompt(messages []models.Message) []chatMessage {
	out := []chatMessage{
		{Role: models.RoleDeveloper, Content: AIPrompt},
		{Role: models.RoleDeveloper, Content: StylePrompt},
	}
	for _, m := range messages {
		if m.Role == models.RoleDeveloper {
			continue
		}
		out = append(out, chatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *OpenRouterClient) Complete(ctx context.Context, messages []models.Message) (string, error) {
	payload := map[string]interface{}{
		"model":      c.Model,
		"messages":   buildPrompt(messages),
		"max_tokens": MaxOutputTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	key := c.keys[int(atomic.AddUint32(&c.calls, 1))%len(c.keys)]
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("completion provider returned status %d: %s", resp.StatusCode, string(snippet))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
