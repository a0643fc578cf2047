// Package completion talks to an OpenAI-compatible chat completion endpoint
// and relays the streamed tokens to the caller.
package completion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUpstream marks any completion-service failure (network, auth, quota,
// malformed stream) so handlers can collapse it into one generic client
// response while logging the detail server-side.
var ErrUpstream = errors.New("completion upstream error")

// Message is one {role, content} turn on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params carries the sampling settings for one call.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int // 0 means no cap
}

// Chunk is one unit of the relayed stream: a text fragment, a terminal Done,
// or a terminal Err. After an Err or Done chunk the channel is closed and
// nothing else arrives.
type Chunk struct {
	Data string
	Err  error
	Done bool
}

// Client issues streaming completion requests against a single endpoint URL
// (the URL is the complete endpoint, nothing is appended).
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client for an OpenAI-compatible /chat/completions
// endpoint. The timeout bounds the whole call including the streamed body;
// expiry mid-stream surfaces as ErrUpstream.
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BuildMessages assembles the ordered message list for one chat turn:
// system, stored history, then the new user message. The one exception is a
// greeting turn — empty history whose message is the trigger literal —
// which sends exactly [system, trigger] so the model produces the
// introduction without stray context.
func BuildMessages(systemPrompt string, history []Message, userMessage string, trigger string) []Message {
	if len(history) == 0 && userMessage == trigger {
		return []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		}
	}

	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: "system", Content: systemPrompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: "user", Content: userMessage})
	return msgs
}

// Stream sends the completion request with stream enabled and forwards each
// delta fragment to ch in arrival order. ch is always closed before Stream
// returns. The last chunk is either Done (clean end of stream — only then
// may the caller persist the turn) or Err. Canceling ctx abandons the
// upstream call.
func (c *Client) Stream(ctx context.Context, msgs []Message, p Params, ch chan<- Chunk) error {
	defer close(ch)

	// Every send races ctx: a consumer that hung up stops receiving, and
	// an unguarded send would strand this goroutine and the response body.
	send := func(chunk Chunk) bool {
		select {
		case ch <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	fail := func(err error) error {
		wrapped := fmt.Errorf("%w: %v", ErrUpstream, err)
		send(Chunk{Err: wrapped})
		return wrapped
	}

	body := map[string]interface{}{
		"model":       p.Model,
		"messages":    msgs,
		"temperature": p.Temperature,
		"stream":      true,
	}
	if p.MaxTokens > 0 {
		body["max_tokens"] = p.MaxTokens
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fail(fmt.Errorf("status %d: %s", resp.StatusCode, string(detail)))
	}

	// Parse the SSE stream: lines of `data: <json>` terminated by [DONE].
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			send(Chunk{Done: true})
			return nil
		}

		var chunk map[string]interface{}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed events rather than killing the stream.
			continue
		}
		if choices, ok := chunk["choices"].([]interface{}); ok && len(choices) > 0 {
			if choice, ok := choices[0].(map[string]interface{}); ok {
				if delta, ok := choice["delta"].(map[string]interface{}); ok {
					if content, ok := delta["content"].(string); ok && content != "" {
						if !send(Chunk{Data: content}) {
							return fail(ctx.Err())
						}
					}
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fail(err)
	}

	// Some gateways close the body without a [DONE] marker; treat a clean
	// EOF as end of stream.
	send(Chunk{Done: true})
	return nil
}
