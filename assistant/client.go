package assistant

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned when the proxy rejects the bearer token.
var ErrUnauthenticated = errors.New("assistant: unauthenticated")

// ErrStream wraps mid-stream transport failures.
var ErrStream = errors.New("assistant: stream failed")

// TokenSource supplies the bearer credential for each request. The
// edusession credential store satisfies it.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

// ChatRequest is one turn sent to the assistant proxy.
type ChatRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message"`
	Subject        string `json:"subject,omitempty"`
}

// Client streams chat turns from the platform's assistant proxy and runs
// every response through a [Cleaner] before it reaches the caller.
type Client struct {
	http         *http.Client
	endpoint     string
	tokens       TokenSource
	maxQuestions int
}

// NewClient creates an assistant client. endpoint is the full chat URL;
// tokens supplies the session's access token; maxQuestions caps extracted
// follow-ups per turn.
func NewClient(httpClient *http.Client, endpoint string, tokens TokenSource, maxQuestions int) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		http:         httpClient,
		endpoint:     endpoint,
		tokens:       tokens,
		maxQuestions: maxQuestions,
	}
}

// Stream sends one chat turn and delivers cleaned display deltas to
// onDelta as they arrive. It returns the final cleaned result once the
// stream ends. onDelta may be nil for callers that only want the result.
//
// The proxy speaks an SSE-shaped protocol: "data: <chunk>" lines, with
// "[DONE]" terminating the stream. Chunks are either plain text or a JSON
// object with a "content"/"text" field; both are handled, because the
// third-party service behind the proxy is not consistent about it.
func (c *Client) Stream(ctx context.Context, req ChatRequest, onDelta func(string)) (Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.tokens != nil {
		if token := c.tokens.AccessToken(ctx); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return Result{}, ErrUnauthenticated
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("%w: status %d", ErrStream, resp.StatusCode)
	}

	cleaner := NewCleaner(c.maxQuestions)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		chunk, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// Non-SSE fallback: the proxy occasionally streams raw
			// chunked text with no framing at all.
			chunk = line + "\n"
		} else {
			chunk = strings.TrimPrefix(chunk, " ")
		}

		if strings.TrimSpace(chunk) == "[DONE]" {
			break
		}

		delta := decodeChunk(chunk)
		if delta == "" {
			continue
		}
		if cleaned := cleaner.Feed(delta); cleaned != "" && onDelta != nil {
			onDelta(cleaned)
		}
	}
	if err := scanner.Err(); err != nil {
		// Deliver what was already cleaned; the caller decides whether a
		// truncated answer is worth showing.
		return cleaner.Flush(), fmt.Errorf("%w: %v", ErrStream, err)
	}

	return cleaner.Flush(), nil
}

// decodeChunk extracts the text delta from one stream chunk, accepting
// both raw text and the JSON envelope variants the proxy emits.
func decodeChunk(chunk string) string {
	trimmed := strings.TrimSpace(chunk)
	if !strings.HasPrefix(trimmed, "{") {
		return chunk
	}

	var envelope struct {
		Content string `json:"content"`
		Text    string `json:"text"`
		Delta   struct {
			Content string `json:"content"`
		} `json:"delta"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return chunk
	}

	switch {
	case envelope.Content != "":
		return envelope.Content
	case envelope.Text != "":
		return envelope.Text
	case envelope.Delta.Content != "":
		return envelope.Delta.Content
	}
	return ""
}
