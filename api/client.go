// Package api wraps the platform's resource endpoints (classes, accounts,
// assignments, learning resources, and operation logs) as thin typed
// clients sharing one bearer-authenticated transport. Each wrapper is
// fetch-and-decode only; all session logic stays in the root package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrUnauthenticated is returned when the backend rejects the bearer
	// token. The caller should re-run the session init check.
	ErrUnauthenticated = errors.New("api: unauthenticated")
	// ErrForbidden is returned when the authenticated role may not touch
	// the resource.
	ErrForbidden = errors.New("api: forbidden")
	// ErrNotFound is returned for missing resources.
	ErrNotFound = errors.New("api: not found")
	// ErrRemote wraps other non-2xx responses.
	ErrRemote = errors.New("api: request failed")
)

// TokenSource supplies the bearer credential for each request. The
// edusession credential store satisfies it.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

// Client is the shared transport for every resource service.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  TokenSource
}

// New creates a resource client rooted at baseURL.
func New(httpClient *http.Client, baseURL string, tokens TokenSource) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
	}
}

// Classes returns the class roster service.
func (c *Client) Classes() *ClassService { return &ClassService{c} }

// Accounts returns the user administration service.
func (c *Client) Accounts() *AccountService { return &AccountService{c} }

// Assignments returns the assignment service.
func (c *Client) Assignments() *AssignmentService { return &AssignmentService{c} }

// Resources returns the learning-resource service.
func (c *Client) Resources() *ResourceService { return &ResourceService{c} }

// Logs returns the operation-log service.
func (c *Client) Logs() *LogService { return &LogService{c} }

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, in, out)
}

func (c *Client) put(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, in, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.AccessToken(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrRemote, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
