package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// proxyClient talks to the mediator. It holds the capability token, never
// the upstream credential.
type proxyClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func newProxyClient(baseURL, token string) *proxyClient {
	return &proxyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// apiError is a non-2xx mediator response: the body is the mediator's (or
// the relayed upstream's) error JSON.
type apiError struct {
	StatusCode int
	Body       []byte
}

func (e *apiError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("mediator responded %d", e.StatusCode)
	}
	return fmt.Sprintf("mediator responded %d: %s", e.StatusCode, body)
}

func (p *proxyClient) request(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u := p.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("could not encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("could not construct request: %w", err)
	}
	req.Header.Set("X-Proxy-Token", p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mediator unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("response read failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apiError{StatusCode: resp.StatusCode, Body: data}
	}

	return data, nil
}

func (p *proxyClient) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return p.request(ctx, http.MethodGet, path, query, nil)
}

func (p *proxyClient) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return p.request(ctx, http.MethodPost, path, nil, body)
}
