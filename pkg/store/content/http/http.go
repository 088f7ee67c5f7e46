// Package http implements a content store backed by a remote HTTP object
// endpoint.
//
// The remote speaks a minimal unauthenticated protocol:
//
//	GET    {endpoint}/{key}   -> 200 body=payload | 404
//	POST   {endpoint}/{key}   body=payload -> 2xx
//	DELETE {endpoint}/{key}   -> 2xx | 404
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Lawliet-Chan/offchain-storage/pkg/store/content"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// HTTPContentStoreConfig contains configuration for the HTTP store.
type HTTPContentStoreConfig struct {
	// Endpoint is the base URL, e.g. "http://storage.local:8080/objects"
	Endpoint string `mapstructure:"endpoint"`

	// KeyEncoding is raw, hex or base58 (default: hex)
	KeyEncoding string `mapstructure:"key_encoding"`

	// Timeout bounds each request (default: 30s)
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxPayloadSize limits response bodies in bytes (default: 64MiB)
	MaxPayloadSize int64 `mapstructure:"max_payload_size"`

	// HealthPath is requested with GET by Healthcheck; empty skips the request
	HealthPath string `mapstructure:"health_path"`
}

// HTTPContentStore implements content.Store over HTTP.
//
// Thread Safety:
// Safe for concurrent use; the underlying http.Client is.
type HTTPContentStore struct {
	endpoint   *url.URL
	encoding   content.KeyEncoding
	client     *http.Client
	maxPayload int64
	healthPath string
}

// NewHTTPContentStore validates cfg and builds the store. No request is made.
func NewHTTPContentStore(cfg HTTPContentStoreConfig) (*HTTPContentStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("http content store: endpoint is required")
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("http content store: invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("http content store: endpoint scheme must be http or https, got %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""

	encName := cfg.KeyEncoding
	if encName == "" {
		encName = string(content.KeyHex)
	}
	enc, err := content.ParseKeyEncoding(encName)
	if err != nil {
		return nil, fmt.Errorf("http content store: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxPayload := cfg.MaxPayloadSize
	if maxPayload == 0 {
		maxPayload = 64 << 20
	}

	return &HTTPContentStore{
		endpoint:   u,
		encoding:   enc,
		client:     &http.Client{Timeout: timeout},
		maxPayload: maxPayload,
		healthPath: cfg.HealthPath,
	}, nil
}

// objectURL returns {endpoint}/{escaped key}.
//
// PathEscape leaves "." and ".." intact and servers resolve them as dot
// segments, so those two raw keys are rejected.
func (s *HTTPContentStore) objectURL(id metadata.Identifier) (string, error) {
	key, err := content.EncodeKey(id, s.encoding)
	if err != nil {
		return "", err
	}
	if key == "." || key == ".." {
		return "", fmt.Errorf("identifier %q is a dot segment: %w", key, content.ErrInvalidIdentifier)
	}
	return s.endpoint.String() + "/" + url.PathEscape(key), nil
}

func (s *HTTPContentStore) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s %s: %w: %v", method, target, content.ErrUnavailable, err)
	}
	return resp, nil
}

func (s *HTTPContentStore) Get(ctx context.Context, id metadata.Identifier) ([]byte, error) {
	target, err := s.objectURL(id)
	if err != nil {
		return nil, err
	}

	resp, err := s.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, statusError(http.MethodGet, resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxPayload+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(data)) > s.maxPayload {
		return nil, fmt.Errorf("payload for %s exceeds %d bytes", id, s.maxPayload)
	}

	return data, nil
}

func (s *HTTPContentStore) Set(ctx context.Context, id metadata.Identifier, data []byte) error {
	target, err := s.objectURL(id)
	if err != nil {
		return err
	}

	if data == nil {
		data = []byte{}
	}

	resp, err := s.do(ctx, http.MethodPost, target, data)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(http.MethodPost, resp)
	}
	return nil
}

// Delete treats 404 as success.
func (s *HTTPContentStore) Delete(ctx context.Context, id metadata.Identifier) error {
	target, err := s.objectURL(id)
	if err != nil {
		return err
	}

	resp, err := s.do(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(http.MethodDelete, resp)
	}
	return nil
}

// Healthcheck GETs HealthPath and expects a 2xx.
func (s *HTTPContentStore) Healthcheck(ctx context.Context) error {
	if s.healthPath == "" {
		return ctx.Err()
	}

	target := s.endpoint.String() + "/" + strings.TrimPrefix(s.healthPath, "/")
	resp, err := s.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(http.MethodGet, resp)
	}
	return nil
}

func (s *HTTPContentStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func statusError(method string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	msg := strings.TrimSpace(string(snippet))

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: remote returned %d %s: %w", method, resp.StatusCode, msg, content.ErrUnavailable)
	}
	return fmt.Errorf("%s: remote returned %d %s", method, resp.StatusCode, msg)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
