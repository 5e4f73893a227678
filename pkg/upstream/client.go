// Package upstream talks to the AI aggregation service's driver-call
// endpoint.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultURL = "https://api.puter.com/drivers/call"

	DefaultOrigin    = "https://docs.puter.com"
	DefaultReferer   = "https://docs.puter.com/"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	DefaultChatTimeout  = 60 * time.Second
	DefaultImageTimeout = 120 * time.Second

	// maxErrorBody bounds how much of a failed response is kept for logging.
	maxErrorBody = 4 * 1024
)

// Config is the upstream client configuration.
type Config struct {
	URL       string
	Origin    string
	Referer   string
	UserAgent string

	// ChatTimeout bounds the wait for response headers and every idle
	// period between stream reads.
	ChatTimeout time.Duration

	// ImageTimeout bounds a whole image call.
	ImageTimeout time.Duration

	// HTTPClient overrides the transport. The idle stream timeout and the
	// image timeout still apply. The default transport bounds dialing, the
	// TLS handshake and the wait for response headers by ChatTimeout.
	HTTPClient *http.Client

	Logger *zap.Logger
}

// Client performs upstream driver calls. It is safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client, filling unset fields with defaults.
func NewClient(c Config) *Client {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Origin == "" {
		c.Origin = DefaultOrigin
	}
	if c.Referer == "" {
		c.Referer = DefaultReferer
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.ChatTimeout <= 0 {
		c.ChatTimeout = DefaultChatTimeout
	}
	if c.ImageTimeout <= 0 {
		c.ImageTimeout = DefaultImageTimeout
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   c.ChatTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   c.ChatTimeout,
				ResponseHeaderTimeout: c.ChatTimeout,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConnsPerHost:   16,
			},
		}
	}

	return &Client{
		config:     c,
		httpClient: httpClient,
		logger:     logger,
	}
}

// OpenStream sends a chat call and returns the streaming body. The caller
// must close it. Reads that stay idle longer than ChatTimeout fail.
func (c *Client) OpenStream(ctx context.Context, payload Payload) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)

	resp, err := c.do(ctx, payload)
	if err != nil {
		cancel()
		return nil, err
	}

	return newIdleReader(resp.Body, c.config.ChatTimeout, cancel), nil
}

// Call sends a non-streaming call and returns the full body.
func (c *Client) Call(ctx context.Context, payload Payload) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ImageTimeout)
	defer cancel()

	resp, err := c.do(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("reading response: %w", err)}
	}

	return body, nil
}

// do posts the payload and returns a 200 response. Any other status is
// drained and turned into a StatusError.
func (c *Client) do(ctx context.Context, payload Payload) (*http.Response, error) {
	body, err := payload.marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	c.logger.Debug("calling upstream",
		zap.String("url", c.config.URL),
		zap.String("interface", payload.Interface),
		zap.String("driver", payload.Driver),
		zap.Int("body_size", len(body)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()

		c.logger.Error("upstream returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Origin", c.config.Origin)
	req.Header.Set("Referer", c.config.Referer)
	req.Header.Set("User-Agent", c.config.UserAgent)
}

// idleReader cancels the request when a single read waits on the upstream
// longer than timeout. Time spent between reads does not count.
type idleReader struct {
	body    io.ReadCloser
	timeout time.Duration
	cancel  context.CancelFunc
	timer   *time.Timer

	mu      sync.Mutex
	expired bool
	once    sync.Once
}

func newIdleReader(body io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleReader {
	r := &idleReader{body: body, timeout: timeout, cancel: cancel}
	r.timer = time.AfterFunc(timeout, r.expire)
	r.timer.Stop()
	return r
}

func (r *idleReader) expire() {
	r.mu.Lock()
	r.expired = true
	r.mu.Unlock()
	r.cancel()
}

func (r *idleReader) Read(p []byte) (int, error) {
	r.timer.Reset(r.timeout)
	n, err := r.body.Read(p)
	r.timer.Stop()

	if err != nil && err != io.EOF {
		r.mu.Lock()
		expired := r.expired
		r.mu.Unlock()
		if expired {
			return n, &transportError{err: fmt.Errorf("stream idle for more than %s", r.timeout)}
		}
		return n, &transportError{err: err}
	}
	return n, err
}

func (r *idleReader) Close() error {
	var err error
	r.once.Do(func() {
		r.timer.Stop()
		err = r.body.Close()
		r.cancel()
	})
	return err
}
