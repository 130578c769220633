// Package uploader pushes local files to the Uploda.sh file host and
// returns the share URL it hands back.
package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/edgard/file2link/internal/config"
	"github.com/edgard/file2link/internal/logger"
	"github.com/edgard/file2link/internal/resilience"
)

var (
	// ErrUnexpectedStatus is returned when the host answers with a non-200 status.
	ErrUnexpectedStatus = errors.New("unexpected upload status")
	// ErrUploadRejected is returned when the host answers 200 without a usable URL.
	ErrUploadRejected = errors.New("upload rejected")
)

const maxErrorBody = 512

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// response is the JSON body returned by the upload endpoint.
type response struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Client uploads files through a circuit breaker with retries.
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	retry      resilience.RetryConfig
	logger     *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryConfig replaces the retry policy. MaxAttempts from config still wins
// when the supplied value is zero.
func WithRetryConfig(rc resilience.RetryConfig) Option {
	return func(c *Client) {
		if rc.MaxAttempts == 0 {
			rc.MaxAttempts = c.retry.MaxAttempts
		}
		rc.Logger = c.logger
		c.retry = rc
	}
}

// NewClient builds an uploader from config.
func NewClient(cfg config.UploaderConfig, log *slog.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.Discard()
	}
	log = log.With("component", "uploader")

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxAttempts
	retry.Logger = log

	c := &Client{
		endpoint:   cfg.Endpoint,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:        "uploda.sh",
			MaxFailures: cfg.BreakerFailures,
			Timeout:     cfg.Timeout,
			Logger:      log,
		}),
		retry:  retry,
		logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload sends the file at path and returns its share URL.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	var url string
	started := time.Now()

	err := resilience.WithRetry(ctx, func(ctx context.Context) error {
		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			u, err := c.uploadOnce(ctx, path)
			if err != nil {
				return err
			}
			url = u
			return nil
		})
	}, c.retry)
	if err != nil {
		c.logger.WarnContext(ctx, "Upload failed", "path", path, "error", err)
		return "", err
	}

	c.logger.InfoContext(ctx, "Upload completed", "path", path, "url", url, "duration", time.Since(started))
	return url, nil
}

func (c *Client) uploadOnce(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", resilience.Permanent(fmt.Errorf("open upload file: %w", err))
	}
	defer f.Close()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeBody(mw, f, filepath.Base(path)))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		pr.CloseWithError(err)
		return "", resilience.Permanent(fmt.Errorf("build upload request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	// #nosec G107 -- endpoint from config
	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
		if isClientError(resp.StatusCode) {
			return "", resilience.Permanent(statusErr)
		}
		return "", statusErr
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if !payload.Success || payload.Data.URL == "" {
		return "", resilience.Permanent(fmt.Errorf("%w: success=%t", ErrUploadRejected, payload.Success))
	}

	return payload.Data.URL, nil
}

// writeBody streams the single "file" part and closes the multipart writer.
func writeBody(mw *multipart.Writer, src io.Reader, name string) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", "application/octet-stream")

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return mw.Close()
}

// isClientError reports statuses that retrying will not change.
func isClientError(code int) bool {
	return code >= 400 && code < 500 &&
		code != http.StatusRequestTimeout &&
		code != http.StatusTooManyRequests
}
