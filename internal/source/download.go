package source

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DownloadOptions configures the Downloader.
type DownloadOptions struct {
	UserAgent   string
	Timeout     time.Duration
	MaxRetries  int
	BaseBackoff time.Duration
	RateLimit   rate.Limit // requests per second; 0 means 2
}

// Downloader fetches published extracts over HTTP with retry and rate limiting.
type Downloader struct {
	client  *http.Client
	opts    DownloadOptions
	limiter *rate.Limiter
}

// NewDownloader creates a Downloader, filling unset options with defaults.
func NewDownloader(opts DownloadOptions) *Downloader {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseBackoff == 0 {
		opts.BaseBackoff = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "parking-cli/1.0"
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 2
	}
	return &Downloader{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: rate.NewLimiter(opts.RateLimit, 1),
	}
}

// retryableStatus reports whether a response status is worth retrying.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func (d *Downloader) get(ctx context.Context, rawURL string) (*http.Response, error) {
	var lastErr error
	for attempt := range d.opts.MaxRetries {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "download: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "download: create request")
		}
		req.Header.Set("User-Agent", d.opts.UserAgent)

		resp, err := d.client.Do(req)
		if err != nil {
			lastErr = err
			zap.L().Warn("download: request failed, retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		} else if retryableStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, rawURL)
			zap.L().Warn("download: server error, retrying",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
		} else if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, eris.Errorf("download: unexpected status %d from %s", resp.StatusCode, rawURL)
		} else {
			return resp, nil
		}

		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "download: context cancelled")
		}
		if attempt < d.opts.MaxRetries-1 {
			d.backoff(ctx, attempt)
		}
	}
	return nil, eris.Wrap(lastErr, "download: all retries exhausted")
}

func (d *Downloader) backoff(ctx context.Context, attempt int) {
	delay := time.Duration(float64(d.opts.BaseBackoff) * math.Pow(2, float64(attempt)))
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	if half := int64(delay) / 2; half > 0 {
		delay += time.Duration(rand.Int64N(half))
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// open picks the transport from the URL scheme: ftp:// or http(s)://.
func (d *Downloader) open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if strings.HasPrefix(strings.ToLower(rawURL), "ftp://") {
		return d.openFTP(ctx, rawURL)
	}
	resp, err := d.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DownloadToFile fetches rawURL (http, https, or ftp) into path, creating
// parent directories. The file appears under its final name only when complete.
// Returns bytes written.
func (d *Downloader) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	body, err := d.open(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrap(err, "download: create directory")
	}
	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, eris.Wrap(err, "download: create file")
	}

	n, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return n, eris.Wrap(err, "download: write file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return n, eris.Wrap(err, "download: finalize file")
	}

	zap.L().Info("download: complete", zap.String("url", rawURL), zap.String("path", path), zap.Int64("bytes", n))
	return n, nil
}
