package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/internal/version"
	"github.com/sdkforge/sdkforge-cli/pkg/utils"
)

const maxRedirects = 10

// Logger is the minimal logging surface this package needs
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

// Downloader fetches release artifacts over HTTPS with retries, validation
// and atomic placement. Artifacts land at the requested destination only
// after the whole body has been received and validated, so an interrupted
// download never leaves a truncated file where a later run would trust it.
type Downloader struct {
	client       *http.Client
	logger       Logger
	retries      int
	retryDelay   time.Duration
	showProgress bool
	userAgent    string
}

// Option configures a Downloader
type Option func(*Downloader)

// WithRetries sets how many times a failed attempt is retried
func WithRetries(n int) Option {
	return func(d *Downloader) {
		if n >= 0 {
			d.retries = n
		}
	}
}

// WithRetryDelay sets the base delay between attempts
func WithRetryDelay(delay time.Duration) Option {
	return func(d *Downloader) { d.retryDelay = delay }
}

// WithProgress enables a terminal progress bar during transfers
func WithProgress(enabled bool) Option {
	return func(d *Downloader) { d.showProgress = enabled }
}

// NewDownloader creates a downloader. A nil logger disables logging.
func NewDownloader(logger Logger, opts ...Option) *Downloader {
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	d := &Downloader{
		client: &http.Client{
			Transport: &http.Transport{
				TLSHandshakeTimeout:   15 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		logger:     logger,
		retries:    3,
		retryDelay: 2 * time.Second,
		userAgent:  version.UserAgent(),
	}

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Request describes a single artifact to fetch
type Request struct {
	URL         string
	Dest        string
	Timeout     time.Duration
	MinSize     int64  // reject bodies smaller than this, 0 disables
	Description string // shown next to the progress bar
}

// Result reports what was actually downloaded
type Result struct {
	Size     int64
	FinalURL string
	Duration time.Duration
}

// Download fetches req.URL to req.Dest. Transient failures (network errors,
// 5xx responses, truncated bodies) are retried with linear backoff; a 404 is
// final because retrying cannot make the artifact exist.
func (d *Downloader) Download(ctx context.Context, req Request) (*Result, error) {
	if req.URL == "" || req.Dest == "" {
		return nil, sdkerrors.NewInvalidArgumentError("DOWNLOAD_BAD_REQUEST",
			"download needs both a URL and a destination")
	}

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			delay := d.retryDelay * time.Duration(attempt)
			d.logger.Warn("Retrying download (%d/%d) in %v: %v", attempt, d.retries, delay, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, sdkerrors.WrapError(ctx.Err(), sdkerrors.ErrorTypeTimeout,
					"DOWNLOAD_CANCELLED", "download cancelled").WithDetail("url", req.URL)
			}
		}

		result, retryable, err := d.attempt(ctx, req)
		if err == nil {
			result.Duration = time.Since(start)
			d.logger.Debug("Downloaded %s (%s) in %v", req.URL, utils.FormatSize(result.Size), result.Duration)
			return result, nil
		}

		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, sdkerrors.WrapError(lastErr, sdkerrors.ErrorTypeDownload, "DOWNLOAD_FAILED",
		fmt.Sprintf("download failed after %d attempts", d.retries+1)).
		WithDetail("url", req.URL).
		WithDetail("attempts", fmt.Sprintf("%d", d.retries+1))
}

// attempt performs a single download attempt. The boolean reports whether the
// failure is worth retrying.
func (d *Downloader) attempt(ctx context.Context, req Request) (*Result, bool, error) {
	if err := os.MkdirAll(filepath.Dir(req.Dest), 0755); err != nil {
		return nil, false, sdkerrors.WrapError(err, sdkerrors.ErrorTypePermission, "DEST_NOT_CREATABLE",
			fmt.Sprintf("cannot create download directory %s", filepath.Dir(req.Dest)))
	}

	// The temp file lives next to the destination so the final rename stays
	// on one filesystem.
	tempFile, err := os.CreateTemp(filepath.Dir(req.Dest), ".sdkforge-download-*")
	if err != nil {
		return nil, false, sdkerrors.WrapError(err, sdkerrors.ErrorTypePermission, "TEMP_NOT_CREATABLE",
			"cannot create temporary download file")
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)
	defer tempFile.Close()

	attemptCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, false, sdkerrors.WrapError(err, sdkerrors.ErrorTypeDownload, "DOWNLOAD_BAD_URL",
			"cannot build download request").WithDetail("url", req.URL)
	}
	httpReq.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return nil, true, sdkerrors.NewTimeoutError("DOWNLOAD_TIMEOUT",
				fmt.Sprintf("download timed out after %v", req.Timeout)).WithDetail("url", req.URL)
		}
		return nil, true, sdkerrors.WrapError(err, sdkerrors.ErrorTypeNetwork, "DOWNLOAD_NETWORK",
			"network failure during download").WithDetail("url", req.URL).SetRetryable(true)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, sdkerrors.NewDownloadError("DOWNLOAD_NOT_FOUND",
			fmt.Sprintf("HTTP 404: artifact does not exist at %s", req.URL)).
			WithDetail("url", req.URL).
			SetRetryable(false)
	case resp.StatusCode >= 500:
		return nil, true, sdkerrors.NewDownloadError("DOWNLOAD_SERVER_ERROR",
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status)).WithDetail("url", req.URL)
	default:
		return nil, false, sdkerrors.NewDownloadError("DOWNLOAD_REJECTED",
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status)).
			WithDetail("url", req.URL).
			SetRetryable(false)
	}

	var body io.Reader = resp.Body
	var bar *utils.ProgressBar
	if d.showProgress {
		bar = utils.NewProgressBar(resp.ContentLength, req.Description)
		body = io.TeeReader(resp.Body, utils.NewProgressWriter(bar))
	}

	written, err := io.Copy(tempFile, body)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return nil, true, sdkerrors.NewTimeoutError("DOWNLOAD_TIMEOUT",
				fmt.Sprintf("download timed out after %v", req.Timeout)).WithDetail("url", req.URL)
		}
		return nil, true, sdkerrors.WrapError(err, sdkerrors.ErrorTypeDownload, "DOWNLOAD_INTERRUPTED",
			"download interrupted").WithDetail("url", req.URL)
	}

	if req.MinSize > 0 && written < req.MinSize {
		return nil, true, sdkerrors.NewDownloadError("DOWNLOAD_TRUNCATED",
			fmt.Sprintf("body too small: %d bytes (expected at least %d)", written, req.MinSize)).
			WithDetail("url", req.URL)
	}

	if err := tempFile.Close(); err != nil {
		return nil, false, sdkerrors.WrapError(err, sdkerrors.ErrorTypeDownload, "DOWNLOAD_WRITE",
			"cannot finalize downloaded file").WithDetail("url", req.URL)
	}

	// A body that parses as an HTML error page or carries the wrong magic
	// bytes means the mirror answered with something other than the
	// artifact; installing it would fail much later with a worse message.
	if err := validateArtifact(tempPath, req.URL); err != nil {
		return nil, true, err
	}

	if err := os.Rename(tempPath, req.Dest); err != nil {
		if err := copyAndDelete(tempPath, req.Dest); err != nil {
			return nil, false, sdkerrors.WrapError(err, sdkerrors.ErrorTypePermission, "DEST_NOT_WRITABLE",
				fmt.Sprintf("cannot place download at %s", req.Dest))
		}
	}

	return &Result{
		Size:     written,
		FinalURL: resp.Request.URL.String(),
	}, true, nil
}

// validateArtifact checks the payload's magic bytes against what the URL's
// extension promises.
func validateArtifact(path, url string) error {
	file, err := os.Open(path)
	if err != nil {
		return sdkerrors.WrapError(err, sdkerrors.ErrorTypeDownload, "DOWNLOAD_UNREADABLE",
			"cannot read downloaded file for validation")
	}
	defer file.Close()

	header := make([]byte, 512)
	n, err := file.Read(header)
	if err != nil && err != io.EOF {
		return sdkerrors.WrapError(err, sdkerrors.ErrorTypeDownload, "DOWNLOAD_UNREADABLE",
			"cannot read downloaded file for validation")
	}
	header = header[:n]

	if looksLikeErrorPage(header) {
		return sdkerrors.NewDownloadError("DOWNLOAD_ERROR_PAGE",
			"server returned an HTML error page instead of the artifact").WithDetail("url", url)
	}

	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		if len(header) < 4 || header[0] != 0x50 || header[1] != 0x4b {
			return sdkerrors.NewDownloadError("DOWNLOAD_BAD_MAGIC",
				fmt.Sprintf("invalid ZIP header: expected 50 4b, got % x", headPreview(header))).
				WithDetail("url", url)
		}
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		if len(header) < 2 || header[0] != 0x1f || header[1] != 0x8b {
			return sdkerrors.NewDownloadError("DOWNLOAD_BAD_MAGIC",
				fmt.Sprintf("invalid gzip header: expected 1f 8b, got % x", headPreview(header))).
				WithDetail("url", url)
		}
	}
	// Other formats (dmg images) keep their magic at the end of the file, so
	// the error-page check above is the only cheap validation available.

	return nil
}

func headPreview(header []byte) []byte {
	if len(header) > 2 {
		return header[:2]
	}
	return header
}

// looksLikeErrorPage detects HTML or JSON bodies served in place of a binary
func looksLikeErrorPage(header []byte) bool {
	probe := header
	if len(probe) > 100 {
		probe = probe[:100]
	}
	if bytes.Contains(probe, []byte("<html")) || bytes.Contains(probe, []byte("<!DOCTYPE")) {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(header), []byte("{"))
}

// copyAndDelete is the fallback when rename fails, which happens on Windows
// when a virus scanner still holds the temp file.
func copyAndDelete(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		os.Remove(dst)
		return err
	}
	if err := dstFile.Sync(); err != nil {
		os.Remove(dst)
		return err
	}

	dstFile.Close()
	os.Remove(src)
	return nil
}
