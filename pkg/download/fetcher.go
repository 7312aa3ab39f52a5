package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// ErrKind classifies a fetch failure for retry decisions and reporting.
type ErrKind int

const (
	KindNone ErrKind = iota
	KindTransient
	KindPermanent
)

func (k ErrKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "none"
	}
}

// BinaryClient is the network collaborator the fetcher pulls bytes
// through. Implementations should return errors that expose an HTTP
// status via StatusCode() so failures can be classified.
type BinaryClient interface {
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}

// statusCoder is satisfied by client errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// ErrUndersized marks a response body smaller than the configured
// minimum. Sites sometimes return placeholder images with HTTP 200;
// those are retried as transient failures.
var ErrUndersized = errors.New("response smaller than minimum image size")

// Outcome is the result of fetching one work item.
type Outcome struct {
	Bytes    int64
	Attempts int
	Kind     ErrKind
	Err      error
}

func (o Outcome) OK() bool { return o.Err == nil }

// Fetcher downloads a single resource to disk with bounded retry and
// exponential backoff. Writes are atomic: the body streams to a .part
// file which is renamed into place only after size validation.
type Fetcher struct {
	Client      BinaryClient
	MaxAttempts int
	BackoffBase time.Duration
	MinBytes    int64

	// sleep is swapped out by tests to observe backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewFetcher(client BinaryClient, maxAttempts int, backoffBase time.Duration, minBytes int64) *Fetcher {
	return &Fetcher{
		Client:      client,
		MaxAttempts: maxAttempts,
		BackoffBase: backoffBase,
		MinBytes:    minBytes,
		sleep:       sleepCtx,
	}
}

// Fetch downloads item.URL to item.Dest. A destination file that
// already exists with a plausible size is trusted without a network
// round trip, so resumed runs never redo confirmed work.
func (f *Fetcher) Fetch(ctx context.Context, item WorkItem) Outcome {
	if info, err := os.Stat(item.Dest); err == nil && info.Size() >= f.MinBytes {
		return Outcome{Bytes: info.Size()}
	}

	if _, err := url.ParseRequestURI(item.URL); err != nil {
		return Outcome{Kind: KindPermanent, Err: fmt.Errorf("malformed url %q: %w", item.URL, err)}
	}
	if err := os.MkdirAll(filepath.Dir(item.Dest), 0755); err != nil {
		return Outcome{Kind: KindPermanent, Err: fmt.Errorf("create chapter directory: %w", err)}
	}

	var lastErr error
	for attempt := 0; attempt < f.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := f.sleep(ctx, f.backoff(attempt-1)); err != nil {
				return Outcome{Attempts: attempt, Kind: KindTransient, Err: err}
			}
		}

		n, err := f.fetchOnce(ctx, item)
		if err == nil {
			return Outcome{Bytes: n, Attempts: attempt + 1}
		}
		lastErr = err

		if kind := Classify(err); kind == KindPermanent {
			return Outcome{Attempts: attempt + 1, Kind: KindPermanent, Err: err}
		}
	}

	return Outcome{
		Attempts: f.MaxAttempts,
		Kind:     KindTransient,
		Err:      fmt.Errorf("giving up after %d attempts: %w", f.MaxAttempts, lastErr),
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, item WorkItem) (int64, error) {
	body, err := f.Client.Get(ctx, item.URL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	tmp := item.Dest + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return 0, permanent(fmt.Errorf("create %s: %w", tmp, err))
	}

	n, err := io.Copy(file, body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("write %s: %w", tmp, err)
	}
	if n < f.MinBytes {
		os.Remove(tmp)
		return 0, fmt.Errorf("%w: got %d bytes", ErrUndersized, n)
	}

	if err := os.Rename(tmp, item.Dest); err != nil {
		os.Remove(tmp)
		return 0, permanent(fmt.Errorf("rename into place: %w", err))
	}
	return n, nil
}

// backoff returns base * 2^attempt with up to 25% jitter on top, so
// parallel retries against the site don't land in lockstep.
func (f *Fetcher) backoff(attempt int) time.Duration {
	d := f.BackoffBase << uint(attempt)
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

// Classify maps an error to its retry class. Timeouts, resets, 5xx and
// rate limiting are transient; everything definitively broken (bad URL,
// 404, unwritable destination) is permanent.
func Classify(err error) ErrKind {
	if err == nil {
		return KindNone
	}

	var perm *permanentError
	if errors.As(err, &perm) {
		return KindPermanent
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		if code >= 500 || code == 429 {
			return KindTransient
		}
		return KindPermanent
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var netErr net.Error
		if errors.As(urlErr, &netErr) && netErr.Timeout() {
			return KindTransient
		}
		// Connection refused/reset and DNS hiccups are worth retrying.
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	if errors.Is(err, ErrUndersized) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindTransient
	}

	return KindTransient
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return &permanentError{err: err} }

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
