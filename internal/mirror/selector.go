// Package mirror selects the fastest-reachable regional database mirror by
// racing reachability probes and taking the first to respond.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrNoMirror is returned when every candidate mirror probe fails.
var ErrNoMirror = errors.New("no reachable database mirror")

// Probe attempts a lightweight fetch of a known-present object under one
// mirror root. A nil error means the mirror is reachable.
type Probe func(ctx context.Context, url string) error

// Selector races one probe per candidate suffix.
type Selector struct {
	suffixes    []string
	rootPattern string
	testObject  string
	probe       Probe
	log         *slog.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithProbe replaces the default HTTP probe. Used by tests.
func WithProbe(p Probe) Option {
	return func(s *Selector) { s.probe = p }
}

// New creates a mirror selector. rootPattern must contain a single %s verb
// for the suffix; testObject is resolved relative to the formatted root.
func New(suffixes []string, rootPattern, testObject string, opts ...Option) *Selector {
	s := &Selector{
		suffixes:    suffixes,
		rootPattern: rootPattern,
		testObject:  testObject,
		probe:       httpProbe(&http.Client{Timeout: 2 * time.Minute}),
		log:         slog.With("component", "mirror"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the database root URL for a suffix.
func (s *Selector) Root(suffix string) string {
	return fmt.Sprintf(s.rootPattern, suffix)
}

// Select races all candidate probes concurrently and returns the suffix of
// whichever completes first. Remaining probes are cancelled. If every probe
// fails, the probe errors are propagated; there is no silent fallback to a
// default mirror.
func (s *Selector) Select(ctx context.Context) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		suffix string
		err    error
	}
	results := make(chan outcome, len(s.suffixes))

	for _, suffix := range s.suffixes {
		go func(suffix string) {
			url := s.Root(suffix) + s.testObject
			err := s.probe(ctx, url)
			results <- outcome{suffix: suffix, err: err}
		}(suffix)
	}

	var probeErrs []error
	for range s.suffixes {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res := <-results:
			if res.err == nil {
				s.log.Info("selected closest mirror", "suffix", res.suffix, "root", s.Root(res.suffix))
				return res.suffix, nil
			}
			probeErrs = append(probeErrs, fmt.Errorf("mirror %q: %w", res.suffix, res.err))
		}
	}

	return "", fmt.Errorf("%w: %w", ErrNoMirror, errors.Join(probeErrs...))
}

// httpProbe fetches the test object and discards the body. Any non-2xx
// status counts as unreachable.
func httpProbe(client *http.Client) Probe {
	return func(ctx context.Context, url string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
}
