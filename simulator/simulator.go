// Package simulator emulates an attendance terminal talking to an ADMS server:
// one handshake followed by a fixed list of swipes.
package simulator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/THPTUHA/iclocksim/pkg/adms"
	"github.com/sirupsen/logrus"
)

type Simulator struct {
	config *Config
	client *http.Client
	out    io.Writer
	logger *logrus.Entry

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

type Option func(*Simulator)

// WithHTTPClient replaces the client built from the config.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Simulator) {
		s.client = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		s.now = now
	}
}

func WithSleep(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(s *Simulator) {
		s.sleep = sleep
	}
}

// New builds a simulator writing its status lines to out.
func New(config *Config, out io.Writer, logger *logrus.Entry, opts ...Option) *Simulator {
	s := &Simulator{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		out:    out,
		logger: logger,
		now:    time.Now,
		sleep:  blockingSleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func blockingSleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// PushResult is the outcome of one swipe that reached the server.
type PushResult struct {
	Record adms.AttendanceRecord
	Body   string
	OK     bool
}

// Summary collects what happened during Run. Errors are informational, Run
// itself never fails.
type Summary struct {
	Handshake error
	Pushes    []PushResult
	Errors    []error
}

func (s *Summary) Failed() int {
	n := len(s.Errors)
	for _, p := range s.Pushes {
		if !p.OK {
			n++
		}
	}
	return n
}

func (s *Simulator) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *Simulator) endpoint() (string, error) {
	return adms.CDataURL(s.config.ServerURL, s.config.DeviceSN)
}

// Handshake announces the device to the server. The reply is not inspected.
func (s *Simulator) Handshake(ctx context.Context) error {
	err := s.handshake(ctx)
	if err != nil {
		s.printf("Handshake failed: %v", err)
		s.logger.WithError(err).Warn("handshake failed")
	}
	return err
}

func (s *Simulator) handshake(ctx context.Context) error {
	url, err := s.endpoint()
	if err != nil {
		return &TransportError{Op: "handshake", URL: s.config.ServerURL, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &TransportError{Op: "handshake", URL: url, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &TransportError{Op: "handshake", URL: url, Err: err}
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return &TransportError{Op: "handshake", URL: url, Err: fmt.Errorf("read reply: %w", err)}
	}

	s.logger.WithField("status", resp.StatusCode).Debug("handshake done")
	return nil
}

// PushSwipe sends one attendance line for userID stamped with the current time.
// Only the reply body decides success; the status code is ignored.
func (s *Simulator) PushSwipe(ctx context.Context, userID string) (PushResult, error) {
	res := PushResult{Record: adms.NewSwipe(userID, s.now())}
	s.printf("Pushing swipe for User %s...", userID)

	body, err := s.push(ctx, res.Record)
	if err != nil {
		s.printf("Error: %v", err)
		s.logger.WithError(err).WithField("user_id", userID).Warn("push failed")
		return res, err
	}

	res.Body = body
	res.OK = adms.IsOK(body)
	if res.OK {
		s.printf("Successfully pushed to server.")
	} else {
		s.printf("Server responded with: %s", body)
	}
	return res, nil
}

func (s *Simulator) push(ctx context.Context, rec adms.AttendanceRecord) (string, error) {
	url, err := s.endpoint()
	if err != nil {
		return "", &TransportError{Op: "push", URL: s.config.ServerURL, Err: err}
	}
	line := rec.Line()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(line))
	if err != nil {
		return "", &TransportError{Op: "push", URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "text/plain")

	s.logger.WithField("line", strings.TrimSuffix(line, "\n")).Debug("pushing")
	resp, err := s.client.Do(req)
	if err != nil {
		return "", &TransportError{Op: "push", URL: url, Err: err}
	}
	defer resp.Body.Close()

	c := &bytes.Buffer{}
	if _, err := c.ReadFrom(resp.Body); err != nil {
		return "", &TransportError{Op: "push", URL: url, Err: fmt.Errorf("read reply: %w", err)}
	}
	s.logger.WithField("status", resp.StatusCode).Debug("push done")
	return c.String(), nil
}

// Run performs the handshake, then pushes every configured user in order with
// the configured pause in between. Failures are reported and skipped.
func (s *Simulator) Run(ctx context.Context) *Summary {
	summary := &Summary{}
	s.printf("Starting Simulator for SN: %s", s.config.DeviceSN)

	summary.Handshake = s.Handshake(ctx)

	for i, userID := range s.config.Users {
		if i > 0 {
			s.sleep(ctx, s.config.Interval)
		}
		res, err := s.PushSwipe(ctx, userID)
		if err != nil {
			summary.Errors = append(summary.Errors, err)
			continue
		}
		summary.Pushes = append(summary.Pushes, res)
	}

	s.logger.WithFields(logrus.Fields{
		"pushed": len(summary.Pushes),
		"failed": summary.Failed(),
	}).Info("simulation finished")
	return summary
}
