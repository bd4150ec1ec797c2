package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sleeptimer/internal/schedule"
	"sleeptimer/internal/services/sleeptimer"
	"sleeptimer/internal/storage"
)

// Client talks to a running daemon's control API.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient targets addr ("host:port" or a full http URL).
func NewClient(addr, token string, hc *http.Client) *Client {
	base := strings.TrimRight(strings.TrimSpace(addr), "/")
	if base == "" {
		base = DefaultAddr
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: base, token: strings.TrimSpace(token), http: hc}
}

// APIError is a non-2xx answer from the daemon.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("control API: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}

func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

func (c *Client) Schedule(ctx context.Context) (schedule.Week, error) {
	var out schedule.Week
	err := c.do(ctx, http.MethodGet, "/api/schedule", nil, &out)
	return out, err
}

// SetDay sends value ("HH:MM", "off" or "on") for the given weekday.
func (c *Client) SetDay(ctx context.Context, day, value string) (schedule.Week, error) {
	var out schedule.Week
	err := c.do(ctx, http.MethodPut, "/api/schedule/"+url.PathEscape(day), DayRequest{Time: value}, &out)
	return out, err
}

func (c *Client) Arm(ctx context.Context) (sleeptimer.Status, error) {
	var out sleeptimer.Status
	err := c.do(ctx, http.MethodPost, "/api/arm", nil, &out)
	return out, err
}

func (c *Client) Cancel(ctx context.Context) (sleeptimer.Status, error) {
	var out sleeptimer.Status
	err := c.do(ctx, http.MethodPost, "/api/cancel", nil, &out)
	return out, err
}

// Snooze extends the countdown by ext (the daemon's default when 0). A 409
// means nothing was armed.
func (c *Client) Snooze(ctx context.Context, ext time.Duration) (SnoozeResponse, error) {
	path := "/api/snooze"
	if ext > 0 {
		path += "?for=" + url.QueryEscape(ext.String())
	}
	var out SnoozeResponse
	err := c.do(ctx, http.MethodPost, path, nil, &out)
	return out, err
}

func (c *Client) Upcoming(ctx context.Context, n int) ([]time.Time, error) {
	var out []time.Time
	err := c.do(ctx, http.MethodGet, "/api/upcoming?n="+strconv.Itoa(n), nil, &out)
	return out, err
}

func (c *Client) Events(ctx context.Context, n int) ([]storage.Event, error) {
	var out []storage.Event
	err := c.do(ctx, http.MethodGet, "/api/events?n="+strconv.Itoa(n), nil, &out)
	return out, err
}

// ICS downloads the schedule as an iCalendar file.
func (c *Client) ICS(ctx context.Context) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/schedule.ics", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("control API: decode %s: %w", path, err)
	}
	return nil
}

// send returns the response for 2xx (and 409 on snooze, whose body is still
// meaningful); anything else becomes an *APIError.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("control API unreachable (is the daemon running?): %w", err)
	}
	if resp.StatusCode/100 == 2 || (resp.StatusCode == http.StatusConflict && strings.HasPrefix(path, "/api/snooze")) {
		return resp, nil
	}
	defer resp.Body.Close()
	var e errorResponse
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxRequestBody))
	if json.Unmarshal(b, &e) != nil || e.Error == "" {
		e.Error = strings.TrimSpace(string(b))
	}
	return nil, &APIError{Status: resp.StatusCode, Message: e.Error}
}
