// Package client talks to the calendar API on behalf of a single user. The
// session cookie issued by login is kept in a cookie jar and sent with every
// later request.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"time"

	"github.com/atinyakov/calendar/internal/models"
	"github.com/atinyakov/calendar/internal/operation"
	"github.com/atinyakov/calendar/internal/session"
)

// ErrRejected is returned when the server refuses the request as invalid:
// unknown operation, missing fields or no session.
var ErrRejected = errors.New("request rejected by server")

// StatusError reports a well-formed operation that the server declined.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: status %d", e.Op, e.Status)
}

// Client issues typed calendar operations against one base URL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// NewHTTPClient returns an http.Client with a 10 second timeout. When caFile
// is set, the certificate in it is the only trusted root, which is what a
// self-signed development server needs.
func NewHTTPClient(caFile string) (*http.Client, error) {
	hc := &http.Client{Timeout: 10 * time.Second}
	if caFile == "" {
		return hc, nil
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	hc.Transport = &http.Transport{TLSClientConfig: &tls.Config{RootCAs: caPool, MinVersion: tls.VersionTLS12}}
	return hc, nil
}

// New returns a Client for baseURL. A nil hc uses NewHTTPClient(""). A
// cookie jar is attached when hc has none.
func New(baseURL string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if hc == nil {
		hc, _ = NewHTTPClient("")
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc.Jar = jar
	}
	return &Client{baseURL: u, http: hc}, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, login, password string) error {
	return c.do(ctx, operation.Register, map[string]any{
		operation.FieldLogin:    login,
		operation.FieldPassword: password,
	}, nil)
}

// Login authenticates and stores the returned session token for later
// calls. The token is also returned.
func (c *Client) Login(ctx context.Context, login, password string) (string, error) {
	var payload map[string]string
	err := c.do(ctx, operation.Login, map[string]any{
		operation.FieldLogin:    login,
		operation.FieldPassword: password,
	}, &payload)
	if err != nil {
		return "", err
	}

	token := payload[session.CookieName]
	if token == "" {
		return "", errors.New("login response has no session token")
	}
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{{Name: session.CookieName, Value: token, Path: "/"}})
	return token, nil
}

// SaveEvent stores e for the logged in user. Owner and ID are ignored.
func (c *Client) SaveEvent(ctx context.Context, e models.Event) error {
	return c.do(ctx, operation.SaveEvent, map[string]any{
		operation.FieldName:     e.Name,
		operation.FieldDate:     e.Date,
		operation.FieldTime:     e.Time,
		operation.FieldDuration: e.Duration,
	}, nil)
}

// Events lists the logged in user's events from today onward.
func (c *Client) Events(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := c.do(ctx, operation.GetEvents, map[string]any{}, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Username returns the login of the session owner.
func (c *Client) Username(ctx context.Context) (string, error) {
	var login string
	if err := c.do(ctx, operation.GetUsername, map[string]any{}, &login); err != nil {
		return "", err
	}
	return login, nil
}

func (c *Client) do(ctx context.Context, kind operation.Kind, fields map[string]any, out any) error {
	fields[operation.FieldType] = kind.String()
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s failed: %w", kind, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case operation.StatusInvalid:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s: %w", kind, ErrRejected)
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Op: kind.String(), Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", kind, err)
	}
	return nil
}
