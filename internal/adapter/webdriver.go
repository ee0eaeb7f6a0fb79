package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	m "qlty.dev/pkg/qlty/internal/model"
)

// Capabilities is a W3C capability set.
type Capabilities map[string]interface{}

// Clone returns a shallow copy with nested maps copied.
func (c Capabilities) Clone() Capabilities {
	out := make(Capabilities, len(c))
	for k, v := range c {
		if nested, ok := v.(map[string]interface{}); ok {
			copied := make(map[string]interface{}, len(nested))
			for nk, nv := range nested {
				copied[nk] = nv
			}

			v = copied
		}

		out[k] = v
	}

	return out
}

// DriverHandle is one remote automation session owned by one running test.
type DriverHandle interface {
	SessionID() string
	Platform() m.Platform
	Capabilities() Capabilities
	// Command sends a raw WebDriver command relative to the session URL
	// and decodes the response "value" into out when out is not nil.
	Command(ctx context.Context, method, path string, payload interface{}, out interface{}) error
}

// DriverProvider opens and closes automation sessions.
type DriverProvider interface {
	Ping(ctx context.Context) error
	Acquire(ctx context.Context, platform m.Platform, caps Capabilities) (DriverHandle, error)
	Quit(ctx context.Context, handle DriverHandle) error
}

// ErrDriverNotReady is returned by Ping when the server reports it cannot take sessions.
var ErrDriverNotReady = errors.New("driver server not ready")

type webDriverProvider struct {
	client *HTTPClient
}

// NewWebDriverProvider creates a DriverProvider speaking the W3C WebDriver
// protocol to the server at url (Appium, Selenium Grid or a cloud farm).
// commandTimeout bounds each individual HTTP call.
func NewWebDriverProvider(url string, commandTimeout time.Duration, cfs ...ClientFunc) DriverProvider {
	opts := append([]ClientFunc{
		WithBaseURL(strings.TrimRight(url, "/")),
		WithTimeout(commandTimeout),
	}, cfs...)

	return &webDriverProvider{client: NewHTTPClient(opts...)}
}

type statusResponse struct {
	Value struct {
		Ready   *bool  `json:"ready"`
		Message string `json:"message"`
	} `json:"value"`
}

func (p *webDriverProvider) Ping(ctx context.Context) error {
	var status statusResponse
	if _, err := p.client.Get(ctx, "/status", WithResult(&status)); err != nil {
		return fmt.Errorf("driver status: %w", err)
	}

	if status.Value.Ready != nil && !*status.Value.Ready {
		return fmt.Errorf("%w: %s", ErrDriverNotReady, status.Value.Message)
	}

	return nil
}

type newSessionRequest struct {
	Capabilities struct {
		AlwaysMatch Capabilities   `json:"alwaysMatch"`
		FirstMatch  []Capabilities `json:"firstMatch"`
	} `json:"capabilities"`
}

type newSessionResponse struct {
	SessionID string          `json:"sessionId"`
	Value     json.RawMessage `json:"value"`
}

type sessionValue struct {
	SessionID    string       `json:"sessionId"`
	Capabilities Capabilities `json:"capabilities"`
}

func (p *webDriverProvider) Acquire(ctx context.Context, platform m.Platform, caps Capabilities) (DriverHandle, error) {
	var req newSessionRequest
	req.Capabilities.AlwaysMatch = caps
	req.Capabilities.FirstMatch = []Capabilities{{}}

	var resp newSessionResponse

	started := time.Now()
	if _, err := p.client.Post(ctx, "/session", WithBody(req), WithResult(&resp)); err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}

	session := sessionValue{SessionID: resp.SessionID}
	if len(resp.Value) > 0 {
		if err := json.Unmarshal(resp.Value, &session); err != nil {
			return nil, fmt.Errorf("decode new session: %w", err)
		}
	}

	// Legacy JSON wire servers put the id at the top level.
	if session.SessionID == "" {
		session.SessionID = resp.SessionID
	}

	if session.SessionID == "" {
		return nil, errors.New("new session: server returned no session id")
	}

	if session.Capabilities == nil {
		session.Capabilities = caps.Clone()
	}

	slog.Info("Acquired driver session", "platform", platform, "session", session.SessionID, "elapsed", time.Since(started))

	return &remoteSession{
		client:   p.client,
		id:       session.SessionID,
		platform: platform,
		caps:     session.Capabilities,
	}, nil
}

func (p *webDriverProvider) Quit(ctx context.Context, handle DriverHandle) error {
	if handle == nil {
		return nil
	}

	if _, err := p.client.Delete(ctx, "/session/{id}", WithPathParam("id", handle.SessionID())); err != nil {
		return fmt.Errorf("delete session %s: %w", handle.SessionID(), err)
	}

	slog.Info("Closed driver session", "session", handle.SessionID())

	return nil
}

type remoteSession struct {
	client   *HTTPClient
	id       string
	platform m.Platform
	caps     Capabilities
}

func (s *remoteSession) SessionID() string {
	return s.id
}

func (s *remoteSession) Platform() m.Platform {
	return s.platform
}

func (s *remoteSession) Capabilities() Capabilities {
	return s.caps.Clone()
}

type commandResponse struct {
	Value json.RawMessage `json:"value"`
}

func (s *remoteSession) Command(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	url := "/session/" + s.id + "/" + strings.TrimLeft(path, "/")

	rfs := []RequestFunc{}
	if payload != nil {
		rfs = append(rfs, WithBody(payload))
	}

	var resp commandResponse
	rfs = append(rfs, WithResult(&resp))

	if _, err := s.client.Request(ctx, method, url, rfs...); err != nil {
		return err
	}

	if out == nil || len(resp.Value) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.Value, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}

	return nil
}
