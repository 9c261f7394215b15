// Package client talks to the listqr JSON API and keeps the terminal's session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/harrylevesque/listqr/internal/auth"
	"github.com/harrylevesque/listqr/internal/dtos"
	"github.com/harrylevesque/listqr/internal/models"
	"github.com/harrylevesque/listqr/internal/utils"
)

// Client is safe for concurrent use.
type Client struct {
	base        *url.URL
	http        *http.Client
	sessionFile string
	notifier    *auth.Notifier

	mu       sync.Mutex
	identity *models.Identity
}

type Options struct {
	// SessionFile persists the session cookie between runs. Empty keeps it in memory.
	SessionFile string
	Timeout     time.Duration
}

func New(server string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("server url %q: want scheme://host", server)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		base:        base,
		http:        &http.Client{Jar: jar, Timeout: timeout},
		sessionFile: opts.SessionFile,
		notifier:    auth.NewNotifier(),
	}
	if err := c.loadCookies(); err != nil {
		return nil, err
	}
	return c, nil
}

// Server returns the base URL.
func (c *Client) Server() string { return c.base.String() }

// OnSessionChange subscribes to sign-in and sign-out on this client.
func (c *Client) OnSessionChange(fn func(auth.SessionEvent)) (cancel func()) {
	return c.notifier.Subscribe(fn)
}

// Identity returns the last known identity without a round trip.
func (c *Client) Identity() *models.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

func (c *Client) setIdentity(id *models.Identity) {
	c.mu.Lock()
	prev := c.identity
	c.identity = id
	c.mu.Unlock()

	switch {
	case id != nil && (prev == nil || prev.UserID != id.UserID):
		c.notifier.Publish(auth.SessionEvent{Kind: auth.SignedIn, Identity: id})
	case id != nil && !prev.IssuedAt.Equal(id.IssuedAt):
		c.notifier.Publish(auth.SessionEvent{Kind: auth.Refreshed, Identity: id})
	case id == nil && prev != nil:
		c.notifier.Publish(auth.SessionEvent{Kind: auth.SignedOut})
	}
}

// CurrentSession asks the server who the stored cookie belongs to.
func (c *Client) CurrentSession(ctx context.Context) (*models.Identity, error) {
	var sr dtos.SessionResponse
	if err := c.do(ctx, http.MethodGet, "/api/session", nil, &sr); err != nil {
		return nil, err
	}
	c.setIdentity(sr.Identity)
	return sr.Identity, c.saveCookies()
}

func (c *Client) SignIn(ctx context.Context, email, password string) (models.Identity, error) {
	return c.credentials(ctx, "/api/session", email, password)
}

func (c *Client) SignUp(ctx context.Context, email, password string) (models.Identity, error) {
	return c.credentials(ctx, "/api/signup", email, password)
}

func (c *Client) credentials(ctx context.Context, path, email, password string) (models.Identity, error) {
	var sr dtos.SessionResponse
	if err := c.do(ctx, http.MethodPost, path, auth.LoginRequest{Email: email, Password: password}, &sr); err != nil {
		return models.Identity{}, err
	}
	if sr.Identity == nil {
		return models.Identity{}, &models.RemoteError{Op: "sign in", Err: errors.New("empty session")}
	}
	c.setIdentity(sr.Identity)
	return *sr.Identity, c.saveCookies()
}

func (c *Client) SignOut(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/api/session", nil, nil); err != nil {
		return err
	}
	c.setIdentity(nil)
	return c.saveCookies()
}

func (c *Client) Lists(ctx context.Context) ([]models.ListSummary, error) {
	var lr dtos.ListsResponse
	if err := c.do(ctx, http.MethodGet, "/api/lists", nil, &lr); err != nil {
		return nil, err
	}
	return lr.Lists, nil
}

func (c *Client) CreateList(ctx context.Context, req dtos.CreateListRequest) (dtos.GetListResponse, error) {
	var out dtos.GetListResponse
	err := c.do(ctx, http.MethodPost, "/api/lists", req, &out)
	return out, err
}

func (c *Client) GetList(ctx context.Context, idOrPublicID string) (dtos.GetListResponse, error) {
	var out dtos.GetListResponse
	err := c.do(ctx, http.MethodGet, "/api/lists/"+url.PathEscape(idOrPublicID), nil, &out)
	return out, err
}

func (c *Client) UpdateList(ctx context.Context, id string, req dtos.UpdateListRequest) (dtos.GetListResponse, error) {
	var out dtos.GetListResponse
	err := c.do(ctx, http.MethodPut, "/api/lists/"+url.PathEscape(id), req, &out)
	return out, err
}

// Download copies a list export (pdf or qr.png) into w.
func (c *Client) Download(ctx context.Context, idOrPublicID, kind string, w io.Writer) error {
	path := "/list/" + url.PathEscape(idOrPublicID) + "/" + kind
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String()+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &models.RemoteError{Op: "download " + kind, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError("download "+kind, resp.StatusCode, utils.HTTPError{Message: resp.Status})
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return &models.RemoteError{Op: "download " + kind, Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := strings.ToLower(method) + " " + path
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &models.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var he utils.HTTPError
		_ = json.NewDecoder(resp.Body).Decode(&he)
		if resp.StatusCode == http.StatusUnauthorized && path != "/api/session" {
			c.setIdentity(nil)
		}
		return statusError(op, resp.StatusCode, he)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &models.RemoteError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// statusError turns an API error response back into the shared error taxonomy.
func statusError(op string, status int, he utils.HTTPError) error {
	switch status {
	case http.StatusBadRequest:
		return models.NewValidationError(he.Reason, he.Message)
	case http.StatusUnauthorized:
		if strings.HasSuffix(op, "/api/session") {
			return models.ErrInvalidCredentials
		}
		return models.ErrSignInRequired
	case http.StatusForbidden:
		return models.ErrNotOwner
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	case http.StatusConflict:
		return models.ErrEmailTaken
	}
	msg := he.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &models.RemoteError{Op: op, Err: fmt.Errorf("%d %s", status, msg)}
}

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

func (c *Client) loadCookies() error {
	if c.sessionFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.sessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		// A corrupt file just means signed out.
		return nil
	}
	var cookies []*http.Cookie
	for _, s := range stored {
		if !s.Expires.IsZero() && s.Expires.Before(time.Now()) {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/", Expires: s.Expires})
	}
	c.http.Jar.SetCookies(c.base, cookies)
	return nil
}

func (c *Client) saveCookies() error {
	if c.sessionFile == "" {
		return nil
	}
	var stored []storedCookie
	for _, ck := range c.http.Jar.Cookies(c.base) {
		stored = append(stored, storedCookie{Name: ck.Name, Value: ck.Value})
	}
	if len(stored) == 0 {
		if err := os.Remove(c.sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	if err := utils.EnsureParentDir(c.sessionFile); err != nil {
		return err
	}
	return os.WriteFile(c.sessionFile, data, 0o600)
}
