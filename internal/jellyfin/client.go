package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arne/tubetag/internal/util"
	"github.com/google/uuid"
)

const (
	clientName    = "tubetag"
	clientVersion = "1.0.0"
)

// HTTPDoer describes the HTTP client used by the Jellyfin client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an authenticated Jellyfin API client. It is constructed once,
// authenticated once, and passed to the sync loop; there is no re-auth
// during the process lifetime.
type Client struct {
	serverURL  string
	username   string
	password   string
	deviceID   string
	httpClient HTTPDoer

	accessToken string
	userID      string
}

// NewClient creates a Jellyfin client for the given server and credentials
func NewClient(serverURL, username, password string) *Client {
	return &Client{
		serverURL: strings.TrimRight(strings.TrimSpace(serverURL), "/"),
		username:  username,
		password:  password,
		deviceID:  uuid.NewString(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient replaces the underlying HTTP client (used in tests)
func (c *Client) SetHTTPClient(doer HTTPDoer) {
	c.httpClient = doer
}

// UserID returns the authenticated user's ID, or "" before authentication
func (c *Client) UserID() string {
	return c.userID
}

// authResponse is the subset of /Users/AuthenticateByName we consume
type authResponse struct {
	AccessToken string `json:"AccessToken"`
	User        struct {
		ID string `json:"Id"`
	} `json:"User"`
}

// Authenticate sends credentials and stores the session token and user ID.
// Any transport or HTTP error leaves the client unauthenticated.
func (c *Client) Authenticate(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"Username": c.username,
		"Pw":       c.password,
	})
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	authURL := fmt.Sprintf("%s/Users/AuthenticateByName", c.serverURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Jellyfin requires the MediaBrowser authorization scheme on login
	req.Header.Set("X-Emby-Authorization", fmt.Sprintf(
		`MediaBrowser Client="%s", Device="%s", DeviceId="%s", Version="%s"`,
		clientName, clientName, c.deviceID, clientVersion))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("authentication request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("authentication returned %d: %s", resp.StatusCode, string(respBody))
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}
	if auth.AccessToken == "" || auth.User.ID == "" {
		return fmt.Errorf("auth response missing token or user: %w", util.ErrUnauthenticated)
	}

	c.accessToken = auth.AccessToken
	c.userID = auth.User.ID

	util.DebugLog("Jellyfin: authenticated as user %s", c.userID)
	return nil
}

// Get issues an authenticated GET and returns the raw response body.
// Transport and non-2xx failures surface as errors; the caller decides
// whether to skip or abort.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	if c.accessToken == "" {
		return nil, util.ErrUnauthenticated
	}

	reqURL := fmt.Sprintf("%s/%s", c.serverURL, strings.TrimLeft(endpoint, "/"))
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Emby-Token", c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

// Post issues an authenticated POST with an optional JSON body and returns
// the response so the caller can inspect the status.
func (c *Client) Post(ctx context.Context, endpoint string, payload any) (*http.Response, error) {
	if c.accessToken == "" {
		return nil, util.ErrUnauthenticated
	}

	var bodyReader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		bodyReader = bytes.NewReader(body)
	}

	reqURL := fmt.Sprintf("%s/%s", c.serverURL, strings.TrimLeft(endpoint, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Emby-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}
