package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/trezcool/academia/core/user"
)

// ErrUnreachable is returned when the identity service cannot be reached;
// the caller may retry by resubmitting, there is no automatic retry loop.
var ErrUnreachable = errors.New("identity service unreachable")

type (
	// LoginResult is a successful credential check: the issued token and
	// the authenticated identity.
	LoginResult struct {
		Token    string    `json:"token"`
		Identity user.User `json:"identity"`
	}

	// APIClient talks to the identity service's auth endpoints.
	APIClient interface {
		Login(ctx context.Context, email, password string) (LoginResult, error)
		Signup(ctx context.Context, nu user.NewUser) (user.User, error)
		Profile(ctx context.Context, token string) (user.User, error)
		DeleteSession(ctx context.Context, token string) error
	}

	// APIError is a non-2xx response from the identity service.
	APIError struct {
		Status  int
		Message string
	}

	// HTTPClient is the production APIClient over net/http.
	HTTPClient struct {
		baseURL string
		hc      *http.Client
	}
)

func (e *APIError) Error() string {
	return fmt.Sprintf("identity service responded %d: %s", e.Status, e.Message)
}

var _ APIClient = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	var res LoginResult
	err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &res)
	return res, err
}

func (c *HTTPClient) Signup(ctx context.Context, nu user.NewUser) (user.User, error) {
	var usr user.User
	err := c.do(ctx, http.MethodPost, "/auth/signup", "", nu, &usr)
	return usr, err
}

func (c *HTTPClient) Profile(ctx context.Context, token string) (user.User, error) {
	var usr user.User
	err := c.do(ctx, http.MethodGet, "/auth/profile", token, nil, &usr)
	return usr, err
}

func (c *HTTPClient) DeleteSession(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/auth/session", token, nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return ErrUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	return payload.Error
}
