// Package client talks to the board server over HTTP the way a browser
// would: form posts, a cookie jar holding the auth cookie, and redirects
// inspected rather than followed.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/trellix/internal/models"
)

// Client is a logged-in (or not yet logged-in) session with the server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the server at baseURL.
func New(baseURL string) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Signup creates an account and keeps its session.
func (c *Client) Signup(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "/signup", email, password)
}

// Login starts a session for an existing account.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "/login", email, password)
}

// Logout drops the session.
func (c *Client) Logout(ctx context.Context) error {
	res, err := c.do(ctx, http.MethodPost, "/logout", nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusSeeOther {
		return unexpected(res)
	}
	return nil
}

// Boards lists the boards of the logged-in account.
func (c *Client) Boards(ctx context.Context) ([]models.Board, error) {
	var payload struct {
		Boards []models.Board `json:"boards"`
	}
	if err := c.getJSON(ctx, "/home", &payload); err != nil {
		return nil, err
	}
	return payload.Boards, nil
}

// CreateBoard creates a board. An empty color lets the server choose.
func (c *Client) CreateBoard(ctx context.Context, name, color string) error {
	res, err := c.do(ctx, http.MethodPost, "/home", url.Values{"name": {name}, "color": {color}})
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusSeeOther {
		return models.ErrUnauthenticated
	}
	var result struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !result.OK {
		return models.NewValidationError("name", result.Message)
	}
	return nil
}

// Board fetches a board with its columns and cards.
func (c *Client) Board(ctx context.Context, boardID int64) (*models.Board, error) {
	var payload struct {
		Board models.Board `json:"board"`
	}
	if err := c.getJSON(ctx, boardPath(boardID), &payload); err != nil {
		return nil, err
	}
	return &payload.Board, nil
}

// NewColumn appends an empty column to a board.
func (c *Client) NewColumn(ctx context.Context, boardID int64) error {
	return c.mutate(ctx, boardID, url.Values{"intent": {"newColumn"}})
}

// RenameColumn renames a column of a board.
func (c *Client) RenameColumn(ctx context.Context, boardID, columnID int64, name string) error {
	return c.mutate(ctx, boardID, url.Values{
		"intent":   {"updateColumn"},
		"columnId": {strconv.FormatInt(columnID, 10)},
		"name":     {name},
	})
}

// AddCard appends a card to a column of a board.
func (c *Client) AddCard(ctx context.Context, boardID, columnID int64, title string) error {
	return c.mutate(ctx, boardID, url.Values{
		"intent":   {"createItem"},
		"columnId": {strconv.FormatInt(columnID, 10)},
		"title":    {title},
	})
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) error {
	res, err := c.do(ctx, http.MethodPost, path, url.Values{"email": {email}, "password": {password}})
	if err != nil {
		return err
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusSeeOther:
		return nil
	case http.StatusBadRequest:
		return decodeValidation(res.Body)
	default:
		return unexpected(res)
	}
}

// mutate posts one intent. No Sec-Fetch-Dest header is sent, so the server
// answers with {"ok":true} rather than a redirect.
func (c *Client) mutate(ctx context.Context, boardID int64, form url.Values) error {
	res, err := c.do(ctx, http.MethodPost, boardPath(boardID), form)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return checkStatus(res)
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	res, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return err
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values) (*http.Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return res, nil
}

// checkStatus maps the server's error responses back to model errors.
func checkStatus(res *http.Response) error {
	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusSeeOther:
		if res.Header.Get("Location") == "/login" {
			return models.ErrUnauthenticated
		}
		return nil
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusBadRequest:
		return decodeValidation(res.Body)
	default:
		return unexpected(res)
	}
}

func decodeValidation(body io.Reader) error {
	verr := &models.ValidationError{}
	if err := json.NewDecoder(body).Decode(verr); err != nil || verr.Empty() {
		return errors.New("request rejected")
	}
	return verr
}

func unexpected(res *http.Response) error {
	return fmt.Errorf("unexpected status %s", res.Status)
}

func boardPath(boardID int64) string {
	return "/board/" + strconv.FormatInt(boardID, 10)
}
