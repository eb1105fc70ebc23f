// Package boekhouden talks to the external bookkeeping platform's REST API.
// Authentication is two-step: the long-lived API token is exchanged for a
// short-lived session token which is sent on every request.
package boekhouden

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/verenigingen/backend/internal/domain"
	"github.com/verenigingen/backend/internal/logging"
)

const sessionSource = "verenigingen-backend"

// Session tokens are valid for an hour; refresh a little early.
const sessionSlack = 5 * time.Minute

type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client

	mu            sync.Mutex
	sessionToken  string
	sessionExpiry time.Time
}

func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type sessionRequest struct {
	AccessToken string `json:"accessToken"`
	Source      string `json:"source"`
}

type sessionResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionToken != "" && time.Now().Before(c.sessionExpiry) {
		return c.sessionToken, nil
	}

	body, err := json.Marshal(sessionRequest{AccessToken: c.apiToken, Source: sessionSource})
	if err != nil {
		return "", fmt.Errorf("token: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/session", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("token: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token: unexpected status %d: %s", resp.StatusCode, string(snippet))
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("token: decode: %w", err)
	}
	if sr.Token == "" {
		return "", fmt.Errorf("token: %w", domain.ErrSessionExpired)
	}

	expiresIn := time.Duration(sr.ExpiresIn) * time.Second
	if expiresIn <= sessionSlack {
		expiresIn = time.Hour
	}
	c.sessionToken = sr.Token
	c.sessionExpiry = time.Now().Add(expiresIn - sessionSlack)
	return c.sessionToken, nil
}

type ListMutationsParams struct {
	SinceID  int64 // exclusive lower bound on mutation id
	DateFrom *time.Time
	DateTo   *time.Time
	Types    []int
	Limit    int
}

type mutationList struct {
	Items []domain.Mutation `json:"items"`
}

// ListMutations fetches mutation records, oldest first.
func (c *Client) ListMutations(ctx context.Context, params ListMutationsParams) ([]domain.Mutation, error) {
	q := url.Values{}
	if params.SinceID > 0 {
		q.Set("sinceId", strconv.FormatInt(params.SinceID, 10))
	}
	if params.DateFrom != nil {
		q.Set("dateFrom", params.DateFrom.Format("2006-01-02"))
	}
	if params.DateTo != nil {
		q.Set("dateTo", params.DateTo.Format("2006-01-02"))
	}
	for _, t := range params.Types {
		q.Add("type", strconv.Itoa(t))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}

	var list mutationList
	if err := c.get(ctx, "/v1/mutation", q, &list); err != nil {
		return nil, fmt.Errorf("ListMutations: %w", err)
	}
	return list.Items, nil
}

// GetMutation fetches a single mutation by id.
func (c *Client) GetMutation(ctx context.Context, id int64) (*domain.Mutation, error) {
	var m domain.Mutation
	if err := c.get(ctx, "/v1/mutation/"+strconv.FormatInt(id, 10), nil, &m); err != nil {
		return nil, fmt.Errorf("GetMutation: %w", err)
	}
	return &m, nil
}

type Ledger struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type ledgerList struct {
	Items []Ledger `json:"items"`
}

// ListLedgers fetches the platform's chart of ledgers, used to seed the
// ledger mapping table.
func (c *Client) ListLedgers(ctx context.Context) ([]Ledger, error) {
	var list ledgerList
	if err := c.get(ctx, "/v1/ledger", nil, &list); err != nil {
		return nil, fmt.Errorf("ListLedgers: %w", err)
	}
	return list.Items, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	log := logging.FromContext(ctx)

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("get: build request: %w", err)
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get: send: %w", err)
	}
	defer resp.Body.Close()

	log.Debug("bookkeeping request",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		// Session invalidated server-side; drop it so the next call
		// re-authenticates.
		c.mu.Lock()
		c.sessionToken = ""
		c.mu.Unlock()
		return fmt.Errorf("get %s: %w", path, domain.ErrSessionExpired)
	case http.StatusNotFound:
		return fmt.Errorf("get %s: %w", path, domain.ErrNotFound)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("get %s: unexpected status %d: %s", path, resp.StatusCode, string(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("get %s: decode: %w", path, err)
	}
	return nil
}
