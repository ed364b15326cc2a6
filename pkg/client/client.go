// Package client is a typed HTTP client for the relationship graph API.
// It also serves as the neighbor source for graphbuilder.
package client

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

	"github.com/Shani815/vctalenthub-sub000/domain/actor"
	"github.com/Shani815/vctalenthub-sub000/domain/connection"
	"github.com/Shani815/vctalenthub-sub000/domain/intro"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"
	"github.com/Shani815/vctalenthub-sub000/pkg/graphbuilder"
)

const apiPrefix = "/api/v1"

// Client calls the REST API on behalf of one authenticated actor
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithToken sets the bearer token sent with every request
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the API served at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConnectionStatus is the symmetric status of a pair
type ConnectionStatus struct {
	Status      string `json:"status"`
	EdgeID      string `json:"edgeId,omitempty"`
	InitiatedBy string `json:"initiatedBy,omitempty"`
}

// IncomingRequest is a pending connection request waiting on the caller
type IncomingRequest struct {
	Edge      connection.Edge `json:"edge"`
	Requester actor.Summary   `json:"requester"`
}

// PendingIntro is an introduction request waiting on the caller
type PendingIntro struct {
	intro.Request
	Requester actor.Summary `json:"requester"`
}

// Quota is the caller's connection and application allowance
type Quota struct {
	Connections struct {
		Unlimited      bool      `json:"unlimited"`
		Limit          int       `json:"limit"`
		Used           int       `json:"used"`
		Remaining      int       `json:"remaining"`
		WindowStart    time.Time `json:"windowStart"`
		WindowEnd      time.Time `json:"windowEnd"`
		RetryAfterDays int       `json:"retryAfterDays"`
	} `json:"connections"`
	Applications struct {
		Unlimited bool `json:"unlimited"`
		Limit     int  `json:"limit"`
		Used      int  `json:"used"`
		Remaining int  `json:"remaining"`
	} `json:"applications"`
}

// ApplicationCheck is the result of a successful application check
type ApplicationCheck struct {
	Allowed   bool `json:"allowed"`
	Unlimited bool `json:"unlimited"`
	Remaining *int `json:"remaining"`
}

// RequestConnection sends a connection request to targetID
func (c *Client) RequestConnection(ctx context.Context, targetID string) (*connection.Edge, error) {
	var edge connection.Edge
	if _, err := c.do(ctx, http.MethodPost, "/connections/"+url.PathEscape(targetID), nil, &edge); err != nil {
		return nil, err
	}
	return &edge, nil
}

// RespondToConnection answers a pending request with "connected" or "rejected"
func (c *Client) RespondToConnection(ctx context.Context, edgeID, decision string) (*connection.Edge, error) {
	var edge connection.Edge
	body := map[string]string{"decision": decision}
	if _, err := c.do(ctx, http.MethodPost, "/connections/"+url.PathEscape(edgeID)+"/respond", body, &edge); err != nil {
		return nil, err
	}
	return &edge, nil
}

// ConnectionStatus returns the caller's status with otherID
func (c *Client) ConnectionStatus(ctx context.Context, otherID string) (*ConnectionStatus, error) {
	var status ConnectionStatus
	if _, err := c.do(ctx, http.MethodGet, "/connections/status/"+url.PathEscape(otherID), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListNeighbors returns the members connected to actorID
func (c *Client) ListNeighbors(ctx context.Context, actorID string) ([]graphbuilder.Member, error) {
	var members []graphbuilder.Member
	if _, err := c.do(ctx, http.MethodGet, "/connections/"+url.PathEscape(actorID)+"/neighbors", nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// PendingConnections lists requests addressed to the caller
func (c *Client) PendingConnections(ctx context.Context) ([]IncomingRequest, error) {
	var out []IncomingRequest
	if _, err := c.do(ctx, http.MethodGet, "/connections/pending", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RequestIntro asks for an introduction to targetID. The boolean reports
// whether a new request was created.
func (c *Client) RequestIntro(ctx context.Context, targetID string) (*intro.Request, bool, error) {
	var req intro.Request
	status, err := c.do(ctx, http.MethodPost, "/intros/"+url.PathEscape(targetID), nil, &req)
	if err != nil {
		return nil, false, err
	}
	return &req, status == http.StatusCreated, nil
}

// PendingIntros lists introduction requests addressed to the caller
func (c *Client) PendingIntros(ctx context.Context) ([]PendingIntro, error) {
	var out []PendingIntro
	if _, err := c.do(ctx, http.MethodGet, "/intros/pending", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RespondToIntro answers an introduction with "accepted" or "rejected"
func (c *Client) RespondToIntro(ctx context.Context, id, decision string) (*intro.Request, error) {
	var req intro.Request
	body := map[string]string{"decision": decision}
	if _, err := c.do(ctx, http.MethodPut, "/intros/"+url.PathEscape(id)+"/respond", body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Quota returns the caller's allowances
func (c *Client) Quota(ctx context.Context) (*Quota, error) {
	var q Quota
	if _, err := c.do(ctx, http.MethodGet, "/quota", nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// CheckApplication asks whether the caller may submit another job application
func (c *Client) CheckApplication(ctx context.Context) (*ApplicationCheck, error) {
	var check ApplicationCheck
	if _, err := c.do(ctx, http.MethodPost, "/applications/check", nil, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, pkgerrors.NewUnavailableError("graph api").WithCause(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, decodeError(resp.StatusCode, data)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// decodeError rebuilds the server's AppError so callers can use the
// pkg/errors predicates on it
func decodeError(status int, data []byte) error {
	var body pkgerrors.ErrorResponse
	if err := json.Unmarshal(data, &body); err != nil || body.Type == "" {
		return pkgerrors.NewExternalError("graph api", fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(data))))
	}

	details := body.Details
	if body.RetryAfterDays != nil {
		if details == nil {
			details = make(map[string]interface{})
		}
		details[pkgerrors.DetailRetryAfterDays] = *body.RetryAfterDays
	}
	return &pkgerrors.AppError{
		Type:       pkgerrors.ErrorType(body.Type),
		Message:    body.Message,
		Code:       body.Code,
		Details:    details,
		HTTPStatus: status,
	}
}
