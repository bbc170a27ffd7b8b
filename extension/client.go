// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package extension

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/z5labs/lambdaext/event"
	"github.com/z5labs/lambdaext/internal/try"
)

const (
	apiVersion = "2020-01-01"

	headerName       = "Lambda-Extension-Name"
	headerIdentifier = "Lambda-Extension-Identifier"
	headerErrorType  = "Lambda-Extension-Function-Error-Type"
	headerAcceptFeat = "Lambda-Extension-Accept-Feature"
)

// RegisterResponse describes the function the extension was registered against.
type RegisterResponse struct {
	ExtensionID     string `json:"-"`
	AccountID       string `json:"accountId"`
	FunctionName    string `json:"functionName"`
	FunctionVersion string `json:"functionVersion"`
	Handler         string `json:"handler"`
}

// StatusError is returned when the Extensions API responds with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

// Error implements the [error] interface.
func (e StatusError) Error() string {
	return fmt.Sprintf("extensions api %s returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// NotRegisteredError is returned by calls which require a prior Register.
type NotRegisteredError struct {
	Op string
}

// Error implements the [error] interface.
func (e NotRegisteredError) Error() string {
	return fmt.Sprintf("extensions api %s called before register", e.Op)
}

// Client is a thin client for the Lambda Extensions API.
// It is not safe for concurrent Register calls.
type Client struct {
	http    *http.Client
	poll    *http.Client
	baseURL string
	id      string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// PollClient sets the http.Client used by Next. A 5xx from /event/next
// is final, so this client should not retry. Default is the client
// passed to NewClient.
func PollClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.poll = hc
	}
}

// NewClient returns a Client for the runtime API listening at addr,
// which is the host:port found in AWS_LAMBDA_RUNTIME_API.
func NewClient(addr string, hc *http.Client, opts ...ClientOption) *Client {
	c := &Client{
		http:    hc,
		poll:    hc,
		baseURL: fmt.Sprintf("http://%s/%s/extension", addr, apiVersion),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExtensionID is the identifier handed out by Register.
func (c *Client) ExtensionID() string {
	return c.id
}

type registerRequest struct {
	Events []event.Type `json:"events"`
}

// Register registers the extension under name for the given events.
func (c *Client) Register(ctx context.Context, name string, events ...event.Type) (_ *RegisterResponse, err error) {
	b, err := json.Marshal(registerRequest{Events: events})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/register", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerName, name)
	req.Header.Set(headerAcceptFeat, "accountId")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer try.Close(&err, resp.Body)

	body, err := readBody("register", resp)
	if err != nil {
		return nil, err
	}

	var rr RegisterResponse
	err = json.Unmarshal(body, &rr)
	if err != nil {
		return nil, err
	}
	rr.ExtensionID = resp.Header.Get(headerIdentifier)
	c.id = rr.ExtensionID
	return &rr, nil
}

// Next blocks until the next lifecycle event is available.
func (c *Client) Next(ctx context.Context) (_ event.Event, err error) {
	if c.id == "" {
		return nil, NotRegisteredError{Op: "next"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/event/next", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerIdentifier, c.id)

	resp, err := c.poll.Do(req)
	if err != nil {
		return nil, err
	}
	defer try.Close(&err, resp.Body)

	body, err := readBody("next", resp)
	if err != nil {
		return nil, err
	}
	return event.Decode(body)
}

// InitError reports a failure which occurred while the extension was initializing.
// The runtime API terminates the execution environment in response.
func (c *Client) InitError(ctx context.Context, errorType string, cause error) error {
	return c.reportError(ctx, "init", errorType, cause)
}

// ExitError reports a failure right before the extension exits.
func (c *Client) ExitError(ctx context.Context, errorType string, cause error) error {
	return c.reportError(ctx, "exit", errorType, cause)
}

type errorRequest struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

func (c *Client) reportError(ctx context.Context, phase, errorType string, cause error) (err error) {
	op := phase + "/error"
	if c.id == "" {
		return NotRegisteredError{Op: op}
	}

	b, err := json.Marshal(errorRequest{
		ErrorMessage: cause.Error(),
		ErrorType:    errorType,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set(headerIdentifier, c.id)
	req.Header.Set(headerErrorType, errorType)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer try.Close(&err, resp.Body)

	_, err = readBody(op, resp)
	return err
}

func readBody(op string, resp *http.Response) ([]byte, error) {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, StatusError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(b),
		}
	}
	return b, nil
}
