// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

/*
Package httpclient wraps outbound HTTP requests with authorization and JSON
defaults.

Every request to the REST backend goes through [Client.Do], which derives a
fresh bearer token from the session before each call. Tokens expire, so they
are never cached here; the token source is asked every time.

Architecture:

  - TokenSource: The session capability the client depends on.
  - Client: Thin wrapper over net/http injecting headers and deadlines.

# Permissive By Design

When no token is available (signed-out state) the request is still sent with
an empty Authorization value. The server, not the client, decides whether an
unauthenticated request is acceptable.
*/
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/davitran/aperture/internal/platform/apperr"
	"github.com/davitran/aperture/internal/platform/constants"
)

// TokenSource yields a fresh short-lived bearer credential, or empty when no
// user is signed in.
type TokenSource interface {
	Token(context context.Context) (string, error)
}

// Client issues authorized JSON requests against the REST backend.
type Client struct {
	base    *http.Client
	tokens  TokenSource
	timeout time.Duration
}

// Option customizes a [Client].
type Option func(*Client)

// WithTimeout overrides the default per-request deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(client *Client) { client.timeout = timeout }
}

// WithHTTPClient substitutes the underlying transport (tests).
func WithHTTPClient(base *http.Client) Option {
	return func(client *Client) { client.base = base }
}

// New creates an authorized client over the given token source.
func New(tokens TokenSource, options ...Option) *Client {
	client := &Client{
		base:    &http.Client{},
		tokens:  tokens,
		timeout: constants.DefaultRequestTimeout,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

/*
Do issues an HTTP request with a fresh bearer token and JSON defaults.

Description: The request carries "Authorization: Bearer <token>" (empty token
when signed out) and "Content-Type: application/json". Headers supplied by
the caller take precedence on conflicts. The deadline is enforced through
context cancellation, so an expired request is cancelled at the transport
level rather than abandoned.

Parameters:
  - context: context.Context
  - method: string
  - url: string
  - body: []byte (nil for body-less requests)
  - headers: http.Header (optional overrides)

Returns:
  - *http.Response: Response with unread body; callers own Close
  - error: apperr.Network on transport failures
*/
func (client *Client) Do(context context.Context, method, url string, body []byte, headers http.Header) (*http.Response, error) {
	requestCtx, cancel := ctxWithTimeout(context, client.timeout)
	defer cancel()

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	request, err := http.NewRequestWithContext(requestCtx, method, url, reader)
	if err != nil {
		return nil, apperr.Network(fmt.Sprintf("%s %s", method, url), err)
	}

	// Fresh token on every call. A failure to derive one degrades to an
	// unauthenticated request rather than blocking the call.
	token, err := client.tokens.Token(requestCtx)
	if err != nil {
		token = ""
	}
	bearer := ""
	if token != "" {
		bearer = "Bearer " + token
	}

	request.Header.Set("Authorization", bearer)
	request.Header.Set("Content-Type", "application/json")

	// Caller-supplied headers win on conflicts.
	for name, values := range headers {
		request.Header.Del(name)
		for _, value := range values {
			request.Header.Add(name, value)
		}
	}

	response, err := client.base.Do(request)
	if err != nil {
		return nil, apperr.Network(fmt.Sprintf("%s %s", method, url), err)
	}
	return response, nil
}

/*
DoJSON issues a request with a JSON-marshaled payload and decodes the JSON
response into out.

Parameters:
  - context: context.Context
  - method: string
  - url: string
  - payload: any (nil for body-less requests)
  - out: any (nil to discard the response body)

Returns:
  - error: apperr.Network on transport or non-2xx status,
    apperr.Validation on an undecodable body
*/
func (client *Client) DoJSON(context context.Context, method, url string, payload, out any) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return apperr.Validation(fmt.Sprintf("%s %s", method, url), err)
		}
		body = encoded
	}

	response, err := client.Do(context, method, url, body, nil)
	if err != nil {
		return err
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return apperr.Network(fmt.Sprintf("%s %s", method, url),
			fmt.Errorf("server responded with status %d", response.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return apperr.Validation(fmt.Sprintf("%s %s", method, url), err)
	}
	return nil
}

// ctxWithTimeout applies the client deadline unless the parent already has a
// sooner one.
func ctxWithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := parent.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
