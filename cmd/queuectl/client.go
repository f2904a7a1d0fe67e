package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// client calls the queue routes of one tenant.
type client struct {
	http  *http.Client
	base  string
	token string
}

func newClient(server, token, tenant string) *client {
	return &client{
		http:  &http.Client{Timeout: 15 * time.Second},
		base:  strings.TrimRight(server, "/") + "/api/v1/queues/" + url.PathEscape(tenant),
		token: token,
	}
}

// envelope mirrors httpapi.Response with the payload left undecoded.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do sends body as JSON and decodes the response payload into out.
// out may be nil.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return errors.Wrapf(err, "unexpected response (HTTP %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Newf("%s (HTTP %d)", env.Message, resp.StatusCode)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(env.Data, out), "failed to decode response")
}
