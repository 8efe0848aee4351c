package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/samber/oops"
)

// Client speaks the mailbox API.
type Client struct {
	Base string
	HTTP *http.Client
}

// NewClient returns a Client for the relay at base, e.g. "http://localhost:8080".
func NewClient(base string) *Client {
	return &Client{Base: base, HTTP: http.DefaultClient}
}

func (c *Client) path(room, role string) string {
	return c.Base + "/rooms/" + url.PathEscape(room) + "/" + url.PathEscape(role)
}

// Post appends frame to role's mailbox in room.
func (c *Client) Post(ctx context.Context, room, role string, frame []byte) (uint64, error) {
	var out struct {
		Seq uint64 `json:"seq"`
	}
	if err := c.do(ctx, http.MethodPost, c.path(room, role), "application/octet-stream", bytes.NewReader(frame), &out); err != nil {
		return 0, err
	}
	return out.Seq, nil
}

// Fetch returns frames in role's mailbox with sequence greater than after.
func (c *Client) Fetch(ctx context.Context, room, role string, after uint64) ([]Entry, error) {
	u := c.path(room, role)
	if after > 0 {
		u += "?after=" + strconv.FormatUint(after, 10)
	}
	var out []Entry
	if err := c.do(ctx, http.MethodGet, u, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ack drops frames up to and including upTo.
func (c *Client) Ack(ctx context.Context, room, role string, upTo uint64) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(struct {
		UpTo uint64 `json:"upTo"`
	}{upTo}); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, c.path(room, role)+"/ack", "application/json", buf, nil)
}

func (c *Client) do(ctx context.Context, method, u, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return oops.Wrapf(err, "building %s %s", method, u)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return oops.Wrapf(err, "relay %s %s", method, u)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return &StatusError{Method: method, URL: u, Status: resp.Status, Code: resp.StatusCode}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return oops.Wrapf(err, "decoding relay response")
		}
	}
	return nil
}

// StatusError is a non-2xx relay response.
type StatusError struct {
	Method string
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return "relay " + e.Method + " " + e.URL + ": " + e.Status
}
