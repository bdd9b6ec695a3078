package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteOptions configure the HTTP collaborator.
type RemoteOptions struct {
	Endpoint    string // full URL of the recognize endpoint
	ContentType string
	Timeout     time.Duration
}

func (o *RemoteOptions) defaults() {
	if o.ContentType == "" {
		o.ContentType = "image/png"
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
}

// Remote posts the image to a recognition service that answers with
// {"text": "..."} or {"error": "..."}.
type Remote struct {
	url         string
	contentType string
	do          func(*http.Request) (*http.Response, error)
}

// NewRemote builds a client. An empty endpoint is a configuration error.
func NewRemote(opts RemoteOptions) (*Remote, error) {
	opts.defaults()
	url := strings.TrimSpace(opts.Endpoint)
	if url == "" {
		return nil, fmt.Errorf("remote: %w: missing endpoint", ErrNotConfigured)
	}
	hc := &http.Client{Timeout: opts.Timeout}
	return &Remote{url: url, contentType: opts.ContentType, do: hc.Do}, nil
}

// Endpoint is the trimmed URL requests are posted to.
func (r *Remote) Endpoint() string { return r.url }

type remoteResp struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (r *Remote) Recognize(ctx context.Context, img []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(img))
	if err != nil {
		return "", fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Content-Type", r.contentType)
	req.Header.Set("Accept", "application/json")
	resp, err := r.do(req)
	if err != nil {
		return "", fmt.Errorf("remote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		msg := strings.TrimSpace(string(body))
		var rr remoteResp
		if json.Unmarshal(body, &rr) == nil && rr.Error != "" {
			msg = rr.Error
		}
		return "", fmt.Errorf("remote: %w: status %d: %s", ErrUpstream, resp.StatusCode, msg)
	}
	var rr remoteResp
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&rr); err != nil {
		return "", fmt.Errorf("remote: %w: %w", ErrResponseInvalid, err)
	}
	if rr.Error != "" {
		return "", fmt.Errorf("remote: %w: %s", ErrUpstream, rr.Error)
	}
	return strings.TrimSpace(rr.Text), nil
}
