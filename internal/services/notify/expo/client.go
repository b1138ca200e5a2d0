// Package expo is a minimal client for the Expo push gateway. The
// gateway is a plain request/response HTTP service; delivery beyond
// its 200 response is not observable here.
package expo

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
)

const tokenPrefix = "ExponentPushToken"

var ErrInvalidPushToken = errors.New("expo: invalid push token")

type ClientConfig struct {
	// PushURL is the send endpoint of the Expo push gateway.
	PushURL string `json:"pushUrl" mapstructure:"push_url"`
}

type Client struct {
	// pushURL is the send endpoint.
	pushURL string

	// hc is the http client.
	hc *http.Client
}

func NewClient(c *ClientConfig) *Client {
	return &Client{
		pushURL: c.PushURL,

		// set http client with timeout.
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IsPushToken reports whether s looks like an Expo push token. Tokens
// from other providers are rejected before any network call.
func IsPushToken(s string) bool {
	return strings.HasPrefix(s, tokenPrefix)
}

type message struct {
	To    string         `json:"to"`
	Sound string         `json:"sound"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Send pushes a single notification. Best-effort by contract: the
// caller decides what a failure means.
func (c *Client) Send(ctx context.Context, pushToken, title, body string, data map[string]any) error {
	if !IsPushToken(pushToken) {
		return ErrInvalidPushToken
	}

	payload, err := json.Marshal(message{
		To:    pushToken,
		Sound: "default",
		Title: title,
		Body:  body,
		Data:  data,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pushURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("expo: push send returned %d: %s", resp.StatusCode, b)
	}

	return nil
}
