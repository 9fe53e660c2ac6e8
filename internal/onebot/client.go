// Package onebot implements the OneBot v11 gateway client used to talk to
// a NapCat-style endpoint: JSON POSTs for outbound sends and a WebSocket
// for inbound group-message events.
package onebot

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client sends messages through the OneBot HTTP API.
type Client struct {
	client HTTPClient
	apiURL string
	token  string
	log    *slog.Logger
}

// NewClient creates a Client for the OneBot HTTP API at apiURL. token may
// be empty when the gateway does not require one.
func NewClient(client HTTPClient, apiURL, token string, log *slog.Logger) *Client {
	return &Client{
		client: client,
		apiURL: strings.TrimSuffix(apiURL, "/"),
		token:  token,
		log:    log,
	}
}

// Segment is one OneBot message segment.
type Segment struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Text builds a plain-text segment.
func Text(text string) Segment {
	return Segment{Type: "text", Data: map[string]any{"text": text}}
}

// At builds a mention segment for the given user.
func At(userID string) Segment {
	return Segment{Type: "at", Data: map[string]any{"qq": userID}}
}

// ImageFile builds an image segment from a local file, inlined as base64
// so the gateway needs no filesystem access of its own.
func ImageFile(path string) (Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Segment{}, fmt.Errorf("read image: %w", err)
	}
	return Segment{
		Type: "image",
		Data: map[string]any{"file": "base64://" + base64.StdEncoding.EncodeToString(data)},
	}, nil
}

type apiResponse struct {
	Status  string `json:"status"`
	Retcode int    `json:"retcode"`
}

// SendGroupMessage posts the segments to a group via /send_group_msg.
func (c *Client) SendGroupMessage(ctx context.Context, groupID string, segments []Segment) error {
	gid, err := strconv.ParseInt(groupID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid group id %q: %w", groupID, err)
	}

	payload, err := json.Marshal(map[string]any{
		"group_id": gid,
		"message":  segments,
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/send_group_msg", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post send_group_msg: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send_group_msg status %d: %s", resp.StatusCode, body)
	}

	var api apiResponse
	if err := json.Unmarshal(body, &api); err == nil && api.Status != "" && api.Status != "ok" && api.Status != "async" {
		return fmt.Errorf("send_group_msg failed: retcode %d", api.Retcode)
	}
	return nil
}

// Send delivers an alarm notification to a group, mentioning the matched
// user and attaching the cached icon when one is available. It satisfies
// the dispatcher's notifier capability.
func (c *Client) Send(ctx context.Context, groupID, text, iconPath, mentionUserID string) error {
	var segments []Segment
	if mentionUserID != "" {
		segments = append(segments, At(mentionUserID), Text("\n"))
	}
	segments = append(segments, Text(text))
	if iconPath != "" {
		img, err := ImageFile(iconPath)
		if err != nil {
			c.log.Warn("attach icon", "path", iconPath, "error", err)
		} else {
			segments = append(segments, img)
		}
	}
	return c.SendGroupMessage(ctx, groupID, segments)
}

// Reply sends a plain text message to a group.
func (c *Client) Reply(ctx context.Context, groupID, text string) error {
	return c.SendGroupMessage(ctx, groupID, []Segment{Text(text)})
}
