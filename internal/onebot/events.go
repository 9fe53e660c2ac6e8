package onebot

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one inbound OneBot event. Only the fields the command layer
// needs are decoded.
type Event struct {
	PostType    string `json:"post_type"`
	MessageType string `json:"message_type"`
	GroupID     int64  `json:"group_id"`
	UserID      int64  `json:"user_id"`
	RawMessage  string `json:"raw_message"`
}

// EventHandler consumes inbound group-message events.
type EventHandler func(ctx context.Context, ev Event)

// Listener maintains the OneBot event WebSocket and feeds group messages to
// a handler. Dropped connections are redialed with a fixed backoff.
type Listener struct {
	wsURL   string
	token   string
	log     *slog.Logger
	backoff time.Duration
}

// NewListener creates a Listener for the OneBot event socket at wsURL.
func NewListener(wsURL, token string, log *slog.Logger) *Listener {
	return &Listener{
		wsURL:   wsURL,
		token:   token,
		log:     log,
		backoff: 5 * time.Second,
	}
}

// Listen blocks until ctx is cancelled, dialing the event socket and
// dispatching every group message to handler.
func (l *Listener) Listen(ctx context.Context, handler EventHandler) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := l.run(ctx, handler); err != nil && ctx.Err() == nil {
			l.log.Error("event socket", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.backoff):
		}
	}
}

func (l *Listener) run(ctx context.Context, handler EventHandler) error {
	header := http.Header{}
	if l.token != "" {
		header.Set("Authorization", "Bearer "+l.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.wsURL, header)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	l.log.Info("connected to event socket", "url", l.wsURL)

	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			l.log.Debug("skip undecodable event", "error", err)
			continue
		}
		if ev.PostType != "message" || ev.MessageType != "group" {
			continue
		}
		handler(ctx, ev)
	}
}
