// Package bot implements the group-command layer: it turns inbound OneBot
// group messages into subscription operations and plain-text replies.
package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"weatherbot/internal/onebot"
	"weatherbot/internal/subscription"
)

// Replier sends a plain text message to a group.
type Replier interface {
	Reply(ctx context.Context, groupID, text string) error
}

// Bot routes subscription commands.
type Bot struct {
	registry *subscription.Registry
	sender   Replier
	log      *slog.Logger
}

// New creates a Bot over the given registry and reply transport.
func New(registry *subscription.Registry, sender Replier, log *slog.Logger) *Bot {
	return &Bot{
		registry: registry,
		sender:   sender,
		log:      log,
	}
}

// Command keywords, matched against the first whitespace-separated token.
const (
	cmdSubscribe   = "订阅预警"
	cmdUnsubscribe = "取消订阅预警"
	cmdMySubs      = "我的订阅"
)

// HandleEvent processes one inbound group message. Non-command messages
// are ignored.
func (b *Bot) HandleEvent(ctx context.Context, ev onebot.Event) {
	fields := strings.Fields(strings.TrimSpace(ev.RawMessage))
	if len(fields) == 0 {
		return
	}

	groupID := strconv.FormatInt(ev.GroupID, 10)
	userID := strconv.FormatInt(ev.UserID, 10)

	switch fields[0] {
	case cmdSubscribe:
		b.handleSubscribe(ctx, groupID, userID, fields[1:])
	case cmdUnsubscribe:
		b.handleUnsubscribe(ctx, groupID, userID, fields[1:])
	case cmdMySubs:
		b.handleMySubscriptions(ctx, groupID, userID)
	}
}

func (b *Bot) reply(ctx context.Context, groupID, text string) {
	if err := b.sender.Reply(ctx, groupID, text); err != nil {
		b.log.Error("send reply", "group_id", groupID, "error", err)
	}
}
