// Package dispatch composes alarm notifications and delivers them to the
// matched recipients.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"weatherbot/internal/model"
)

// Notifier is the outbound chat-transport capability. iconPath and
// mentionUserID may be empty.
type Notifier interface {
	Send(ctx context.Context, groupID, text, iconPath, mentionUserID string) error
}

// IconResolver resolves an alarm's icon to a local file, fetching at most
// once per alert id.
type IconResolver interface {
	GetOrFetch(ctx context.Context, iconURL, alertID string) (string, error)
}

// Dispatcher sends one notification per matched recipient, isolating
// per-recipient failures so one bad send never blocks the rest.
type Dispatcher struct {
	notifier Notifier
	icons    IconResolver
	baseURL  string
	log      *slog.Logger
	limiter  *rate.Limiter
}

// New creates a Dispatcher. baseURL is the canonical host used to build the
// detail link shown in messages.
func New(notifier Notifier, icons IconResolver, baseURL string, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		icons:    icons,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		log:      log,
		// OneBot gateways throttle around a handful of messages per second.
		limiter: rate.NewLimiter(rate.Limit(5), 1),
	}
}

// SetLimiter overrides the send rate limiter (useful for testing).
func (d *Dispatcher) SetLimiter(l *rate.Limiter) {
	d.limiter = l
}

// Dispatch sends the alarm to every recipient in order. The icon is
// resolved exactly once per alarm; when that fails the notification goes
// out text-only. Returns the number of successful sends.
func (d *Dispatcher) Dispatch(ctx context.Context, alarm model.Alarm, detail model.AlarmDetail, recipients []model.Recipient) int {
	if len(recipients) == 0 {
		return 0
	}

	iconPath := ""
	if alarm.Pic != "" {
		p, err := d.icons.GetOrFetch(ctx, alarm.Pic, alarm.AlertID)
		if err != nil {
			d.log.Warn("fetch icon", "alert_id", alarm.AlertID, "error", err)
		} else {
			iconPath = p
		}
	}

	text := FormatNotification(alarm, detail, d.baseURL)

	sent := 0
	for _, rec := range recipients {
		if err := d.limiter.Wait(ctx); err != nil {
			return sent
		}
		if err := d.notifier.Send(ctx, rec.GroupID, text, iconPath, rec.UserID); err != nil {
			d.log.Error("send alarm",
				"alert_id", alarm.AlertID, "group_id", rec.GroupID, "user_id", rec.UserID, "error", err)
			continue
		}
		sent++
	}

	if sent > 0 {
		d.log.Info("dispatched alarm", "alert_id", alarm.AlertID, "title", alarm.Title, "sent", sent)
	}
	return sent
}

// FormatNotification renders the alarm message: title, issue time, the full
// detail content, and the canonical detail link.
func FormatNotification(alarm model.Alarm, detail model.AlarmDetail, baseURL string) string {
	link := alarm.URL
	if strings.HasPrefix(link, "/") {
		link = baseURL + link
	}

	title := alarm.Title
	if title == "" {
		title = "未知标题"
	}
	issueTime := alarm.IssueTime
	if issueTime == "" {
		issueTime = "未知时间"
	}
	content := detail.Content
	if content == "" {
		content = "暂无详情"
	}

	var b strings.Builder
	b.WriteString("[中国气象局气象预警]\n")
	fmt.Fprintf(&b, "| 预警标题: %s\n", title)
	fmt.Fprintf(&b, "| 发布时间: %s\n", issueTime)
	fmt.Fprintf(&b, "| 详细内容: %s\n", content)
	fmt.Fprintf(&b, "| 详细链接: %s", link)
	return b.String()
}
