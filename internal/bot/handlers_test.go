package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"weatherbot/internal/onebot"
	"weatherbot/internal/storage"
	"weatherbot/internal/subscription"
)

type reply struct {
	GroupID string
	Text    string
}

type mockReplier struct {
	replies []reply
}

func (m *mockReplier) Reply(_ context.Context, groupID, text string) error {
	m.replies = append(m.replies, reply{GroupID: groupID, Text: text})
	return nil
}

func (m *mockReplier) last(t *testing.T) reply {
	t.Helper()
	if len(m.replies) == 0 {
		t.Fatal("expected a reply, got none")
	}
	return m.replies[len(m.replies)-1]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBot(t *testing.T) (*Bot, *subscription.Registry, *mockReplier) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	registry := subscription.NewRegistry(store, discardLogger())
	if err := registry.Load(context.Background()); err != nil {
		t.Fatalf("load registry: %v", err)
	}

	sender := &mockReplier{}
	return New(registry, sender, discardLogger()), registry, sender
}

func event(groupID, userID int64, raw string) onebot.Event {
	return onebot.Event{
		PostType:    "message",
		MessageType: "group",
		GroupID:     groupID,
		UserID:      userID,
		RawMessage:  raw,
	}
}

func TestHandleSubscribe(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		wantReply   string
		wantScope   string
		wantInIndex bool
	}{
		{
			name:        "province",
			message:     "订阅预警 广东",
			wantReply:   "成功订阅 广东 的气象预警",
			wantScope:   "广东",
			wantInIndex: true,
		},
		{
			name:        "province with suffix normalised",
			message:     "订阅预警 广东省",
			wantReply:   "成功订阅 广东 的气象预警",
			wantScope:   "广东",
			wantInIndex: true,
		},
		{
			name:      "nationwide",
			message:   "订阅预警 全国",
			wantReply: "成功订阅 全国 的气象预警",
		},
		{
			name:      "invalid region",
			message:   "订阅预警 火星",
			wantReply: "无效的地区名称：火星",
		},
		{
			name:      "missing argument",
			message:   "订阅预警",
			wantReply: "请指定要订阅的地区",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, registry, sender := newTestBot(t)

			b.HandleEvent(context.Background(), event(1001, 42, tt.message))

			got := sender.last(t)
			if got.GroupID != "1001" {
				t.Errorf("reply went to group %q", got.GroupID)
			}
			if !strings.Contains(got.Text, tt.wantReply) {
				t.Errorf("reply %q does not contain %q", got.Text, tt.wantReply)
			}
			if tt.wantInIndex {
				if len(registry.ScopeRecipients(tt.wantScope)) != 1 {
					t.Errorf("expected %q in index", tt.wantScope)
				}
			}
		})
	}
}

func TestHandleSubscribeLocation(t *testing.T) {
	b, registry, sender := newTestBot(t)

	b.HandleEvent(context.Background(), event(1001, 42, "订阅预警 广东省广州市"))

	if got := sender.last(t).Text; !strings.Contains(got, "成功订阅 广东省广州市") {
		t.Errorf("unexpected reply %q", got)
	}
	if diff := cmp.Diff([]string{"广东省广州市"}, registry.LocationKeys()); diff != "" {
		t.Errorf("location keys mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleSubscribeDuplicateReportsFailure(t *testing.T) {
	ctx := context.Background()
	b, _, sender := newTestBot(t)

	b.HandleEvent(ctx, event(1001, 42, "订阅预警 广东"))
	b.HandleEvent(ctx, event(1001, 42, "订阅预警 广东"))

	if got := sender.last(t).Text; !strings.Contains(got, "失败") {
		t.Errorf("expected duplicate subscribe to report failure, got %q", got)
	}
}

func TestHandleUnsubscribe(t *testing.T) {
	ctx := context.Background()
	b, registry, sender := newTestBot(t)

	b.HandleEvent(ctx, event(1001, 42, "订阅预警 广东"))
	b.HandleEvent(ctx, event(1001, 42, "取消订阅预警 广东"))

	if got := sender.last(t).Text; !strings.Contains(got, "已取消订阅 广东") {
		t.Errorf("unexpected reply %q", got)
	}
	if got := registry.ScopeRecipients("广东"); got != nil {
		t.Errorf("expected empty index after unsubscribe, got %v", got)
	}
}

func TestHandleUnsubscribeLocationKeepsSiblings(t *testing.T) {
	ctx := context.Background()
	b, registry, _ := newTestBot(t)

	b.HandleEvent(ctx, event(1001, 42, "订阅预警 广东省广州市"))
	b.HandleEvent(ctx, event(1002, 43, "订阅预警 广东省深圳市"))
	b.HandleEvent(ctx, event(1003, 44, "订阅预警 广东"))

	b.HandleEvent(ctx, event(1001, 42, "取消订阅预警 广东省广州市"))

	if diff := cmp.Diff([]string{"广东省深圳市"}, registry.LocationKeys()); diff != "" {
		t.Errorf("sibling location must survive (-want +got):\n%s", diff)
	}
	if len(registry.ScopeRecipients("广东")) != 1 {
		t.Error("province subscription must survive location unsubscribe")
	}
}

func TestHandleMySubscriptions(t *testing.T) {
	ctx := context.Background()
	b, _, sender := newTestBot(t)

	b.HandleEvent(ctx, event(1001, 42, "我的订阅"))
	if got := sender.last(t).Text; got != "您目前没有订阅任何地区的气象预警。" {
		t.Errorf("unexpected reply %q", got)
	}

	b.HandleEvent(ctx, event(1001, 42, "订阅预警 广东"))
	b.HandleEvent(ctx, event(2002, 42, "订阅预警 四川"))

	b.HandleEvent(ctx, event(1001, 42, "我的订阅"))
	got := sender.last(t).Text
	if !strings.Contains(got, "广东") {
		t.Errorf("reply %q missing same-group scope", got)
	}
	if !strings.Contains(got, "四川(群2002)") {
		t.Errorf("reply %q missing cross-group annotation", got)
	}
}

func TestHandleEventIgnoresNonCommands(t *testing.T) {
	b, _, sender := newTestBot(t)

	b.HandleEvent(context.Background(), event(1001, 42, "今天天气怎么样"))
	b.HandleEvent(context.Background(), event(1001, 42, ""))

	if len(sender.replies) != 0 {
		t.Errorf("expected no replies, got %d", len(sender.replies))
	}
}
