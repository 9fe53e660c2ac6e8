package bot

import (
	"context"
	"fmt"
)

func (b *Bot) handleSubscribe(ctx context.Context, groupID, userID string, args []string) {
	if len(args) == 0 {
		b.reply(ctx, groupID, "请指定要订阅的地区，例如：订阅预警 广东，或：订阅预警 广东省广州市")
		return
	}

	scope := ParseScope(args[0])
	var ok bool
	switch scope.Kind {
	case ScopeArgNationwide:
		ok = b.registry.SubscribeNationwide(ctx, groupID, userID)
	case ScopeArgProvince:
		ok = b.registry.SubscribeProvince(ctx, scope.Value, groupID, userID)
	case ScopeArgLocation:
		ok = b.registry.SubscribeLocation(ctx, scope.Value, groupID, userID)
	default:
		b.reply(ctx, groupID, fmt.Sprintf("无效的地区名称：%s\n支持省份（如 广东）、完整地区（如 广东省广州市）或 全国", args[0]))
		return
	}

	if ok {
		b.reply(ctx, groupID, fmt.Sprintf("成功订阅 %s 的气象预警！当该地区发布气象预警时，将会在此群通知您。", scope.Value))
	} else {
		b.reply(ctx, groupID, fmt.Sprintf("订阅 %s 的气象预警失败，请重试。", scope.Value))
	}
}

func (b *Bot) handleUnsubscribe(ctx context.Context, groupID, userID string, args []string) {
	if len(args) == 0 {
		b.reply(ctx, groupID, "请指定要取消订阅的地区，例如：取消订阅预警 广东")
		return
	}

	scope := ParseScope(args[0])
	var ok bool
	switch scope.Kind {
	case ScopeArgNationwide:
		ok = b.registry.UnsubscribeNationwide(ctx, groupID, userID)
	case ScopeArgProvince:
		ok = b.registry.UnsubscribeProvince(ctx, scope.Value, groupID, userID)
	case ScopeArgLocation:
		ok = b.registry.UnsubscribeLocation(ctx, scope.Value, groupID, userID)
	default:
		b.reply(ctx, groupID, fmt.Sprintf("无效的地区名称：%s", args[0]))
		return
	}

	if ok {
		b.reply(ctx, groupID, fmt.Sprintf("已取消订阅 %s 的气象预警。", scope.Value))
	} else {
		b.reply(ctx, groupID, fmt.Sprintf("取消订阅 %s 的气象预警失败，请重试。", scope.Value))
	}
}

func (b *Bot) handleMySubscriptions(ctx context.Context, groupID, userID string) {
	subs, err := b.registry.ListForUser(ctx, userID)
	if err != nil {
		b.log.Error("list subscriptions", "user_id", userID, "error", err)
		b.reply(ctx, groupID, "查询订阅失败，请重试。")
		return
	}

	b.reply(ctx, groupID, FormatSubscriptionList(subs, groupID))
}
