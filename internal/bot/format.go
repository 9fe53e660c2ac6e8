package bot

import (
	"fmt"
	"strings"

	"weatherbot/internal/model"
)

// FormatSubscriptionList renders a user's subscriptions for display.
// Scopes registered in another group carry the group number so the user
// can tell where the notification will land.
func FormatSubscriptionList(subs []model.Subscription, currentGroupID string) string {
	if len(subs) == 0 {
		return "您目前没有订阅任何地区的气象预警。"
	}

	var entries []string
	for _, sub := range subs {
		if sub.GroupID == currentGroupID {
			entries = append(entries, sub.Display())
		} else {
			entries = append(entries, fmt.Sprintf("%s(群%s)", sub.Display(), sub.GroupID))
		}
	}

	return fmt.Sprintf("您订阅的气象预警地区：\n%s", strings.Join(entries, ", "))
}
