package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"
)

// SlackNotifier posts a channel message when the agent performs a mutating
// source-control action on the user's behalf.
type SlackNotifier struct {
	client    *slack.Client
	channelID string
}

func NewSlackNotifier(botToken, channelID string) *SlackNotifier {
	return &SlackNotifier{
		client:    slack.New(botToken),
		channelID: channelID,
	}
}

func (n *SlackNotifier) ActionSucceeded(ctx context.Context, action string, result map[string]any) error {
	detail := ""
	if data, ok := result["data"]; ok {
		if b, err := json.Marshal(data); err == nil {
			detail = "\n```" + string(b) + "```"
		}
	}

	text := fmt.Sprintf(":hammer_and_wrench: *Agent completed `%s`*%s", action, detail)

	_, _, err := n.client.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return fmt.Errorf("slack notify: %w", err)
	}
	return nil
}
