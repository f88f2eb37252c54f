package notify

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackNotifier posts messages to a Slack channel.
type SlackNotifier struct {
	client  slackClient
	channel string
}

// NewSlack creates a Slack notifier with a real API client.
func NewSlack(botToken, channel string) *SlackNotifier {
	return &SlackNotifier{client: slackapi.New(botToken), channel: channel}
}

// newSlackWithClient injects a mock client for tests.
func newSlackWithClient(client slackClient, channel string) *SlackNotifier {
	return &SlackNotifier{client: client, channel: channel}
}

// Name implements Notifier.
func (s *SlackNotifier) Name() string { return "slack" }

// Notify posts subject and body as one message.
func (s *SlackNotifier) Notify(ctx context.Context, subject, body string) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slackapi.MsgOptionText(formatMessage(subject, body), false))
	if err != nil {
		return fmt.Errorf("post to %s: %w", s.channel, err)
	}
	return nil
}
