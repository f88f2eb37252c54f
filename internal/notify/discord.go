package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo methods we use, enabling test
// mocks. Plain message sends go over REST, so no gateway connection is
// opened.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts messages to a Discord channel.
type DiscordNotifier struct {
	sess      discordSession
	channelID string
}

// NewDiscord creates a Discord notifier with a real session.
func NewDiscord(botToken, channelID string) (*DiscordNotifier, error) {
	sess, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &DiscordNotifier{sess: sess, channelID: channelID}, nil
}

// newDiscordWithSession injects a mock session for tests.
func newDiscordWithSession(sess discordSession, channelID string) *DiscordNotifier {
	return &DiscordNotifier{sess: sess, channelID: channelID}
}

// Name implements Notifier.
func (d *DiscordNotifier) Name() string { return "discord" }

// Notify posts subject and body as one message.
func (d *DiscordNotifier) Notify(ctx context.Context, subject, body string) error {
	_, err := d.sess.ChannelMessageSend(d.channelID, formatMessage(subject, body), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send to channel %s: %w", d.channelID, err)
	}
	return nil
}
