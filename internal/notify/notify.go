// Package notify sends provisioning failure notifications to Slack and
// Discord. Delivery is best-effort: a sink that errors is logged and skipped,
// never fatal to the operation being reported on.
package notify

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/zulandar/dockhand/internal/config"
)

// Notifier delivers one message to one sink.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, subject, body string) error
}

// Multi fans a message out to every configured sink.
type Multi []Notifier

// Notify delivers to all sinks. Returns the number that succeeded.
func (m Multi) Notify(ctx context.Context, subject, body string) int {
	sent := 0
	for _, n := range m {
		if err := n.Notify(ctx, subject, body); err != nil {
			log.Printf("notify: %s: %v", n.Name(), err)
			continue
		}
		sent++
	}
	return sent
}

// FromConfig builds the sink list from configuration. Tokens come from the
// environment variables the config names; a sink whose token is unset is
// skipped with a log line rather than treated as an error.
func FromConfig(cfg config.NotifyConfig) Multi {
	var sinks Multi
	if cfg.Slack.Channel != "" {
		token := os.Getenv(cfg.Slack.TokenEnv)
		if token == "" {
			log.Printf("notify: slack configured but %s is unset", cfg.Slack.TokenEnv)
		} else {
			sinks = append(sinks, NewSlack(token, cfg.Slack.Channel))
		}
	}
	if cfg.Discord.ChannelID != "" {
		token := os.Getenv(cfg.Discord.TokenEnv)
		if token == "" {
			log.Printf("notify: discord configured but %s is unset", cfg.Discord.TokenEnv)
		} else {
			d, err := NewDiscord(token, cfg.Discord.ChannelID)
			if err != nil {
				log.Printf("notify: discord: %v", err)
			} else {
				sinks = append(sinks, d)
			}
		}
	}
	return sinks
}

func formatMessage(subject, body string) string {
	if body == "" {
		return subject
	}
	return fmt.Sprintf("%s\n%s", subject, body)
}
