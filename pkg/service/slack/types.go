package slack

import (
	"context"

	"github.com/slack-go/slack"
)

// Service provides the subset of the Slack API the notifier needs
type Service interface {
	// ListJoinedChannels retrieves the list of channels the bot has joined.
	// Used to resolve channel names written in the config file.
	ListJoinedChannels(ctx context.Context) ([]Channel, error)

	// PostMessage posts a Block Kit message to a channel and returns the message timestamp.
	// The text parameter is used as a fallback for notifications.
	PostMessage(ctx context.Context, channelID string, blocks []slack.Block, text string) (string, error)
}

// Channel represents a Slack channel
type Channel struct {
	ID   string
	Name string
}
