package slack

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/utils/async"
	"github.com/secmon-lab/teamtask/pkg/utils/logging"
	"github.com/slack-go/slack"
)

// maxHeaderLength is the Slack limit for plain text in a header block
const maxHeaderLength = 150

// NotifierConfig routes organization notifications to Slack channels
type NotifierConfig struct {
	// Channels maps an organization to a channel ID or "#name"
	Channels map[types.OrganizationID]string
	// Types lists the forwarded notification types. Empty forwards every task type.
	Types []types.NotificationType
	// BaseURL is prepended to task links when set
	BaseURL string
}

// DefaultNotificationTypes are forwarded when the config does not list any
func DefaultNotificationTypes() []types.NotificationType {
	return []types.NotificationType{
		types.NotificationTypeTaskAssigned,
		types.NotificationTypeTaskStarted,
		types.NotificationTypeTaskCompleted,
		types.NotificationTypeTaskDeclined,
		types.NotificationTypeTaskDeadline,
	}
}

// Notifier posts task notifications to the Slack channel of their organization
type Notifier struct {
	svc      Service
	channels map[types.OrganizationID]string
	types    []types.NotificationType
	baseURL  string
}

var _ interfaces.EventPublisher = &Notifier{}

// NewNotifier resolves the configured channel references. Channel names are
// looked up among the channels the bot has joined.
func NewNotifier(ctx context.Context, svc Service, cfg NotifierConfig) (*Notifier, error) {
	n := &Notifier{
		svc:      svc,
		channels: make(map[types.OrganizationID]string, len(cfg.Channels)),
		types:    cfg.Types,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
	}
	if len(n.types) == 0 {
		n.types = DefaultNotificationTypes()
	}

	var joined []Channel
	for orgID, ref := range cfg.Channels {
		if !isChannelID(ref) && joined == nil {
			var err error
			if joined, err = svc.ListJoinedChannels(ctx); err != nil {
				return nil, goerr.Wrap(err, "failed to list Slack channels")
			}
		}

		id, ok := ResolveChannel(joined, ref)
		if !ok {
			return nil, goerr.New("Slack channel is not joined by the bot",
				goerr.V("organization_id", orgID), goerr.V("channel", ref))
		}
		n.channels[orgID] = id
	}

	logging.From(ctx).Info("Slack notifier configured", "organizations", len(n.channels))
	return n, nil
}

// Publish posts the event in the background when its organization is routed
func (n *Notifier) Publish(ctx context.Context, event *model.Event) {
	if event.Type != types.EventTypeNotification || event.Notification == nil {
		return
	}
	if !slices.Contains(n.types, event.Notification.Type) {
		return
	}
	channelID, ok := n.channels[event.OrganizationID]
	if !ok {
		return
	}

	blocks := n.buildBlocks(event)
	fallback := fmt.Sprintf("%s: %s", notificationLabel(event.Notification.Type), event.Notification.Title)

	async.Dispatch(ctx, func(ctx context.Context) error {
		if _, err := n.svc.PostMessage(ctx, channelID, blocks, fallback); err != nil {
			return goerr.Wrap(err, "failed to post notification to Slack",
				goerr.V("organization_id", event.OrganizationID),
				goerr.V("type", event.Notification.Type),
				goerr.V("id", event.Notification.ID))
		}
		return nil
	})
}

func notificationLabel(t types.NotificationType) string {
	switch t {
	case types.NotificationTypeTaskAssigned:
		return ":inbox_tray: Task assigned"
	case types.NotificationTypeTaskStarted:
		return ":arrow_forward: Task started"
	case types.NotificationTypeTaskCompleted:
		return ":white_check_mark: Task completed"
	case types.NotificationTypeTaskDeclined:
		return ":no_entry_sign: Task declined"
	case types.NotificationTypeTaskDeadline:
		return ":alarm_clock: Deadline approaching"
	case types.NotificationTypeInvitation:
		return ":envelope: Invitation"
	case types.NotificationTypeChatMention:
		return ":speech_balloon: Mention"
	default:
		return t.String()
	}
}

func (n *Notifier) buildBlocks(event *model.Event) []slack.Block {
	header := truncate(notificationLabel(event.Notification.Type)+": "+event.Notification.Title, maxHeaderLength)
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, header, true, false),
		),
	}

	var contextParts []string
	if event.Notification.Urgency != "" && event.Notification.Urgency != types.UrgencyNone {
		contextParts = append(contextParts, fmt.Sprintf("Urgency: *%s*", event.Notification.Urgency))
	}
	if event.ActorID != "" {
		contextParts = append(contextParts, fmt.Sprintf("By: %s", event.ActorID))
	}
	if n.baseURL != "" && isTaskNotification(event.Notification.Type) {
		contextParts = append(contextParts, fmt.Sprintf(":link: <%s/tasks/%s|Open>", n.baseURL, event.Notification.ID))
	}
	if len(contextParts) > 0 {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, strings.Join(contextParts, "  |  "), false, false),
		))
	}
	return blocks
}

func isTaskNotification(t types.NotificationType) bool {
	return strings.HasPrefix(t.String(), "task_")
}

// truncate cuts s to at most limit runes, marking the cut with an ellipsis
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
