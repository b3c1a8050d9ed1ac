package slack_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/service/slack"
	goslack "github.com/slack-go/slack"
)

type post struct {
	channelID string
	blocks    []goslack.Block
	text      string
}

type mockService struct {
	channels []slack.Channel
	listed   int
	posts    chan post
}

func (m *mockService) ListJoinedChannels(ctx context.Context) ([]slack.Channel, error) {
	m.listed++
	return m.channels, nil
}

func (m *mockService) PostMessage(ctx context.Context, channelID string, blocks []goslack.Block, text string) (string, error) {
	m.posts <- post{channelID: channelID, blocks: blocks, text: text}
	return "1.0", nil
}

func newMock() *mockService {
	return &mockService{
		channels: []slack.Channel{{ID: "C0000000002", Name: "team-acme"}},
		posts:    make(chan post, 8),
	}
}

func TestNewNotifier(t *testing.T) {
	ctx := context.Background()

	t.Run("channel IDs do not need a lookup", func(t *testing.T) {
		svc := newMock()
		_, err := slack.NewNotifier(ctx, svc, slack.NotifierConfig{
			Channels: map[types.OrganizationID]string{types.NewOrganizationID(): "C0123456789"},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, svc.listed).Equal(0)
	})

	t.Run("unknown channel name fails", func(t *testing.T) {
		svc := newMock()
		_, err := slack.NewNotifier(ctx, svc, slack.NotifierConfig{
			Channels: map[types.OrganizationID]string{types.NewOrganizationID(): "#nowhere"},
		})
		gt.Value(t, err).NotNil()
	})
}

func TestNotifier_Publish(t *testing.T) {
	ctx := context.Background()
	routed := types.NewOrganizationID()
	unrouted := types.NewOrganizationID()

	svc := newMock()
	n, err := slack.NewNotifier(ctx, svc, slack.NotifierConfig{
		Channels: map[types.OrganizationID]string{routed: "#team-acme"},
		Types:    []types.NotificationType{types.NotificationTypeTaskCompleted},
		BaseURL:  "https://tasks.example.com/",
	})
	gt.NoError(t, err).Required()

	event := func(orgID types.OrganizationID, kind types.NotificationType) *model.Event {
		return &model.Event{
			Type:           types.EventTypeNotification,
			OrganizationID: orgID,
			ActorID:        "employee-1",
			Notification: &model.EventNotification{
				Type:  kind,
				ID:    "task-1",
				Title: "Write report",
			},
		}
	}

	// None of these are forwarded
	n.Publish(ctx, event(unrouted, types.NotificationTypeTaskCompleted))
	n.Publish(ctx, event(routed, types.NotificationTypeTaskStarted))
	n.Publish(ctx, &model.Event{Type: types.EventTypeMessage, OrganizationID: routed})

	n.Publish(ctx, event(routed, types.NotificationTypeTaskCompleted))

	select {
	case p := <-svc.posts:
		gt.Value(t, p.channelID).Equal("C0000000002")
		gt.String(t, p.text).Contains("Write report")
		gt.Array(t, p.blocks).Length(2)
	case <-time.After(time.Second):
		t.Fatal("notification was not posted")
	}

	select {
	case p := <-svc.posts:
		t.Fatalf("unexpected post to %s", p.channelID)
	case <-time.After(100 * time.Millisecond):
	}
}
