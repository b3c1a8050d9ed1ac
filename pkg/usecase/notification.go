package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"golang.org/x/sync/errgroup"
)

// mentionPreviewLength caps the chat text used as a notification title
const mentionPreviewLength = 80

type NotificationUseCase struct {
	*env
}

// NotificationFeed is the candidate list of a user with its unread count
type NotificationFeed struct {
	Notifications []*model.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

// MarkRead records that the actor acknowledged a notification. Marking the
// same notification twice is a no-op.
func (uc *NotificationUseCase) MarkRead(ctx context.Context, actor auth.Principal, notificationType types.NotificationType, notificationID string) (*model.NotificationRead, error) {
	if err := actor.Validate(); err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, err.Error())
	}
	if !notificationType.IsValid() {
		return nil, goerr.Wrap(ErrValidation, "invalid notification type", goerr.V("type", notificationType))
	}
	if notificationID == "" {
		return nil, goerr.Wrap(ErrValidation, "notification id is required")
	}

	read := &model.NotificationRead{
		UserID:         actor.UserID,
		Type:           notificationType,
		NotificationID: notificationID,
		ReadAt:         uc.now(),
	}
	if err := uc.repo.NotificationRead().Put(ctx, read); err != nil {
		return nil, goerr.Wrap(err, "failed to mark notification read",
			goerr.V(UserIDKey, actor.UserID), goerr.V("type", notificationType), goerr.V("id", notificationID))
	}
	return read, nil
}

func (uc *NotificationUseCase) IsRead(ctx context.Context, actor auth.Principal, notificationType types.NotificationType, notificationID string) (bool, error) {
	if err := actor.Validate(); err != nil {
		return false, goerr.Wrap(ErrUnauthenticated, err.Error())
	}
	if !notificationType.IsValid() {
		return false, goerr.Wrap(ErrValidation, "invalid notification type", goerr.V("type", notificationType))
	}

	ok, err := uc.repo.NotificationRead().Exists(ctx, actor.UserID, notificationType, notificationID)
	if err != nil {
		return false, goerr.Wrap(err, "failed to check read state", goerr.V(UserIDKey, actor.UserID))
	}
	return ok, nil
}

func (uc *NotificationUseCase) ListReads(ctx context.Context, actor auth.Principal) ([]*model.NotificationRead, error) {
	if err := actor.Validate(); err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, err.Error())
	}
	reads, err := uc.repo.NotificationRead().ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list reads", goerr.V(UserIDKey, actor.UserID))
	}
	return reads, nil
}

// ListNotifications enumerates candidates from every source and flags the
// ones present in the read ledger. Newest first.
func (uc *NotificationUseCase) ListNotifications(ctx context.Context, actor auth.Principal) (*NotificationFeed, error) {
	if err := actor.Validate(); err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, err.Error())
	}

	candidates, err := uc.collect(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	reads, err := uc.repo.NotificationRead().ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list reads", goerr.V(UserIDKey, actor.UserID))
	}

	readKeys := make(map[model.NotificationKey]struct{}, len(reads))
	for _, r := range reads {
		readKeys[r.Key()] = struct{}{}
	}

	feed := &NotificationFeed{Notifications: candidates}
	for _, n := range candidates {
		if _, ok := readKeys[n.Key()]; ok {
			n.Read = true
		} else {
			feed.UnreadCount++
		}
	}
	return feed, nil
}

// UnreadCount is the number of candidates without a ledger row
func (uc *NotificationUseCase) UnreadCount(ctx context.Context, actor auth.Principal) (int, error) {
	feed, err := uc.ListNotifications(ctx, actor)
	if err != nil {
		return 0, err
	}
	return feed.UnreadCount, nil
}

type notificationSource func(ctx context.Context, userID types.UserID) ([]*model.Notification, error)

func (uc *NotificationUseCase) sources() []notificationSource {
	return []notificationSource{
		uc.invitationCandidates,
		uc.taskCandidates(types.NotificationTypeTaskAssigned),
		uc.taskCandidates(types.NotificationTypeTaskStarted),
		uc.taskCandidates(types.NotificationTypeTaskCompleted),
		uc.taskCandidates(types.NotificationTypeTaskDeclined),
		uc.mentionCandidates,
	}
}

func (uc *NotificationUseCase) collect(ctx context.Context, userID types.UserID) ([]*model.Notification, error) {
	sources := uc.sources()
	results := make([][]*model.Notification, len(sources))

	eg, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		eg.Go(func() error {
			found, err := src(ctx, userID)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, goerr.Wrap(err, "failed to collect notifications", goerr.V(UserIDKey, userID))
	}

	var all []*model.Notification
	for _, r := range results {
		all = append(all, r...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if all == nil {
		all = []*model.Notification{}
	}
	return all, nil
}

func (uc *NotificationUseCase) invitationCandidates(ctx context.Context, userID types.UserID) ([]*model.Notification, error) {
	invitations, err := uc.repo.Invitation().ListByInvitee(ctx, userID, types.InvitationStatusPending)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list invitations")
	}

	result := make([]*model.Notification, 0, len(invitations))
	for _, inv := range invitations {
		title := "Invitation"
		if org, err := uc.repo.Organization().Get(ctx, inv.OrganizationID); err == nil {
			title = "Invitation to " + org.Name
		}
		result = append(result, &model.Notification{
			Type:           types.NotificationTypeInvitation,
			ID:             inv.ID.String(),
			OrganizationID: inv.OrganizationID,
			Title:          title,
			CreatedAt:      inv.CreatedAt,
		})
	}
	return result, nil
}

// taskCandidates returns the source for one task notification type. Assignment
// notifications go to the assignee, the rest to the assigner.
func (uc *NotificationUseCase) taskCandidates(kind types.NotificationType) notificationSource {
	return func(ctx context.Context, userID types.UserID) ([]*model.Notification, error) {
		var filter interfaces.TaskFilter
		switch kind {
		case types.NotificationTypeTaskAssigned:
			filter = interfaces.TaskFilter{AssigneeID: userID, Statuses: []types.TaskStatus{types.TaskStatusPending}}
		case types.NotificationTypeTaskStarted:
			filter = interfaces.TaskFilter{AssignerID: userID, Statuses: []types.TaskStatus{types.TaskStatusInProgress}}
		case types.NotificationTypeTaskCompleted:
			filter = interfaces.TaskFilter{AssignerID: userID, Statuses: []types.TaskStatus{types.TaskStatusCompleted}}
		case types.NotificationTypeTaskDeclined:
			filter = interfaces.TaskFilter{AssignerID: userID, Statuses: []types.TaskStatus{types.TaskStatusPending, types.TaskStatusInProgress}}
		}

		tasks, err := uc.repo.Task().List(ctx, filter)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list tasks", goerr.V("type", kind))
		}

		result := make([]*model.Notification, 0, len(tasks))
		for _, t := range tasks {
			if kind == types.NotificationTypeTaskDeclined && !t.IsDeclined() {
				continue
			}
			result = append(result, &model.Notification{
				Type:           kind,
				ID:             t.ID.String(),
				OrganizationID: t.OrganizationID,
				Title:          t.Title,
				CreatedAt:      taskEventTime(t, kind),
			})
		}
		return result, nil
	}
}

func taskEventTime(t *model.Task, kind types.NotificationType) time.Time {
	switch {
	case kind == types.NotificationTypeTaskStarted && t.StartedAt != nil:
		return *t.StartedAt
	case kind == types.NotificationTypeTaskCompleted && t.ActualCompletedAt != nil:
		return *t.ActualCompletedAt
	case kind == types.NotificationTypeTaskAssigned:
		return t.CreatedAt
	default:
		return t.UpdatedAt
	}
}

func (uc *NotificationUseCase) mentionCandidates(ctx context.Context, userID types.UserID) ([]*model.Notification, error) {
	msgs, err := uc.repo.Chat().ListMentioning(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list mentions")
	}

	result := make([]*model.Notification, 0, len(msgs))
	for _, m := range msgs {
		title := []rune(m.Text)
		if len(title) > mentionPreviewLength {
			title = title[:mentionPreviewLength]
		}
		result = append(result, &model.Notification{
			Type:           types.NotificationTypeChatMention,
			ID:             m.ID.String(),
			OrganizationID: m.OrganizationID,
			Title:          string(title),
			CreatedAt:      m.CreatedAt,
		})
	}
	return result, nil
}
