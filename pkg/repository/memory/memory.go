package memory

import (
	"context"
	"sync"

	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// Memory is an in-process repository for development and tests.
// A single mutex guards all entities so multi-entity writes are atomic.
type Memory struct {
	mu sync.RWMutex

	orgs        map[types.OrganizationID]*model.Organization
	members     map[types.OrganizationID]map[types.UserID]*model.Membership
	invitations map[types.InvitationID]*model.OrganizationInvitation
	tasks       map[types.TaskID]*model.Task
	stages      map[types.StageID]*model.TaskStage
	reports     map[types.ReportID]*model.TaskReport
	reads       map[types.UserID]map[model.NotificationKey]*model.NotificationRead
	messages    map[types.MessageID]*model.ChatMessage
	// messageSeq records insertion order, the only ordering chat guarantees
	messageSeq map[types.MessageID]int64
	nextSeq    int64

	organization *organizationRepository
	invitation   *invitationRepository
	task         *taskRepository
	stage        *stageRepository
	read         *notificationReadRepository
	chat         *chatRepository
}

// Repository is an alias for Memory to match the pattern
type Repository = Memory

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	m := &Memory{
		orgs:        make(map[types.OrganizationID]*model.Organization),
		members:     make(map[types.OrganizationID]map[types.UserID]*model.Membership),
		invitations: make(map[types.InvitationID]*model.OrganizationInvitation),
		tasks:       make(map[types.TaskID]*model.Task),
		stages:      make(map[types.StageID]*model.TaskStage),
		reports:     make(map[types.ReportID]*model.TaskReport),
		reads:       make(map[types.UserID]map[model.NotificationKey]*model.NotificationRead),
		messages:    make(map[types.MessageID]*model.ChatMessage),
		messageSeq:  make(map[types.MessageID]int64),
	}
	m.organization = &organizationRepository{m: m}
	m.invitation = &invitationRepository{m: m}
	m.task = &taskRepository{m: m}
	m.stage = &stageRepository{m: m}
	m.read = &notificationReadRepository{m: m}
	m.chat = &chatRepository{m: m}
	return m
}

func (m *Memory) Organization() interfaces.OrganizationRepository {
	return m.organization
}

func (m *Memory) Invitation() interfaces.InvitationRepository {
	return m.invitation
}

func (m *Memory) Task() interfaces.TaskRepository {
	return m.task
}

func (m *Memory) Stage() interfaces.StageRepository {
	return m.stage
}

func (m *Memory) NotificationRead() interfaces.NotificationReadRepository {
	return m.read
}

func (m *Memory) Chat() interfaces.ChatRepository {
	return m.chat
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func (m *Memory) Close() error {
	return nil
}
