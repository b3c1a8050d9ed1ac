package model

import (
	"time"

	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

const (
	// CriticalWindow is the remaining time under which a task is critical
	CriticalWindow = 24 * time.Hour
	// UrgentWindow is the remaining time under which a task is urgent
	UrgentWindow = 72 * time.Hour
)

// ClassifyUrgency maps a deadline, status and instant to an urgency bucket.
// Both windows are exclusive: exactly 24h left is urgent, exactly 72h left is normal.
func ClassifyUrgency(deadline time.Time, status types.TaskStatus, now time.Time) types.Urgency {
	if status == types.TaskStatusCompleted {
		return types.UrgencyNone
	}
	if now.After(deadline) {
		return types.UrgencyOverdue
	}

	remaining := deadline.Sub(now)
	switch {
	case remaining < CriticalWindow:
		return types.UrgencyCritical
	case remaining < UrgentWindow:
		return types.UrgencyUrgent
	default:
		return types.UrgencyNormal
	}
}
