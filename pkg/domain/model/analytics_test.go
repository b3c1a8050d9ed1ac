package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(v float64) *float64    { return &v }

func TestComputeStatistics(t *testing.T) {
	tasks := []*model.Task{
		{
			ID: types.NewTaskID(), AssigneeID: "alice", Status: types.TaskStatusCompleted,
			Deadline:                 baseTime.Add(-time.Hour),
			StartedAt:                ptrTime(baseTime.Add(-10 * time.Hour)),
			ActualCompletedAt:        ptrTime(baseTime.Add(-2 * time.Hour)),
			EstimatedCompletionHours: ptrFloat(6),
		},
		{
			ID: types.NewTaskID(), AssigneeID: "alice", Status: types.TaskStatusCompleted,
			Deadline:                 baseTime.Add(-5 * time.Hour),
			StartedAt:                ptrTime(baseTime.Add(-8 * time.Hour)),
			ActualCompletedAt:        ptrTime(baseTime.Add(-4 * time.Hour)),
			EstimatedCompletionHours: ptrFloat(2),
		},
		{ID: types.NewTaskID(), AssigneeID: "bob", Status: types.TaskStatusPending, Deadline: baseTime.Add(-time.Minute)},
		{ID: types.NewTaskID(), AssigneeID: "bob", Status: types.TaskStatusInProgress, Deadline: baseTime.Add(48 * time.Hour), DeclineReason: "busy"},
	}

	stats := model.ComputeStatistics(tasks, baseTime)

	gt.V(t, stats.TotalTasks).Equal(4)
	gt.V(t, stats.ByStatus[types.TaskStatusCompleted]).Equal(2)
	gt.V(t, stats.ByStatus[types.TaskStatusPending]).Equal(1)
	gt.V(t, stats.ByStatus[types.TaskStatusInProgress]).Equal(1)
	gt.V(t, stats.ByUrgency[types.UrgencyNone]).Equal(2)
	gt.V(t, stats.ByUrgency[types.UrgencyUrgent]).Equal(1)
	gt.V(t, stats.OverdueCount).Equal(1)
	gt.V(t, stats.DeclinedCount).Equal(1)
	gt.V(t, *stats.AverageActualHours).Equal(6.0)
	gt.V(t, *stats.AverageEstimatedHours).Equal(4.0)
	gt.V(t, *stats.OnTimeCompletionRate).Equal(0.5)
	gt.V(t, stats.CompletedByAssignee["alice"]).Equal(2)
	gt.V(t, stats.CompletedByAssignee["bob"]).Equal(0)
}

func TestComputeStatistics_Empty(t *testing.T) {
	stats := model.ComputeStatistics(nil, baseTime)
	gt.V(t, stats.TotalTasks).Equal(0)
	gt.V(t, stats.ByStatus[types.TaskStatusPending]).Equal(0)
	gt.Value(t, stats.AverageActualHours).Nil()
	gt.Value(t, stats.OnTimeCompletionRate).Nil()
}

func TestBuildCalendar(t *testing.T) {
	day1 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 5, 18, 0, 0, 0, time.UTC)

	summaries := []*model.TaskSummary{
		model.Summarize(&model.Task{ID: types.NewTaskID(), Status: types.TaskStatusPending, Deadline: day2}, nil, baseTime),
		model.Summarize(&model.Task{ID: types.NewTaskID(), Status: types.TaskStatusCompleted, Deadline: day1}, nil, baseTime),
		model.Summarize(&model.Task{ID: types.NewTaskID(), Status: types.TaskStatusPending, Deadline: day1.Add(time.Hour)}, nil, baseTime),
	}

	days := model.BuildCalendar(summaries)
	gt.A(t, days).Length(2)

	gt.V(t, days[0].Date).Equal("2026-03-02")
	gt.A(t, days[0].Tasks).Length(2)
	gt.V(t, days[0].WorstUrgency).Equal(types.UrgencyCritical)
	gt.V(t, days[0].Tasks[0].Urgency).Equal(types.UrgencyCritical)
	gt.V(t, days[0].Tasks[1].Urgency).Equal(types.UrgencyNone)

	gt.V(t, days[1].Date).Equal("2026-03-05")
	gt.V(t, days[1].WorstUrgency).Equal(types.UrgencyNormal)
}
