package model

import (
	"sort"
	"time"

	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// CalendarDateLayout is the key format of calendar days
const CalendarDateLayout = "2006-01-02"

// Statistics aggregates the tasks of one organization
type Statistics struct {
	TotalTasks    int                      `json:"total_tasks"`
	ByStatus      map[types.TaskStatus]int `json:"by_status"`
	ByUrgency     map[types.Urgency]int    `json:"by_urgency"`
	OverdueCount  int                      `json:"overdue_count"`
	DeclinedCount int                      `json:"declined_count"`

	// Averages and the rate are nil when no completed task carries the input
	AverageActualHours    *float64 `json:"average_actual_hours,omitempty"`
	AverageEstimatedHours *float64 `json:"average_estimated_hours,omitempty"`
	OnTimeCompletionRate  *float64 `json:"on_time_completion_rate,omitempty"`

	CompletedByAssignee map[types.UserID]int `json:"completed_by_assignee"`
}

// ComputeStatistics derives organization statistics at the given instant
func ComputeStatistics(tasks []*Task, now time.Time) *Statistics {
	stats := &Statistics{
		TotalTasks:          len(tasks),
		ByStatus:            make(map[types.TaskStatus]int),
		ByUrgency:           make(map[types.Urgency]int),
		CompletedByAssignee: make(map[types.UserID]int),
	}
	for _, s := range types.AllTaskStatuses() {
		stats.ByStatus[s] = 0
	}

	var (
		actualSum, estimatedSum     float64
		actualCount, estimatedCount int
		completed, onTime           int
	)

	for _, t := range tasks {
		stats.ByStatus[t.Status]++
		urgency := ClassifyUrgency(t.Deadline, t.Status, now)
		stats.ByUrgency[urgency]++
		if urgency == types.UrgencyOverdue {
			stats.OverdueCount++
		}
		if t.IsDeclined() && t.Status != types.TaskStatusCompleted {
			stats.DeclinedCount++
		}

		if t.Status != types.TaskStatusCompleted {
			continue
		}
		completed++
		stats.CompletedByAssignee[t.AssigneeID]++

		if t.ActualCompletedAt != nil {
			if !t.ActualCompletedAt.After(t.Deadline) {
				onTime++
			}
			if t.StartedAt != nil {
				actualSum += t.ActualCompletedAt.Sub(*t.StartedAt).Hours()
				actualCount++
			}
		}
		if t.EstimatedCompletionHours != nil {
			estimatedSum += *t.EstimatedCompletionHours
			estimatedCount++
		}
	}

	if actualCount > 0 {
		v := actualSum / float64(actualCount)
		stats.AverageActualHours = &v
	}
	if estimatedCount > 0 {
		v := estimatedSum / float64(estimatedCount)
		stats.AverageEstimatedHours = &v
	}
	if completed > 0 {
		v := float64(onTime) / float64(completed)
		stats.OnTimeCompletionRate = &v
	}
	return stats
}

// CalendarDay holds the tasks due on one UTC date
type CalendarDay struct {
	Date         string         `json:"date"`
	WorstUrgency types.Urgency  `json:"worst_urgency"`
	Tasks        []*TaskSummary `json:"tasks"`
}

// BuildCalendar groups summaries by deadline date in ascending order. Within a
// day tasks keep urgency order.
func BuildCalendar(tasks []*TaskSummary) []*CalendarDay {
	byDate := make(map[string]*CalendarDay)
	for _, t := range tasks {
		key := t.Deadline.UTC().Format(CalendarDateLayout)
		day, ok := byDate[key]
		if !ok {
			day = &CalendarDay{Date: key, WorstUrgency: types.UrgencyNone}
			byDate[key] = day
		}
		day.Tasks = append(day.Tasks, t)
		if t.Urgency.Rank() < day.WorstUrgency.Rank() {
			day.WorstUrgency = t.Urgency
		}
	}

	days := make([]*CalendarDay, 0, len(byDate))
	for _, d := range byDate {
		SortByUrgency(d.Tasks)
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date < days[j].Date
	})
	return days
}
