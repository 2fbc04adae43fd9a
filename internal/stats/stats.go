// Package stats reduces a task snapshot into completion counts and a
// seven-day creation histogram.
package stats

import (
	"time"

	"github.com/dmehra2102/todokeeper/internal/domain"
)

const (
	historyDays = 7
	labelLayout = "01/02"
)

// Summary is the aggregate shown on the statistics view.
type Summary struct {
	TotalTasks      int      `json:"total_tasks"`
	CompletedTasks  int      `json:"completed_tasks"`
	PendingTasks    int      `json:"pending_tasks"`
	CompletionRate  int      `json:"completion_rate"`
	Last7DaysCounts []int    `json:"last_7_days_counts"`
	Last7DaysLabels []string `json:"last_7_days_labels"`
}

// Compute aggregates tasks, normally the active set. Calendar dates are taken
// in now's location.
func Compute(tasks []domain.Task, now time.Time) Summary {
	s := Summary{
		TotalTasks:      len(tasks),
		Last7DaysCounts: make([]int, historyDays),
		Last7DaysLabels: make([]string, historyDays),
	}

	for _, t := range tasks {
		if t.IsCompleted {
			s.CompletedTasks++
		}
	}
	s.PendingTasks = s.TotalTasks - s.CompletedTasks
	if s.TotalTasks > 0 {
		s.CompletionRate = s.CompletedTasks * 100 / s.TotalTasks
	}

	loc := now.Location()
	today := dayOf(now, loc)

	index := make(map[string]int, historyDays)
	for i := 0; i < historyDays; i++ {
		day := today.AddDate(0, 0, i-(historyDays-1))
		index[day.Format(time.DateOnly)] = i
		s.Last7DaysLabels[i] = day.Format(labelLayout)
	}

	for _, t := range tasks {
		if i, ok := index[t.CreatedAt.In(loc).Format(time.DateOnly)]; ok {
			s.Last7DaysCounts[i]++
		}
	}

	return s
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
