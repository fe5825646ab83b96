package taskmaster

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"backend-roomreq/internal/models"
)

// Recommendation is the next task the project should pick up.
type Recommendation struct {
	TaskID         string              `json:"taskId"`
	Title          string              `json:"title"`
	Priority       models.TaskPriority `json:"priority"`
	EstimatedHours float64             `json:"estimatedHours"`
	Complexity     int                 `json:"complexity"`
	Reason         string              `json:"reason"`
	ReadyToStart   bool                `json:"readyToStart"`
	Dependencies   []string            `json:"dependencies"`
	Impact         string              `json:"impact"`
}

type SprintProgress struct {
	SprintNumber         int     `json:"sprintNumber"`
	Name                 string  `json:"name"`
	TotalTasks           int     `json:"totalTasks"`
	CompletedTasks       int     `json:"completedTasks"`
	EstimatedHours       float64 `json:"estimatedHours"`
	ActualHours          float64 `json:"actualHours"`
	CompletionPercentage int     `json:"completionPercentage"`
	RiskLevel            string  `json:"riskLevel"`
}

type ProjectProgress struct {
	TotalTasks                  int              `json:"totalTasks"`
	CompletedTasks              int              `json:"completedTasks"`
	InProgressTasks             int              `json:"inProgressTasks"`
	BlockedTasks                int              `json:"blockedTasks"`
	OverallCompletionPercentage int              `json:"overallCompletionPercentage"`
	EstimatedRemainingHours     float64          `json:"estimatedRemainingHours"`
	ActualHoursSpent            float64          `json:"actualHoursSpent"`
	CurrentSprint               int              `json:"currentSprint"`
	SprintProgress              []SprintProgress `json:"sprintProgress"`
}

var sprintMappings = []struct {
	number  int
	name    string
	taskIDs []string
}{
	{1, "Foundation & Core Algorithm", []string{"TASK-001", "TASK-002", "TASK-003A", "TASK-003B", "TASK-003C", "TASK-003D", "TASK-004A"}},
	{2, "Advanced UI & User Management", []string{"TASK-004B", "TASK-004C", "TASK-005", "TASK-006A", "TASK-006B", "TASK-007A", "TASK-008"}},
	{3, "Authentication & Export", []string{"TASK-006C", "TASK-006D", "TASK-006E", "TASK-007B", "TASK-007C"}},
}

// Progress rolls the whole project up.
func Progress(tasks []models.Task) ProjectProgress {
	p := ProjectProgress{TotalTasks: len(tasks), CurrentSprint: 1}
	for _, t := range tasks {
		switch t.Status {
		case models.TaskCompleted:
			p.CompletedTasks++
		case models.TaskInProgress:
			p.InProgressTasks++
		case models.TaskBlocked:
			p.BlockedTasks++
		}
		if t.Status != models.TaskCompleted {
			p.EstimatedRemainingHours += t.EstimatedHours
		}
		p.ActualHoursSpent += t.ActualHours
	}
	if p.TotalTasks > 0 {
		p.OverallCompletionPercentage = int(float64(p.CompletedTasks)/float64(p.TotalTasks)*100 + 0.5)
	}
	p.SprintProgress = sprintProgress(tasks)
	return p
}

func sprintProgress(tasks []models.Task) []SprintProgress {
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	out := make([]SprintProgress, 0, len(sprintMappings))
	for _, sprint := range sprintMappings {
		sp := SprintProgress{SprintNumber: sprint.number, Name: sprint.name, RiskLevel: "low"}
		for _, id := range sprint.taskIDs {
			t, ok := byID[id]
			if !ok {
				continue
			}
			sp.TotalTasks++
			sp.EstimatedHours += t.EstimatedHours
			sp.ActualHours += t.ActualHours
			if t.Status == models.TaskCompleted {
				sp.CompletedTasks++
			}
		}
		if sp.TotalTasks > 0 {
			sp.CompletionPercentage = int(float64(sp.CompletedTasks)/float64(sp.TotalTasks)*100 + 0.5)
			switch {
			case sp.CompletionPercentage < 25:
				sp.RiskLevel = "high"
			case sp.CompletionPercentage < 50:
				sp.RiskLevel = "medium"
			}
		}
		out = append(out, sp)
	}
	return out
}

// NextRecommendation picks the highest-value startable task, or nil when
// every task is blocked, started or done.
func NextRecommendation(tasks []models.Task) *Recommendation {
	var available []models.Task
	for _, t := range tasks {
		if t.Status != models.TaskNotStarted {
			continue
		}
		if startable(t, tasks) {
			available = append(available, t)
		}
	}
	if len(available) == 0 {
		return nil
	}

	sort.SliceStable(available, func(i, j int) bool {
		pi, pj := priorityRank(available[i].Priority), priorityRank(available[j].Priority)
		if pi != pj {
			return pi < pj
		}
		// Same priority: prefer the task that unblocks more work.
		return taskImpact(available[i].ID, tasks) > taskImpact(available[j].ID, tasks)
	})

	next := available[0]
	deps := make([]string, 0, len(next.Dependencies))
	for _, d := range next.Dependencies {
		deps = append(deps, d.TaskID)
	}
	return &Recommendation{
		TaskID:         next.ID,
		Title:          next.Title,
		Priority:       next.Priority,
		EstimatedHours: next.EstimatedHours,
		Complexity:     next.Complexity,
		Reason:         recommendationReason(next, tasks),
		ReadyToStart:   true,
		Dependencies:   deps,
		Impact:         impactLevel(next, tasks),
	}
}

// startable reports whether no blocking dependency is still incomplete.
func startable(task models.Task, tasks []models.Task) bool {
	for _, dep := range task.Dependencies {
		if dep.Type != models.DependencyBlocks {
			continue
		}
		for _, t := range tasks {
			if t.ID == dep.TaskID && t.Status != models.TaskCompleted {
				return false
			}
		}
	}
	return true
}

// taskImpact counts how many tasks the given task blocks.
func taskImpact(taskID string, tasks []models.Task) int {
	n := 0
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if dep.TaskID == taskID && dep.Type == models.DependencyBlocks {
				n++
				break
			}
		}
	}
	return n
}

func impactLevel(task models.Task, tasks []models.Task) string {
	impact := taskImpact(task.ID, tasks)
	switch {
	case task.Priority == models.PriorityP0 || impact >= 5:
		return "critical"
	case task.Priority == models.PriorityP1 || impact >= 3:
		return "high"
	case task.Priority == models.PriorityP2 || impact >= 1:
		return "medium"
	}
	return "low"
}

func recommendationReason(task models.Task, tasks []models.Task) string {
	impact := taskImpact(task.ID, tasks)
	var reasons []string

	switch task.Priority {
	case models.PriorityP0:
		reasons = append(reasons, "Critical priority - blocks all development")
	case models.PriorityP1:
		reasons = append(reasons, "High priority - core functionality")
	}

	if impact >= 3 {
		reasons = append(reasons, fmt.Sprintf("Unblocks %d tasks - high impact", impact))
	} else if impact > 0 {
		suffix := ""
		if impact > 1 {
			suffix = "s"
		}
		reasons = append(reasons, fmt.Sprintf("Unblocks %d task%s", impact, suffix))
	}

	if task.EstimatedHours <= 2 && task.Complexity <= 3 {
		reasons = append(reasons, "Quick win - low effort, low complexity")
	} else if task.EstimatedHours <= 2 {
		reasons = append(reasons, "Quick implementation")
	}

	if len(reasons) == 0 {
		return "Ready to start - no blocking dependencies"
	}
	return strings.Join(reasons, " | ")
}

func priorityRank(p models.TaskPriority) int {
	if len(p) == 2 && p[0] == 'P' {
		if n, err := strconv.Atoi(string(p[1])); err == nil {
			return n
		}
	}
	return 5
}
