package models

import "time"

type TaskPriority string

const (
	PriorityP0 TaskPriority = "P0"
	PriorityP1 TaskPriority = "P1"
	PriorityP2 TaskPriority = "P2"
	PriorityP3 TaskPriority = "P3"
	PriorityP4 TaskPriority = "P4"
)

type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not-started"
	TaskInProgress TaskStatus = "in-progress"
	TaskReview     TaskStatus = "review"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
)

// ValidTaskStatus reports whether s is an accepted status value.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskNotStarted, TaskInProgress, TaskReview, TaskCompleted, TaskBlocked:
		return true
	}
	return false
}

const (
	DependencyBlocks  = "blocks"
	DependencyEnables = "enables"
	DependencyRelated = "related"
)

type TaskDependency struct {
	TaskID string `json:"taskId"`
	Type   string `json:"type"` // blocks, enables or related
}

// ChecklistItem is one acceptance criterion or technical implementation step.
type ChecklistItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

type Task struct {
	ID                      string           `json:"id"`
	Title                   string           `json:"title"`
	Description             string           `json:"description"`
	Priority                TaskPriority     `json:"priority"`
	Status                  TaskStatus       `json:"status"`
	Category                string           `json:"category"` // frontend, backend, database, devops, testing, documentation
	EstimatedHours          float64          `json:"estimatedHours"`
	ActualHours             float64          `json:"actualHours,omitempty"`
	Complexity              int              `json:"complexity"` // 1-10
	Dependencies            []TaskDependency `json:"dependencies"`
	AcceptanceCriteria      []ChecklistItem  `json:"acceptanceCriteria"`
	TechnicalImplementation []ChecklistItem  `json:"technicalImplementation"`
	ParentTaskID            string           `json:"parentTaskId,omitempty"`
	Assignee                string           `json:"assignee,omitempty"`
	CreatedAt               time.Time        `json:"createdAt"`
	UpdatedAt               time.Time        `json:"updatedAt"`
	CompletedAt             *time.Time       `json:"completedAt,omitempty"`
	Notes                   string           `json:"notes,omitempty"`
}

type TaskMetadata struct {
	ProjectName    string    `json:"projectName"`
	Version        string    `json:"version"`
	LastUpdated    time.Time `json:"lastUpdated"`
	TotalTasks     int       `json:"totalTasks"`
	CompletedTasks int       `json:"completedTasks"`
}

// TaskData is the whole on-disk document; it is rewritten in full on every
// mutation.
type TaskData struct {
	Tasks    []Task       `json:"tasks"`
	Metadata TaskMetadata `json:"metadata"`
}

// TaskProgress is the completion roll-up across a task's checklist items.
type TaskProgress struct {
	CompletionPercentage             int `json:"completionPercentage"`
	AcceptanceCriteriaCompleted      int `json:"acceptanceCriteriaCompleted"`
	AcceptanceCriteriaTotal          int `json:"acceptanceCriteriaTotal"`
	TechnicalImplementationCompleted int `json:"technicalImplementationCompleted"`
	TechnicalImplementationTotal     int `json:"technicalImplementationTotal"`
}

// Progress computes the checklist roll-up for the task.
func (t *Task) Progress() TaskProgress {
	p := TaskProgress{
		AcceptanceCriteriaTotal:      len(t.AcceptanceCriteria),
		TechnicalImplementationTotal: len(t.TechnicalImplementation),
	}
	for _, ac := range t.AcceptanceCriteria {
		if ac.Completed {
			p.AcceptanceCriteriaCompleted++
		}
	}
	for _, ti := range t.TechnicalImplementation {
		if ti.Completed {
			p.TechnicalImplementationCompleted++
		}
	}
	total := p.AcceptanceCriteriaTotal + p.TechnicalImplementationTotal
	if total > 0 {
		done := p.AcceptanceCriteriaCompleted + p.TechnicalImplementationCompleted
		p.CompletionPercentage = int(float64(done)/float64(total)*100 + 0.5)
	}
	return p
}
