package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"backend-roomreq/internal/models"
	"backend-roomreq/internal/taskmaster"
)

func registerTaskRoutes(mux *http.ServeMux, deps Deps) {
	mux.HandleFunc("GET /api/v1/tasks", listTasksHandler(deps))
	mux.HandleFunc("GET /api/v1/tasks/progress", taskProgressHandler(deps))
	mux.HandleFunc("GET /api/v1/tasks/next-recommendation", nextRecommendationHandler(deps))
	mux.HandleFunc("GET /api/v1/tasks/{id}", getTaskHandler(deps))
	mux.HandleFunc("PUT /api/v1/tasks/{id}/status", updateTaskStatusHandler(deps))
	mux.HandleFunc("PUT /api/v1/tasks/{id}/acceptance-criteria/{criteriaId}", updateAcceptanceCriteriaHandler(deps))
	mux.HandleFunc("PUT /api/v1/tasks/{id}/technical-implementation/{implementationId}", updateTechnicalImplementationHandler(deps))
}

// taskWithProgress decorates a task with its checklist roll-up.
type taskWithProgress struct {
	models.Task
	Progress models.TaskProgress `json:"progress"`
}

func listTasksHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data := deps.Tasks.List()

		tasks := make([]taskWithProgress, 0, len(data.Tasks))
		summary := map[string]int{
			"totalTasks":      len(data.Tasks),
			"completedTasks":  0,
			"inProgressTasks": 0,
			"blockedTasks":    0,
			"notStartedTasks": 0,
		}
		for _, t := range data.Tasks {
			tasks = append(tasks, taskWithProgress{Task: t, Progress: t.Progress()})
			switch t.Status {
			case models.TaskCompleted:
				summary["completedTasks"]++
			case models.TaskInProgress:
				summary["inProgressTasks"]++
			case models.TaskBlocked:
				summary["blockedTasks"]++
			case models.TaskNotStarted:
				summary["notStartedTasks"]++
			}
		}

		sendJSON(w, http.StatusOK, map[string]any{
			"tasks":    tasks,
			"metadata": data.Metadata,
			"summary":  summary,
		})
	}
}

func getTaskHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, err := deps.Tasks.Get(r.PathValue("id"))
		if err != nil {
			sendTaskError(w, err)
			return
		}
		sendJSON(w, http.StatusOK, map[string]any{"task": task})
	}
}

func taskProgressHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data := deps.Tasks.List()
		sendJSON(w, http.StatusOK, taskmaster.Progress(data.Tasks))
	}
}

func nextRecommendationHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data := deps.Tasks.List()
		// A nil recommendation is a valid answer: nothing is startable.
		sendJSON(w, http.StatusOK, map[string]any{
			"recommendation": taskmaster.NextRecommendation(data.Tasks),
		})
	}
}

func updateTaskStatusHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status models.TaskStatus `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			sendError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
			return
		}

		task, err := deps.Tasks.UpdateStatus(r.PathValue("id"), body.Status)
		if err != nil {
			sendTaskError(w, err)
			return
		}
		sendJSON(w, http.StatusOK, map[string]any{
			"message": "Task status updated successfully",
			"task":    task,
		})
	}
}

// completedBody requires an explicit boolean; a missing field is a 400.
type completedBody struct {
	Completed *bool `json:"completed"`
}

func updateAcceptanceCriteriaHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body completedBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Completed == nil {
			sendError(w, http.StatusBadRequest, "Completed must be a boolean value", "")
			return
		}

		criteria, err := deps.Tasks.UpdateAcceptanceCriteria(r.PathValue("id"), r.PathValue("criteriaId"), *body.Completed)
		if err != nil {
			sendTaskError(w, err)
			return
		}
		sendJSON(w, http.StatusOK, map[string]any{
			"message":  "Acceptance criteria updated successfully",
			"criteria": criteria,
		})
	}
}

func updateTechnicalImplementationHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body completedBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Completed == nil {
			sendError(w, http.StatusBadRequest, "Completed must be a boolean value", "")
			return
		}

		item, err := deps.Tasks.UpdateTechnicalImplementation(r.PathValue("id"), r.PathValue("implementationId"), *body.Completed)
		if err != nil {
			sendTaskError(w, err)
			return
		}
		sendJSON(w, http.StatusOK, map[string]any{
			"message":        "Technical implementation updated successfully",
			"implementation": item,
		})
	}
}

func sendTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, taskmaster.ErrTaskNotFound):
		sendError(w, http.StatusNotFound, "Task not found", "")
	case errors.Is(err, taskmaster.ErrCriteriaNotFound):
		sendError(w, http.StatusNotFound, "Acceptance criteria not found", "")
	case errors.Is(err, taskmaster.ErrImplementationNotFound):
		sendError(w, http.StatusNotFound, "Technical implementation not found", "")
	case errors.Is(err, taskmaster.ErrInvalidStatus):
		sendError(w, http.StatusBadRequest, "Invalid status value", "")
	default:
		sendError(w, http.StatusInternalServerError, "Failed to update task", err.Error())
	}
}
