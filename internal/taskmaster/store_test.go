package taskmaster

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-roomreq/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "data", "taskmaster.json"), nil)
}

func TestLoadSeedsWhenFileMissing(t *testing.T) {
	store := newTestStore(t)
	data := store.Load()

	require.Len(t, data.Tasks, 1)
	assert.Equal(t, "TASK-001", data.Tasks[0].ID)
	assert.Equal(t, models.PriorityP0, data.Tasks[0].Priority)
	assert.Equal(t, "Room of Requirements", data.Metadata.ProjectName)
}

func TestLoadSeedsWhenFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskmaster.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewStore(path, nil)
	data := store.Load()
	require.Len(t, data.Tasks, 1)
	assert.Equal(t, "TASK-001", data.Tasks[0].ID)
}

func TestUpdateStatusPersists(t *testing.T) {
	store := newTestStore(t)

	task, err := store.UpdateStatus("TASK-001", models.TaskInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, task.Status)
	assert.Nil(t, task.CompletedAt)

	// A fresh load reads the write back off disk.
	reloaded, err := store.Get("TASK-001")
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, reloaded.Status)
}

func TestUpdateStatusCompletedCascades(t *testing.T) {
	store := newTestStore(t)

	task, err := store.UpdateStatus("TASK-001", models.TaskCompleted)
	require.NoError(t, err)

	require.NotNil(t, task.CompletedAt)
	assert.WithinDuration(t, time.Now(), *task.CompletedAt, time.Minute)
	for _, ac := range task.AcceptanceCriteria {
		assert.True(t, ac.Completed)
	}
	for _, ti := range task.TechnicalImplementation {
		assert.True(t, ti.Completed)
	}
	assert.Equal(t, 100, task.Progress().CompletionPercentage)

	data := store.Load()
	assert.Equal(t, 1, data.Metadata.CompletedTasks)
}

func TestUpdateStatusValidation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpdateStatus("TASK-001", models.TaskStatus("done"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = store.UpdateStatus("TASK-999", models.TaskInProgress)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestUpdateAcceptanceCriteria(t *testing.T) {
	store := newTestStore(t)

	item, err := store.UpdateAcceptanceCriteria("TASK-001", "AC-001-2", true)
	require.NoError(t, err)
	assert.True(t, item.Completed)

	task, err := store.Get("TASK-001")
	require.NoError(t, err)
	progress := task.Progress()
	assert.Equal(t, 1, progress.AcceptanceCriteriaCompleted)
	assert.Equal(t, 4, progress.AcceptanceCriteriaTotal)
	// 1 of 8 checklist items.
	assert.Equal(t, 13, progress.CompletionPercentage)

	_, err = store.UpdateAcceptanceCriteria("TASK-001", "AC-404", true)
	assert.ErrorIs(t, err, ErrCriteriaNotFound)
}

func TestUpdateTechnicalImplementation(t *testing.T) {
	store := newTestStore(t)

	item, err := store.UpdateTechnicalImplementation("TASK-001", "TI-001-3", true)
	require.NoError(t, err)
	assert.True(t, item.Completed)

	_, err = store.UpdateTechnicalImplementation("TASK-001", "TI-404", true)
	assert.ErrorIs(t, err, ErrImplementationNotFound)

	_, err = store.UpdateTechnicalImplementation("TASK-999", "TI-001-3", true)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSaveWritesValidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "taskmaster.json")
	store := NewStore(path, nil)

	_, err := store.UpdateStatus("TASK-001", models.TaskReview)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var data models.TaskData
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, models.TaskReview, data.Tasks[0].Status)
	assert.Equal(t, 1, data.Metadata.TotalTasks)
}
