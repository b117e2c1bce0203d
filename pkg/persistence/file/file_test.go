package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

func newWorkflow(id, org string, trigger models.TriggerType, active bool, createdAt time.Time) *models.Workflow {
	return &models.Workflow{
		ID:             id,
		OrganizationID: org,
		Name:           "Workflow " + id,
		TriggerType:    trigger,
		Active:         active,
		CreatedAt:      createdAt,
		Actions: []models.Action{
			{Kind: models.ActionKindWait, Config: map[string]any{"wait_minutes": 1.0}},
		},
	}
}

func TestNewPersistence(t *testing.T) {
	t.Parallel()

	fp := NewPersistence("/tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)

	fp = NewPersistence("file:///tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_HealthCheck(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.Error(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context()))
	assert.NoError(t, NewPersistence(t.TempDir()).Close(t.Context()))
}

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo := NewPersistence(dir).WorkflowRepository()

	workflow := newWorkflow("wf-1", "org-1", models.TriggerTypeEntityCreated, true, time.Time{})
	require.NoError(t, repo.Save(t.Context(), workflow))

	assert.FileExists(t, filepath.Join(dir, "workflows", "wf-1.json"))
	assert.False(t, workflow.CreatedAt.IsZero())
	assert.False(t, workflow.UpdatedAt.IsZero())

	loaded, err := repo.GetByID(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Workflow wf-1", loaded.Name)
	assert.Equal(t, workflow.Actions, loaded.Actions)

	_, err = repo.GetByID(t.Context(), "missing")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestWorkflowRepository_ActiveByID(t *testing.T) {
	t.Parallel()

	repo := NewPersistence(t.TempDir()).WorkflowRepository()

	require.NoError(t, repo.Save(t.Context(), newWorkflow("on", "org-1", models.TriggerTypeManual, true, time.Time{})))
	require.NoError(t, repo.Save(t.Context(), newWorkflow("off", "org-1", models.TriggerTypeManual, false, time.Time{})))

	workflow, err := repo.ActiveByID(t.Context(), "on")
	require.NoError(t, err)
	assert.Equal(t, "on", workflow.ID)

	_, err = repo.ActiveByID(t.Context(), "off")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	_, err = repo.ActiveByID(t.Context(), "ghost")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestWorkflowRepository_Queries(t *testing.T) {
	t.Parallel()

	repo := NewPersistence(t.TempDir()).WorkflowRepository()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	fixtures := []*models.Workflow{
		newWorkflow("a", "org-1", models.TriggerTypeEntityCreated, true, base),
		newWorkflow("b", "org-1", models.TriggerTypeEntityCreated, false, base.Add(time.Hour)),
		newWorkflow("c", "org-1", models.TriggerTypeEntityUpdated, true, base.Add(2*time.Hour)),
		newWorkflow("d", "org-2", models.TriggerTypeEntityCreated, true, base.Add(3*time.Hour)),
		newWorkflow("e", "org-2", models.TriggerTypeScheduled, true, base.Add(4*time.Hour)),
	}
	for _, workflow := range fixtures {
		require.NoError(t, repo.Save(t.Context(), workflow))
	}

	all, err := repo.ListByOrganization(t.Context(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, workflowIDs(all))

	matched, err := repo.ActiveByTrigger(t.Context(), "org-1", models.TriggerTypeEntityCreated)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, workflowIDs(matched))

	scheduled, err := repo.ActiveByTriggerType(t.Context(), models.TriggerTypeScheduled)
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, workflowIDs(scheduled))

	none, err := repo.ListByOrganization(t.Context(), "org-3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWorkflowRepository_RecordExecutionConcurrently(t *testing.T) {
	t.Parallel()

	repo := NewPersistence(t.TempDir()).WorkflowRepository()
	require.NoError(t, repo.Save(t.Context(), newWorkflow("wf", "org-1", models.TriggerTypeManual, true, time.Time{})))

	executedAt := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, repo.RecordExecution(t.Context(), "wf", executedAt))
		}()
	}

	wg.Wait()

	workflow, err := repo.GetByID(t.Context(), "wf")
	require.NoError(t, err)
	assert.Equal(t, int64(20), workflow.ExecutionCount)
	require.NotNil(t, workflow.LastExecutedAt)
	assert.True(t, executedAt.Equal(*workflow.LastExecutedAt))

	err = repo.RecordExecution(t.Context(), "ghost", executedAt)
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestExecutionRepository(t *testing.T) {
	t.Parallel()

	repo := NewPersistence(t.TempDir()).ExecutionRepository()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, repo.Create(t.Context(), &models.Execution{
			ID:         id,
			WorkflowID: "wf-1",
			Status:     models.ExecutionStatusRunning,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	require.NoError(t, repo.Create(t.Context(), &models.Execution{ID: "other", WorkflowID: "wf-2", StartedAt: base}))

	executions, err := repo.ByWorkflow(t.Context(), "wf-1", 2)
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "e3", executions[0].ID)
	assert.Equal(t, "e2", executions[1].ID)

	completedAt := base.Add(time.Hour)
	finished := &models.Execution{
		ID:          "e1",
		WorkflowID:  "wf-1",
		Status:      models.ExecutionStatusCompleted,
		CurrentStep: 1,
		StartedAt:   base,
		CompletedAt: &completedAt,
	}
	require.NoError(t, repo.Update(t.Context(), finished))

	finished.Status = models.ExecutionStatusFailed
	err = repo.Update(t.Context(), finished)
	assert.ErrorIs(t, err, persistence.ErrExecutionTerminal)

	err = repo.Update(t.Context(), &models.Execution{ID: "ghost"})
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)
}

func TestTaskRepository_Create(t *testing.T) {
	t.Parallel()

	fp := NewPersistence(t.TempDir())
	task := &models.Task{
		ID:             "task-1",
		OrganizationID: "org-1",
		Type:           models.TaskTypeTask,
		Subject:        "Follow up with Ann",
		Status:         models.TaskStatusPending,
		DueDate:        time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, fp.TaskRepository().Create(t.Context(), task))

	loaded, err := fp.taskRepo.GetByID(t.Context(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, task.Subject, loaded.Subject)
	assert.True(t, task.DueDate.Equal(loaded.DueDate))
}

func TestEntityRepository_UpdateField(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fp := NewPersistence(dir)

	require.NoError(t, fp.write("leads", "lead-1", map[string]any{
		"id":              "lead-1",
		"organization_id": "org-1",
		"status":          "new",
	}))

	repo := fp.EntityRepository()

	require.NoError(t, repo.UpdateField(t.Context(), "lead", "lead-1", "org-1", "status", "qualified"))

	doc := map[string]any{}
	_, err := fp.read("leads", "lead-1", &doc)
	require.NoError(t, err)
	assert.Equal(t, "qualified", doc["status"])
	assert.NotEmpty(t, doc["updated_at"])

	require.NoError(t, repo.UpdateField(t.Context(), "lead", "lead-1", "org-2", "status", "hijacked"))

	_, err = fp.read("leads", "lead-1", &doc)
	require.NoError(t, err)
	assert.Equal(t, "qualified", doc["status"])

	require.NoError(t, repo.UpdateField(t.Context(), "lead", "missing", "org-1", "status", "x"))

	err = repo.UpdateField(t.Context(), "lead", "lead-1", "org-1", "status = 1; --", "x")
	assert.ErrorIs(t, err, persistence.ErrInvalidIdentifier)

	_, err = os.Stat(filepath.Join(dir, "leads", "missing.json"))
	assert.True(t, os.IsNotExist(err))
}

func workflowIDs(workflows []*models.Workflow) []string {
	ids := make([]string, 0, len(workflows))
	for _, w := range workflows {
		ids = append(ids, w.ID)
	}

	return ids
}
