package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/dukex/crmflow/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		err := testcontainers.TerminateContainer(postgresContainer)
		if err != nil {
			slog.Error("Failed to terminate postgres container", "error", err)
		}
	}

	os.Exit(code)
}

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"activities", "workflow_executions", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("crmflow_test"),
			postgres.WithUsername("crmflow"),
			postgres.WithPassword("crmflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func newWorkflow(org string, trigger models.TriggerType, active bool) *models.Workflow {
	return &models.Workflow{
		ID:             uuid.NewString(),
		OrganizationID: org,
		Name:           "Hot lead follow-up",
		TriggerType:    trigger,
		TriggerConfig:  map[string]any{"source": "web"},
		Conditions: []models.Condition{
			{Field: "lead.score", Operator: models.OperatorGreaterThan, Value: 50.0},
		},
		Actions: []models.Action{
			{Kind: models.ActionKindSendMessage, Config: map[string]any{"to": "{{lead.email}}"}},
			{Kind: models.ActionKindWait, Config: map[string]any{"wait_minutes": 5.0}, DelayMinutes: 1},
		},
		Active:    active,
		CreatedBy: "user-1",
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	require.NoError(t, p.HealthCheck(ctx))

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestWorkflowRepository_SaveAndLoad(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.WorkflowRepository()

	workflow := newWorkflow("org-1", models.TriggerTypeEntityCreated, true)
	require.NoError(t, repo.Save(ctx, workflow))

	loaded, err := repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	assert.Equal(t, workflow.TriggerConfig, loaded.TriggerConfig)
	assert.Equal(t, workflow.Conditions, loaded.Conditions)
	assert.Equal(t, workflow.Actions, loaded.Actions)
	assert.Equal(t, "user-1", loaded.CreatedBy)
	assert.Nil(t, loaded.LastExecutedAt)

	workflow.Name = "Renamed"
	workflow.Active = false
	require.NoError(t, repo.Save(ctx, workflow))

	_, err = repo.ActiveByID(ctx, workflow.ID)
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	loaded, err = repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Name)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestWorkflowRepository_TriggerQueries(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.WorkflowRepository()

	matching := newWorkflow("org-1", models.TriggerTypeEntityCreated, true)
	inactive := newWorkflow("org-1", models.TriggerTypeEntityCreated, false)
	otherTrigger := newWorkflow("org-1", models.TriggerTypeEntityUpdated, true)
	otherOrg := newWorkflow("org-2", models.TriggerTypeEntityCreated, true)

	for _, workflow := range []*models.Workflow{matching, inactive, otherTrigger, otherOrg} {
		require.NoError(t, repo.Save(ctx, workflow))
	}

	found, err := repo.ActiveByTrigger(ctx, "org-1", models.TriggerTypeEntityCreated)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, matching.ID, found[0].ID)

	acrossOrgs, err := repo.ActiveByTriggerType(ctx, models.TriggerTypeEntityCreated)
	require.NoError(t, err)
	assert.Len(t, acrossOrgs, 2)

	listed, err := repo.ListByOrganization(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestWorkflowRepository_RecordExecutionIsAtomic(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.WorkflowRepository()

	workflow := newWorkflow("org-1", models.TriggerTypeManual, true)
	require.NoError(t, repo.Save(ctx, workflow))

	executedAt := time.Now().UTC().Truncate(time.Millisecond)

	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, repo.RecordExecution(ctx, workflow.ID, executedAt))
		}()
	}

	wg.Wait()

	loaded, err := repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), loaded.ExecutionCount)
	require.NotNil(t, loaded.LastExecutedAt)
	assert.WithinDuration(t, executedAt, *loaded.LastExecutedAt, time.Millisecond)

	// Saving the definition again must not reset the counter.
	require.NoError(t, repo.Save(ctx, workflow))

	loaded, err = repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), loaded.ExecutionCount)

	err = repo.RecordExecution(ctx, uuid.NewString(), executedAt)
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestExecutionRepository_Lifecycle(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := newWorkflow("org-1", models.TriggerTypeEntityCreated, true)
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))

	repo := p.ExecutionRepository()
	startedAt := time.Now().UTC().Truncate(time.Millisecond)

	execution := &models.Execution{
		ID:             uuid.NewString(),
		WorkflowID:     workflow.ID,
		OrganizationID: "org-1",
		TriggerData:    map[string]any{"lead": map[string]any{"score": 80.0}},
		Status:         models.ExecutionStatusRunning,
		StartedAt:      startedAt,
	}
	require.NoError(t, repo.Create(ctx, execution))

	execution.CurrentStep = 1
	require.NoError(t, repo.Update(ctx, execution))

	completedAt := startedAt.Add(time.Second)
	execution.Status = models.ExecutionStatusFailed
	execution.ErrorMessage = "webhook failed with status 500"
	execution.CompletedAt = &completedAt
	require.NoError(t, repo.Update(ctx, execution))

	execution.Status = models.ExecutionStatusCompleted
	err := repo.Update(ctx, execution)
	assert.ErrorIs(t, err, persistence.ErrExecutionTerminal)

	err = repo.Update(ctx, &models.Execution{ID: uuid.NewString(), Status: models.ExecutionStatusRunning})
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)

	older := &models.Execution{
		ID:             uuid.NewString(),
		WorkflowID:     workflow.ID,
		OrganizationID: "org-1",
		Status:         models.ExecutionStatusRunning,
		StartedAt:      startedAt.Add(-time.Hour),
	}
	require.NoError(t, repo.Create(ctx, older))

	history, err := repo.ByWorkflow(ctx, workflow.ID, 50)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, execution.ID, history[0].ID)
	assert.Equal(t, models.ExecutionStatusFailed, history[0].Status)
	assert.Equal(t, 1, history[0].CurrentStep)
	assert.Equal(t, "webhook failed with status 500", history[0].ErrorMessage)
	assert.Equal(t, execution.TriggerData, history[0].TriggerData)
	require.NotNil(t, history[0].CompletedAt)
	assert.Nil(t, history[1].CompletedAt)

	limited, err := repo.ByWorkflow(ctx, workflow.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestTaskRepository_Create(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	task := &models.Task{
		ID:             uuid.NewString(),
		OrganizationID: "org-1",
		Type:           models.TaskTypeTask,
		Subject:        "Follow up with Ann",
		AssignedTo:     "user-7",
		DueDate:        now.AddDate(0, 0, 2),
		Status:         models.TaskStatusPending,
		CreatedAt:      now,
	}
	require.NoError(t, p.TaskRepository().Create(ctx, task))

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	var (
		subject     string
		description sql.NullString
		status      string
	)

	err = db.QueryRowContext(ctx, "SELECT subject, description, status FROM activities WHERE id = $1", task.ID).
		Scan(&subject, &description, &status)
	require.NoError(t, err)
	assert.Equal(t, "Follow up with Ann", subject)
	assert.False(t, description.Valid)
	assert.Equal(t, models.TaskStatusPending, status)
}

func TestEntityRepository_UpdateField_Integration(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(ctx, `
		CREATE TABLE leads (
			id VARCHAR(64) PRIMARY KEY,
			organization_id VARCHAR(64) NOT NULL,
			status VARCHAR(64),
			updated_at TIMESTAMP WITH TIME ZONE
		);
		INSERT INTO leads (id, organization_id, status) VALUES ('lead-1', 'org-1', 'new');
	`)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), "DROP TABLE IF EXISTS leads")
	})

	repo := p.EntityRepository()

	require.NoError(t, repo.UpdateField(ctx, "lead", "lead-1", "org-2", "status", "stolen"))
	require.NoError(t, repo.UpdateField(ctx, "lead", "lead-1", "org-1", "status", "qualified"))

	var status string

	err = db.QueryRowContext(ctx, "SELECT status FROM leads WHERE id = 'lead-1'").Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, "qualified", status)
}
