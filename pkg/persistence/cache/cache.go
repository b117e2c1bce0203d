// Package cache decorates a workflow repository with a Redis read-through cache
// of each organization's workflow definitions.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/dukex/crmflow/pkg/persistence"
)

// DefaultTTL bounds how long an organization's workflow list stays cached.
const DefaultTTL = 5 * time.Minute

// OrganizationKey is the cache key holding an organization's workflows.
func OrganizationKey(organizationID string) string {
	return "workflows:org:" + organizationID
}

// WorkflowRepository caches trigger lookups per organization and invalidates
// the organization's entry whenever one of its workflows is saved.
// Cache failures are logged and the call falls through to the wrapped repository.
type WorkflowRepository struct {
	next   persistence.WorkflowRepository
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewWorkflowRepository wraps next with a Redis cache.
func NewWorkflowRepository(
	next persistence.WorkflowRepository,
	client redis.UniversalClient,
	ttl time.Duration,
	logger *slog.Logger,
) *WorkflowRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &WorkflowRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.With("module", "workflow_cache"),
	}
}

// Save stores the workflow and drops the cached list of its organization.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	err := r.next.Save(ctx, workflow)
	if err != nil {
		return err
	}

	r.Invalidate(ctx, workflow.OrganizationID)

	return nil
}

// Invalidate removes an organization's cached workflows.
func (r *WorkflowRepository) Invalidate(ctx context.Context, organizationID string) {
	err := r.client.Del(ctx, OrganizationKey(organizationID)).Err()
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to invalidate workflow cache",
			"organization_id", organizationID,
			"error", err,
		)
	}
}

// GetByID is not cached.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.next.GetByID(ctx, id)
}

// ActiveByID is not cached; a run always starts from the stored definition.
func (r *WorkflowRepository) ActiveByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.next.ActiveByID(ctx, id)
}

// ListByOrganization is not cached so execution counters stay current.
func (r *WorkflowRepository) ListByOrganization(ctx context.Context, organizationID string) ([]*models.Workflow, error) {
	return r.next.ListByOrganization(ctx, organizationID)
}

// ActiveByTrigger filters the cached organization list.
func (r *WorkflowRepository) ActiveByTrigger(
	ctx context.Context,
	organizationID string,
	triggerType models.TriggerType,
) ([]*models.Workflow, error) {
	workflows, err := r.organizationWorkflows(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if workflow.Active && workflow.TriggerType == triggerType {
			matched = append(matched, workflow)
		}
	}

	return matched, nil
}

// ActiveByTriggerType is not cached.
func (r *WorkflowRepository) ActiveByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.Workflow, error) {
	return r.next.ActiveByTriggerType(ctx, triggerType)
}

// RecordExecution is not cached; definitions do not change when a run completes.
func (r *WorkflowRepository) RecordExecution(ctx context.Context, id string, executedAt time.Time) error {
	return r.next.RecordExecution(ctx, id, executedAt)
}

func (r *WorkflowRepository) organizationWorkflows(ctx context.Context, organizationID string) ([]*models.Workflow, error) {
	key := OrganizationKey(organizationID)

	cached, err := r.client.Get(ctx, key).Bytes()

	switch {
	case err == nil:
		var workflows []*models.Workflow

		err = json.Unmarshal(cached, &workflows)
		if err == nil {
			return workflows, nil
		}

		r.logger.WarnContext(ctx, "Discarding unreadable cache entry", "key", key, "error", err)
	case !errors.Is(err, redis.Nil):
		r.logger.WarnContext(ctx, "Workflow cache unavailable", "key", key, "error", err)
	}

	workflows, err := r.next.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflows for cache: %w", err)
	}

	encoded, err := json.Marshal(workflows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflows for cache: %w", err)
	}

	err = r.client.Set(ctx, key, encoded, r.ttl).Err()
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to populate workflow cache", "key", key, "error", err)
	}

	return workflows, nil
}
