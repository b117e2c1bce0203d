package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/dukex/crmflow/pkg/persistence"
)

// EntityRepository updates CRM entity tables. The table is the pluralized entity type.
type EntityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEntityRepository creates a new entity repository.
func NewEntityRepository(db *sql.DB, logger *slog.Logger) *EntityRepository {
	return &EntityRepository{db: db, logger: logger}
}

// UpdateField sets one column of an entity scoped to its organization.
// Table and column names are validated and quoted; the value is always a bind parameter.
func (r *EntityRepository) UpdateField(
	ctx context.Context,
	entityType, entityID, organizationID, field string,
	value any,
) error {
	if !persistence.ValidIdentifier(entityType) || !persistence.ValidIdentifier(field) {
		return fmt.Errorf("update %s.%s: %w", entityType, field, persistence.ErrInvalidIdentifier)
	}

	arg, err := columnValue(value)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 AND organization_id = $3",
		pq.QuoteIdentifier(entityType+"s"),
		pq.QuoteIdentifier(field),
	)

	result, err := r.db.ExecContext(ctx, query, arg, entityID, organizationID)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", entityType, entityID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		r.logger.WarnContext(ctx, "Entity update matched no rows",
			"entity_type", entityType,
			"entity_id", entityID,
			"organization_id", organizationID,
		)
	}

	return nil
}

func columnValue(value any) (any, error) {
	switch value.(type) {
	case map[string]any, []any:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode field value: %w", err)
		}

		return string(encoded), nil
	default:
		return value, nil
	}
}
