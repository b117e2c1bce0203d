package file

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/crmflow/pkg/persistence"
)

// EntityRepository updates CRM entity documents stored under <root>/<entity_type>s/.
type EntityRepository struct {
	store *Persistence
}

// UpdateField sets a field on an entity of the given organization. An entity that
// does not exist, or belongs to another organization, is left untouched.
func (er *EntityRepository) UpdateField(
	_ context.Context,
	entityType, entityID, organizationID, field string,
	value any,
) error {
	if !persistence.ValidIdentifier(entityType) || !persistence.ValidIdentifier(field) {
		return fmt.Errorf("update %s.%s: %w", entityType, field, persistence.ErrInvalidIdentifier)
	}

	er.store.mu.Lock()
	defer er.store.mu.Unlock()

	collection := entityType + "s"
	doc := map[string]any{}

	found, err := er.store.read(collection, entityID, &doc)
	if err != nil {
		return err
	}

	if !found || doc["organization_id"] != organizationID {
		return nil
	}

	doc[field] = value
	doc["updated_at"] = time.Now().UTC()

	return er.store.write(collection, entityID, doc)
}
