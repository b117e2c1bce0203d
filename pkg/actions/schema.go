package actions

import (
	"embed"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/dukex/crmflow/pkg/models"
)

// SchemaVersion is the version of the action config schemas enforced by ValidateConfig.
const SchemaVersion = "v1"

//go:embed schemas/v1/*.json
var schemaFiles embed.FS

var supportedKinds = []models.ActionKind{
	models.ActionKindSendMessage,
	models.ActionKindCreateTask,
	models.ActionKindUpdateField,
	models.ActionKindCallWebhook,
	models.ActionKindWait,
}

var (
	loadSchemas = sync.OnceValues(compileSchemas)
	validate    = validator.New(validator.WithRequiredStructEnabled())
)

func compileSchemas() (map[models.ActionKind]*gojsonschema.Schema, error) {
	schemas := make(map[models.ActionKind]*gojsonschema.Schema, len(supportedKinds))

	for _, kind := range supportedKinds {
		raw, err := schemaFiles.ReadFile(fmt.Sprintf("schemas/%s/%s.json", SchemaVersion, kind))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s schema: %w", kind, err)
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", kind, err)
		}

		schemas[kind] = schema
	}

	return schemas, nil
}

// ValidateConfig checks an action against the schema of its kind and the
// constraints of its decoded config. Unknown kinds are rejected.
func ValidateConfig(action models.Action) error {
	schemas, err := loadSchemas()
	if err != nil {
		return err
	}

	schema, ok := schemas[action.Kind]
	if !ok {
		return &ConfigError{Kind: action.Kind, Err: ErrUnknownActionKind}
	}

	config := action.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(config))
	if err != nil {
		return &ConfigError{Kind: action.Kind, Err: err}
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return &ConfigError{Kind: action.Kind, Details: details}
	}

	decoded, err := Decode(action)
	if err != nil {
		return err
	}

	err = validate.Struct(decoded)
	if err != nil {
		return &ConfigError{Kind: action.Kind, Err: err}
	}

	return nil
}
