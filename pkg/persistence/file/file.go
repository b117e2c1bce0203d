// Package file provides file-based persistence for workflows, executions, tasks and entities.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/crmflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
// Every document is stored as <root>/<collection>/<id>.json.
type Persistence struct {
	root string
	mu   sync.Mutex

	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	taskRepo      *TaskRepository
	entityRepo    *EntityRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	fp := &Persistence{root: cleanRoot}
	fp.workflowRepo = &WorkflowRepository{store: fp}
	fp.executionRepo = &ExecutionRepository{store: fp}
	fp.taskRepo = &TaskRepository{store: fp}
	fp.entityRepo = &EntityRepository{store: fp}

	return fp
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// WorkflowRepository returns the workflow repository implementation for file persistence.
func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

// ExecutionRepository returns the execution repository implementation for file persistence.
func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

// TaskRepository returns the task repository implementation for file persistence.
func (fp *Persistence) TaskRepository() persistence.TaskRepository {
	return fp.taskRepo
}

// EntityRepository returns the entity repository implementation for file persistence.
func (fp *Persistence) EntityRepository() persistence.EntityRepository {
	return fp.entityRepo
}

func (fp *Persistence) path(collection, id string) string {
	return filepath.Clean(filepath.Join(fp.root, collection, id+".json"))
}

// read loads a document. The boolean is false when the document does not exist.
func (fp *Persistence) read(collection, id string, out any) (bool, error) {
	body, err := os.ReadFile(fp.path(collection, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal %s/%s: %w", collection, id, err)
	}

	return true, nil
}

// write stores a document through a temporary file so readers never see partial content.
func (fp *Persistence) write(collection, id string, doc any) error {
	dir := filepath.Join(fp.root, collection)

	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", collection, id, err)
	}

	tmp, err := os.CreateTemp(dir, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s/%s: %w", collection, id, err)
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}

	err = os.Rename(tmp.Name(), fp.path(collection, id))
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to store %s/%s: %w", collection, id, err)
	}

	return nil
}

// ids lists the document ids of a collection.
func (fp *Persistence) ids(collection string) ([]string, error) {
	files, err := fs.Glob(os.DirFS(filepath.Join(fp.root, collection)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", collection, err)
	}

	ids := make([]string, 0, len(files))
	for _, file := range files {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}
