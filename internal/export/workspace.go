package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	workspacePrefix = "export-"
	lockFileName    = ".lock"
)

// Workspace is the private directory one export writes its artifacts to.
// It holds a flock on its lock file for its whole life so the sweeper
// never removes a directory that is still in use.
type Workspace struct {
	ID  string
	Dir string

	lock       *flock.Flock
	removeOnce sync.Once
	removeErr  error
}

// NewWorkspace creates baseDir/export-<uuid> and locks it.
func NewWorkspace(baseDir string) (*Workspace, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export temp dir: %w", err)
	}

	id := uuid.NewString()
	dir := filepath.Join(baseDir, workspacePrefix+id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		os.RemoveAll(dir)
		if err == nil {
			err = errors.New("lock already held")
		}
		return nil, fmt.Errorf("lock workspace %s: %w", id, err)
	}

	return &Workspace{ID: id, Dir: dir, lock: lock}, nil
}

// Path returns the location of name inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, filepath.Base(name))
}

// Remove releases the lock and deletes the workspace with everything in it.
// It is safe to call more than once; later calls return the first result.
func (w *Workspace) Remove() error {
	w.removeOnce.Do(func() {
		unlockErr := w.lock.Unlock()
		if err := os.RemoveAll(w.Dir); err != nil {
			w.removeErr = fmt.Errorf("remove workspace %s: %w", w.ID, err)
			return
		}
		if unlockErr != nil {
			w.removeErr = fmt.Errorf("unlock workspace %s: %w", w.ID, unlockErr)
		}
	})
	return w.removeErr
}
