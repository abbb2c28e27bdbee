package folderdb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// dbLock provides cross-process exclusive locking around repair, restore and
// backup-rotation, so two processes opening the same folder never race to
// rewrite embeddings.db (adapted from the embedder download lock).
type dbLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

func newDBLock(folderMCPDir string) *dbLock {
	lockPath := filepath.Join(folderMCPDir, ".lock")
	return &dbLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock acquires an exclusive lock, blocking until it is available.
func (l *dbLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("folderdb: creating lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("folderdb: acquiring lock: %w", err)
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call on an unlocked dbLock.
func (l *dbLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		l.locked = false
		return fmt.Errorf("folderdb: releasing lock: %w", err)
	}
	l.locked = false
	return nil
}
