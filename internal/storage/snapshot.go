package storage

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/dreamware/foodgrid/internal/domain"
)

// SnapshotDir writes store documents under <root>/stores/<name>.json.
// Snapshots are write-only; nothing reloads them on startup.
type SnapshotDir struct {
	root string
}

// NewSnapshotDir returns a writer rooted at dir.
func NewSnapshotDir(dir string) *SnapshotDir {
	return &SnapshotDir{root: dir}
}

// Path returns the file a store is written to.
func (d *SnapshotDir) Path(storeName string) string {
	return filepath.Join(d.root, "stores", filepath.Base(storeName)+".json")
}

// Save writes s atomically: a temporary file in the same directory is
// renamed over the previous snapshot.
func (d *SnapshotDir) Save(s *domain.Store) error {
	path := d.Path(s.Name)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create snapshot dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".store-*.json")
	if err != nil {
		return errors.Wrap(err, "create snapshot temp file")
	}
	defer os.Remove(tmp.Name())

	if err := domain.EncodeStore(tmp, s); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write snapshot for %s", s.Name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close snapshot temp file")
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "rename snapshot for %s", s.Name)
}
