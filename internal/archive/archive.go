// Package archive stores snapshots of usage master files before they are
// overwritten by a reconcile run.
package archive

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/arcgis-admin-cli/internal/config"
)

// Archiver stores a named snapshot and returns where it was written.
type Archiver interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// New returns the archiver selected by cfg.Driver. dir is the local archive
// directory (the --archive_dir flag or usage.archive_dir).
func New(cfg config.ArchiveConfig, dir string) (Archiver, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(dir), nil
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, eris.Errorf("archive: unknown driver %q", cfg.Driver)
	}
}

// Local writes snapshots into a directory.
type Local struct {
	dir string
}

// NewLocal creates a Local archiver rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

// Put writes data to dir/name. An existing snapshot is never overwritten.
func (l *Local) Put(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "archive: create %s", l.dir)
	}
	path := filepath.Join(l.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", eris.Wrapf(err, "archive: create %s", path)
	}
	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck
		return "", eris.Wrapf(err, "archive: write %s", path)
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrapf(err, "archive: close %s", path)
	}
	return path, nil
}
