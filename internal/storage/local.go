package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	kerrors "github.com/PolarWolf314/syncany/internal/errors"
)

// LocalPluginID is the id of the local directory plugin.
const LocalPluginID = "local"

// LocalPlugin stores repository files in a directory on disk.
func LocalPlugin() Plugin {
	return Plugin{
		ID:   LocalPluginID,
		Name: "Local",
		Options: []Option{
			{Name: "path", Description: "Local folder path", Required: true},
		},
		NewTransferManager: func(settings map[string]string) (TransferManager, error) {
			return NewLocalTransferManager(settings["path"])
		},
	}
}

// LocalTransferManager implements TransferManager on a local directory.
type LocalTransferManager struct {
	root string
}

// NewLocalTransferManager returns a transfer manager rooted at path.
func NewLocalTransferManager(path string) (*LocalTransferManager, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path", kerrors.ErrMissingSetting)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", path, err)
	}
	return &LocalTransferManager{root: abs}, nil
}

// Root returns the absolute repository directory.
func (m *LocalTransferManager) Root() string {
	return m.root
}

func (m *LocalTransferManager) Init(ctx context.Context, createTarget bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(m.root)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%w: %s is not a directory", kerrors.ErrStorage, m.root)
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist) && createTarget:
		if err := os.MkdirAll(m.root, 0755); err != nil {
			return fmt.Errorf("%w: create %s: %v", kerrors.ErrStorage, m.root, err)
		}
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: target %s does not exist", kerrors.ErrStorage, m.root)
	default:
		return fmt.Errorf("%w: %v", kerrors.ErrStorage, err)
	}
}

func (m *LocalTransferManager) Upload(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := m.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(m.root, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: upload %s: %v", kerrors.ErrStorage, name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: upload %s: %v", kerrors.ErrStorage, name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: upload %s: %v", kerrors.ErrStorage, name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: upload %s: %v", kerrors.ErrStorage, name, err)
	}
	return nil
}

func (m *LocalTransferManager) Download(ctx context.Context, name string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := m.path(name)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", kerrors.ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("%w: download %s: %v", kerrors.ErrStorage, name, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("%w: download %s: %v", kerrors.ErrStorage, name, err)
	}
	return nil
}

func (m *LocalTransferManager) List(ctx context.Context, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: invalid pattern %q", kerrors.ErrStorage, pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(m.root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", kerrors.ErrStorage, pattern, err)
	}

	names := matches[:0]
	for _, match := range matches {
		if !strings.HasPrefix(filepath.Base(match), ".") {
			names = append(names, match)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *LocalTransferManager) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := m.path(name)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", kerrors.ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", kerrors.ErrStorage, name, err)
	}
	return nil
}

// path maps a remote name to a file directly below the root.
func (m *LocalTransferManager) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: invalid remote name %q", kerrors.ErrStorage, name)
	}
	return filepath.Join(m.root, name), nil
}
