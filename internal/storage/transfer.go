package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	kerrors "github.com/PolarWolf314/syncany/internal/errors"
)

// Well-known remote file names.
const (
	// RepoFileName holds the repository metadata.
	RepoFileName = "syncany"

	// MasterFileName holds the master key salt of encrypted repositories.
	MasterFileName = "master"
)

// TransferManager moves whole files to and from a remote storage.
type TransferManager interface {
	// Init prepares the remote storage. If createTarget is set, a missing
	// target location is created instead of reported.
	Init(ctx context.Context, createTarget bool) error

	// Upload stores the content of r under name, replacing any existing file.
	Upload(ctx context.Context, name string, r io.Reader) error

	// Download writes the content of name to w. A missing file yields
	// errors.ErrNotFound.
	Download(ctx context.Context, name string, w io.Writer) error

	// List returns the names matching a doublestar pattern, sorted.
	List(ctx context.Context, pattern string) ([]string, error)

	// Delete removes name. A missing file yields errors.ErrNotFound.
	Delete(ctx context.Context, name string) error
}

// Option describes one plugin setting.
type Option struct {
	Name        string
	Description string
	Required    bool
	Sensitive   bool
	Default     string
}

// Plugin is a storage backend type.
type Plugin struct {
	ID      string
	Name    string
	Options []Option

	NewTransferManager func(settings map[string]string) (TransferManager, error)
}

// Validate checks that every required option is set.
func (p Plugin) Validate(settings map[string]string) error {
	for _, opt := range p.Options {
		if opt.Required && settings[opt.Name] == "" {
			return fmt.Errorf("%w: plugin %s requires option %q", kerrors.ErrMissingSetting, p.ID, opt.Name)
		}
	}
	return nil
}

// WithDefaults returns a copy of settings with unset options filled from
// their defaults.
func (p Plugin) WithDefaults(settings map[string]string) map[string]string {
	out := make(map[string]string, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	for _, opt := range p.Options {
		if _, ok := out[opt.Name]; !ok && opt.Default != "" {
			out[opt.Name] = opt.Default
		}
	}
	return out
}

// Open validates settings and creates a transfer manager.
func (p Plugin) Open(settings map[string]string) (TransferManager, error) {
	settings = p.WithDefaults(settings)
	if err := p.Validate(settings); err != nil {
		return nil, err
	}
	return p.NewTransferManager(settings)
}

// Registry resolves plugin ids. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry returns a registry holding the given plugins.
func NewRegistry(plugins ...Plugin) *Registry {
	r := &Registry{plugins: make(map[string]Plugin)}
	for _, p := range plugins {
		r.Register(p)
	}
	return r
}

// DefaultRegistry returns a registry with the built-in plugins.
func DefaultRegistry() *Registry {
	return NewRegistry(LocalPlugin())
}

// Register adds or replaces a plugin.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[p.ID] = p
}

// Get returns the plugin with the given id.
func (r *Registry) Get(id string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[id]
	if !ok {
		return Plugin{}, fmt.Errorf("%w: %q", kerrors.ErrUnknownPlugin, id)
	}
	return p, nil
}

// Plugins returns all plugins sorted by id.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugins := make([]Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		plugins = append(plugins, p)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].ID < plugins[j].ID })
	return plugins
}

// Exists reports whether name is present on the remote storage.
func Exists(ctx context.Context, tm TransferManager, name string) (bool, error) {
	names, err := tm.List(ctx, name)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// UploadBytes uploads an in-memory file.
func UploadBytes(ctx context.Context, tm TransferManager, name string, data []byte) error {
	return tm.Upload(ctx, name, bytes.NewReader(data))
}

// DownloadBytes downloads a file into memory.
func DownloadBytes(ctx context.Context, tm TransferManager, name string) ([]byte, error) {
	var buf bytes.Buffer
	if err := tm.Download(ctx, name, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsNotFound reports whether err means the remote file does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, kerrors.ErrNotFound)
}
