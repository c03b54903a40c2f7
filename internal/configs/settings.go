package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	kerrors "github.com/PolarWolf314/syncany/internal/errors"
)

// AppDirName is the name of the per-folder application directory.
const AppDirName = ".syncany"

// File and directory names inside the application directory.
const (
	ConfigFileName   = "config.toml"
	RepoFileName     = "repo.toml"
	MasterFileName   = "master.toml"
	LocalKeyFileName = "local.key"
	AuditFileName    = "audit.jsonl"

	CacheDirName    = "cache"
	DatabaseDirName = "db"
	LogDirName      = "logs"
	StateDirName    = "state"
)

// AppDir locates the application directory of a synced local folder.
type AppDir struct {
	// LocalDir is the synced folder containing the application directory.
	LocalDir string
}

// NewAppDir returns the AppDir of localDir.
func NewAppDir(localDir string) (AppDir, error) {
	abs, err := filepath.Abs(localDir)
	if err != nil {
		return AppDir{}, fmt.Errorf("failed to resolve %s: %w", localDir, err)
	}
	return AppDir{LocalDir: abs}, nil
}

func (a AppDir) Path() string         { return filepath.Join(a.LocalDir, AppDirName) }
func (a AppDir) ConfigFile() string   { return filepath.Join(a.Path(), ConfigFileName) }
func (a AppDir) RepoFile() string     { return filepath.Join(a.Path(), RepoFileName) }
func (a AppDir) MasterFile() string   { return filepath.Join(a.Path(), MasterFileName) }
func (a AppDir) LocalKeyFile() string { return filepath.Join(a.Path(), LocalKeyFileName) }
func (a AppDir) AuditFile() string    { return filepath.Join(a.Path(), AuditFileName) }
func (a AppDir) CacheDir() string     { return filepath.Join(a.Path(), CacheDirName) }
func (a AppDir) DatabaseDir() string  { return filepath.Join(a.Path(), DatabaseDirName) }
func (a AppDir) LogDir() string       { return filepath.Join(a.Path(), LogDirName) }
func (a AppDir) StateDir() string     { return filepath.Join(a.Path(), StateDirName) }

// Exists reports whether the application directory holds a config file.
func (a AppDir) Exists() bool {
	_, err := os.Stat(a.ConfigFile())
	return err == nil
}

// Create creates the application directory and its subdirectories. It
// returns the directories it created, so a failed init can report them.
func (a AppDir) Create() ([]string, error) {
	var created []string
	for _, dir := range []string{a.Path(), a.CacheDir(), a.DatabaseDir(), a.LogDir(), a.StateDir()} {
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return created, fmt.Errorf("failed to create %s: %w", dir, err)
		}
		created = append(created, dir)
	}
	return created, nil
}

// Remove deletes the application directory and everything in it.
func (a AppDir) Remove() error {
	return os.RemoveAll(a.Path())
}

// FindAppDir walks up from start to the nearest folder holding an
// application directory. It stops one level above the user's home
// directory and returns errors.ErrNotInitialized if nothing is found.
func FindAppDir(start string) (AppDir, error) {
	currentDir, err := filepath.Abs(start)
	if err != nil {
		return AppDir{}, fmt.Errorf("failed to resolve %s: %w", start, err)
	}

	homeDir, _ := os.UserHomeDir()
	stopDir := ""
	if homeDir != "" {
		stopDir = filepath.Dir(homeDir)
	}

	for {
		if currentDir == stopDir {
			break
		}

		info, err := os.Stat(filepath.Join(currentDir, AppDirName))
		if err == nil && info.IsDir() {
			return AppDir{LocalDir: currentDir}, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return AppDir{}, fmt.Errorf("error checking for %s directory at %s: %w", AppDirName, currentDir, err)
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return AppDir{}, fmt.Errorf("%w: no %s directory found above %s", kerrors.ErrNotInitialized, AppDirName, start)
}
