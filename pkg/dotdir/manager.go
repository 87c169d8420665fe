// Package dotdir manages the .ragloop/ and ~/.ragloop directories.
//
// Besides resolving where config.toml lives, it persists the chat state
// that lets "ragloop chat" resume the last conversation.
package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the ragloop directory.
	dirName = ".ragloop"

	dirPerm  = 0o755
	filePerm = 0o600
)

// Manager resolves the ragloop directory and reads and writes the state files
// kept in it.
type Manager struct {
	getwd   func() (string, error)
	homeDir func() (string, error)
}

func NewManager() *Manager {
	return &Manager{getwd: os.Getwd, homeDir: os.UserHomeDir}
}

// Target returns the absolute path to the ragloop directory, creating it when
// missing. Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.ragloop/ dir
//  3. Home ~/.ragloop/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("creating ragloop directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

func (m *Manager) resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}

	if cwd, err := m.getwd(); err == nil {
		local := filepath.Join(cwd, dirName)
		if info, err := os.Stat(local); err == nil && info.IsDir() {
			return local, nil
		}
	}

	home, err := m.homeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Path returns the path of a named file inside the ragloop directory.
func (m *Manager) Path(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ReadFile returns the contents of a named file, or nil when it does not exist.
func (m *Manager) ReadFile(overrideDir, name string) ([]byte, error) {
	path, err := m.Path(overrideDir, name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// WriteFile replaces a named file. The data is written to a temporary file
// first and renamed into place, so readers never see a partial file.
func (m *Manager) WriteFile(overrideDir, name string, data []byte) error {
	path, err := m.Path(overrideDir, name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+name+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Remove deletes a named file. A missing file is not an error.
func (m *Manager) Remove(overrideDir, name string) error {
	path, err := m.Path(overrideDir, name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}
