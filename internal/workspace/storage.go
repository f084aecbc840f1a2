package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"conductor/pkg/logging"
)

// errFileNotFound is wrapped by Load and Delete for missing files.
var errFileNotFound = errors.New("workspace file not found")

// storage persists one YAML file per workspace in a single directory.
type storage struct {
	mu  sync.RWMutex
	dir string
}

func newStorage(dir string) *storage {
	return &storage{dir: dir}
}

// save writes the file of the named workspace.
func (s *storage) save(name string, data []byte) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", s.dir, err)
	}

	filePath := s.path(name)
	// write then rename so watchers never observe a partial file
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("failed to replace file %s: %w", filePath, err)
	}

	logging.Debug("WorkspaceStorage", "Saved workspace %s to %s", name, filePath)
	return nil
}

// load reads the file of the named workspace. Both .yaml and .yml are
// accepted.
func (s *storage) load(name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, filePath := range []string{s.path(name), strings.TrimSuffix(s.path(name), ".yaml") + ".yml"} {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", errFileNotFound, name)
}

func (s *storage) delete(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.path(name)
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", errFileNotFound, name)
		}
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}

	logging.Debug("WorkspaceStorage", "Deleted workspace %s from %s", name, filePath)
	return nil
}

// list returns the names of all stored workspaces.
func (s *storage) list() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	var names []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		files, err := filepath.Glob(filepath.Join(s.dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to glob %s files: %w", pattern, err)
		}
		for _, filePath := range files {
			names = append(names, nameFromPath(filePath))
		}
	}
	return names, nil
}

func (s *storage) path(name string) string {
	return filepath.Join(s.dir, sanitizeFilename(name)+".yaml")
}

func nameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// isYAMLFile checks if a file path is a YAML file.
func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// sanitizeFilename ensures the filename is safe for filesystem operations
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", ".", "_", " ", "_",
	)
	sanitized := replacer.Replace(strings.TrimSpace(name))

	// Collapse multiple consecutive underscores to single underscore
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if sanitized == "" {
		sanitized = "unnamed"
	}
	return sanitized
}
