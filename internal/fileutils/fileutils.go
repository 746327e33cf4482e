// Package fileutils provides the file operations shared by the snapshot store and
// the CSV export.
package fileutils

import (
	"fmt"
	"os"
	"path/filepath"

	"fjacquet/finagent/internal/models"
)

// FileExists checks if a file exists and is not a directory
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirectoryExists checks if a directory exists
func DirectoryExists(dirPath string) bool {
	info, err := os.Stat(dirPath)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// EnsureParentDir creates the directory holding filePath if it doesn't exist.
func EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if DirectoryExists(dir) {
		return nil
	}
	if err := os.MkdirAll(dir, models.PermissionDirectory); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// CreateFile creates or truncates a file for writing, creating parent directories as needed.
func CreateFile(filePath string) (*os.File, error) {
	if err := EnsureParentDir(filePath); err != nil {
		return nil, err
	}
	file, err := os.Create(filePath) // #nosec G304 -- path is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return file, nil
}

// WriteFileAtomic writes data next to filePath and renames it into place, so readers
// see either the previous content or the new one.
func WriteFileAtomic(filePath string, data []byte, perm os.FileMode) error {
	if err := EnsureParentDir(filePath); err != nil {
		return err
	}

	tempFile := filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, perm); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempFile, filePath); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
