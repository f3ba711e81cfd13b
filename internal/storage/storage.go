package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	appDirName       = "bookscript"
	projectsDirName  = "projects"
	AutosaveFileName = "autosave.bks"
)

// fileLocks serialises writers of the same path within the process.
var fileLocks sync.Map

func lockFor(path string) *sync.Mutex {
	v, _ := fileLocks.LoadOrStore(path, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Load reads a whole text file.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %s: %w", path, err)
	}
	return string(data), nil
}

// Save writes content to path, creating parent directories. The write goes
// through a temporary file in the same directory and a rename, so readers
// never observe a partial file.
func Save(path, content string) error {
	lock := lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write file: %s: %w", path, err)
	}
	tmpPath := tmp.Name()

	if _, err := io.WriteString(tmp, content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %s: %w", path, err)
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %s: %w", path, err)
	}
	return nil
}

// DataDir returns the per-user data directory for the application,
// honouring XDG_DATA_HOME.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user data directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", appDirName), nil
}

// AutosaveDir resolves the autosave directory and makes sure it exists.
// An empty configured value falls back to <data dir>/projects.
func AutosaveDir(configured string) (string, error) {
	dir := configured
	if dir == "" {
		dataDir, err := DataDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(dataDir, projectsDirName)
	}
	dir = ExpandHome(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create autosave directory: %s: %w", dir, err)
	}
	return dir, nil
}

// AutosavePath returns the full autosave file path inside dir.
func AutosavePath(dir string) string {
	return filepath.Join(dir, AutosaveFileName)
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// FileSHA256 returns the hex SHA-256 of a file's content.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ContentSHA256 returns the hex SHA-256 of content.
func ContentSHA256(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
