package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"detectai/internal/config"
)

const BaseDirName = "DetectAI"

// DefaultRoot is the workspace directory under the user's home. It is not
// created.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, BaseDirName), nil
}

// EnsureLogs creates only the logs directory under base.
func EnsureLogs(base string) error {
	if err := os.MkdirAll(LogsDir(base), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", LogsDir(base), err)
	}
	return nil
}

// EnsureAt creates the workspace layout under base and writes a default
// settings file when none exists yet.
func EnsureAt(base string) (string, error) {
	paths := []string{
		filepath.Join(base, "configs"),
		LogsDir(base),
	}

	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", p, err)
		}
	}

	settingsPath := SettingsPath(base)
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		if err := config.Write(settingsPath, config.Default()); err != nil {
			return "", fmt.Errorf("write settings: %w", err)
		}
	}

	return base, nil
}

func SettingsPath(root string) string {
	return filepath.Join(root, "configs", "settings.yaml")
}

func LogsDir(root string) string {
	return filepath.Join(root, "logs")
}
