package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/hipabi/hdrparse/envconfig"
)

// LoadDotEnv loads ~/.hdrparse/.env into the environment and reloads the
// settings. Variables already set in the environment are kept. A missing
// file or home directory is not an error.
func LoadDotEnv() error {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("skipping .env file", "error", err)
		return nil
	}

	return loadDotEnv(filepath.Join(home, ".hdrparse", ".env"))
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to check if .env file exists: %w", err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("could not load %s: %w", path, err)
	}

	envconfig.LoadConfig()
	return nil
}
