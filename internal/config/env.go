package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvFileVar names the variable that points at the .env file when no flag is given.
const EnvFileVar = "LABKIT_ENV_FILE"

// ErrEnvFileNotFound signals that no .env file exists at the resolved path.
var ErrEnvFileNotFound = errors.New("env file not found")

// EnvFile is a resolved .env location. Explicit locations must exist;
// default locations may be absent.
type EnvFile struct {
	Path     string
	Explicit bool
}

// ResolveEnvPath picks the .env file once at startup:
// flag value, then $LABKIT_ENV_FILE, then ./.env, then .env at the project root.
func ResolveEnvPath(flagValue string) EnvFile {
	if flagValue != "" {
		return EnvFile{Path: flagValue, Explicit: true}
	}
	if p := os.Getenv(EnvFileVar); p != "" {
		return EnvFile{Path: p, Explicit: true}
	}
	if fileExists(".env") {
		return EnvFile{Path: ".env"}
	}
	return EnvFile{Path: filepath.Join(ProjectRoot(), ".env")}
}

// LoadEnvFile exports the variables of f into the process environment.
// Variables that are already set keep their value.
// Returns loaded=false without error when a default location is missing.
func LoadEnvFile(f EnvFile) (loaded bool, err error) {
	path := filepath.Clean(f.Path)
	if !fileExists(path) {
		if f.Explicit {
			return false, fmt.Errorf("%w: %s", ErrEnvFileNotFound, path)
		}
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("load env file %s: %w", path, err)
	}
	return true, nil
}
