package environment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ReadYAML loads a flat key/value YAML file
func ReadYAML(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment file: %w", err)
	}

	var vars map[string]string
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("failed to parse environment YAML: %w", err)
	}
	if vars == nil {
		vars = make(map[string]string)
	}
	return vars, nil
}

// WriteYAML saves variables as a flat key/value YAML file
func WriteYAML(path string, vars map[string]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := yaml.Marshal(vars)
	if err != nil {
		return fmt.Errorf("failed to marshal environment: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// ReadDotenv loads KEY=value pairs from a dotenv file
func ReadDotenv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dotenv file: %w", err)
	}
	return vars, nil
}

// NameFromPath turns "envs/staging.yaml" into "staging"
func NameFromPath(path string) string {
	base := strings.TrimPrefix(filepath.Base(path), ".")
	for _, ext := range []string{".yaml", ".yml", ".env"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// IsDotenvPath reports whether path names a dotenv file (".env" or "*.env")
func IsDotenvPath(path string) bool {
	base := filepath.Base(path)
	return base == ".env" || strings.HasSuffix(base, ".env") || strings.HasPrefix(base, ".env.")
}
