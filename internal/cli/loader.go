package cli

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var configSchema string

// Config holds the shell configuration loaded from ~/.mongosql/config.yaml
// (or the path given with --config).
type Config struct {
	Store  string `yaml:"store"`
	Format string `yaml:"format"`
	URI    string `yaml:"uri"`
}

// LoadConfig reads and validates the config file. A missing file is not
// an error: the zero Config applies. A present-but-invalid file is an
// error, so typos never silently fall back to defaults.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return &Config{}, nil
		}
		path = filepath.Join(home, ".mongosql", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validateConfig(raw); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// validateConfig unifies the parsed document with the embedded CUE
// schema.
func validateConfig(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}

	value := ctx.Encode(raw)
	if err := value.Err(); err != nil {
		return err
	}
	unified := schema.Unify(value)
	if err := unified.Err(); err != nil {
		return err
	}
	return unified.Validate(cue.Concrete(false))
}
