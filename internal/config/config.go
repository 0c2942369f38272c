package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigDir is relative to $XDG_CONFIG_HOME (or ~/.config) and to the project root.
	DefaultConfigDir  = "opencode"
	ProjectConfigDir  = ".opencode"
	DefaultConfigFile = "feishu-notifier.json"
)

// Options controls where Load looks for settings.
type Options struct {
	// ProjectDir holds .opencode/feishu-notifier.json and .env. Empty = cwd.
	ProjectDir string
	// GlobalPath overrides the global config file location.
	GlobalPath string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// SkipDotEnv disables reading ProjectDir/.env.
	SkipDotEnv bool
}

// Result is the outcome of resolving the configuration once.
type Result struct {
	Config  *Config
	Err     error
	Sources []string // layers that contributed, in merge order
}

// OK reports whether a valid configuration was resolved.
func (r Result) OK() bool { return r.Err == nil && r.Config != nil }

// Resolve wraps Load into a Result.
func Resolve(opts Options) Result {
	cfg, sources, err := Load(opts)
	return Result{Config: cfg, Err: err, Sources: sources}
}

// Load merges, in increasing precedence, the project-local file, the
// global file and the environment, then validates the result. Missing
// files are skipped; malformed ones are errors. A config that fails
// validation is returned alongside the error.
func Load(opts Options) (*Config, []string, error) {
	projectDir := opts.ProjectDir
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("cannot determine working directory: %w", err)
		}
		projectDir = wd
	}
	globalPath := opts.GlobalPath
	if globalPath == "" {
		p, err := GlobalPath()
		if err != nil {
			return nil, nil, err
		}
		globalPath = p
	}

	v := viper.New()
	var sources []string
	for _, path := range []string{ProjectPath(projectDir), globalPath} {
		settings, err := readFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, sources, err
		}
		if err := v.MergeConfigMap(settings); err != nil {
			return nil, sources, fmt.Errorf("merging %s: %w", path, err)
		}
		sources = append(sources, path)
	}

	env, err := envLayer(opts, projectDir)
	if err != nil {
		return nil, sources, err
	}
	if len(env) > 0 {
		if err := v.MergeConfigMap(env); err != nil {
			return nil, sources, fmt.Errorf("merging environment: %w", err)
		}
		sources = append(sources, "env")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, sources, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		// The partial config is still useful to doctor and config show.
		return &cfg, sources, err
	}
	return &cfg, sources, nil
}

func readFile(path string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	settings := v.AllSettings()
	// Empty strings are unset keys, so they never mask an earlier layer.
	for k, val := range settings {
		if s, ok := val.(string); ok && s == "" {
			delete(settings, k)
		}
	}
	return settings, nil
}

// envLayer collects FEISHU_* variables. Real environment variables win
// over entries in ProjectDir/.env.
func envLayer(opts Options, projectDir string) (map[string]any, error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var dotenv map[string]string
	if !opts.SkipDotEnv {
		m, err := godotenv.Read(filepath.Join(projectDir, ".env"))
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading .env: %w", err)
		}
	}

	out := make(map[string]any)
	for _, k := range envKeys {
		if val, ok := lookup(k.Env); ok && val != "" {
			out[k.Key] = val
			continue
		}
		if val := dotenv[k.Env]; val != "" {
			out[k.Key] = val
		}
	}
	return out, nil
}

// Save writes cfg as indented JSON, creating parent directories.
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := GlobalPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("serialising config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// GlobalPath returns $XDG_CONFIG_HOME/opencode/feishu-notifier.json,
// defaulting XDG_CONFIG_HOME to ~/.config.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, DefaultConfigDir, DefaultConfigFile), nil
}

// ProjectPath returns the project-local config file for dir.
func ProjectPath(dir string) string {
	return filepath.Join(dir, ProjectConfigDir, DefaultConfigFile)
}
