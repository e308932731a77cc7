// Package config resolves extractvault's runtime configuration from an
// optional YAML file plus environment variables. Every recognized setting
// lives in one typed table (name, env var, default, validator) that the
// loader walks to resolve and validate each value.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Key describes one recognized environment-backed configuration value.
type Key struct {
	Name     string // config field name, for error messages
	EnvVar   string
	Default  string
	Validate func(string) error
}

// Keys enumerates every environment variable extractvault recognizes.
// LoadFrom walks this table; the preflight config check uses
// Config.HasExpectedKeys instead.
var Keys = []Key{
	{Name: "DatabaseURL", EnvVar: "DATABASE_URL", Default: "file:extractvault.db", Validate: validateDatabaseURL},
	{Name: "ArchiveRoot", EnvVar: "ARCHIVE_ROOT", Default: "./archive"},
	{Name: "MediaRoot", EnvVar: "MEDIA_ROOT", Default: "./media"},
	{Name: "NotesDir", EnvVar: "NOTES_DIR", Default: "./notes"},
	{Name: "NoteServerPort", EnvVar: "NOTE_SERVER_PORT", Default: "8765", Validate: validatePort},
	{Name: "FlashcardBackendURL", EnvVar: "FLASHCARD_BACKEND_URL", Default: ""},
	{Name: "FlashcardBackendVersion", EnvVar: "FLASHCARD_BACKEND_VERSION", Default: ""},
	{Name: "LogDir", EnvVar: "LOG_DIR", Default: "./logs"},
	{Name: "SkipPreflight", EnvVar: "SKIP_PREFLIGHT", Default: "false", Validate: validateBool},
}

// Config is the resolved, typed configuration for a running process.
type Config struct {
	DatabaseURL             string
	ArchiveRoot             string
	MediaRoot               string
	NotesDir                string
	NoteServerPort          int
	FlashcardBackendURL     string
	FlashcardBackendVersion string
	LogDir                  string
	SkipPreflight           bool
}

// yamlOverlay is the shape of the optional evault.yaml file: lowercase,
// underscore-free field names matching each Key's Name, so a file only
// needs to name the settings it wants to override.
type yamlOverlay map[string]string

// loadYAMLOverlay reads path if it exists and returns its key/value pairs.
// A missing file is not an error: the overlay is entirely optional, env
// vars and defaults cover every key on their own.
func loadYAMLOverlay(path string) (yamlOverlay, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return yamlOverlay{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	var overlay yamlOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return overlay, nil
}

// Load resolves Config from documented defaults, evault.yaml (if present
// in the working directory), and the environment, in ascending priority
// order, applying each key's validator. It never fails on an
// absent value (everything in Keys is optional) — only a malformed value
// returns an error.
func Load() (*Config, error) {
	return LoadFrom("evault.yaml")
}

// LoadFrom is Load with an explicit overlay file path, exposed for tests.
func LoadFrom(yamlPath string) (*Config, error) {
	overlay, err := loadYAMLOverlay(yamlPath)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	values := make(map[string]string, len(Keys))
	for _, k := range Keys {
		v.SetDefault(k.EnvVar, k.Default)
		if ov, ok := overlay[strings.ToLower(k.Name)]; ok {
			v.SetDefault(k.EnvVar, ov)
		}
		_ = v.BindEnv(k.EnvVar, k.EnvVar)

		value := v.GetString(k.EnvVar)
		if k.Validate != nil {
			if err := k.Validate(value); err != nil {
				return nil, fmt.Errorf("config %s (%s=%q): %w", k.Name, k.EnvVar, value, err)
			}
		}
		values[k.Name] = value
	}

	port, err := strconv.Atoi(values["NoteServerPort"])
	if err != nil {
		return nil, fmt.Errorf("config NoteServerPort: %w", err)
	}
	skip, _ := strconv.ParseBool(values["SkipPreflight"])

	return &Config{
		DatabaseURL:             values["DatabaseURL"],
		ArchiveRoot:             values["ArchiveRoot"],
		MediaRoot:               values["MediaRoot"],
		NotesDir:                values["NotesDir"],
		NoteServerPort:          port,
		FlashcardBackendURL:     values["FlashcardBackendURL"],
		FlashcardBackendVersion: values["FlashcardBackendVersion"],
		LogDir:                  values["LogDir"],
		SkipPreflight:           skip,
	}, nil
}

// HasExpectedKeys reports whether DATABASE_URL, ARCHIVE_ROOT, MEDIA_ROOT
// and NOTES_DIR resolved to non-empty values (used by preflight check #4's
// "schema-complete" test). The other keys are not checked here, so a blank
// LOG_DIR or flashcard URL/version passes.
func (c *Config) HasExpectedKeys() (bool, []string) {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.ArchiveRoot == "" {
		missing = append(missing, "ARCHIVE_ROOT")
	}
	if c.MediaRoot == "" {
		missing = append(missing, "MEDIA_ROOT")
	}
	if c.NotesDir == "" {
		missing = append(missing, "NOTES_DIR")
	}
	return len(missing) == 0, missing
}

func validatePort(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("not a number: %w", err)
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("out of range: %d", n)
	}
	return nil
}

func validateBool(v string) error {
	_, err := strconv.ParseBool(v)
	return err
}

func validateDatabaseURL(v string) error {
	if v == "" {
		return fmt.Errorf("empty")
	}
	u, err := url.Parse(v)
	if err != nil {
		return fmt.Errorf("unparseable: %w", err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("missing scheme (expected e.g. file:)")
	}
	return nil
}
