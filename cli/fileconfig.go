package cli

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	// envConfigPathKey overrides the default config path.
	envConfigPathKey = "PWGEN_CONFIG_PATH"

	defaultConfigName = ".pwgen.toml"
)

type ConfigError struct {
	Opt string
	Err error
}

func (e *ConfigError) Error() string {
	if len(e.Opt) == 0 {
		return "config: " + e.Err.Error()
	}

	return "config: " + e.Opt + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FileConfig is the on-disk TOML shape for pwgen's optional config file.
//
//nolint:tagalign
type FileConfig struct {
	Vault     VaultConfig      `toml:"vault" json:"vault"`
	Clipboard *ClipboardConfig `toml:"clipboard" comment:"Clipboard configuration: both copy and paste commands must be either both set or both unset." json:"clipboard"`
	Generator *GeneratorConfig `toml:"generator" comment:"Default generated password length used when --length is not given." json:"generator"`

	path string
}

func newFileConfig() *FileConfig {
	return &FileConfig{
		Clipboard: &ClipboardConfig{},
		Generator: &GeneratorConfig{},
	}
}

// VaultConfig holds vault-related configuration.
//
//nolint:tagalign,tagliatelle
type VaultConfig struct {
	Path string `toml:"path,commented" comment:"vault database path (default: the platform data dir)" json:"path,omitempty"`
}

// ClipboardConfig defines commands for clipboard ops.
//
//nolint:tagalign,tagliatelle
type ClipboardConfig struct {
	CopyCmd  []string `toml:"copy_cmd,commented"  comment:"command used for copying to the clipboard (default: ['xsel', '-ib'])" json:"copy_cmd,omitempty"`
	PasteCmd []string `toml:"paste_cmd,commented" comment:"command used for pasting from the clipboard (default: ['xsel', '-ob'])" json:"paste_cmd,omitempty"`
}

// GeneratorConfig holds the default password length applied by 'generate'
// when --length is not passed on the command line. Character classes are
// set only by flags.
//
//nolint:tagalign,tagliatelle
type GeneratorConfig struct {
	Length int `toml:"length,commented" comment:"default generated password length" json:"length,omitempty"`
}

// LoadFileConfig loads the config from the given or default path.
func LoadFileConfig(path string) (*FileConfig, error) {
	defaultPath, err := defaultConfigPath()
	if err != nil {
		return nil, err
	}

	configPath := cmp.Or(path, defaultPath)

	c, err := parseFileConfig(configPath)
	if err != nil {
		if len(path) == 0 && errors.Is(err, fs.ErrNotExist) { //nolint:revive
			c = newFileConfig()
		} else {
			return nil, err
		}
	} else {
		c.path = configPath
	}

	return c, c.validate()
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: user home dir: %w", err)
	}

	path := filepath.Join(home, defaultConfigName)
	if p, ok := os.LookupEnv(envConfigPathKey); ok {
		path = p
	}

	return path, nil
}

func parseFileConfig(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: stat file: %w", err)
	}

	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	config := newFileConfig()
	if err := toml.Unmarshal(raw, config); err != nil {
		return nil, fmt.Errorf("config: parse file: %w", err)
	}

	return config, nil
}

func (c *FileConfig) validate() error {
	if c == nil {
		return &ConfigError{Err: errors.New("cannot validate a nil config")}
	}

	if c.hasPartialClipboard() {
		return &ConfigError{Opt: "clipboard", Err: errors.New("both 'copy_cmd' and 'paste_cmd' must be set or unset together")}
	}

	if c.Generator.Length < 0 {
		return &ConfigError{Opt: "generator.length", Err: errors.New("must be zero or a positive integer")}
	}

	return nil
}

func (c *FileConfig) hasPartialClipboard() bool {
	return (len(c.Clipboard.CopyCmd) == 0) != (len(c.Clipboard.PasteCmd) == 0)
}
