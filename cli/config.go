package cli

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"

	"github.com/hxhippy/pwgen/clierror"
	"github.com/hxhippy/pwgen/genericclioptions"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// ResolvedConfig is the final merged configuration: cli flags take
// precedence over config file values, which take precedence over built-in
// defaults.
type ResolvedConfig struct {
	VaultPath       string   `json:"vault_path,omitempty"`
	CopyCmd         []string `json:"copy_cmd,omitempty"`
	PasteCmd        []string `json:"paste_cmd,omitempty"`
	GeneratorLength int      `json:"generator_length"`
}

// ConfigOptions holds cli, file, and resolved global configuration.
type ConfigOptions struct {
	*genericclioptions.StdioOptions

	fileConfig *FileConfig
	configPath string
	vaultPath  string

	resolved *ResolvedConfig
}

var _ genericclioptions.CmdOptions = &ConfigOptions{}

// NewConfigOptions initializes ConfigOptions with default values.
func NewConfigOptions(stdio *genericclioptions.StdioOptions) *ConfigOptions {
	return &ConfigOptions{
		StdioOptions: stdio,
		fileConfig:   newFileConfig(),
		resolved:     &ResolvedConfig{},
	}
}

func (o *ConfigOptions) Resolved() *ResolvedConfig { return o.resolved }

func (o *ConfigOptions) Complete() error {
	c, err := LoadFileConfig(o.configPath)
	if err != nil {
		return err
	}

	o.fileConfig = c

	return o.resolve()
}

func (o *ConfigOptions) resolve() error {
	o.resolved.CopyCmd = o.fileConfig.Clipboard.CopyCmd
	o.resolved.PasteCmd = o.fileConfig.Clipboard.PasteCmd
	o.resolved.VaultPath = cmp.Or(o.vaultPath, o.fileConfig.Vault.Path)

	o.resolved.GeneratorLength = cmp.Or(o.fileConfig.Generator.Length, defaultGeneratedPasswordLength)

	if len(o.resolved.VaultPath) == 0 {
		p, err := defaultVaultPath()
		if err != nil {
			return err
		}

		o.resolved.VaultPath = p
	}

	return nil
}

func (*ConfigOptions) Validate() error { return nil }

func (*ConfigOptions) Run(context.Context, ...string) error { return nil }

// NewCmdConfig creates the cobra config command tree.
func NewCmdConfig(defaults *RootOptions) *cobra.Command {
	o := NewConfigOptions(defaults.StdioOptions)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Resolve and inspect the active pwgen configuration (subcommands available)",
		Long: fmt.Sprintf(`Resolve and display the active pwgen configuration.

If --config-file is not provided, the default config path (~/%s) is used.`, defaultConfigName),
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))

			if len(o.fileConfig.path) == 0 {
				o.Infof("no config file found; using default values.\n")
				return
			}

			c := struct {
				Path     string `json:"path"`
				Parsed   any    `json:"parsed_config"`
				Resolved any    `json:"resolved_config"`
			}{
				Path:     o.fileConfig.path,
				Parsed:   o.fileConfig,
				Resolved: o.resolved,
			}

			o.Printf("%s", stringifyPretty(c))
		},
	}

	cmd.PersistentFlags().StringVarP(&o.configPath, "config-file", "", "",
		fmt.Sprintf("path to the configuration file (default: ~/%s)", defaultConfigName))

	cmd.AddCommand(newGenerateConfigCmd(defaults))

	return cmd
}

// stringifyPretty returns the pretty-printed JSON representation of v.
func stringifyPretty(v any) string {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("stringify error: %v", err)
	}

	return buf.String()
}

type generateConfigOptions struct {
	*genericclioptions.StdioOptions
}

var _ genericclioptions.CmdOptions = &generateConfigOptions{}

func (*generateConfigOptions) Complete() error { return nil }

func (*generateConfigOptions) Validate() error { return nil }

func (o *generateConfigOptions) Run(context.Context, ...string) error {
	c := newFileConfig()
	c.Generator.Length = defaultGeneratedPasswordLength

	out, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	o.Printf("%s", string(out))

	return nil
}

// newGenerateConfigCmd creates the 'generate' subcommand for printing a
// default config.
func newGenerateConfigCmd(defaults *RootOptions) *cobra.Command {
	o := &generateConfigOptions{StdioOptions: defaults.StdioOptions}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a default config file",
		Long:  `Outputs the default configuration in TOML format to stdout.`,
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	genericclioptions.MarkFlagsHidden(cmd, "file", "verbose")

	return cmd
}
