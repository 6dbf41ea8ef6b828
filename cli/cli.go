// Package cli wires the pwgen command-line surface (§6) on top of the
// vault facade: each subcommand completes/validates/runs through
// [genericclioptions.CmdOptions], and every invocation opens, unlocks (if
// needed), runs its one operation, and closes the vault — there is no
// resident daemon to carry an unlocked session between processes.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/hxhippy/pwgen/clierror"
	"github.com/hxhippy/pwgen/clipboard"
	"github.com/hxhippy/pwgen/genericclioptions"
	"github.com/hxhippy/pwgen/input"
	"github.com/hxhippy/pwgen/vault"
	"github.com/hxhippy/pwgen/vaulterrors"

	"github.com/spf13/cobra"
)

const (
	defaultDatabaseDir      = "pwgen"
	defaultDatabaseFilename = "vault.db"

	defaultGeneratedPasswordLength = 20
)

var (
	// preRunSkipCommands bypass the persistent pre-run logic entirely:
	// they need neither config resolution nor a vault handle.
	preRunSkipCommands = []string{"config", "version"}

	// preRunNoOpenCommands resolve configuration but must not open the
	// vault file themselves: init creates it, generate draws only from the
	// process CSPRNG and never touches a vault handle at all.
	preRunNoOpenCommands = []string{"init", "generate"}

	// postRunSkipCommands bypass closing a vault that pre-run never opened.
	postRunSkipCommands = []string{"config", "version"}
)

func defaultVaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve default vault dir: %w", err)
	}

	return filepath.Join(dir, defaultDatabaseDir, defaultDatabaseFilename), nil
}

// VaultOptions resolves the on-disk vault path and lazily opens it.
type VaultOptions struct {
	Path  string
	Vault *vault.Vault
}

var _ genericclioptions.BaseOptions = &VaultOptions{}

func NewVaultOptions() *VaultOptions { return &VaultOptions{} }

func (o *VaultOptions) Complete() error { return nil }

func (o *VaultOptions) Validate() error { return nil }

// Open opens the vault database at o.Path, creating the file (but not
// initializing it) if it does not yet exist.
func (o *VaultOptions) Open() error {
	if err := os.MkdirAll(filepath.Dir(o.Path), 0o700); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	v, err := vault.Open(o.Path)
	if err != nil {
		return err
	}

	o.Vault = v

	return nil
}

func (o *VaultOptions) VaultFunc() *vault.Vault { return o.Vault }

// RootOptions is shared by every subcommand: io streams, resolved config,
// and the (possibly not-yet-opened) vault handle.
type RootOptions struct {
	*genericclioptions.StdioOptions

	vaultOptions  *VaultOptions
	configOptions *ConfigOptions
}

var _ genericclioptions.CmdOptions = &RootOptions{}

func NewRootOptions(iostreams *genericclioptions.IOStreams) *RootOptions {
	return &RootOptions{
		StdioOptions:  &genericclioptions.StdioOptions{IOStreams: iostreams},
		vaultOptions:  NewVaultOptions(),
		configOptions: NewConfigOptions(&genericclioptions.StdioOptions{IOStreams: iostreams}),
	}
}

func (o *RootOptions) Complete() error {
	var opts []clipboard.Opt

	if err := o.StdioOptions.Complete(); err != nil {
		return err
	}

	if err := o.configOptions.Complete(); err != nil {
		return err
	}

	resolved := o.configOptions.Resolved()

	if len(resolved.CopyCmd) > 0 {
		opts = append(opts, clipboard.WithCopyCmd(resolved.CopyCmd))
	}

	if len(resolved.PasteCmd) > 0 {
		opts = append(opts, clipboard.WithPasteCmd(resolved.PasteCmd))
	}

	if len(opts) > 0 {
		clipboard.SetDefault(clipboard.New(opts...))
	}

	if len(o.vaultOptions.Path) == 0 {
		o.vaultOptions.Path = resolved.VaultPath
	}

	return nil
}

func (o *RootOptions) Validate() error { return nil }

// Run opens the vault file unless cmd is one of the commands that must
// not do so (init creates it; config/version need no vault at all).
func (o *RootOptions) Run(_ context.Context, args ...string) error {
	cmd := ""
	if len(args) == 1 {
		cmd = args[0]
	}

	if slices.Contains(preRunNoOpenCommands, cmd) {
		return nil
	}

	if _, err := os.Stat(o.vaultOptions.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return vaulterrors.New(vaulterrors.KindNotFound, "open_vault",
				fmt.Errorf("no vault at %q; run 'pwgen init' first", o.vaultOptions.Path))
		}

		return fmt.Errorf("stat vault file: %w", err)
	}

	return o.vaultOptions.Open()
}

// promptUnlock prompts once for the master password and unlocks v; a wrong
// password is returned as [vaulterrors.ErrAuthFailed] without a retry.
func promptUnlock(ctx context.Context, io *genericclioptions.StdioOptions, v *vault.Vault) error {
	if v.IsVaultUnlocked() {
		return nil
	}

	password, err := input.PromptReadSecure(io.Out, int(io.In.Fd()), "Password: ")
	if err != nil {
		return fmt.Errorf("prompt password: %w", err)
	}

	defer clear(password)

	return v.UnlockVault(ctx, password)
}

// NewCmdRoot creates the `pwgen` command with its full sub-command tree.
func NewCmdRoot(iostreams *genericclioptions.IOStreams, args []string) *cobra.Command {
	o := NewRootOptions(iostreams)

	cmd := &cobra.Command{
		Use:   "pwgen",
		Short: "Offline password and secrets vault",
		Long: `pwgen is an encrypted, offline command-line password and secrets manager.

Environment Variables:
    PWGEN_CONFIG_PATH: overrides the default config path: "~/.pwgen.toml".`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if slices.Contains(preRunSkipCommands, cmd.Name()) {
				return
			}

			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, cmd.Name()))
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if slices.Contains(postRunSkipCommands, cmd.Name()) {
				return
			}

			if o.vaultOptions.Vault != nil {
				clierror.Check(o.vaultOptions.Vault.Close())
			}
		},
	}

	cmd.SetArgs(args)

	cmd.PersistentFlags().BoolVarP(&o.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().StringVarP(&o.vaultOptions.Path, "file", "f", "",
		"vault database path (default: the platform data dir)")

	cmd.AddCommand(NewCmdConfig(o))
	cmd.AddCommand(newVersionCommand(o))
	cmd.AddCommand(NewCmdInit(o))
	cmd.AddCommand(NewCmdGenerate(o))

	cmd.AddCommand(NewCmdAdd(o))
	cmd.AddCommand(NewCmdGet(o))
	cmd.AddCommand(NewCmdList(o))
	cmd.AddCommand(NewCmdUpdate(o))
	cmd.AddCommand(NewCmdDelete(o))

	cmd.AddCommand(NewCmdAddSecret(o))
	cmd.AddCommand(NewCmdGetSecret(o))
	cmd.AddCommand(NewCmdListSecrets(o))
	cmd.AddCommand(NewCmdUpdateSecret(o))
	cmd.AddCommand(NewCmdDeleteSecret(o))
	cmd.AddCommand(NewCmdListTemplates(o))
	cmd.AddCommand(NewCmdExpiringSecrets(o))
	cmd.AddCommand(NewCmdSecretsStats(o))

	cmd.AddCommand(NewCmdBackup(o))
	cmd.AddCommand(NewCmdRestore(o))
	cmd.AddCommand(NewCmdVerifyBackup(o))

	return cmd
}
