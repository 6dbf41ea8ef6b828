package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hxhippy/pwgen/clierror"
	"github.com/hxhippy/pwgen/genericclioptions"
	"github.com/hxhippy/pwgen/input"
	"github.com/hxhippy/pwgen/vault"
	"github.com/hxhippy/pwgen/vaulterrors"

	"github.com/spf13/cobra"
)

const masterPasswordMinLen = 8

// InitOptions holds the data required to perform the 'init' operation.
type InitOptions struct {
	*genericclioptions.StdioOptions

	vaultOptions *VaultOptions
}

var _ genericclioptions.CmdOptions = &InitOptions{}

func NewInitOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *InitOptions {
	return &InitOptions{StdioOptions: stdio, vaultOptions: vaultOptions}
}

func (*InitOptions) Complete() error { return nil }

func (o *InitOptions) Validate() error {
	if _, err := os.Stat(o.vaultOptions.Path); !errors.Is(err, fs.ErrNotExist) {
		return vaulterrors.New(vaulterrors.KindInvalidConfig, "init",
			fmt.Errorf("vault file %q already exists", o.vaultOptions.Path))
	}

	return nil
}

func (o *InitOptions) Run(ctx context.Context, _ ...string) error {
	if err := o.vaultOptions.Open(); err != nil {
		return err
	}

	password, err := input.PromptNewPassword(o.Out, int(o.In.Fd()), masterPasswordMinLen)
	if err != nil {
		return fmt.Errorf("read new master password: %w", err)
	}

	defer clear(password)

	if err := o.vaultOptions.Vault.InitVault(ctx, password); err != nil {
		return fmt.Errorf("init vault: %w", err)
	}

	o.Infof("New vault successfully created at %q\n", o.vaultOptions.Path)

	return nil
}

// NewCmdInit creates the 'init' cobra command.
func NewCmdInit(defaults *RootOptions) *cobra.Command {
	o := NewInitOptions(defaults.StdioOptions, defaults.vaultOptions)

	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new vault",
		Long:  `Create and initialize a new vault at the configured path, prompting for a master password.`,
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}
}
