package cli

import (
	"context"
	"fmt"

	"github.com/hxhippy/pwgen/clierror"
	"github.com/hxhippy/pwgen/genericclioptions"
	"github.com/hxhippy/pwgen/input"
	"github.com/hxhippy/pwgen/model"
	"github.com/hxhippy/pwgen/util"
	"github.com/hxhippy/pwgen/vault"

	"github.com/spf13/cobra"
)

// AddOptions holds the data required to perform the 'add' operation:
// inserting a new password entry.
type AddOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault

	site     string
	username string
	password string
	notes    string
	tags     []string
	favorite bool
}

var _ genericclioptions.CmdOptions = &AddOptions{}

func NewAddOptions(stdio *genericclioptions.StdioOptions, v func() *vault.Vault) *AddOptions {
	return &AddOptions{StdioOptions: stdio, vault: v}
}

func (*AddOptions) Complete() error { return nil }

func (o *AddOptions) Validate() error {
	if len(o.site) == 0 {
		return fmt.Errorf("add: --site is required")
	}

	return nil
}

func (o *AddOptions) Run(ctx context.Context, _ ...string) error {
	if err := promptUnlock(ctx, o.StdioOptions, o.vault()); err != nil {
		return err
	}

	if len(o.username) == 0 {
		u, err := input.PromptRead(o.Out, o.In, "Username: ")
		if err != nil {
			return fmt.Errorf("prompt username: %w", err)
		}

		o.username = u
	}

	if len(o.password) == 0 {
		p, err := input.PromptReadSecure(o.Out, int(o.In.Fd()), "Password: ")
		if err != nil {
			return fmt.Errorf("prompt password: %w", err)
		}

		o.password = string(p)
	}

	added, err := o.vault().AddEntry(ctx, model.PasswordEntry{
		Site:     o.site,
		Username: o.username,
		Password: o.password,
		Notes:    o.notes,
		Tags:     util.SliceWithout(o.tags, ""),
		Favorite: o.favorite,
	})
	if err != nil {
		return err
	}

	o.Infof("entry %q added (id=%s)\n", o.site, added.ID)

	return nil
}

// NewCmdAdd creates the 'add' cobra command.
func NewCmdAdd(defaults *RootOptions) *cobra.Command {
	o := NewAddOptions(defaults.StdioOptions, defaults.vaultOptions.VaultFunc)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new password entry",
		Long:  `Add a new site/username/password entry to the vault.`,
		Example: `  # Add an entry, prompting for username and password
  pwgen add --site example.com

  # Add an entry fully from flags
  pwgen add --site example.com --username alice --password hunter2 --tag personal`,
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVar(&o.site, "site", "", "site or service name (required)")
	cmd.Flags().StringVar(&o.username, "username", "", "username for the entry")
	cmd.Flags().StringVar(&o.password, "password", "", "password for the entry (prompted if omitted)")
	cmd.Flags().StringVar(&o.notes, "notes", "", "free-form notes")
	cmd.Flags().StringSliceVar(&o.tags, "tag", nil, "tag to associate with the entry (comma-separated or repeated)")
	cmd.Flags().BoolVar(&o.favorite, "favorite", false, "mark the entry as a favorite")

	return cmd
}
