package cli

import (
	"context"
	"fmt"

	"github.com/hxhippy/pwgen/clierror"
	"github.com/hxhippy/pwgen/genericclioptions"
	"github.com/hxhippy/pwgen/model"
	"github.com/hxhippy/pwgen/vault"

	"github.com/spf13/cobra"
)

// UpdateOptions holds the data required to perform the 'update' operation.
type UpdateOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault

	id       string
	site     string
	username string

	newPassword     string
	notes           string
	tags            []string
	favorite        bool
	favoriteChanged bool
}

var _ genericclioptions.CmdOptions = &UpdateOptions{}

func NewUpdateOptions(stdio *genericclioptions.StdioOptions, v func() *vault.Vault) *UpdateOptions {
	return &UpdateOptions{StdioOptions: stdio, vault: v}
}

func (*UpdateOptions) Complete() error { return nil }

func (o *UpdateOptions) Validate() error {
	if len(o.id) == 0 && (len(o.site) == 0 || len(o.username) == 0) {
		return fmt.Errorf("update: either --id or both --site and --username are required")
	}

	return nil
}

func (o *UpdateOptions) Run(ctx context.Context, _ ...string) error {
	if err := promptUnlock(ctx, o.StdioOptions, o.vault()); err != nil {
		return err
	}

	id := o.id
	if len(id) == 0 {
		id = model.EntryID(o.site, o.username)
	}

	e, err := o.vault().GetEntry(ctx, id)
	if err != nil {
		return err
	}

	if len(o.newPassword) > 0 {
		e.Password = o.newPassword
	}

	if len(o.notes) > 0 {
		e.Notes = o.notes
	}

	if len(o.tags) > 0 {
		e.Tags = o.tags
	}

	if o.favoriteChanged {
		e.Favorite = o.favorite
	}

	if err := o.vault().UpdateEntry(ctx, e); err != nil {
		return err
	}

	o.Infof("entry %q updated\n", e.Site)

	return nil
}

// NewCmdUpdate creates the 'update' cobra command.
func NewCmdUpdate(defaults *RootOptions) *cobra.Command {
	o := NewUpdateOptions(defaults.StdioOptions, defaults.vaultOptions.VaultFunc)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a password entry",
		Long:  `Update the password, notes, tags, or favorite flag of an existing password entry.`,
		PreRun: func(cmd *cobra.Command, _ []string) {
			o.favoriteChanged = cmd.Flags().Changed("favorite")
		},
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVar(&o.id, "id", "", "entry id")
	cmd.Flags().StringVar(&o.site, "site", "", "site or service name")
	cmd.Flags().StringVar(&o.username, "username", "", "username")
	cmd.Flags().StringVar(&o.newPassword, "password", "", "new password value")
	cmd.Flags().StringVar(&o.notes, "notes", "", "new notes value")
	cmd.Flags().StringSliceVar(&o.tags, "tag", nil, "replace the entry's tags (comma-separated or repeated)")
	cmd.Flags().BoolVar(&o.favorite, "favorite", false, "mark the entry as a favorite (omit to leave unchanged)")

	return cmd
}
