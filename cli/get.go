package cli

import (
	"context"
	"fmt"

	"github.com/hxhippy/pwgen/clierror"
	"github.com/hxhippy/pwgen/clipboard"
	"github.com/hxhippy/pwgen/genericclioptions"
	"github.com/hxhippy/pwgen/model"
	"github.com/hxhippy/pwgen/vault"

	"github.com/spf13/cobra"
)

// GetOptions holds the data required to perform the 'get' operation.
type GetOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault

	id       string
	site     string
	username string

	show bool
	copy bool
}

var _ genericclioptions.CmdOptions = &GetOptions{}

func NewGetOptions(stdio *genericclioptions.StdioOptions, v func() *vault.Vault) *GetOptions {
	return &GetOptions{StdioOptions: stdio, vault: v}
}

func (*GetOptions) Complete() error { return nil }

func (o *GetOptions) Validate() error {
	if len(o.id) == 0 && (len(o.site) == 0 || len(o.username) == 0) {
		return fmt.Errorf("get: either --id or both --site and --username are required")
	}

	return nil
}

func (o *GetOptions) Run(ctx context.Context, _ ...string) error {
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

	o.Printf("site:     %s\n", e.Site)
	o.Printf("username: %s\n", e.Username)

	switch {
	case o.show:
		o.Printf("password: %s\n", e.Password)
	case o.copy:
		o.Debugf("copying password to clipboard\n")

		if err := clipboard.Copy(e.Password); err != nil {
			return err
		}

		o.Printf("password: <copied to clipboard>\n")
	default:
		o.Printf("password: <hidden, use --show or --copy-clipboard>\n")
	}

	if len(e.Notes) > 0 {
		o.Printf("notes:    %s\n", e.Notes)
	}

	if len(e.Tags) > 0 {
		o.Printf("tags:     %v\n", e.Tags)
	}

	return nil
}

// NewCmdGet creates the 'get' cobra command.
func NewCmdGet(defaults *RootOptions) *cobra.Command {
	o := NewGetOptions(defaults.StdioOptions, defaults.vaultOptions.VaultFunc)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Retrieve a password entry",
		Long:  `Retrieve a password entry by id, or by its site and username.`,
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVar(&o.id, "id", "", "entry id")
	cmd.Flags().StringVar(&o.site, "site", "", "site or service name")
	cmd.Flags().StringVar(&o.username, "username", "", "username")
	cmd.Flags().BoolVar(&o.show, "show", false, "print the password in cleartext")
	cmd.Flags().BoolVarP(&o.copy, "copy-clipboard", "c", false, "copy the password to the clipboard")

	return cmd
}
