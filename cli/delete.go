package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/hxhippy/pwgen/clierror"
	"github.com/hxhippy/pwgen/genericclioptions"
	"github.com/hxhippy/pwgen/input"
	"github.com/hxhippy/pwgen/model"
	"github.com/hxhippy/pwgen/vault"

	"github.com/spf13/cobra"
)

// DeleteOptions holds the data required to perform the 'delete' operation.
type DeleteOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault

	id       string
	site     string
	username string
	force    bool
}

var _ genericclioptions.CmdOptions = &DeleteOptions{}

func NewDeleteOptions(stdio *genericclioptions.StdioOptions, v func() *vault.Vault) *DeleteOptions {
	return &DeleteOptions{StdioOptions: stdio, vault: v}
}

func (*DeleteOptions) Complete() error { return nil }

func (o *DeleteOptions) Validate() error {
	if len(o.id) == 0 && (len(o.site) == 0 || len(o.username) == 0) {
		return fmt.Errorf("delete: either --id or both --site and --username are required")
	}

	return nil
}

func (o *DeleteOptions) Run(ctx context.Context, _ ...string) error {
	if err := promptUnlock(ctx, o.StdioOptions, o.vault()); err != nil {
		return err
	}

	id := o.id
	if len(id) == 0 {
		id = model.EntryID(o.site, o.username)
	}

	if !o.force {
		yes, err := confirm(o.Out, o.In, "Delete entry %q? (y/N): ", id)
		if err != nil {
			return err
		}

		if !yes {
			return nil
		}
	}

	if err := o.vault().DeleteEntry(ctx, id); err != nil {
		return err
	}

	o.Infof("entry %q deleted\n", id)

	return nil
}

func confirm(out io.Writer, in io.Reader, prompt string, a ...any) (bool, error) {
	response, err := input.PromptRead(out, in, prompt, a...)
	if err != nil {
		return false, err
	}

	normalized := strings.ToLower(strings.TrimSpace(response))

	return slices.Contains([]string{"y", "yes"}, normalized), nil
}

// NewCmdDelete creates the 'delete' cobra command.
func NewCmdDelete(defaults *RootOptions) *cobra.Command {
	o := NewDeleteOptions(defaults.StdioOptions, defaults.vaultOptions.VaultFunc)

	cmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm", "remove"},
		Short:   "Delete a password entry",
		Long:    `Delete a password entry by id, or by its site and username, after confirmation.`,
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVar(&o.id, "id", "", "entry id")
	cmd.Flags().StringVar(&o.site, "site", "", "site or service name")
	cmd.Flags().StringVar(&o.username, "username", "", "username")
	cmd.Flags().BoolVar(&o.force, "force", false, "skip the confirmation prompt")

	return cmd
}
