package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hxhippy/pwgen/clierror"
	"github.com/hxhippy/pwgen/genericclioptions"
	"github.com/hxhippy/pwgen/model"
	"github.com/hxhippy/pwgen/store"
	"github.com/hxhippy/pwgen/vault"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// ListOptions holds the filters for the 'list' operation.
type ListOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault

	query        string
	tags         []string
	favoriteOnly bool
}

var _ genericclioptions.CmdOptions = &ListOptions{}

func NewListOptions(stdio *genericclioptions.StdioOptions, v func() *vault.Vault) *ListOptions {
	return &ListOptions{StdioOptions: stdio, vault: v}
}

func (*ListOptions) Complete() error { return nil }

func (*ListOptions) Validate() error { return nil }

func (o *ListOptions) Run(ctx context.Context, _ ...string) error {
	if err := promptUnlock(ctx, o.StdioOptions, o.vault()); err != nil {
		return err
	}

	entries, err := o.vault().SearchEntries(ctx, store.EntryFilter{
		Query:        o.query,
		Tags:         o.tags,
		FavoriteOnly: o.favoriteOnly,
	})
	if err != nil {
		return err
	}

	printEntryTable(o.Out, entries)

	return nil
}

func printEntryTable(w io.Writer, entries []model.PasswordEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	defer func() { _ = tw.Flush() }()

	fmt.Fprintln(tw, "ID\tSITE\tUSERNAME\tTAGS\tFAVORITE\tLAST USED")

	for _, e := range entries {
		lastUsed := "never"
		if e.LastUsed != nil {
			lastUsed = humanize.Time(*e.LastUsed)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\t%s\n", e.ID, e.Site, e.Username, strings.Join(e.Tags, ","), e.Favorite, lastUsed)
	}
}

// NewCmdList creates the 'list' cobra command.
func NewCmdList(defaults *RootOptions) *cobra.Command {
	o := NewListOptions(defaults.StdioOptions, defaults.vaultOptions.VaultFunc)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List password entries",
		Long:    `List password entries, optionally filtered by a text query, tags, or favorite status.`,
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVar(&o.query, "query", "", "free-text filter over site/username/notes/tags")
	cmd.Flags().StringSliceVar(&o.tags, "tag", nil, "entry must carry every listed tag (comma-separated or repeated)")
	cmd.Flags().BoolVar(&o.favoriteOnly, "favorite-only", false, "only list favorites")

	return cmd
}
