package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hxhippy/pwgen/clierror"
	"github.com/hxhippy/pwgen/clipboard"
	"github.com/hxhippy/pwgen/genericclioptions"
	"github.com/hxhippy/pwgen/model"
	"github.com/hxhippy/pwgen/store"
	"github.com/hxhippy/pwgen/vault"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// parseDataFields turns a list of "key=value" pairs into a JSON object
// suitable for [model.UnmarshalSecretData]: each value is tried as JSON
// first (so booleans, numbers, and arrays come through typed), falling
// back to a plain string.
func parseDataFields(pairs []string) (json.RawMessage, error) {
	obj := map[string]any{}

	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --data entry %q, want key=value", p)
		}

		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			parsed = v
		}

		obj[k] = parsed
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}

	return raw, nil
}

// --- add-secret ---

type AddSecretOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault

	name        string
	description string
	secretType  string
	data        []string
	tags        []string
	environment string
	project     string
	favorite    bool
	expiresDays int
}

var _ genericclioptions.CmdOptions = &AddSecretOptions{}

func (*AddSecretOptions) Complete() error { return nil }

func (o *AddSecretOptions) Validate() error {
	if len(o.name) == 0 {
		return fmt.Errorf("add-secret: --name is required")
	}

	if len(o.secretType) == 0 {
		return fmt.Errorf("add-secret: --type is required")
	}

	return nil
}

func (o *AddSecretOptions) Run(ctx context.Context, _ ...string) error {
	if err := promptUnlock(ctx, o.StdioOptions, o.vault()); err != nil {
		return err
	}

	raw, err := parseDataFields(o.data)
	if err != nil {
		return err
	}

	data, err := model.UnmarshalSecretData(model.SecretType(o.secretType), raw)
	if err != nil {
		return err
	}

	entry := model.SecretEntry{
		Name:        o.name,
		Description: o.description,
		Type:        model.SecretType(o.secretType),
		Data:        data,
		Tags:        o.tags,
		Environment: o.environment,
		Project:     o.project,
		Favorite:    o.favorite,
	}

	if o.expiresDays > 0 {
		exp := time.Now().UTC().AddDate(0, 0, o.expiresDays)
		entry.ExpiresAt = &exp
	}

	added, err := o.vault().AddSecret(ctx, entry)
	if err != nil {
		return err
	}

	o.Infof("secret %q added (id=%s)\n", added.Name, added.ID)

	return nil
}

func NewCmdAddSecret(defaults *RootOptions) *cobra.Command {
	o := &AddSecretOptions{StdioOptions: defaults.StdioOptions, vault: defaults.vaultOptions.VaultFunc}

	cmd := &cobra.Command{
		Use:   "add-secret",
		Short: "Add a new typed secret",
		Long: `Add a new typed secret to the vault. Use 'pwgen list-templates' to see the
supported types and the fields each expects, and pass field values with
repeated --data key=value flags.`,
		Example: `  # Add a database connection secret
  pwgen add-secret --name prod-db --type database_connection \
    --data engine=postgres --data connection_string=postgres://... --data ssl=true`,
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVar(&o.name, "name", "", "secret name (required)")
	cmd.Flags().StringVar(&o.description, "description", "", "free-form description")
	cmd.Flags().StringVar(&o.secretType, "type", "", "secret type discriminator (required)")
	cmd.Flags().StringArrayVar(&o.data, "data", nil, "field value as key=value (repeatable)")
	cmd.Flags().StringSliceVar(&o.tags, "tag", nil, "tag to associate with the secret (comma-separated or repeated)")
	cmd.Flags().StringVar(&o.environment, "environment", "", "environment label (e.g. prod, staging)")
	cmd.Flags().StringVar(&o.project, "project", "", "project label")
	cmd.Flags().BoolVar(&o.favorite, "favorite", false, "mark the secret as a favorite")
	cmd.Flags().IntVar(&o.expiresDays, "expires-in-days", 0, "mark the secret as expiring N days from now")

	return cmd
}

// --- get-secret ---

type GetSecretOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault

	id   string
	show bool
	copy bool
}

var _ genericclioptions.CmdOptions = &GetSecretOptions{}

func (*GetSecretOptions) Complete() error { return nil }

func (o *GetSecretOptions) Validate() error {
	if len(o.id) == 0 {
		return fmt.Errorf("get-secret: --id is required")
	}

	return nil
}

func (o *GetSecretOptions) Run(ctx context.Context, _ ...string) error {
	if err := promptUnlock(ctx, o.StdioOptions, o.vault()); err != nil {
		return err
	}

	s, err := o.vault().GetSecret(ctx, o.id)
	if err != nil {
		return err
	}

	o.Printf("name: %s\n", s.Name)
	o.Printf("type: %s\n", s.Type)

	raw, err := model.MarshalSecretData(s.Data)
	if err != nil {
		return err
	}

	switch {
	case o.show:
		o.Printf("data: %s\n", raw)
	case o.copy:
		o.Debugf("copying secret data to clipboard\n")

		if err := clipboard.Copy(string(raw)); err != nil {
			return err
		}

		o.Printf("data: <copied to clipboard>\n")
	default:
		o.Printf("data: <hidden, use --show or --copy-clipboard>\n")
	}

	return nil
}

func NewCmdGetSecret(defaults *RootOptions) *cobra.Command {
	o := &GetSecretOptions{StdioOptions: defaults.StdioOptions, vault: defaults.vaultOptions.VaultFunc}

	cmd := &cobra.Command{
		Use:   "get-secret",
		Short: "Retrieve a typed secret",
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVar(&o.id, "id", "", "secret id (required)")
	cmd.Flags().BoolVar(&o.show, "show", false, "print the secret data in cleartext")
	cmd.Flags().BoolVarP(&o.copy, "copy-clipboard", "c", false, "copy the secret data to the clipboard")

	return cmd
}

// --- list-secrets ---

type ListSecretsOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault

	query        string
	secretType   string
	environment  string
	project      string
	tags         []string
	favoriteOnly bool
}

var _ genericclioptions.CmdOptions = &ListSecretsOptions{}

func (*ListSecretsOptions) Complete() error { return nil }

func (*ListSecretsOptions) Validate() error { return nil }

func (o *ListSecretsOptions) Run(ctx context.Context, _ ...string) error {
	if err := promptUnlock(ctx, o.StdioOptions, o.vault()); err != nil {
		return err
	}

	secrets, err := o.vault().SearchSecrets(ctx, store.SecretFilter{
		Query:        o.query,
		Type:         model.SecretType(o.secretType),
		Environment:  o.environment,
		Project:      o.project,
		Tags:         o.tags,
		FavoriteOnly: o.favoriteOnly,
	})
	if err != nil {
		return err
	}

	printSecretTable(o.Out, secrets)

	return nil
}

func printSecretTable(w io.Writer, secrets []model.SecretEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	defer func() { _ = tw.Flush() }()

	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tENVIRONMENT\tPROJECT\tFAVORITE\tEXPIRES")

	for _, s := range secrets {
		expires := "never"
		if s.ExpiresAt != nil {
			expires = humanize.Time(*s.ExpiresAt)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%v\t%s\n", s.ID, s.Name, s.Type, s.Environment, s.Project, s.Favorite, expires)
	}
}

func NewCmdListSecrets(defaults *RootOptions) *cobra.Command {
	o := &ListSecretsOptions{StdioOptions: defaults.StdioOptions, vault: defaults.vaultOptions.VaultFunc}

	cmd := &cobra.Command{
		Use:     "list-secrets",
		Aliases: []string{"ls-secrets"},
		Short:   "List typed secrets",
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVar(&o.query, "query", "", "free-text filter over name/description")
	cmd.Flags().StringVar(&o.secretType, "type", "", "filter by secret type")
	cmd.Flags().StringVar(&o.environment, "environment", "", "filter by environment label")
	cmd.Flags().StringVar(&o.project, "project", "", "filter by project label")
	cmd.Flags().StringSliceVar(&o.tags, "tag", nil, "secret must carry every listed tag")
	cmd.Flags().BoolVar(&o.favoriteOnly, "favorite-only", false, "only list favorites")

	return cmd
}

// --- update-secret ---

type UpdateSecretOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault

	id              string
	name            string
	description     string
	data            []string
	tags            []string
	favorite        bool
	favoriteChanged bool
}

var _ genericclioptions.CmdOptions = &UpdateSecretOptions{}

func (*UpdateSecretOptions) Complete() error { return nil }

func (o *UpdateSecretOptions) Validate() error {
	if len(o.id) == 0 {
		return fmt.Errorf("update-secret: --id is required")
	}

	return nil
}

func (o *UpdateSecretOptions) Run(ctx context.Context, _ ...string) error {
	if err := promptUnlock(ctx, o.StdioOptions, o.vault()); err != nil {
		return err
	}

	s, err := o.vault().GetSecret(ctx, o.id)
	if err != nil {
		return err
	}

	if len(o.name) > 0 {
		s.Name = o.name
	}

	if len(o.description) > 0 {
		s.Description = o.description
	}

	if len(o.tags) > 0 {
		s.Tags = o.tags
	}

	if len(o.data) > 0 {
		raw, err := parseDataFields(o.data)
		if err != nil {
			return err
		}

		data, err := model.UnmarshalSecretData(s.Type, raw)
		if err != nil {
			return err
		}

		s.Data = data
	}

	if o.favoriteChanged {
		s.Favorite = o.favorite
	}

	if err := o.vault().UpdateSecret(ctx, s); err != nil {
		return err
	}

	o.Infof("secret %q updated\n", s.Name)

	return nil
}

func NewCmdUpdateSecret(defaults *RootOptions) *cobra.Command {
	o := &UpdateSecretOptions{StdioOptions: defaults.StdioOptions, vault: defaults.vaultOptions.VaultFunc}

	cmd := &cobra.Command{
		Use:   "update-secret",
		Short: "Update a typed secret",
		PreRun: func(cmd *cobra.Command, _ []string) {
			o.favoriteChanged = cmd.Flags().Changed("favorite")
		},
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVar(&o.id, "id", "", "secret id (required)")
	cmd.Flags().StringVar(&o.name, "name", "", "new name")
	cmd.Flags().StringVar(&o.description, "description", "", "new description")
	cmd.Flags().StringArrayVar(&o.data, "data", nil, "data field as key=value (repeatable); the given fields replace the secret's whole data, so fields not given are cleared")
	cmd.Flags().StringSliceVar(&o.tags, "tag", nil, "replace the secret's tags")
	cmd.Flags().BoolVar(&o.favorite, "favorite", false, "mark the secret as a favorite (omit to leave unchanged)")

	return cmd
}

// --- delete-secret ---

type DeleteSecretOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault

	id    string
	force bool
}

var _ genericclioptions.CmdOptions = &DeleteSecretOptions{}

func (*DeleteSecretOptions) Complete() error { return nil }

func (o *DeleteSecretOptions) Validate() error {
	if len(o.id) == 0 {
		return fmt.Errorf("delete-secret: --id is required")
	}

	return nil
}

func (o *DeleteSecretOptions) Run(ctx context.Context, _ ...string) error {
	if err := promptUnlock(ctx, o.StdioOptions, o.vault()); err != nil {
		return err
	}

	if !o.force {
		yes, err := confirm(o.Out, o.In, "Delete secret %q? (y/N): ", o.id)
		if err != nil {
			return err
		}

		if !yes {
			return nil
		}
	}

	if err := o.vault().DeleteSecret(ctx, o.id); err != nil {
		return err
	}

	o.Infof("secret %q deleted\n", o.id)

	return nil
}

func NewCmdDeleteSecret(defaults *RootOptions) *cobra.Command {
	o := &DeleteSecretOptions{StdioOptions: defaults.StdioOptions, vault: defaults.vaultOptions.VaultFunc}

	cmd := &cobra.Command{
		Use:   "delete-secret",
		Short: "Delete a typed secret",
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVar(&o.id, "id", "", "secret id (required)")
	cmd.Flags().BoolVar(&o.force, "force", false, "skip the confirmation prompt")

	return cmd
}

// --- list-templates ---

type ListTemplatesOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault
}

var _ genericclioptions.CmdOptions = &ListTemplatesOptions{}

func (*ListTemplatesOptions) Complete() error { return nil }

func (*ListTemplatesOptions) Validate() error { return nil }

func (o *ListTemplatesOptions) Run(context.Context, ...string) error {
	for _, t := range o.vault().GetSecretTypes() {
		o.Printf("%s\n", t)
	}

	return nil
}

func NewCmdListTemplates(defaults *RootOptions) *cobra.Command {
	o := &ListTemplatesOptions{StdioOptions: defaults.StdioOptions, vault: defaults.vaultOptions.VaultFunc}

	return &cobra.Command{
		Use:   "list-templates",
		Short: "List the supported secret types",
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}
}
