package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/hxhippy/pwgen/clierror"
	"github.com/hxhippy/pwgen/genericclioptions"
	"github.com/hxhippy/pwgen/vault"

	"github.com/spf13/cobra"
)

// --- expiring-secrets ---

type ExpiringSecretsOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault

	withinDays int
}

var _ genericclioptions.CmdOptions = &ExpiringSecretsOptions{}

func (*ExpiringSecretsOptions) Complete() error { return nil }

func (o *ExpiringSecretsOptions) Validate() error {
	if o.withinDays <= 0 {
		return fmt.Errorf("expiring-secrets: --within-days must be positive")
	}

	return nil
}

func (o *ExpiringSecretsOptions) Run(ctx context.Context, _ ...string) error {
	if err := promptUnlock(ctx, o.StdioOptions, o.vault()); err != nil {
		return err
	}

	secrets, err := o.vault().ExpiringSecrets(ctx, time.Duration(o.withinDays)*24*time.Hour)
	if err != nil {
		return err
	}

	printSecretTable(o.Out, secrets)

	return nil
}

func NewCmdExpiringSecrets(defaults *RootOptions) *cobra.Command {
	o := &ExpiringSecretsOptions{StdioOptions: defaults.StdioOptions, vault: defaults.vaultOptions.VaultFunc}

	cmd := &cobra.Command{
		Use:   "expiring-secrets",
		Short: "List secrets expiring within a window",
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().IntVar(&o.withinDays, "within-days", 7, "report secrets expiring within this many days")

	return cmd
}

// --- secrets-stats ---

type SecretsStatsOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault
}

var _ genericclioptions.CmdOptions = &SecretsStatsOptions{}

func (*SecretsStatsOptions) Complete() error { return nil }

func (*SecretsStatsOptions) Validate() error { return nil }

func (o *SecretsStatsOptions) Run(ctx context.Context, _ ...string) error {
	if err := promptUnlock(ctx, o.StdioOptions, o.vault()); err != nil {
		return err
	}

	stats, err := o.vault().SecretsStats(ctx)
	if err != nil {
		return err
	}

	o.Printf("total:       %d\n", stats.Total)
	o.Printf("favorites:   %d\n", stats.Favorites)
	o.Printf("expiring 7d: %d\n", stats.Expiring7d)
	o.Printf("by type:\n")

	for _, t := range o.vault().GetSecretTypes() {
		if n, ok := stats.ByType[t]; ok {
			o.Printf("  %-24s %d\n", t, n)
		}
	}

	return nil
}

func NewCmdSecretsStats(defaults *RootOptions) *cobra.Command {
	o := &SecretsStatsOptions{StdioOptions: defaults.StdioOptions, vault: defaults.vaultOptions.VaultFunc}

	return &cobra.Command{
		Use:   "secrets-stats",
		Short: "Show aggregate statistics over stored secrets",
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}
}
