package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/hxhippy/pwgen/backup"
	"github.com/hxhippy/pwgen/clierror"
	"github.com/hxhippy/pwgen/genericclioptions"
	"github.com/hxhippy/pwgen/input"
	"github.com/hxhippy/pwgen/vault"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// --- backup ---

type BackupOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault

	output      string
	incremental bool
	since       string
}

var _ genericclioptions.CmdOptions = &BackupOptions{}

func (*BackupOptions) Complete() error { return nil }

func (o *BackupOptions) Validate() error {
	if len(o.output) == 0 {
		return fmt.Errorf("backup: --output is required")
	}

	if !o.incremental && len(o.since) > 0 {
		return fmt.Errorf("backup: --since requires --incremental")
	}

	return nil
}

func (o *BackupOptions) Run(ctx context.Context, _ ...string) error {
	if err := promptUnlock(ctx, o.StdioOptions, o.vault()); err != nil {
		return err
	}

	password, err := input.PromptNewPassword(o.Out, int(o.In.Fd()), masterPasswordMinLen)
	if err != nil {
		return err
	}

	mode := vault.BackupMode{Incremental: o.incremental}

	if len(o.since) > 0 {
		since, err := time.Parse(time.RFC3339, o.since)
		if err != nil {
			return fmt.Errorf("backup: invalid --since value: %w", err)
		}

		mode.Since = &since
	}

	meta, err := o.vault().Backup(ctx, o.output, password, mode)
	if err != nil {
		return err
	}

	o.Infof("backup written to %s (id=%s, entries=%d, size=%s)\n",
		o.output, meta.ID, meta.EntryCount, humanize.Bytes(uint64(meta.FileSize)))

	return nil
}

func NewCmdBackup(defaults *RootOptions) *cobra.Command {
	o := &BackupOptions{StdioOptions: defaults.StdioOptions, vault: defaults.vaultOptions.VaultFunc}

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a password-protected backup artifact",
		Long:  `Snapshot the vault (or, with --incremental, only records touched since a point in time) into a self-contained backup artifact.`,
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVar(&o.output, "output", "", "destination path for the backup artifact (required)")
	cmd.Flags().BoolVar(&o.incremental, "incremental", false, "only include records touched since --since")
	cmd.Flags().StringVar(&o.since, "since", "", "RFC3339 timestamp; requires --incremental")

	return cmd
}

// --- restore ---

type RestoreOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault

	backupFile         string
	conflictResolution string
}

var _ genericclioptions.CmdOptions = &RestoreOptions{}

func (*RestoreOptions) Complete() error { return nil }

func (o *RestoreOptions) Validate() error {
	if len(o.backupFile) == 0 {
		return fmt.Errorf("restore: --backup-file is required")
	}

	switch backup.ConflictPolicy(o.conflictResolution) {
	case backup.PolicyMerge, backup.PolicyOverwrite, backup.PolicySkip:
	default:
		return fmt.Errorf("restore: --conflict-resolution must be one of merge, overwrite, skip")
	}

	return nil
}

func (o *RestoreOptions) Run(ctx context.Context, _ ...string) error {
	if err := promptUnlock(ctx, o.StdioOptions, o.vault()); err != nil {
		return err
	}

	password, err := input.PromptReadSecure(o.Out, int(o.In.Fd()), "Backup password: ")
	if err != nil {
		return err
	}

	summary, err := o.vault().Restore(ctx, o.backupFile, password, backup.ConflictPolicy(o.conflictResolution))
	if err != nil {
		return err
	}

	o.Infof("restored=%d skipped=%d failed=%d\n", summary.Restored, summary.Skipped, len(summary.Failed))

	for _, f := range summary.Failed {
		o.Infof("restore: record %q failed: %v\n", f.ID, f.Err)
	}

	return nil
}

func NewCmdRestore(defaults *RootOptions) *cobra.Command {
	o := &RestoreOptions{StdioOptions: defaults.StdioOptions, vault: defaults.vaultOptions.VaultFunc}

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Reconcile a backup artifact into the vault",
		Long:  `Restore merges (or overwrites, or skips) the records in a backup artifact into the live vault. Per-record failures are reported but never abort the whole restore.`,
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVar(&o.backupFile, "backup-file", "", "path to the backup artifact (required)")
	cmd.Flags().StringVar(&o.conflictResolution, "conflict-resolution", string(backup.PolicyMerge), "one of merge, overwrite, skip")

	return cmd
}

// --- verify-backup ---

type VerifyBackupOptions struct {
	*genericclioptions.StdioOptions

	vault func() *vault.Vault

	path string
}

var _ genericclioptions.CmdOptions = &VerifyBackupOptions{}

func (*VerifyBackupOptions) Complete() error { return nil }

func (o *VerifyBackupOptions) Validate() error {
	if len(o.path) == 0 {
		return fmt.Errorf("verify-backup: a backup path argument is required")
	}

	return nil
}

func (o *VerifyBackupOptions) Run(ctx context.Context, args ...string) error {
	if len(args) > 0 {
		o.path = args[0]
	}

	meta, err := o.vault().VerifyBackup(o.path)
	if err != nil {
		return err
	}

	o.Printf("id:             %s\n", meta.ID)
	o.Printf("created_at:     %s (%s)\n", meta.CreatedAt.Format(time.RFC3339), humanize.Time(meta.CreatedAt))
	o.Printf("vault_id:       %s\n", meta.VaultID)
	o.Printf("entry_count:    %d\n", meta.EntryCount)
	o.Printf("file_size:      %s\n", humanize.Bytes(uint64(meta.FileSize)))
	o.Printf("format_version: %d\n", meta.FormatVersion)
	o.Printf("checksum:       %s\n", meta.Checksum)

	return nil
}

func NewCmdVerifyBackup(defaults *RootOptions) *cobra.Command {
	o := &VerifyBackupOptions{StdioOptions: defaults.StdioOptions, vault: defaults.vaultOptions.VaultFunc}

	cmd := &cobra.Command{
		Use:   "verify-backup PATH",
		Short: "Check a backup artifact's structural integrity",
		Long:  `Verify checks a backup artifact's checksum and format version without decrypting it, and requires no unlocked vault.`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			o.path = args[0]
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}

	return cmd
}
