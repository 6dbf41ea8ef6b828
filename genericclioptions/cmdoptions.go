package genericclioptions

import "context"

// BaseOptions defines the interface for shared setup and validation logic,
// reused by helper option structs (e.g. [StdioOptions], [VaultOptions])
// that don't run a command on their own.
type BaseOptions interface {
	Complete() error // Complete prepares the options for the command by setting required values.
	Validate() error // Validate checks that the options are valid before running the command.
}

// CmdOptions defines the interface for command options that require
// completion, validation, and execution. Run receives the cobra command's
// context so that store/session/backup calls can be cancelled consistently
// with the rest of the core.
type CmdOptions interface {
	BaseOptions

	Run(ctx context.Context, args ...string) error // Run executes the main logic of the command.
}

// ExecuteCommand executes the provided command options by first completing,
// then validating, and finally running the command.
func ExecuteCommand(ctx context.Context, cmd CmdOptions, args ...string) error {
	if err := cmd.Complete(); err != nil {
		return err
	}

	if err := cmd.Validate(); err != nil {
		return err
	}

	return cmd.Run(ctx, args...)
}
