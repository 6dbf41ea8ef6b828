package cli_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hxhippy/pwgen/cli"
	"github.com/hxhippy/pwgen/clierror"
	"github.com/hxhippy/pwgen/genericclioptions"
	"github.com/hxhippy/pwgen/input"
)

const mockedMasterPassword = "mocked_master_password_input" //nolint:gosec

// newTTYFileInfo reports a character-device stdin, the shape commands
// check before deciding whether to prompt interactively.
func newTTYFileInfo(name string, size int) os.FileInfo {
	return genericclioptions.NewMockFileInfo(name, int64(size), os.ModeCharDevice, false, time.Now())
}

func newNonTTYFileInfo(name string, size int) os.FileInfo {
	return genericclioptions.NewMockFileInfo(name, int64(size), 0, false, time.Now())
}

// setupIOStreams creates IOStreams with a mocked stdin, and points
// clierror at the returned error buffer instead of os.Stderr/os.Exit so a
// failing command surfaces as a Go test failure instead of killing the
// test binary.
func setupIOStreams(t *testing.T, stdinData []byte, stdinFileInfoFn func(string, int) os.FileInfo) (ioStreams *genericclioptions.IOStreams, out, errOut *bytes.Buffer) {
	t.Helper()

	buf := bytes.NewBuffer(stdinData)
	stdinInfo := stdinFileInfoFn("stdin", len(stdinData))
	stdinReader := genericclioptions.NewTestFdReader(buf, 0, stdinInfo)

	ioStreams, _, out, errOut = genericclioptions.NewTestIOStreams(stdinReader)
	// NewCmdRoot's --verbose flag resets Verbose to its default (false), so
	// StdioOptions.Complete still swaps ErrOut for io.Discard; clierror output
	// reaches errOut through the SetErrWriter call below regardless.
	ioStreams.Verbose = true

	clierror.SetErrorHandler(clierror.PrintErrHandler)
	clierror.SetErrWriter(ioStreams.ErrOut)

	t.Cleanup(func() {
		clierror.ResetErrorHandler()
		clierror.ResetErrWriter()
	})

	return ioStreams, out, errOut
}

// withMockedPassword makes every password prompt in the test return
// password, and restores the real terminal read on cleanup.
func withMockedPassword(t *testing.T, password string) {
	t.Helper()

	input.SetDefaultReadPassword(func(_ int) ([]byte, error) {
		return []byte(password), nil
	})

	t.Cleanup(input.ResetDefaultReadPassword)
}

// testVault returns an unused vault database path under a fresh temp dir.
func testVault(t *testing.T) string {
	t.Helper()

	return filepath.Join(t.TempDir(), "vault.db")
}

// recordHandledError replaces the clierror handler installed by
// setupIOStreams with one that still prints the message but also keeps the
// first failure, since commands report errors through clierror.Check rather
// than returning them from cmd.Execute.
func recordHandledError() *error {
	var handled error

	clierror.SetErrorHandler(func(msg string, code int) {
		clierror.PrintErrHandler(msg, code)

		if handled == nil {
			handled = fmt.Errorf("exit code %d: %s", code, msg)
		}
	})

	return &handled
}

// run executes the pwgen command tree built from args against a fresh,
// TTY-backed, mocked-password IOStreams and returns the captured stdout,
// stderr, and any error from cmd.Execute or reported through clierror.Check.
func run(t *testing.T, args ...string) (out, errOut string, err error) {
	t.Helper()

	ioStreams, outBuf, errBuf := setupIOStreams(t, nil, newTTYFileInfo)
	handled := recordHandledError()

	cmd := cli.NewCmdRoot(ioStreams, args)
	err = cmd.Execute()

	if err == nil {
		err = *handled
	}

	return outBuf.String(), errBuf.String(), err
}

// runPiped is like run, but reports stdin as piped/redirected rather than
// a TTY, exercising [genericclioptions.StdioOptions.Complete]'s
// auto-non-interactive detection.
func runPiped(t *testing.T, stdinData []byte, args ...string) (out, errOut string, err error) {
	t.Helper()

	ioStreams, outBuf, errBuf := setupIOStreams(t, stdinData, newNonTTYFileInfo)
	handled := recordHandledError()

	cmd := cli.NewCmdRoot(ioStreams, args)
	err = cmd.Execute()

	if err == nil {
		err = *handled
	}

	return outBuf.String(), errBuf.String(), err
}

// mustInit initializes a new vault at vaultPath with mockedMasterPassword,
// failing the test immediately if init itself fails.
func mustInit(t *testing.T, vaultPath string) {
	t.Helper()

	withMockedPassword(t, mockedMasterPassword)

	out, errOut, err := run(t, "init", "--file", vaultPath)
	if err != nil {
		t.Fatalf("init: %v\nstdout: %s\nstderr: %s", err, out, errOut)
	}
}
