package cli_test

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestInitRejectsExistingVault(t *testing.T) {
	vaultPath := testVault(t)

	mustInit(t, vaultPath)
	withMockedPassword(t, mockedMasterPassword)

	_, errOut, err := run(t, "init", "--file", vaultPath)
	if err == nil {
		t.Fatalf("init over an existing vault: want error, got none (stderr: %s)", errOut)
	}
}

func TestAddAndGetEntry(t *testing.T) {
	vaultPath := testVault(t)
	mustInit(t, vaultPath)

	withMockedPassword(t, mockedMasterPassword)

	out, errOut, err := run(t, "add", "--file", vaultPath,
		"--site", "example.com", "--username", "alice", "--password", "hunter2", "--tag", "personal")
	if err != nil {
		t.Fatalf("add: %v\nstderr: %s", err, errOut)
	}

	if !strings.Contains(out, `entry "example.com" added`) {
		t.Fatalf("add output = %q, want it to confirm the new entry", out)
	}

	withMockedPassword(t, mockedMasterPassword)

	out, errOut, err = run(t, "get", "--file", vaultPath,
		"--site", "example.com", "--username", "alice", "--show")
	if err != nil {
		t.Fatalf("get: %v\nstderr: %s", err, errOut)
	}

	for _, want := range []string{"site:     example.com", "username: alice", "password: hunter2"} {
		if !strings.Contains(out, want) {
			t.Errorf("get output = %q, want it to contain %q", out, want)
		}
	}
}

func TestGetMissingEntryFails(t *testing.T) {
	vaultPath := testVault(t)
	mustInit(t, vaultPath)

	withMockedPassword(t, mockedMasterPassword)

	_, errOut, err := run(t, "get", "--file", vaultPath, "--id", "does-not-exist")
	if err == nil {
		t.Fatalf("get on a missing entry: want error, got none (stderr: %s)", errOut)
	}
}

func TestListEntriesFiltersByTag(t *testing.T) {
	vaultPath := testVault(t)
	mustInit(t, vaultPath)

	withMockedPassword(t, mockedMasterPassword)
	if _, errOut, err := run(t, "add", "--file", vaultPath,
		"--site", "work.example.com", "--username", "bob", "--password", "p4ssw0rd", "--tag", "work"); err != nil {
		t.Fatalf("add work entry: %v\nstderr: %s", err, errOut)
	}

	withMockedPassword(t, mockedMasterPassword)
	if _, errOut, err := run(t, "add", "--file", vaultPath,
		"--site", "personal.example.com", "--username", "bob", "--password", "p4ssw0rd", "--tag", "personal"); err != nil {
		t.Fatalf("add personal entry: %v\nstderr: %s", err, errOut)
	}

	withMockedPassword(t, mockedMasterPassword)
	out, errOut, err := run(t, "list", "--file", vaultPath, "--tag", "work")
	if err != nil {
		t.Fatalf("list: %v\nstderr: %s", err, errOut)
	}

	if !strings.Contains(out, "work.example.com") {
		t.Errorf("list --tag work output = %q, want it to contain work.example.com", out)
	}

	if strings.Contains(out, "personal.example.com") {
		t.Errorf("list --tag work output = %q, want it to NOT contain personal.example.com", out)
	}
}

func TestUpdateEntryFavoriteTriState(t *testing.T) {
	vaultPath := testVault(t)
	mustInit(t, vaultPath)

	withMockedPassword(t, mockedMasterPassword)
	if _, errOut, err := run(t, "add", "--file", vaultPath,
		"--site", "fave.example.com", "--username", "carol", "--password", "hunter2", "--favorite"); err != nil {
		t.Fatalf("add: %v\nstderr: %s", err, errOut)
	}

	// Updating notes without touching --favorite must leave it set.
	withMockedPassword(t, mockedMasterPassword)
	if _, errOut, err := run(t, "update", "--file", vaultPath,
		"--site", "fave.example.com", "--username", "carol", "--notes", "updated"); err != nil {
		t.Fatalf("update: %v\nstderr: %s", err, errOut)
	}

	withMockedPassword(t, mockedMasterPassword)
	out, errOut, err := run(t, "list", "--file", vaultPath, "--favorite-only")
	if err != nil {
		t.Fatalf("list --favorite-only: %v\nstderr: %s", err, errOut)
	}

	if !strings.Contains(out, "fave.example.com") {
		t.Fatalf("list --favorite-only output = %q, want the favorite untouched by an unrelated update", out)
	}
}

func TestDeleteEntryWithForce(t *testing.T) {
	vaultPath := testVault(t)
	mustInit(t, vaultPath)

	withMockedPassword(t, mockedMasterPassword)
	if _, errOut, err := run(t, "add", "--file", vaultPath,
		"--site", "gone.example.com", "--username", "dave", "--password", "hunter2"); err != nil {
		t.Fatalf("add: %v\nstderr: %s", err, errOut)
	}

	withMockedPassword(t, mockedMasterPassword)
	if _, errOut, err := run(t, "delete", "--file", vaultPath,
		"--site", "gone.example.com", "--username", "dave", "--force"); err != nil {
		t.Fatalf("delete --force: %v\nstderr: %s", err, errOut)
	}

	withMockedPassword(t, mockedMasterPassword)
	if _, errOut, err := run(t, "get", "--file", vaultPath,
		"--site", "gone.example.com", "--username", "dave"); err == nil {
		t.Fatalf("get after delete: want error, got none (stderr: %s)", errOut)
	}
}

func TestGenerateRandomPasswordLength(t *testing.T) {
	out, errOut, err := run(t, "generate", "--length", "32", "--no-symbols")
	if err != nil {
		t.Fatalf("generate: %v\nstderr: %s", err, errOut)
	}

	pw := strings.TrimSpace(out)
	if len(pw) != 32 {
		t.Errorf("generate --length 32 produced %d characters: %q", len(pw), pw)
	}

	if strings.ContainsAny(pw, "!@#$%^&*()-_=+[]{};:,.<>/?") {
		t.Errorf("generate --no-symbols output %q contains symbol characters", pw)
	}
}

func TestGeneratePassphrase(t *testing.T) {
	out, errOut, err := run(t, "generate", "--passphrase", "--words", "5", "--separator", "-")
	if err != nil {
		t.Fatalf("generate --passphrase: %v\nstderr: %s", err, errOut)
	}

	words := strings.Split(strings.TrimSpace(out), "-")
	if len(words) != 5 {
		t.Errorf("generate --passphrase --words 5 produced %d words: %q", len(words), out)
	}
}

func TestGenerateNeverOpensVault(t *testing.T) {
	// A bogus --file must not matter: generate draws only from the CSPRNG.
	out, errOut, err := run(t, "generate", "--file", filepath.Join(t.TempDir(), "does-not-exist.db"))
	if err != nil {
		t.Fatalf("generate: %v\nstderr: %s", err, errOut)
	}

	if len(strings.TrimSpace(out)) == 0 {
		t.Errorf("generate produced no output")
	}
}

func TestGenerateWithPipedStdin(t *testing.T) {
	out, errOut, err := runPiped(t, []byte("irrelevant\n"), "generate", "--length", "16")
	if err != nil {
		t.Fatalf("generate with piped stdin: %v\nstderr: %s", err, errOut)
	}

	if len(strings.TrimSpace(out)) != 16 {
		t.Errorf("generate --length 16 with piped stdin produced %q", out)
	}
}

func TestConfigGenerateOutputsDefaultTOML(t *testing.T) {
	out, errOut, err := run(t, "config", "generate")
	if err != nil {
		t.Fatalf("config generate: %v\nstderr: %s", err, errOut)
	}

	for _, want := range []string{"[vault]", "[clipboard]", "[generator]"} {
		if !strings.Contains(out, want) {
			t.Errorf("config generate output = %q, want it to contain %q", out, want)
		}
	}
}

func TestAddGetUpdateDeleteSecret(t *testing.T) {
	vaultPath := testVault(t)
	mustInit(t, vaultPath)

	withMockedPassword(t, mockedMasterPassword)
	out, errOut, err := run(t, "add-secret", "--file", vaultPath,
		"--name", "prod-db", "--type", "database_connection",
		"--data", "engine=postgres", "--data", "connection_string=postgres://db", "--data", "ssl=true")
	if err != nil {
		t.Fatalf("add-secret: %v\nstderr: %s", err, errOut)
	}

	if !strings.Contains(out, `secret "prod-db" added`) {
		t.Fatalf("add-secret output = %q, want it to confirm the new secret", out)
	}

	withMockedPassword(t, mockedMasterPassword)
	out, errOut, err = run(t, "list-secrets", "--file", vaultPath, "--type", "database_connection")
	if err != nil {
		t.Fatalf("list-secrets: %v\nstderr: %s", err, errOut)
	}

	if !strings.Contains(out, "prod-db") {
		t.Fatalf("list-secrets output = %q, want it to list prod-db", out)
	}

	id := secretIDFromTable(t, out, "prod-db")

	withMockedPassword(t, mockedMasterPassword)
	out, errOut, err = run(t, "get-secret", "--file", vaultPath, "--id", id, "--show")
	if err != nil {
		t.Fatalf("get-secret: %v\nstderr: %s", err, errOut)
	}

	if !strings.Contains(out, "postgres://db") {
		t.Fatalf("get-secret output = %q, want it to contain the connection string", out)
	}

	withMockedPassword(t, mockedMasterPassword)
	if _, errOut, err := run(t, "update-secret", "--file", vaultPath, "--id", id,
		"--data", "connection_string=postgres://new-db"); err != nil {
		t.Fatalf("update-secret: %v\nstderr: %s", err, errOut)
	}

	withMockedPassword(t, mockedMasterPassword)
	out, errOut, err = run(t, "get-secret", "--file", vaultPath, "--id", id, "--show")
	if err != nil {
		t.Fatalf("get-secret after update: %v\nstderr: %s", err, errOut)
	}

	if !strings.Contains(out, "postgres://new-db") {
		t.Fatalf("get-secret after update output = %q, want the new connection string", out)
	}

	withMockedPassword(t, mockedMasterPassword)
	if _, errOut, err := run(t, "delete-secret", "--file", vaultPath, "--id", id, "--force"); err != nil {
		t.Fatalf("delete-secret: %v\nstderr: %s", err, errOut)
	}

	withMockedPassword(t, mockedMasterPassword)
	if _, errOut, err := run(t, "get-secret", "--file", vaultPath, "--id", id); err == nil {
		t.Fatalf("get-secret after delete: want error, got none (stderr: %s)", errOut)
	}
}

func TestExpiringSecretsAndStats(t *testing.T) {
	vaultPath := testVault(t)
	mustInit(t, vaultPath)

	withMockedPassword(t, mockedMasterPassword)
	if _, errOut, err := run(t, "add-secret", "--file", vaultPath,
		"--name", "rotating-key", "--type", "api_key", "--data", "key=abc123", "--expires-in-days", "3"); err != nil {
		t.Fatalf("add-secret: %v\nstderr: %s", err, errOut)
	}

	withMockedPassword(t, mockedMasterPassword)
	if _, errOut, err := run(t, "add-secret", "--file", vaultPath,
		"--name", "stable-key", "--type", "api_key", "--data", "key=def456"); err != nil {
		t.Fatalf("add-secret: %v\nstderr: %s", err, errOut)
	}

	withMockedPassword(t, mockedMasterPassword)
	out, errOut, err := run(t, "expiring-secrets", "--file", vaultPath, "--within-days", "7")
	if err != nil {
		t.Fatalf("expiring-secrets: %v\nstderr: %s", err, errOut)
	}

	if !strings.Contains(out, "rotating-key") {
		t.Errorf("expiring-secrets output = %q, want it to list rotating-key", out)
	}

	if strings.Contains(out, "stable-key") {
		t.Errorf("expiring-secrets output = %q, want it to NOT list stable-key", out)
	}

	withMockedPassword(t, mockedMasterPassword)
	out, errOut, err = run(t, "secrets-stats", "--file", vaultPath)
	if err != nil {
		t.Fatalf("secrets-stats: %v\nstderr: %s", err, errOut)
	}

	if !strings.Contains(out, "total:       2") {
		t.Errorf("secrets-stats output = %q, want total: 2", out)
	}
}

func TestListTemplatesListsBuiltinTypes(t *testing.T) {
	vaultPath := testVault(t)
	mustInit(t, vaultPath)

	out, errOut, err := run(t, "list-templates", "--file", vaultPath)
	if err != nil {
		t.Fatalf("list-templates: %v\nstderr: %s", err, errOut)
	}

	for _, want := range []string{"password", "api_key", "database_connection"} {
		if !strings.Contains(out, want) {
			t.Errorf("list-templates output = %q, want it to contain %q", out, want)
		}
	}
}

func TestBackupRestoreVerify(t *testing.T) {
	vaultPath := testVault(t)
	mustInit(t, vaultPath)

	withMockedPassword(t, mockedMasterPassword)
	if _, errOut, err := run(t, "add", "--file", vaultPath,
		"--site", "backed-up.example.com", "--username", "erin", "--password", "hunter2"); err != nil {
		t.Fatalf("add: %v\nstderr: %s", err, errOut)
	}

	backupPath := filepath.Join(t.TempDir(), "vault.bak")

	// The mocked password reader answers every prompt the same way,
	// including the unlock prompt and the new backup password prompt.
	withMockedPassword(t, mockedMasterPassword)
	out, errOut, err := run(t, "backup", "--file", vaultPath, "--output", backupPath)
	if err != nil {
		t.Fatalf("backup: %v\nstderr: %s", err, errOut)
	}

	if !strings.Contains(out, "backup written to "+backupPath) {
		t.Fatalf("backup output = %q, want it to confirm the artifact path", out)
	}

	out, errOut, err = run(t, "verify-backup", "--file", vaultPath, backupPath)
	if err != nil {
		t.Fatalf("verify-backup: %v\nstderr: %s", err, errOut)
	}

	if !strings.Contains(out, "entry_count:    1") {
		t.Errorf("verify-backup output = %q, want entry_count: 1", out)
	}

	restoreVaultPath := testVault(t)
	mustInit(t, restoreVaultPath)

	withMockedPassword(t, mockedMasterPassword)
	out, errOut, err = run(t, "restore", "--file", restoreVaultPath,
		"--backup-file", backupPath, "--conflict-resolution", "merge")
	if err != nil {
		t.Fatalf("restore: %v\nstderr: %s", err, errOut)
	}

	if !strings.Contains(out, "restored=1 skipped=0 failed=0") {
		t.Fatalf("restore output = %q, want a clean restore summary", out)
	}

	withMockedPassword(t, mockedMasterPassword)
	out, errOut, err = run(t, "get", "--file", restoreVaultPath,
		"--site", "backed-up.example.com", "--username", "erin", "--show")
	if err != nil {
		t.Fatalf("get after restore: %v\nstderr: %s", err, errOut)
	}

	if !strings.Contains(out, "password: hunter2") {
		t.Fatalf("get after restore output = %q, want the restored password", out)
	}
}

// secretIDFromTable extracts the ID column of the row whose NAME column
// equals name from a tabwriter-formatted list-secrets table.
func secretIDFromTable(t *testing.T, table, name string) string {
	t.Helper()

	for _, line := range strings.Split(table, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == name {
			return fields[0]
		}
	}

	t.Fatalf("no row for secret %q in table:\n%s", name, table)

	return ""
}
