package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// isolateEnv points every path at a temp dir and clears credentials so
// commands run offline against the rule-based fallbacks.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for key, value := range map[string]string{
		"GEMINI_API_KEY":         "",
		"OPENAI_API_KEY":         "",
		"DATABASE_URL":           "",
		"IMAP_HOST":              "",
		"SMTP_HOST":              "",
		"DISCORD_TOKEN":          "",
		"LOG_LEVEL":              "error",
		"LOG_FORMAT":             "text",
		"CANDIDATE_PROFILE_PATH": filepath.Join("..", "..", "internal", "profile", "testdata", "candidate.json"),
		"APPROVAL_QUEUE_PATH":    filepath.Join(dir, "queue.json"),
		"SEEN_DB_PATH":           filepath.Join(dir, "seen.db"),
		"OUTBOX_DIR":             filepath.Join(dir, "outbox"),
	} {
		t.Setenv(key, value)
	}
	return dir
}

// resetFlags restores every flag to its default; rootCmd is package state
// shared across in-process runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs rootCmd in-process with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}
