package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bodacc/internal/store"
	"github.com/derickschaefer/bodacc/internal/util"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save and replay exact command lines",
	Long: `Snapshots let you save a bodacc command and replay it later with the
same parameters. Snapshots are referenced by ID or by name.

  bodacc snapshot save --name "idf-weather" --cmd "weather --month 2024-06"
  bodacc snapshot list
  bodacc snapshot run idf-weather`,
}

// ─── snapshot save ────────────────────────────────────────────────────────────

var (
	snapshotSaveName string
	snapshotSaveCmd  string
)

var snapshotSaveCommand = &cobra.Command{
	Use:   "save",
	Short: "Save a command line as a named snapshot",
	Example: `  bodacc snapshot save --name "paris-2024" --cmd "stats --department 75 --from 2024-01-01 --to 2024-12-31"
  bodacc snapshot save --name "dupont" --cmd "search 'jean dupont' --limit 50"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		parts, err := splitCommandLine(snapshotSaveCmd)
		if err != nil {
			return err
		}
		if len(parts) == 0 {
			return fmt.Errorf("--cmd is empty")
		}
		if parts[0] == "bodacc" {
			return fmt.Errorf("--cmd should not include the binary name")
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		if _, ok, err := deps.Store.FindSnapshot(snapshotSaveName); err != nil {
			return fmt.Errorf("reading snapshots: %w", err)
		} else if ok {
			return fmt.Errorf("a snapshot named %q already exists", snapshotSaveName)
		}

		snap := store.NewSnapshot(snapshotSaveName, snapshotSaveCmd)
		if err := deps.Store.PutSnapshot(snap); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved snapshot %s  (%s)\n", snap.ID, snap.Name)
		return nil
	},
}

// ─── snapshot list ────────────────────────────────────────────────────────────

var snapshotListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List all saved snapshots",
	Example: `  bodacc snapshot list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		snaps, err := deps.Store.ListSnapshots()
		if err != nil {
			return fmt.Errorf("listing snapshots: %w", err)
		}
		if len(snaps) == 0 && deps.Config.Format == "table" {
			fmt.Fprintln(cmd.OutOrStdout(), "No snapshots saved.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: bodacc snapshot save --name <name> --cmd \"<command>\"")
			return nil
		}

		rows := make([][]string, len(snaps))
		for i, s := range snaps {
			rows[i] = []string{s.ID, s.Name, util.Truncate(s.CommandLine, 50), s.CreatedAt.Format("2006-01-02 15:04")}
		}
		res := tableResult("snapshot list", "", []string{"ID", "NAME", "COMMAND", "CREATED"}, rows)
		return emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, res)
	},
}

// ─── snapshot show ────────────────────────────────────────────────────────────

var snapshotShowCmd = &cobra.Command{
	Use:     "show <ID|NAME>",
	Short:   "Show full details of a snapshot",
	Example: `  bodacc snapshot show paris-2024`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		snap, ok, err := deps.Store.FindSnapshot(args[0])
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}
		if !ok {
			return fmt.Errorf("snapshot %q not found", args[0])
		}

		res := tableResult("snapshot show", "", []string{"FIELD", "VALUE"}, [][]string{
			{"ID", snap.ID},
			{"Name", snap.Name},
			{"Command", snap.CommandLine},
			{"Created", snap.CreatedAt.Format(time.RFC3339)},
		})
		return emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, res)
	},
}

// ─── snapshot run ─────────────────────────────────────────────────────────────

var snapshotRunCmd = &cobra.Command{
	Use:     "run <ID|NAME>",
	Short:   "Re-execute a saved snapshot",
	Example: `  bodacc snapshot run paris-2024`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}

		// The child process opens its own handle; bbolt allows one writer.
		snap, ok, err := deps.Store.FindSnapshot(args[0])
		deps.Close()
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}
		if !ok {
			return fmt.Errorf("snapshot %q not found", args[0])
		}

		parts, err := splitCommandLine(snap.CommandLine)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", snap.ID, err)
		}
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("finding executable: %w", err)
		}

		c := exec.CommandContext(cmd.Context(), self, parts...)
		c.Stdin = cmd.InOrStdin()
		c.Stdout = cmd.OutOrStdout()
		c.Stderr = cmd.ErrOrStderr()

		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "▶ bodacc %s\n\n", snap.CommandLine)
		}
		return c.Run()
	},
}

// ─── snapshot delete ──────────────────────────────────────────────────────────

var snapshotDeleteCmd = &cobra.Command{
	Use:     "delete <ID|NAME>",
	Short:   "Delete a saved snapshot",
	Example: `  bodacc snapshot delete 3f9a1c2e`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		snap, ok, err := deps.Store.FindSnapshot(args[0])
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}
		if !ok {
			return fmt.Errorf("snapshot %q not found", args[0])
		}
		if _, err := deps.Store.DeleteSnapshot(snap.ID); err != nil {
			return fmt.Errorf("deleting snapshot: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted snapshot %s  (%s)\n", snap.ID, snap.Name)
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotSaveCommand)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotRunCmd)
	snapshotCmd.AddCommand(snapshotDeleteCmd)

	snapshotSaveCommand.Flags().StringVar(&snapshotSaveName, "name", "", "human-readable name for the snapshot (required)")
	snapshotSaveCommand.Flags().StringVar(&snapshotSaveCmd, "cmd", "", "command line to save, without the binary name (required)")
	snapshotSaveCommand.MarkFlagRequired("name")
	snapshotSaveCommand.MarkFlagRequired("cmd")
}

// splitCommandLine splits s into arguments the way a POSIX shell would for
// plain words, single quotes, double quotes and backslash escapes. No
// expansion is performed.
func splitCommandLine(s string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\\':
			escaped, inWord = true, true
		case quote == '"':
			if r == '"' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote, inWord = r, true
		case unicode.IsSpace(r):
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote in %q", quote, s)
	}
	if escaped {
		return nil, fmt.Errorf("trailing backslash in %q", s)
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
