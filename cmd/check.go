package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/invoiceguard/invoiceguard/internal/suppression"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the engine and suppression map are usable",
	Long:  "Resolves the Java binary, checks the validator jar and scenario configuration exist, and parses the dependency suppression map. Exits non-zero if any required piece is missing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var failed bool

		if path, err := exec.LookPath(cfg.Engine.JavaBin); err != nil {
			failed = true
			fmt.Fprintf(out, "FAIL java binary: %q not found\n", cfg.Engine.JavaBin)
		} else {
			fmt.Fprintf(out, "ok   java binary: %s\n", path)
		}

		failed = checkFile(out, "validator jar", cfg.Engine.JarPath) || failed
		failed = checkFile(out, "scenarios", cfg.Engine.Scenarios) || failed
		if cfg.Engine.Repository != "" {
			failed = checkFile(out, "repository", cfg.Engine.Repository) || failed
		}

		count, err := suppression.Validate(cfg.Suppression.Path)
		switch {
		case err == nil:
			fmt.Fprintf(out, "ok   suppression map: %d parent entries\n", count)
		case errors.Is(err, fs.ErrNotExist):
			// Absent is fine, the filter degrades to an empty map.
			fmt.Fprintf(out, "ok   suppression map: %s absent, no suppressions apply\n", cfg.Suppression.Path)
		default:
			failed = true
			fmt.Fprintf(out, "FAIL suppression map: %v\n", err)
		}

		if failed {
			return eris.New("check: environment not ready")
		}
		return nil
	},
}

func checkFile(out io.Writer, label, path string) bool {
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(out, "FAIL %s: %s\n", label, path)
		return true
	}
	fmt.Fprintf(out, "ok   %s: %s\n", label, path)
	return false
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
