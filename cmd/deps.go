package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/invoiceguard/invoiceguard/internal/suppression"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Inspect and edit the dependency suppression map",
}

var depsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the suppression map parses",
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := suppression.Validate(cfg.Suppression.Path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d parent entries\n", cfg.Suppression.Path, count)
		return nil
	},
}

var depsSetCmd = &cobra.Command{
	Use:   "set <parent> <child>...",
	Short: "Set the suppressed children for a parent rule",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, children := args[0], args[1:]

		rules, err := suppression.Read(cfg.Suppression.Path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return eris.Wrap(err, "load existing map")
			}
			rules = map[string][]string{}
		}
		rules[parent] = children

		if err := suppression.Write(cfg.Suppression.Path, rules); err != nil {
			return err
		}
		zap.L().Info("suppression map updated",
			zap.String("parent", parent),
			zap.Int("children", len(children)),
		)
		return nil
	},
}

var depsRemoveCmd = &cobra.Command{
	Use:   "rm <parent>",
	Short: "Remove a parent rule from the suppression map",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := suppression.Read(cfg.Suppression.Path)
		if err != nil {
			return eris.Wrap(err, "load existing map")
		}
		if _, ok := rules[args[0]]; !ok {
			return eris.Errorf("no entry for %q", args[0])
		}
		delete(rules, args[0])
		return suppression.Write(cfg.Suppression.Path, rules)
	},
}

func init() {
	depsCmd.AddCommand(depsValidateCmd)
	depsCmd.AddCommand(depsSetCmd)
	depsCmd.AddCommand(depsRemoveCmd)
	rootCmd.AddCommand(depsCmd)
}
