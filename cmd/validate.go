package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/invoiceguard/invoiceguard/internal/engine"
	"github.com/invoiceguard/invoiceguard/internal/model"
	"github.com/invoiceguard/invoiceguard/internal/presentation"
)

var (
	validateMode    string
	validateReport  string
	validateSession string
)

var validateCmd = &cobra.Command{
	Use:   "validate <document.xml>",
	Short: "Validate one invoice and print the diagnosis envelope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		docPath := args[0]

		mode, err := presentation.ParseMode(validateMode)
		if err != nil {
			return err
		}

		env := initEnrichment(ctx)

		docBytes, err := os.ReadFile(docPath)
		if err != nil {
			return eris.Wrapf(err, "read document %s", docPath)
		}

		raw, err := collectFindings(cmd, env, docPath)
		if err != nil {
			return err
		}

		session := validateSession
		if session == "" {
			session = uuid.NewString()
		}
		zap.L().Info("validating document",
			zap.String("document", docPath),
			zap.String("session", session),
			zap.Int("raw_findings", len(raw)),
		)

		envelope, err := env.diagnose(ctx, session, raw, docBytes, mode)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(envelope)
	},
}

// collectFindings parses a pre-existing report when one was supplied and runs
// the engine otherwise.
func collectFindings(cmd *cobra.Command, env *appEnv, docPath string) ([]model.RawFinding, error) {
	if validateReport == "" {
		return env.Runner.Validate(cmd.Context(), docPath)
	}

	f, err := os.Open(validateReport)
	if err != nil {
		return nil, eris.Wrapf(err, "open report %s", validateReport)
	}
	defer f.Close()

	raw, err := engine.ParseReport(f)
	if err != nil {
		return nil, eris.Wrapf(err, "parse report %s", validateReport)
	}
	return raw, nil
}

func init() {
	validateCmd.Flags().StringVar(&validateMode, "mode", "balanced", "presentation tier: short, balanced, or detailed")
	validateCmd.Flags().StringVar(&validateReport, "report", "", "use an existing validator report instead of running the engine")
	validateCmd.Flags().StringVar(&validateSession, "session", "", "session id for log correlation (default random)")
	rootCmd.AddCommand(validateCmd)
}
