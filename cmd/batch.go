package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/invoiceguard/invoiceguard/internal/presentation"
)

var (
	batchMode   string
	batchOutDir string
	batchLimit  int
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Validate every XML document in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dir := args[0]

		mode, err := presentation.ParseMode(batchMode)
		if err != nil {
			return err
		}

		docs, err := filepath.Glob(filepath.Join(dir, "*.xml"))
		if err != nil {
			return eris.Wrapf(err, "list documents in %s", dir)
		}
		if len(docs) == 0 {
			zap.L().Info("no documents found", zap.String("dir", dir))
			return nil
		}
		if batchLimit > 0 && len(docs) > batchLimit {
			docs = docs[:batchLimit]
		}

		outDir := batchOutDir
		if outDir == "" {
			outDir = dir
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrapf(err, "create output dir %s", outDir)
		}

		env := initEnrichment(ctx)

		zap.L().Info("processing batch",
			zap.Int("documents", len(docs)),
			zap.Int("concurrency", cfg.Batch.MaxConcurrentDocuments),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Batch.MaxConcurrentDocuments)

		var succeeded, failed atomic.Int64

		for _, docPath := range docs {
			docPath := docPath
			g.Go(func() error {
				log := zap.L().With(zap.String("document", docPath))

				if err := processDocument(gctx, env, docPath, outDir, mode); err != nil {
					failed.Add(1)
					log.Error("validation failed", zap.Error(err))
					return nil // don't abort batch on individual failure
				}

				succeeded.Add(1)
				log.Info("validation complete")
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "batch processing")
		}

		zap.L().Info("batch complete",
			zap.Int64("succeeded", succeeded.Load()),
			zap.Int64("failed", failed.Load()),
		)
		return nil
	},
}

// processDocument validates one document and writes its diagnosis envelope
// next to it as <name>.diagnosis.json.
func processDocument(ctx context.Context, env *appEnv, docPath, outDir string, mode presentation.Mode) error {
	docBytes, err := os.ReadFile(docPath)
	if err != nil {
		return eris.Wrapf(err, "read document %s", docPath)
	}

	raw, err := env.Runner.Validate(ctx, docPath)
	if err != nil {
		return err
	}

	envelope, err := env.diagnose(ctx, uuid.NewString(), raw, docBytes, mode)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode envelope")
	}
	data = append(data, '\n')

	base := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	outPath := filepath.Join(outDir, base+".diagnosis.json")
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", outPath)
	}
	return nil
}

func init() {
	batchCmd.Flags().StringVar(&batchMode, "mode", "balanced", "presentation tier: short, balanced, or detailed")
	batchCmd.Flags().StringVar(&batchOutDir, "out", "", "output directory (default alongside documents)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of documents to process (0 = all)")
	rootCmd.AddCommand(batchCmd)
}
