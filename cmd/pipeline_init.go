package main

import (
	"context"
	"time"

	"github.com/invoiceguard/invoiceguard/internal/diagnostics"
	"github.com/invoiceguard/invoiceguard/internal/engine"
	"github.com/invoiceguard/invoiceguard/internal/model"
	"github.com/invoiceguard/invoiceguard/internal/presentation"
	"github.com/invoiceguard/invoiceguard/internal/suppression"
)

// appEnv bundles the long-lived pipeline components shared by commands.
type appEnv struct {
	Filter   *suppression.Filter
	Pipeline *diagnostics.Pipeline
	Runner   *engine.Runner
}

func initEnrichment(ctx context.Context) *appEnv {
	filter := suppression.NewFilter(ctx, cfg.Suppression.Path)
	return &appEnv{
		Filter:   filter,
		Pipeline: diagnostics.New(filter),
		Runner: engine.NewRunner(
			cfg.Engine.JavaBin,
			cfg.Engine.JarPath,
			cfg.Engine.Scenarios,
			cfg.Engine.Repository,
			time.Duration(cfg.Engine.TimeoutSecs)*time.Second,
		),
	}
}

func (e *appEnv) meta(session string) model.Meta {
	return model.Meta{
		Engine:   cfg.Meta.Engine,
		RulesTag: cfg.Meta.RulesTag,
		Commit:   cfg.Meta.Commit,
		Session:  session,
	}
}

// diagnose runs one document's findings through enrichment and projects the
// result for the requested tier. A fatal parse failure still yields a
// presentable envelope; it is never an error at this layer.
func (e *appEnv) diagnose(ctx context.Context, session string, raw []model.RawFinding, docBytes []byte, mode presentation.Mode) (*model.Envelope, error) {
	result := e.Pipeline.Run(ctx, session, raw, docBytes)

	resp := &model.Response{
		Status:  result.Status(),
		Meta:    e.meta(session),
		Errors:  result.Errors,
		Grouped: result.Grouped,
	}
	if result.Fatal != nil {
		resp.Errors = []model.DiagnosticError{*result.Fatal}
		resp.Grouped = resp.Errors
	}

	return presentation.Project(mode, resp)
}
