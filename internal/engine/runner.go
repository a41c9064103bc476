// Package engine runs the external Java validation engine and parses its
// reports into raw findings.
package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/invoiceguard/invoiceguard/internal/model"
)

// Synthetic rule ids emitted when the engine ran but produced no usable
// report. They travel the same enrichment path as real findings.
const (
	ReportMissingID   = "REPORT_MISSING"
	MalformedReportID = "MALFORMED_REPORT"
)

const stderrSnippetLimit = 300

// Runner invokes the validation engine as a subprocess. One output directory
// is created per run, so a Runner is safe for concurrent use.
type Runner struct {
	javaBin    string
	jarPath    string
	scenarios  string
	repository string
	timeout    time.Duration
}

// NewRunner creates a Runner. If javaBin is empty, "java" is used.
func NewRunner(javaBin, jarPath, scenarios, repository string, timeout time.Duration) *Runner {
	if javaBin == "" {
		javaBin = "java"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Runner{
		javaBin:    javaBin,
		jarPath:    jarPath,
		scenarios:  scenarios,
		repository: repository,
		timeout:    timeout,
	}
}

// Validate runs the engine against one document and returns the parsed
// findings. A non-zero exit with a readable report is the normal rejection
// path, not an error. A missing or unreadable report yields a single
// synthetic fatal finding instead of aborting, so callers always get a
// response they can present.
func (r *Runner) Validate(ctx context.Context, docPath string) ([]model.RawFinding, error) {
	outDir, err := os.MkdirTemp("", "invoiceguard-report-*")
	if err != nil {
		return nil, eris.Wrap(err, "engine: create report dir")
	}
	defer os.RemoveAll(outDir)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := []string{"-jar", r.jarPath, "-s", r.scenarios}
	if r.repository != "" {
		args = append(args, "-r", r.repository)
	}
	args = append(args, "-o", outDir, docPath)

	cmd := exec.CommandContext(ctx, r.javaBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	zap.L().Debug("engine run finished",
		zap.String("document", docPath),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("exit_ok", runErr == nil),
	)

	if runErr != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrapf(ctx.Err(), "engine: validation of %s timed out", docPath)
		}
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, eris.Wrapf(runErr, "engine: start %s", r.javaBin)
		}
		// Rejected documents exit non-zero; the report decides what happened.
	}

	reportPath, ok := FindReport(outDir, docPath)
	if !ok {
		zap.L().Warn("engine produced no report",
			zap.String("document", docPath),
			zap.String("stderr", snippet(stderr.String())),
		)
		return []model.RawFinding{model.NewRawFinding(
			ReportMissingID,
			"The validation engine finished without writing a report: "+snippet(stderr.String()),
			"",
			model.SeverityFatal,
		)}, nil
	}

	f, err := os.Open(reportPath)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: open report %s", reportPath)
	}
	defer f.Close()

	findings, err := ParseReport(f)
	if err != nil {
		zap.L().Warn("engine report unreadable",
			zap.String("report", reportPath),
			zap.Error(err),
		)
		return []model.RawFinding{model.NewRawFinding(
			MalformedReportID,
			"The validation report could not be parsed: "+err.Error(),
			"",
			model.SeverityFatal,
		)}, nil
	}
	return findings, nil
}

// FindReport locates the report file the engine wrote for a document,
// preferring the exact <name>-report.xml the engine derives from the input
// name and falling back to any report in the directory.
func FindReport(dir, docPath string) (string, bool) {
	base := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	exact := filepath.Join(dir, base+"-report.xml")
	if _, err := os.Stat(exact); err == nil {
		return exact, true
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*-report.xml"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrSnippetLimit {
		s = s[:stderrSnippetLimit]
	}
	return s
}
