package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEngine writes a shell script standing in for the Java validator. The
// script locates the -o output directory and the document argument the same
// way the real engine does, then runs the given body.
func stubEngine(t *testing.T, body string) string {
	t.Helper()
	script := `#!/bin/sh
OUT=""
DOC=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) OUT="$2"; shift 2 ;;
    -jar|-s|-r) shift 2 ;;
    *) DOC="$1"; shift ;;
  esac
done
BASE=$(basename "$DOC" .xml)
` + body + "\n"

	path := filepath.Join(t.TempDir(), "fake-validator.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.xml")
	require.NoError(t, os.WriteFile(path, []byte("<Invoice/>"), 0o644))
	return path
}

func TestValidateParsesReportFromRejectedRun(t *testing.T) {
	t.Parallel()

	bin := stubEngine(t, `cat > "$OUT/$BASE-report.xml" <<'EOF'
<report>
  <message code="BR-CO-15" level="error">totals mismatch</message>
</report>
EOF
exit 1`)

	r := NewRunner(bin, "validator.jar", "scenarios.xml", "", time.Minute)
	findings, err := r.Validate(context.Background(), writeDoc(t))
	require.NoError(t, err)

	require.Len(t, findings, 1)
	assert.Equal(t, "BR-CO-15", findings[0]["id"])
}

func TestValidateCleanRunNoFindings(t *testing.T) {
	t.Parallel()

	bin := stubEngine(t, `printf '<report valid="true"/>' > "$OUT/$BASE-report.xml"
exit 0`)

	r := NewRunner(bin, "validator.jar", "scenarios.xml", "", time.Minute)
	findings, err := r.Validate(context.Background(), writeDoc(t))
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestValidateMissingReport(t *testing.T) {
	t.Parallel()

	bin := stubEngine(t, `echo "engine exploded" >&2
exit 1`)

	r := NewRunner(bin, "validator.jar", "scenarios.xml", "", time.Minute)
	findings, err := r.Validate(context.Background(), writeDoc(t))
	require.NoError(t, err)

	require.Len(t, findings, 1)
	assert.Equal(t, ReportMissingID, findings[0]["id"])
	assert.Equal(t, "fatal", findings[0]["severity"])
	assert.Contains(t, findings[0]["message"], "engine exploded")
}

func TestValidateMalformedReport(t *testing.T) {
	t.Parallel()

	bin := stubEngine(t, `printf 'this is not xml at all' > "$OUT/$BASE-report.xml"
exit 1`)

	r := NewRunner(bin, "validator.jar", "scenarios.xml", "", time.Minute)
	findings, err := r.Validate(context.Background(), writeDoc(t))
	require.NoError(t, err)

	require.Len(t, findings, 1)
	assert.Equal(t, MalformedReportID, findings[0]["id"])
	assert.Equal(t, "fatal", findings[0]["severity"])
}

func TestValidateUnstartableBinary(t *testing.T) {
	t.Parallel()

	r := NewRunner("/nonexistent/java", "validator.jar", "scenarios.xml", "", time.Minute)
	_, err := r.Validate(context.Background(), writeDoc(t))
	assert.Error(t, err)
}

func TestFindReportPrefersExactName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other-report.xml"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "invoice-report.xml"), []byte("x"), 0o644))

	path, ok := FindReport(dir, "/somewhere/invoice.xml")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "invoice-report.xml"), path)
}

func TestFindReportFallsBackToAnyReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other-report.xml"), []byte("x"), 0o644))

	path, ok := FindReport(dir, "/somewhere/invoice.xml")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "other-report.xml"), path)
}

func TestFindReportNone(t *testing.T) {
	t.Parallel()

	_, ok := FindReport(t.TempDir(), "/somewhere/invoice.xml")
	assert.False(t, ok)
}
