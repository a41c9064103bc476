package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoiceguard/invoiceguard/internal/config"
	"github.com/invoiceguard/invoiceguard/internal/suppression"
)

func checkConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "validator.jar"), []byte("jar"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scenarios.xml"), []byte("<scenarios/>"), 0o644))

	return &config.Config{
		Engine: config.EngineConfig{
			JavaBin:   "sh",
			JarPath:   filepath.Join(dir, "validator.jar"),
			Scenarios: filepath.Join(dir, "scenarios.xml"),
		},
		Suppression: config.SuppressionConfig{
			Path: filepath.Join(dir, "dependencies.json"),
		},
	}, dir
}

func runCheck(t *testing.T, c *config.Config) (string, error) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })

	var buf bytes.Buffer
	checkCmd.SetOut(&buf)
	t.Cleanup(func() { checkCmd.SetOut(nil) })

	err := checkCmd.RunE(checkCmd, nil)
	return buf.String(), err
}

func TestCheckCommand_AllGood(t *testing.T) {
	c, _ := checkConfig(t)

	out, err := runCheck(t, c)
	require.NoError(t, err)
	assert.Contains(t, out, "ok   java binary")
	assert.Contains(t, out, "ok   validator jar")
	assert.Contains(t, out, "ok   scenarios")
	assert.Contains(t, out, "no suppressions apply")
}

func TestCheckCommand_CountsSuppressionEntries(t *testing.T) {
	c, _ := checkConfig(t)
	require.NoError(t, suppression.Write(c.Suppression.Path, map[string][]string{
		"PEPPOL-EN16931-R051": {"BR-CO-15"},
	}))

	out, err := runCheck(t, c)
	require.NoError(t, err)
	assert.Contains(t, out, "1 parent entries")
}

func TestCheckCommand_MissingJar(t *testing.T) {
	c, _ := checkConfig(t)
	require.NoError(t, os.Remove(c.Engine.JarPath))

	out, err := runCheck(t, c)
	assert.Error(t, err)
	assert.Contains(t, out, "FAIL validator jar")
}

func TestCheckCommand_MissingJavaBinary(t *testing.T) {
	c, _ := checkConfig(t)
	c.Engine.JavaBin = "/nonexistent/java"

	out, err := runCheck(t, c)
	assert.Error(t, err)
	assert.Contains(t, out, "FAIL java binary")
}

func TestCheckCommand_CorruptSuppressionMap(t *testing.T) {
	c, _ := checkConfig(t)
	require.NoError(t, os.WriteFile(c.Suppression.Path, []byte("not json"), 0o644))

	out, err := runCheck(t, c)
	assert.Error(t, err)
	assert.Contains(t, out, "FAIL suppression map")
}
