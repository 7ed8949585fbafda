package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stigoleg/pad-alive/internal/cli"
)

func TestWriteCompletions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeCompletions(cli.NewRootCommand("test"), dir))

	for _, name := range []string{"padalive.bash", "_padalive", "padalive.fish"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(data), "padalive", name)
	}
}

func TestWriteMan(t *testing.T) {
	dir := t.TempDir()
	root := cli.NewRootCommand("test")
	root.DisableAutoGenTag = true
	require.NoError(t, writeMan(root, dir))

	data, err := os.ReadFile(filepath.Join(dir, "padalive.1"))
	require.NoError(t, err)
	page := string(data)
	assert.Contains(t, page, `.TH "PADALIVE" "1"`)
	assert.False(t, strings.Contains(page, "Auto generated by spf13/cobra"))
	for _, flag := range []string{"backend", "monitor", "poll"} {
		assert.Contains(t, page, flag)
	}
}
