package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/stigoleg/pad-alive/internal/cli"
)

// This small tool generates shell completions and a man page from the
// padalive command definition.

func main() {
	root := cli.NewRootCommand("dev")
	root.DisableAutoGenTag = true

	if err := writeCompletions(root, filepath.Join("docs", "completions")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := writeMan(root, "man"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func writeCompletions(root *cobra.Command, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	name := root.Name()
	if err := root.GenBashCompletionFileV2(filepath.Join(dir, name+".bash"), true); err != nil {
		return fmt.Errorf("bash completion: %w", err)
	}
	if err := root.GenZshCompletionFile(filepath.Join(dir, "_"+name)); err != nil {
		return fmt.Errorf("zsh completion: %w", err)
	}
	if err := root.GenFishCompletionFile(filepath.Join(dir, name+".fish"), true); err != nil {
		return fmt.Errorf("fish completion: %w", err)
	}
	return nil
}

func writeMan(root *cobra.Command, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	header := &doc.GenManHeader{
		Title:   "PADALIVE",
		Section: "1",
		Source:  "padalive",
		Manual:  "User Commands",
	}
	if err := doc.GenManTree(root, header, dir); err != nil {
		return fmt.Errorf("man page: %w", err)
	}
	return nil
}
