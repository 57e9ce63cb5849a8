package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"snapdiff/internal/builder"
	"snapdiff/internal/config"
	"snapdiff/internal/format"
	"snapdiff/internal/hash"
	"snapdiff/internal/progress"
	"snapdiff/internal/snapshot"
	"snapdiff/internal/walker"
)

// app holds state shared by every command of one invocation.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "snapdiff",
		Short: "Snapshot file trees and compare them",
		Long: `snapdiff records the paths, sizes, timestamps and content hashes of a
file tree and classifies what changed between two snapshots: created,
deleted, modified, moved, copied and touched entries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "snapdiff.yaml", "config file path")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every decision")

	root.AddCommand(
		newCreateCmd(a),
		newUpdateCmd(a),
		newCompareCmd(a),
		newDigestCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func (a *app) newWalker() *walker.Walker {
	return walker.NewOS(
		walker.WithExclusions(a.cfg.Exclude),
		walker.WithErrorHandler(func(path string, err error) error {
			if !a.cfg.SkipUnreadable {
				return err
			}
			a.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}),
	)
}

// newBuilder wires the host filesystem walker and hasher into a builder.
func (a *app) newBuilder(opts builder.Options) *builder.Builder {
	w := a.newWalker()
	options := []builder.Option{builder.WithLogger(a.logger)}
	if f, ok := a.stderr.(*os.File); ok && progress.IsTerminal(f) {
		options = append(options, builder.WithProgress(progress.New(f)))
	}
	return builder.New(w, w, w, hash.NewHasher(), opts, options...)
}

func absRoots(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	roots := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		roots = append(roots, abs)
	}
	return roots, nil
}

// writeSnapshot saves s to output, or prints it in the configured format
// when output is empty or "-".
func (a *app) writeSnapshot(s *snapshot.Snapshot, output string) error {
	if output == "" || output == "-" {
		f, err := format.ByName(a.cfg.Format)
		if err != nil {
			return err
		}
		return f.Write(a.stdout, s)
	}

	if err := format.Save(s, output); err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "✓ Snapshot saved\n")
	fmt.Fprintf(a.stderr, "  Entries: %d\n", s.Len())
	fmt.Fprintf(a.stderr, "  Prefix: %s\n", s.Prefix())
	fmt.Fprintf(a.stderr, "  Output: %s\n", output)
	return nil
}
