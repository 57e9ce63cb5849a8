package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"snapdiff/internal/builder"
	"snapdiff/internal/compare"
	"snapdiff/internal/config"
	"snapdiff/internal/format"
	"snapdiff/internal/script"
	"snapdiff/internal/snapshot"
)

func newCompareCmd(a *app) *cobra.Command {
	var (
		scriptType string
		scriptRoot string
	)

	cmd := &cobra.Command{
		Use:   "compare <older> <newer>",
		Short: "Report the differences between two snapshots",
		Long: `Classify every entry of the newer snapshot against the older one.
<newer> may also be a directory, which is scanned on the fly, reusing the
older snapshot's hashes where metadata is unchanged.

Exit status is 0 when nothing changed, 1 when changes were found and 2 on
errors.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			older, err := format.Load(args[0])
			if err != nil {
				return err
			}
			newer, err := a.loadOrScan(cmd, args[1], older)
			if err != nil {
				return err
			}

			diff, err := compare.Compare(older, newer, a.cfg.CompareOptions())
			if err != nil {
				return fmt.Errorf("failed to compare snapshots: %w", err)
			}

			if scriptType != "" {
				w, err := script.ByName(scriptType, scriptRoot)
				if err != nil {
					return err
				}
				if err := w.Write(a.stdout, diff); err != nil {
					return err
				}
			} else {
				fmt.Fprint(a.stdout, compare.FormatReport(diff))
			}

			if diff.HasChanges() {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scriptType, "script", "", "print a bash or powershell script instead of a report")
	cmd.Flags().StringVar(&scriptRoot, "root", "", "directory the script operates in")
	config.BindCompareFlags(cmd.Flags())
	config.BindFlags(cmd.Flags())
	return cmd
}

// loadOrScan loads path as a snapshot, or scans it when it is a directory.
func (a *app) loadOrScan(cmd *cobra.Command, path string, older *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return format.Load(path)
	}

	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	opts, err := a.cfg.BuilderOptions([]string{root})
	if err != nil {
		return nil, err
	}
	opts.KeepRemoved = false

	if older.Len() == 0 {
		return a.newBuilder(opts).Create(cmd.Context())
	}
	opts.PrefixRewrite = &builder.Rewrite{From: older.Prefix(), To: root}
	return a.newBuilder(opts).Update(cmd.Context(), older)
}
