package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"snapdiff/internal/builder"
	"snapdiff/internal/config"
	"snapdiff/internal/format"
)

func newCreateCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "create [directory...]",
		Short: "Record a snapshot of one or more directories",
		Long: `Walk each directory, hash its files and write the snapshot.
The output format follows the file extension (.json, .yaml, anything else
is text); a trailing .zst compresses it. Without -o the snapshot is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := absRoots(args)
			if err != nil {
				return err
			}
			opts, err := a.cfg.BuilderOptions(roots)
			if err != nil {
				return err
			}

			s, err := a.newBuilder(opts).Create(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to create snapshot: %w", err)
			}
			return a.writeSnapshot(s, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file to write")
	config.BindFlags(cmd.Flags())
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var (
		output  string
		rewrite string
	)

	cmd := &cobra.Command{
		Use:   "update <snapshot> [directory...]",
		Short: "Refresh a snapshot, rehashing only entries whose metadata changed",
		Long: `Walk the directories again and reuse the recorded hash of every file
whose size and timestamps still match. Without directories the snapshot's
own prefix is walked. --rewrite-prefix OLD=NEW maps recorded paths under OLD
onto live paths under NEW, for trees that were moved or mounted elsewhere.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			old, err := format.Load(args[0])
			if err != nil {
				return err
			}

			dirs := args[1:]
			rw, err := parseRewrite(rewrite)
			if err != nil {
				return err
			}
			if len(dirs) == 0 {
				switch {
				case rw != nil:
					dirs = []string{rw.To}
				case old.Prefix() != "":
					dirs = []string{old.Prefix()}
				}
			}

			roots, err := absRoots(dirs)
			if err != nil {
				return err
			}
			opts, err := a.cfg.BuilderOptions(roots)
			if err != nil {
				return err
			}
			opts.PrefixRewrite = rw

			s, err := a.newBuilder(opts).Update(cmd.Context(), old)
			if err != nil {
				return fmt.Errorf("failed to update snapshot: %w", err)
			}
			if output == "" {
				output = args[0]
			}
			return a.writeSnapshot(s, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file to write (default: overwrite the input)")
	cmd.Flags().StringVar(&rewrite, "rewrite-prefix", "", "map recorded paths OLD=NEW")
	config.BindFlags(cmd.Flags())
	return cmd
}

func parseRewrite(s string) (*builder.Rewrite, error) {
	if s == "" {
		return nil, nil
	}
	from, to, ok := strings.Cut(s, "=")
	if !ok || from == "" || to == "" {
		return nil, fmt.Errorf("invalid --rewrite-prefix %q, want OLD=NEW", s)
	}
	to, err := filepath.Abs(to)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	return &builder.Rewrite{From: from, To: to}, nil
}
