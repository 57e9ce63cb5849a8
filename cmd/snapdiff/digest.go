package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"snapdiff/internal/digest"
	"snapdiff/internal/format"
)

func newDigestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "digest <snapshot>",
		Short: "Print the Merkle root of a snapshot",
		Long: `Print a digest over every entry's relative path, type, size and hash.
Two snapshots of the same content have the same digest regardless of where
the tree was rooted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := format.Load(args[0])
			if err != nil {
				return err
			}
			root, err := digest.RootHex(s)
			if err != nil {
				return fmt.Errorf("failed to compute digest: %w", err)
			}
			fmt.Fprintln(a.stdout, root)
			return nil
		},
	}
}
