// Package digest computes a Merkle root that summarises a snapshot.
package digest

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	mt "github.com/txaty/go-merkletree"

	"snapdiff/internal/hash"
	"snapdiff/internal/snapshot"
)

const emptyTree = "empty-tree"

// leaf is one entry as it takes part in the tree. Paths are relative to the
// snapshot prefix and always use "/".
type leaf struct {
	path string
	typ  snapshot.EntryType
	size *int64
	hash string
}

// Serialize implements merkletree.DataBlock.
func (l leaf) Serialize() ([]byte, error) {
	size := "-"
	if l.size != nil {
		size = strconv.FormatInt(*l.size, 10)
	}
	return []byte(strings.Join([]string{l.path, l.typ.String(), size, l.hash}, "\x00")), nil
}

// Root returns the Merkle root of s. Snapshots of the same tree taken under
// different roots or with different separators have the same root.
// Timestamps are not part of the digest.
func Root(s *snapshot.Snapshot) ([]byte, error) {
	leaves, err := collect(s)
	if err != nil {
		return nil, err
	}

	switch len(leaves) {
	case 0:
		return hash.XXHashFunc([]byte(emptyTree))
	case 1:
		// the tree library needs at least two blocks
		data, err := leaves[0].Serialize()
		if err != nil {
			return nil, err
		}
		return hash.XXHashFunc(data)
	}

	blocks := make([]mt.DataBlock, len(leaves))
	for i := range leaves {
		blocks[i] = leaves[i]
	}

	tree, err := mt.New(&mt.Config{
		HashFunc: hash.XXHashFunc,
		Mode:     mt.ModeTreeBuild,
	}, blocks)
	if err != nil {
		return nil, fmt.Errorf("failed to build merkle tree: %w", err)
	}
	return tree.Root, nil
}

// RootHex is Root rendered as lowercase hex.
func RootHex(s *snapshot.Snapshot) (string, error) {
	root, err := Root(s)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(root), nil
}

func collect(s *snapshot.Snapshot) ([]leaf, error) {
	leaves := make([]leaf, 0, s.Len())
	for _, e := range s.Entries() {
		rel, err := s.RelativePath(e.Path(), '/')
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf{
			path: rel,
			typ:  e.Type(),
			size: e.Size,
			hash: e.HashHex(),
		})
	}
	// entry order follows the native separator, so sort again
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].path < leaves[j].path })
	return leaves, nil
}
