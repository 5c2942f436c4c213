// Copyright 2023 The gg Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package objwalk

import (
	"bytes"
	"fmt"

	"github.com/chrislloyd/git-remote-sqlite/internal/gitobj"
)

// parseCommitTreeAndParents decodes just enough of a commit object's
// headers to drive the walker: the tree it points at and its parent
// commits. It does not parse author/committer/message, which the walker
// never needs.
func parseCommitTreeAndParents(data []byte) (tree gitobj.SHA, parents []gitobj.SHA, err error) {
	lines := bytes.Split(data, []byte{'\n'})
	sawTree := false
	for _, line := range lines {
		if len(line) == 0 {
			break // blank line separates headers from the message
		}
		switch {
		case bytes.HasPrefix(line, []byte("tree ")):
			tree, err = gitobj.ParseSHA(string(line[len("tree "):]))
			if err != nil {
				return gitobj.SHA{}, nil, fmt.Errorf("parse commit: %w", err)
			}
			sawTree = true
		case bytes.HasPrefix(line, []byte("parent ")):
			p, err := gitobj.ParseSHA(string(line[len("parent "):]))
			if err != nil {
				return gitobj.SHA{}, nil, fmt.Errorf("parse commit: %w", err)
			}
			parents = append(parents, p)
		}
	}
	if !sawTree {
		return gitobj.SHA{}, nil, fmt.Errorf("parse commit: missing tree header")
	}
	return tree, parents, nil
}

// treeEntry is one decoded entry of a Git tree object.
type treeEntry struct {
	name  string
	isDir bool
	sha   gitobj.SHA
}

// dirMode is the tree-entry mode Git uses for a sub-tree.
const dirMode = "40000"

// parseTreeEntries decodes a tree object's binary entry list:
// "<mode> <name>\x00<20-byte-sha>", repeated.
func parseTreeEntries(data []byte) ([]treeEntry, error) {
	var entries []treeEntry
	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("parse tree: missing mode separator")
		}
		mode := string(data[:sp])
		rest := data[sp+1:]
		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return nil, fmt.Errorf("parse tree: missing name terminator")
		}
		name := string(rest[:nul])
		rest = rest[nul+1:]
		if len(rest) < 20 {
			return nil, fmt.Errorf("parse tree: truncated object id")
		}
		var sha gitobj.SHA
		copy(sha[:], rest[:20])
		entries = append(entries, treeEntry{name: name, isDir: mode == dirMode, sha: sha})
		data = rest[20:]
	}
	return entries, nil
}
